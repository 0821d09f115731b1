package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"ordmap/domain/rbtree"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through the red-black tree operations locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.OutOrStdout())
	},
}

func init() {
	RootCmd.AddCommand(demoCmd)
}

func runDemo(w io.Writer) error {
	tree := rbtree.NewOrdered[int, string]()

	fmt.Fprintln(w, "== insert 5 3 8 1 4 ==")
	for _, k := range []int{5, 3, 8, 1, 4} {
		if err := tree.Insert(k, fmt.Sprintf("value-%d", k)); err != nil {
			return err
		}
	}
	printWalks(w, tree)
	fmt.Fprintf(w, "size=%d height=%d\n", tree.Len(), tree.Height())

	fmt.Fprintln(w, "\n== lookups ==")
	for _, k := range []int{4, 42} {
		v, ok := tree.Get(k)
		fmt.Fprintf(w, "get(%d) -> %q found=%v\n", k, v, ok)
	}
	if k, v, ok := tree.Min(); ok {
		fmt.Fprintf(w, "min -> %d=%s\n", k, v)
	}
	if k, v, ok := tree.Max(); ok {
		fmt.Fprintf(w, "max -> %d=%s\n", k, v)
	}

	fmt.Fprintln(w, "\n== overwrite 3 ==")
	if err := tree.Insert(3, "updated"); err != nil {
		return err
	}
	v, _ := tree.Get(3)
	fmt.Fprintf(w, "get(3) -> %q size=%d\n", v, tree.Len())

	fmt.Fprintln(w, "\n== delete 5 ==")
	fmt.Fprintf(w, "deleted=%v contains(5)=%v size=%d\n", tree.Delete(5), tree.Contains(5), tree.Len())
	printWalks(w, tree)

	fmt.Fprintln(w, "\n== iterator ==")
	it := tree.Iter()
	for ; it.Valid(); it.Next() {
		fmt.Fprintf(w, "  %d=%s\n", it.Key(), it.Value())
	}
	it.Close()

	fmt.Fprintln(w, "\n== sequential insert 1..1000 ==")
	seq := rbtree.NewOrdered[int, struct{}]()
	for i := 1; i <= 1000; i++ {
		if err := seq.Insert(i, struct{}{}); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "height=%d bound=%.1f verify=%v\n", seq.Height(), 2*math.Log2(1001), seq.Verify())

	released := 0
	seq.Destroy(func(int) { released++ }, nil)
	fmt.Fprintf(w, "destroy released %d keys, size=%d\n", released, seq.Len())
	return nil
}

func printWalks(w io.Writer, tree *rbtree.Tree[int, string]) {
	walks := []struct {
		name string
		fn   func(func(int, string))
	}{
		{"inorder", tree.InOrder},
		{"preorder", tree.PreOrder},
		{"postorder", tree.PostOrder},
	}
	for _, walk := range walks {
		var keys []string
		walk.fn(func(k int, _ string) { keys = append(keys, fmt.Sprint(k)) })
		fmt.Fprintf(w, "%-9s [%s]\n", walk.name, strings.Join(keys, " "))
	}
}
