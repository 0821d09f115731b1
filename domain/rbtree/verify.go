package rbtree

import "fmt"

// Verify checks every invariant and returns a *ViolationError for the
// first one that does not hold. After deletions only the coloring
// invariants may legitimately fail; see VerifyStructure.
func (t *Tree[K, V]) Verify() error {
	return t.verify(true)
}

// VerifyStructure checks search order, parent links and size only.
func (t *Tree[K, V]) VerifyStructure() error {
	return t.verify(false)
}

func (t *Tree[K, V]) verify(colors bool) error {
	if t.root != t.nil && t.root.parent != t.nil {
		return &ViolationError{Invariant: InvParentLink, Detail: "root has a parent"}
	}
	if colors && t.root.color != black {
		return &ViolationError{Invariant: InvRootBlack, Detail: fmt.Sprintf("root %v is red", t.root.key)}
	}
	count, _, err := t.check(t.root, t.nil, t.nil, colors)
	if err != nil {
		return err
	}
	if count != t.size {
		return &ViolationError{Invariant: InvSize, Detail: fmt.Sprintf("size %d, reachable %d", t.size, count)}
	}
	return nil
}

// check validates the subtree under n whose keys must lie strictly
// between lo and hi (sentinel = unbounded). It returns the node count
// and the black height.
func (t *Tree[K, V]) check(n, lo, hi *node[K, V], colors bool) (int, int, error) {
	if n == t.nil {
		return 0, 1, nil
	}
	if lo != t.nil && t.cmp(n.key, lo.key) <= 0 {
		return 0, 0, &ViolationError{Invariant: InvOrder, Detail: fmt.Sprintf("%v not above %v", n.key, lo.key)}
	}
	if hi != t.nil && t.cmp(n.key, hi.key) >= 0 {
		return 0, 0, &ViolationError{Invariant: InvOrder, Detail: fmt.Sprintf("%v not below %v", n.key, hi.key)}
	}
	for _, c := range []*node[K, V]{n.left, n.right} {
		if c != t.nil && c.parent != n {
			return 0, 0, &ViolationError{Invariant: InvParentLink, Detail: fmt.Sprintf("child %v of %v points elsewhere", c.key, n.key)}
		}
	}
	if colors && n.color == red && (n.left.color == red || n.right.color == red) {
		return 0, 0, &ViolationError{Invariant: InvRedRed, Detail: fmt.Sprintf("red %v has a red child", n.key)}
	}

	lc, lh, err := t.check(n.left, lo, n, colors)
	if err != nil {
		return 0, 0, err
	}
	rc, rh, err := t.check(n.right, n, hi, colors)
	if err != nil {
		return 0, 0, err
	}
	if colors && lh != rh {
		return 0, 0, &ViolationError{Invariant: InvBlackDepth, Detail: fmt.Sprintf("at %v left %d right %d", n.key, lh, rh)}
	}
	bh := lh
	if n.color == black {
		bh++
	}
	return lc + rc + 1, bh, nil
}
