package rbtree

import (
	"cmp"

	"ordmap/infra/memory"
)

// Comparator orders keys: negative when a < b, zero when equal,
// positive when a > b. It must be a strict total order.
type Comparator[K any] func(a, b K) int

type color uint8

const (
	red   color = 0
	black color = 1
)

type node[K any, V any] struct {
	key    K
	value  V
	color  color
	left   *node[K, V]
	right  *node[K, V]
	parent *node[K, V]
}

// Tree is an ordered map. The zero value is not usable; call New.
type Tree[K any, V any] struct {
	root *node[K, V]
	nil  *node[K, V] // sentinel (black)
	size int
	cmp  Comparator[K]
	pool *memory.Pool[node[K, V]]
}

type options struct {
	capacity int
}

// Option configures a Tree.
type Option func(*options)

// WithCapacity caps the number of live nodes. Inserting a new key beyond
// the cap fails with ErrAllocationFailure. n <= 0 means unbounded.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// New constructs an empty tree ordered by cmp. It panics with
// ErrNilComparator when cmp is nil.
func New[K any, V any](cmp Comparator[K], opts ...Option) *Tree[K, V] {
	if cmp == nil {
		panic(ErrNilComparator)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	nilNode := &node[K, V]{color: black}
	return &Tree[K, V]{
		root: nilNode,
		nil:  nilNode,
		cmp:  cmp,
		pool: memory.NewPool(func() *node[K, V] { return new(node[K, V]) }, o.capacity),
	}
}

// NewOrdered constructs a tree over a naturally ordered key type.
func NewOrdered[K cmp.Ordered, V any](opts ...Option) *Tree[K, V] {
	return New[K, V](cmp.Compare[K], opts...)
}

// ---- public API ----

func (t *Tree[K, V]) Len() int { return t.size }

func (t *Tree[K, V]) IsEmpty() bool { return t.size == 0 }

// Capacity returns the live node cap, 0 when unbounded.
func (t *Tree[K, V]) Capacity() int { return t.pool.Limit() }

// Insert adds key or replaces the value stored under it.
func (t *Tree[K, V]) Insert(key K, value V) error {
	y := t.nil
	x := t.root
	c := 0
	for x != t.nil {
		y = x
		c = t.cmp(key, x.key)
		switch {
		case c < 0:
			x = x.left
		case c > 0:
			x = x.right
		default:
			x.value = value
			return nil
		}
	}

	z := t.pool.Get()
	if z == nil {
		return ErrAllocationFailure
	}
	z.key = key
	z.value = value
	z.color = red
	z.left = t.nil
	z.right = t.nil
	z.parent = y

	if y == t.nil {
		t.root = z
	} else if c < 0 {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return nil
}

// Get returns the value stored under key.
func (t *Tree[K, V]) Get(key K) (V, bool) {
	n := t.searchNode(key)
	if n == t.nil {
		var zero V
		return zero, false
	}
	return n.value, true
}

func (t *Tree[K, V]) Contains(key K) bool {
	_, ok := t.Get(key)
	return ok
}

// Delete unlinks key and reports whether it was present. Colors are not
// repaired afterwards; only the root is forced black.
func (t *Tree[K, V]) Delete(key K) bool {
	z := t.searchNode(key)
	if z == t.nil {
		return false
	}
	t.unlink(z)
	t.root.color = black
	t.size--
	t.pool.Put(z)
	return true
}

// Min returns the smallest entry.
func (t *Tree[K, V]) Min() (K, V, bool) {
	return t.entry(t.minNode(t.root))
}

// Max returns the largest entry.
func (t *Tree[K, V]) Max() (K, V, bool) {
	return t.entry(t.maxNode(t.root))
}

// Height is the number of nodes on the longest root-to-leaf path.
func (t *Tree[K, V]) Height() int {
	return t.height(t.root)
}

// Successor returns the smallest entry strictly greater than key.
func (t *Tree[K, V]) Successor(key K) (K, V, bool) {
	n := t.root
	succ := t.nil
	for n != t.nil {
		if t.cmp(key, n.key) < 0 {
			succ = n
			n = n.left
		} else {
			n = n.right
		}
	}
	return t.entry(succ)
}

// Predecessor returns the largest entry strictly smaller than key.
func (t *Tree[K, V]) Predecessor(key K) (K, V, bool) {
	n := t.root
	pred := t.nil
	for n != t.nil {
		if t.cmp(key, n.key) > 0 {
			pred = n
			n = n.right
		} else {
			n = n.left
		}
	}
	return t.entry(pred)
}

// Clear drops every entry without callbacks.
func (t *Tree[K, V]) Clear() {
	t.Destroy(nil, nil)
}

/******************** Internal helpers ********************/

func (t *Tree[K, V]) entry(n *node[K, V]) (K, V, bool) {
	if n == t.nil {
		var (
			k K
			v V
		)
		return k, v, false
	}
	return n.key, n.value, true
}

func (t *Tree[K, V]) searchNode(key K) *node[K, V] {
	n := t.root
	for n != t.nil {
		c := t.cmp(key, n.key)
		if c < 0 {
			n = n.left
		} else if c > 0 {
			n = n.right
		} else {
			return n
		}
	}
	return t.nil
}

func (t *Tree[K, V]) height(n *node[K, V]) int {
	if n == t.nil {
		return 0
	}
	return 1 + max(t.height(n.left), t.height(n.right))
}

func (t *Tree[K, V]) minNode(n *node[K, V]) *node[K, V] {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *Tree[K, V]) maxNode(n *node[K, V]) *node[K, V] {
	if n == t.nil {
		return t.nil
	}
	for n.right != t.nil {
		n = n.right
	}
	return n
}

func (t *Tree[K, V]) next(n *node[K, V]) *node[K, V] {
	if n.right != t.nil {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *Tree[K, V]) prev(n *node[K, V]) *node[K, V] {
	if n.left != t.nil {
		return t.maxNode(n.left)
	}
	p := n.parent
	for p != t.nil && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

func (t *Tree[K, V]) leftRotate(x *node[K, V]) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *Tree[K, V]) rightRotate(y *node[K, V]) {
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.nil {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *Tree[K, V]) insertFixup(z *node[K, V]) {
	for z.parent.color == red {
		g := z.parent.parent
		if z.parent == g.left {
			uncle := g.right
			if uncle.color == red {
				z.parent.color = black
				uncle.color = black
				g.color = red
				z = g
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.leftRotate(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rightRotate(z.parent.parent)
		} else {
			uncle := g.left
			if uncle.color == red {
				z.parent.color = black
				uncle.color = black
				g.color = red
				z = g
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rightRotate(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.leftRotate(z.parent.parent)
		}
	}
	t.root.color = black
}

func (t *Tree[K, V]) transplant(u, v *node[K, V]) {
	if u.parent == t.nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

// unlink removes z from the tree, splicing in its in-order successor when
// z has two children. No delete fixup is performed.
func (t *Tree[K, V]) unlink(z *node[K, V]) {
	switch {
	case z.left == t.nil:
		t.transplant(z, z.right)
	case z.right == t.nil:
		t.transplant(z, z.left)
	default:
		y := t.minNode(z.right)
		if y.parent != z {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}
	t.nil.parent = nil
}
