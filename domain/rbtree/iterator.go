package rbtree

import "iter"

const iterStackInitial = 16

// Iterator yields entries in ascending order using an explicit stack of
// pending nodes. It is single pass and must not outlive mutations of the
// tree it reads.
type Iterator[K any, V any] struct {
	tree  *Tree[K, V]
	stack []*node[K, V]
}

// Iter returns an iterator positioned at the smallest entry.
func (t *Tree[K, V]) Iter() *Iterator[K, V] {
	it := t.newIterator()
	it.pushLeft(t.root)
	return it
}

// IterFrom returns an iterator positioned at the first entry >= key.
func (t *Tree[K, V]) IterFrom(key K) *Iterator[K, V] {
	it := t.newIterator()
	n := t.root
	for n != t.nil {
		if t.cmp(key, n.key) <= 0 {
			it.push(n)
			n = n.left
		} else {
			n = n.right
		}
	}
	return it
}

// All adapts Iter to a range-over-func sequence.
func (t *Tree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		it := t.Iter()
		defer it.Close()
		for ; it.Valid(); it.Next() {
			if !yield(it.Key(), it.Value()) {
				return
			}
		}
	}
}

func (t *Tree[K, V]) newIterator() *Iterator[K, V] {
	return &Iterator[K, V]{
		tree:  t,
		stack: make([]*node[K, V], 0, iterStackInitial),
	}
}

// Valid reports whether the iterator points at an entry.
func (it *Iterator[K, V]) Valid() bool {
	return len(it.stack) > 0
}

// Next advances to the following entry. It is a no-op once exhausted.
func (it *Iterator[K, V]) Next() {
	n := len(it.stack)
	if n == 0 {
		return
	}
	top := it.stack[n-1]
	it.stack[n-1] = nil
	it.stack = it.stack[:n-1]
	it.pushLeft(top.right)
}

// Key returns the current key, or the zero value when !Valid().
func (it *Iterator[K, V]) Key() K {
	if n := len(it.stack); n > 0 {
		return it.stack[n-1].key
	}
	var zero K
	return zero
}

// Value returns the current value, or the zero value when !Valid().
func (it *Iterator[K, V]) Value() V {
	if n := len(it.stack); n > 0 {
		return it.stack[n-1].value
	}
	var zero V
	return zero
}

// Close releases the stack. The iterator is invalid afterwards.
func (it *Iterator[K, V]) Close() {
	it.stack = nil
	it.tree = nil
}

func (it *Iterator[K, V]) pushLeft(n *node[K, V]) {
	if it.tree == nil {
		return
	}
	for n != it.tree.nil {
		it.push(n)
		n = n.left
	}
}

func (it *Iterator[K, V]) push(n *node[K, V]) {
	if len(it.stack) == cap(it.stack) {
		grown := make([]*node[K, V], len(it.stack), 2*cap(it.stack))
		copy(grown, it.stack)
		it.stack = grown
	}
	it.stack = append(it.stack, n)
}
