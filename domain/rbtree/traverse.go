package rbtree

// ---- recursive traversals ----

// InOrder visits every entry in ascending key order.
func (t *Tree[K, V]) InOrder(visit func(K, V)) {
	if visit == nil {
		return
	}
	t.inorder(t.root, visit)
}

// PreOrder visits each node before its subtrees.
func (t *Tree[K, V]) PreOrder(visit func(K, V)) {
	if visit == nil {
		return
	}
	t.preorder(t.root, visit)
}

// PostOrder visits each node after its subtrees.
func (t *Tree[K, V]) PostOrder(visit func(K, V)) {
	if visit == nil {
		return
	}
	t.postorder(t.root, visit)
}

func (t *Tree[K, V]) inorder(n *node[K, V], visit func(K, V)) {
	if n == t.nil {
		return
	}
	t.inorder(n.left, visit)
	visit(n.key, n.value)
	t.inorder(n.right, visit)
}

func (t *Tree[K, V]) preorder(n *node[K, V], visit func(K, V)) {
	if n == t.nil {
		return
	}
	visit(n.key, n.value)
	t.preorder(n.left, visit)
	t.preorder(n.right, visit)
}

func (t *Tree[K, V]) postorder(n *node[K, V], visit func(K, V)) {
	if n == t.nil {
		return
	}
	t.postorder(n.left, visit)
	t.postorder(n.right, visit)
	visit(n.key, n.value)
}

// ---- walkers ----

// Ascend walks entries from smallest to largest until fn returns false.
func (t *Tree[K, V]) Ascend(fn func(K, V) bool) {
	for n := t.minNode(t.root); n != t.nil; n = t.next(n) {
		if !fn(n.key, n.value) {
			return
		}
	}
}

// Descend walks entries from largest to smallest until fn returns false.
func (t *Tree[K, V]) Descend(fn func(K, V) bool) {
	for n := t.maxNode(t.root); n != t.nil; n = t.prev(n) {
		if !fn(n.key, n.value) {
			return
		}
	}
}

// ---- teardown ----

// Destroy releases every node. Non-nil callbacks run exactly once per
// entry, children before parents. The tree is empty and reusable after.
func (t *Tree[K, V]) Destroy(releaseKey func(K), releaseValue func(V)) {
	t.release(t.root, releaseKey, releaseValue)
	t.root = t.nil
	t.size = 0
}

func (t *Tree[K, V]) release(n *node[K, V], releaseKey func(K), releaseValue func(V)) {
	if n == t.nil {
		return
	}
	t.release(n.left, releaseKey, releaseValue)
	t.release(n.right, releaseKey, releaseValue)
	if releaseKey != nil {
		releaseKey(n.key)
	}
	if releaseValue != nil {
		releaseValue(n.value)
	}
	t.pool.Put(n)
}
