// Package rbtree implements an ordered map on a red-black tree.
//
// Keys are ordered by a caller supplied Comparator that is fixed for the
// lifetime of the tree. Inserting an existing key replaces its value.
// Lookups report absence with a boolean, never an error.
//
// Insertion runs the classic recolor/rotate fixup so the tree stays
// balanced (height <= 2*log2(n+1)). Deletion only unlinks the node: the
// binary search order and the size stay exact, but the coloring is not
// repaired, so heavy delete workloads can degrade the height bound.
// Verify reports which invariant is currently broken.
//
// A Tree is not safe for concurrent use. Callers that share one must
// serialize every call, iteration included.
package rbtree
