// Package memory provides the node pool used by the ordered map.
//
// Pool is a typed free-list allocator with an optional live limit. When
// the limit is reached Get returns nil instead of allocating, which lets
// callers report allocation failure without leaving partial state behind.
//
// Pools are owned by a single structure and are not safe for concurrent use.
package memory
