package rbtree

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocationFailure is returned by Insert when no node could be
	// allocated. The tree is left unchanged.
	ErrAllocationFailure = errors.New("rbtree: node allocation failed")

	// ErrNilComparator is the panic value of New when no comparator is given.
	ErrNilComparator = errors.New("rbtree: nil comparator")
)

// Invariant names reported by ViolationError.
const (
	InvRootBlack  = "root-black"
	InvRedRed     = "red-node-black-children"
	InvBlackDepth = "black-height"
	InvOrder      = "search-order"
	InvParentLink = "parent-link"
	InvSize       = "size"
)

// ViolationError describes the first broken invariant found by Verify.
type ViolationError struct {
	Invariant string
	Detail    string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("rbtree: %s violated: %s", e.Invariant, e.Detail)
}

// Coloring reports whether the violation concerns node colors only
// (the kind deletion is allowed to leave behind).
func (e *ViolationError) Coloring() bool {
	switch e.Invariant {
	case InvRootBlack, InvRedRed, InvBlackDepth:
		return true
	}
	return false
}
