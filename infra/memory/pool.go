package memory

// MaxFree caps the free list. Objects returned beyond it are dropped for
// the garbage collector, so a cleared large tree does not pin its nodes.
const MaxFree = 1024

// Pool is a typed object pool backed by a free-list stack.
// A positive limit caps the number of objects handed out at once.
type Pool[T any] struct {
	free  []*T
	ctor  func() *T
	limit int
	live  int
}

// NewPool builds a pool. limit <= 0 means unbounded.
func NewPool[T any](ctor func() *T, limit int) *Pool[T] {
	if ctor == nil {
		panic("memory.Pool: nil constructor")
	}
	if limit < 0 {
		limit = 0
	}
	return &Pool[T]{ctor: ctor, limit: limit}
}

// Get returns a zeroed object, or nil when the pool is exhausted.
func (p *Pool[T]) Get() *T {
	if p.limit > 0 && p.live >= p.limit {
		return nil // exhausted
	}
	var v *T
	if n := len(p.free); n > 0 {
		v = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
	} else {
		v = p.ctor()
	}
	p.live++
	return v
}

// Put resets v and returns it to the free list, or drops it when the
// free list already holds MaxFree objects.
func (p *Pool[T]) Put(v *T) {
	if v == nil {
		return
	}
	var zero T
	*v = zero
	if p.live > 0 {
		p.live--
	}
	if len(p.free) >= MaxFree {
		return
	}
	p.free = append(p.free, v)
}

// Live is the number of objects currently handed out.
func (p *Pool[T]) Live() int { return p.live }

// Free is the number of recycled objects waiting on the free list.
func (p *Pool[T]) Free() int { return len(p.free) }

// Limit reports the live cap (0 = unbounded).
func (p *Pool[T]) Limit() int { return p.limit }

// Available reports how many more objects Get can hand out, or -1 when unbounded.
func (p *Pool[T]) Available() int {
	if p.limit == 0 {
		return -1
	}
	return p.limit - p.live
}
