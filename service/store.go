package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ordmap/domain/rbtree"
	"ordmap/infra/metrics"
	"ordmap/infra/sequence"
)

var (
	ErrEmptyKey     = errors.New("key must not be empty")
	ErrUnknownOrder = errors.New("unknown traversal order")
)

var tracer = otel.Tracer("ordmap/service")

// Order selects a traversal for Dump.
type Order string

const (
	OrderIn   Order = "inorder"
	OrderPre  Order = "preorder"
	OrderPost Order = "postorder"
)

type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Result describes a committed mutation.
type Result struct {
	Revision uint64 `json:"revision"`
	Replaced bool   `json:"replaced,omitempty"`
}

// ScanRequest selects keys in [From, To). An empty To is unbounded and a
// non-positive Limit returns everything.
type ScanRequest struct {
	From  string
	To    string
	Limit int
}

type Stats struct {
	Size      int    `json:"size"`
	Height    int    `json:"height"`
	Capacity  int    `json:"capacity"`
	Revision  uint64 `json:"revision"`
	Balanced  bool   `json:"balanced"`
	Violation string `json:"violation,omitempty"`
}

type Options struct {
	// Capacity caps the number of entries; 0 means unbounded.
	Capacity int
	// Revision is the last revision already issued; the first mutation
	// gets Revision+1.
	Revision uint64
	Feed     ChangeFeed
	Metrics  *metrics.Metrics
	Logger   *logrus.Entry
}

/*
Store is the ONLY entry point into the shared tree.

The tree itself is unsynchronized, so every call, iteration included,
runs under mu.
*/
type Store struct {
	mu   sync.Mutex
	tree *rbtree.Tree[string, string]
	seq  *sequence.Sequencer
	feed ChangeFeed
	m    *metrics.Metrics
	log  *logrus.Entry
	now  func() time.Time
}

func NewStore(opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{
		tree: rbtree.New[string, string](strings.Compare, rbtree.WithCapacity(opts.Capacity)),
		seq:  sequence.New(opts.Revision),
		feed: opts.Feed,
		m:    opts.Metrics,
		log:  log.WithField("pkg", "service"),
		now:  time.Now,
	}
}

// ---- commands ----

// Put inserts or replaces key.
func (s *Store) Put(ctx context.Context, key, value string) (Result, error) {
	_, span := tracer.Start(ctx, "service.Put", trace.WithAttributes(attribute.String("ordmap.key", key)))
	defer span.End()
	start := time.Now()

	if key == "" {
		s.finish(span, "put", "invalid", start, ErrEmptyKey)
		return Result{}, ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := s.tree.Contains(key)
	if err := s.tree.Insert(key, value); err != nil {
		err = errors.Wrapf(err, "put %q", key)
		s.log.WithError(err).Warn("insert rejected")
		s.finish(span, "put", "full", start, err)
		return Result{}, err
	}

	rev := s.seq.Next()
	s.publish(newEvent(rev, OpPut, key, value, s.now()))
	s.setSize()

	span.SetAttributes(attribute.Int64("ordmap.revision", int64(rev)))
	result := "inserted"
	if replaced {
		result = "replaced"
	}
	s.log.WithFields(logrus.Fields{"key": key, "rev": rev, "replaced": replaced}).Debug("put")
	s.finish(span, "put", result, start, nil)
	return Result{Revision: rev, Replaced: replaced}, nil
}

// Delete removes key. The bool reports whether it was present; absent
// keys do not consume a revision.
func (s *Store) Delete(ctx context.Context, key string) (Result, bool) {
	_, span := tracer.Start(ctx, "service.Delete", trace.WithAttributes(attribute.String("ordmap.key", key)))
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tree.Delete(key) {
		s.finish(span, "delete", "miss", start, nil)
		return Result{}, false
	}

	rev := s.seq.Next()
	s.publish(newEvent(rev, OpDelete, key, "", s.now()))
	s.setSize()

	span.SetAttributes(attribute.Int64("ordmap.revision", int64(rev)))
	s.log.WithFields(logrus.Fields{"key": key, "rev": rev}).Debug("delete")
	s.finish(span, "delete", "hit", start, nil)
	return Result{Revision: rev}, true
}

// Clear drops every entry, emitting one delete event per key. It returns
// the number of entries removed and the last revision issued.
func (s *Store) Clear(ctx context.Context) (int, uint64) {
	_, span := tracer.Start(ctx, "service.Clear")
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	now := s.now()
	s.tree.Destroy(func(key string) {
		cleared++
		s.publish(newEvent(s.seq.Next(), OpDelete, key, "", now))
	}, nil)
	s.setSize()

	rev := s.seq.Current()
	span.SetAttributes(attribute.Int("ordmap.cleared", cleared))
	s.log.WithFields(logrus.Fields{"cleared": cleared, "rev": rev}).Info("store cleared")
	s.finish(span, "clear", "ok", start, nil)
	return cleared, rev
}

// ---- queries ----

func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	_, span := tracer.Start(ctx, "service.Get", trace.WithAttributes(attribute.String("ordmap.key", key)))
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	v, ok := s.tree.Get(key)
	s.mu.Unlock()

	s.finish(span, "get", hitOrMiss(ok), start, nil)
	return v, ok
}

func (s *Store) Min(ctx context.Context) (Entry, bool) {
	return s.edge(ctx, "min", (*rbtree.Tree[string, string]).Min)
}

func (s *Store) Max(ctx context.Context) (Entry, bool) {
	return s.edge(ctx, "max", (*rbtree.Tree[string, string]).Max)
}

// Scan returns entries in ascending key order.
func (s *Store) Scan(ctx context.Context, req ScanRequest) []Entry {
	_, span := tracer.Start(ctx, "service.Scan", trace.WithAttributes(
		attribute.String("ordmap.from", req.From),
		attribute.String("ordmap.to", req.To),
		attribute.Int("ordmap.limit", req.Limit),
	))
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var it *rbtree.Iterator[string, string]
	if req.From == "" {
		it = s.tree.Iter()
	} else {
		it = s.tree.IterFrom(req.From)
	}
	defer it.Close()

	out := make([]Entry, 0, min(max(req.Limit, 0), s.tree.Len()))
	for ; it.Valid(); it.Next() {
		if req.To != "" && it.Key() >= req.To {
			break
		}
		if req.Limit > 0 && len(out) == req.Limit {
			break
		}
		out = append(out, Entry{Key: it.Key(), Value: it.Value()})
	}

	span.SetAttributes(attribute.Int("ordmap.returned", len(out)))
	s.finish(span, "scan", "ok", start, nil)
	return out
}

// Dump lists every entry in the requested traversal order. Pre and post
// order expose the tree shape and are meant for debugging.
func (s *Store) Dump(ctx context.Context, order Order) ([]Entry, error) {
	_, span := tracer.Start(ctx, "service.Dump", trace.WithAttributes(attribute.String("ordmap.order", string(order))))
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var walk func(func(string, string))
	switch order {
	case OrderIn, "":
		walk = s.tree.InOrder
	case OrderPre:
		walk = s.tree.PreOrder
	case OrderPost:
		walk = s.tree.PostOrder
	default:
		err := errors.Wrapf(ErrUnknownOrder, "%q", order)
		s.finish(span, "dump", "invalid", start, err)
		return nil, err
	}

	out := make([]Entry, 0, s.tree.Len())
	walk(func(k, v string) {
		out = append(out, Entry{Key: k, Value: v})
	})
	s.finish(span, "dump", "ok", start, nil)
	return out, nil
}

func (s *Store) Stats(ctx context.Context) Stats {
	_, span := tracer.Start(ctx, "service.Stats")
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Size:     s.tree.Len(),
		Height:   s.tree.Height(),
		Capacity: s.tree.Capacity(),
		Revision: s.seq.Current(),
		Balanced: true,
	}
	if err := s.tree.Verify(); err != nil {
		st.Balanced = false
		st.Violation = err.Error()
	}
	if s.m != nil {
		s.m.Height.Set(float64(st.Height))
		s.m.Size.Set(float64(st.Size))
	}
	s.finish(span, "stats", "ok", start, nil)
	return st
}

/******** Internal helpers ********/

func (s *Store) edge(ctx context.Context, op string, pick func(*rbtree.Tree[string, string]) (string, string, bool)) (Entry, bool) {
	_, span := tracer.Start(ctx, "service."+op)
	defer span.End()
	start := time.Now()

	s.mu.Lock()
	k, v, ok := pick(s.tree)
	s.mu.Unlock()

	s.finish(span, op, hitOrMiss(ok), start, nil)
	return Entry{Key: k, Value: v}, ok
}

func (s *Store) publish(ev Event) {
	if s.feed != nil {
		s.feed.Enqueue(ev)
	}
}

func (s *Store) setSize() {
	if s.m != nil {
		s.m.Size.Set(float64(s.tree.Len()))
	}
}

func (s *Store) finish(span trace.Span, op, result string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.m.Observe(op, result, time.Since(start).Seconds())
}

func hitOrMiss(ok bool) string {
	if ok {
		return "hit"
	}
	return "miss"
}
