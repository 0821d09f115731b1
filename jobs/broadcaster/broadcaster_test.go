package broadcaster

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordmap/infra/kafka"
	"ordmap/infra/logger"
	"ordmap/infra/metrics"
	"ordmap/infra/outbox"
	"ordmap/service"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Message
	failN   int
	calls   int
}

func (f *fakePublisher) Publish(_ context.Context, msgs []kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failN > 0 {
		f.failN--
		return errors.New("broker unavailable")
	}
	f.batches = append(f.batches, append([]kafka.Message(nil), msgs...))
	return nil
}

func (f *fakePublisher) published() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []kafka.Message
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

func newTestBroadcaster(t *testing.T, pub Publisher, cfg Config) (*Broadcaster, *outbox.Outbox, *metrics.Metrics) {
	t.Helper()
	ob, err := outbox.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })

	m := metrics.New(nil)
	return New(ob, pub, cfg, m, logger.Discard()), ob, m
}

func event(seq uint64, key string) service.Event {
	return service.Event{ID: "id", Seq: seq, Op: service.OpPut, Key: key, Value: "v", Time: 1}
}

func TestFlushPublishesInOrder(t *testing.T) {
	pub := &fakePublisher{}
	b, ob, m := newTestBroadcaster(t, pub, Config{BatchSize: 2})

	for i, k := range []string{"a", "b", "c", "d", "e"} {
		b.Enqueue(event(uint64(i+1), k))
	}
	assert.Equal(t, 5.0, testutil.ToFloat64(m.FeedQueue))

	require.NoError(t, b.Flush(context.Background()))

	assert.Len(t, pub.batches, 3)
	msgs := pub.published()
	require.Len(t, msgs, 5)
	for i, msg := range msgs {
		var ev service.Event
		require.NoError(t, json.Unmarshal(msg.Value, &ev))
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.Equal(t, string(msg.Key), ev.Key)
	}

	n, err := ob.Pending()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.FeedPublished))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FeedQueue))
}

func TestFlushRetries(t *testing.T) {
	pub := &fakePublisher{failN: 2}
	b, ob, m := newTestBroadcaster(t, pub, Config{MaxRetries: 3, RetryInterval: time.Millisecond})

	b.Enqueue(event(1, "k"))
	require.NoError(t, b.Flush(context.Background()))

	assert.Equal(t, 3, pub.calls)
	assert.Len(t, pub.published(), 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FeedFailed))

	n, err := ob.Pending()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFlushKeepsEventsWhenBrokerDown(t *testing.T) {
	pub := &fakePublisher{failN: 100}
	b, ob, _ := newTestBroadcaster(t, pub, Config{MaxRetries: 2, RetryInterval: time.Millisecond})

	b.Enqueue(event(1, "k1"))
	b.Enqueue(event(2, "k2"))
	require.Error(t, b.Flush(context.Background()))

	n, err := ob.Pending()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pub.mu.Lock()
	pub.failN = 0
	pub.mu.Unlock()

	require.NoError(t, b.Flush(context.Background()))
	assert.Len(t, pub.published(), 2)
}

func TestRunDrainsOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	b, ob, _ := newTestBroadcaster(t, pub, Config{FlushInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	for i := 1; i <= 10; i++ {
		b.Enqueue(event(uint64(i), "k"))
	}
	require.Eventually(t, func() bool { return len(pub.published()) == 10 }, 2*time.Second, 5*time.Millisecond)

	b.Enqueue(event(11, "late"))
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcaster did not stop")
	}

	assert.Len(t, pub.published(), 11)
	n, err := ob.Pending()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoreFeedsBroadcaster(t *testing.T) {
	pub := &fakePublisher{}
	b, _, _ := newTestBroadcaster(t, pub, Config{})

	store := service.NewStore(service.Options{Feed: b, Logger: logger.Discard()})
	ctx := context.Background()
	_, err := store.Put(ctx, "x", "1")
	require.NoError(t, err)
	_, ok := store.Delete(ctx, "x")
	require.True(t, ok)

	require.NoError(t, b.Flush(ctx))
	msgs := pub.published()
	require.Len(t, msgs, 2)

	var ev service.Event
	require.NoError(t, json.Unmarshal(msgs[1].Value, &ev))
	assert.Equal(t, service.OpDelete, ev.Op)
	assert.Equal(t, uint64(2), ev.Seq)
}

func TestRestartKeepsUndeliveredEvents(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cfg := Config{MaxRetries: 1, RetryInterval: time.Millisecond}

	// first run: broker down, nothing acked
	ob, err := outbox.Open(dir)
	require.NoError(t, err)
	down := &fakePublisher{failN: 100}
	b := New(ob, down, cfg, nil, logger.Discard())
	store := service.NewStore(service.Options{Feed: b, Logger: logger.Discard()})
	_, err = store.Put(ctx, "a", "1")
	require.NoError(t, err)
	_, err = store.Put(ctx, "b", "2")
	require.NoError(t, err)
	require.Error(t, b.Flush(ctx))
	require.NoError(t, ob.Close())

	// second run: resume numbering above what is still pending
	ob, err = outbox.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })
	up := &fakePublisher{}
	b = New(ob, up, cfg, nil, logger.Discard())
	last, err := b.LastSeq()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), last)

	store = service.NewStore(service.Options{Revision: last, Feed: b, Logger: logger.Discard()})
	res, err := store.Put(ctx, "c", "3")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Revision)

	require.NoError(t, b.Flush(ctx))
	msgs := up.published()
	require.Len(t, msgs, 3)

	var keys []string
	var seqs []uint64
	for _, msg := range msgs {
		var ev service.Event
		require.NoError(t, json.Unmarshal(msg.Value, &ev))
		keys = append(keys, ev.Key)
		seqs = append(seqs, ev.Seq)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, []uint64{1, 2, 3}, seqs)
}
