package broadcaster

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/relistan/go-director"
	"github.com/sirupsen/logrus"

	"ordmap/infra/kafka"
	"ordmap/infra/metrics"
	"ordmap/infra/outbox"
	"ordmap/service"
)

const (
	DefaultFlushInterval = 100 * time.Millisecond
	DefaultBatchSize     = 1000
	DefaultMaxRetries    = 3
	DefaultRetryInterval = time.Second
)

// Publisher delivers one batch to the broker.
type Publisher interface {
	Publish(ctx context.Context, msgs []kafka.Message) error
}

type Config struct {
	FlushInterval time.Duration
	BatchSize     int
	MaxRetries    int
	RetryInterval time.Duration
}

// Broadcaster implements service.ChangeFeed. Events are appended to the
// outbox on commit and shipped to the publisher in revision order on
// every tick. A batch leaves the outbox only after the broker acked it.
type Broadcaster struct {
	outbox *outbox.Outbox
	pub    Publisher
	cfg    Config
	looper director.Looper
	m      *metrics.Metrics
	log    *logrus.Entry

	flushMu sync.Mutex
}

var _ service.ChangeFeed = (*Broadcaster)(nil)

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(ob *outbox.Outbox, pub Publisher, cfg Config, m *metrics.Metrics, log *logrus.Entry) *Broadcaster {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	b := &Broadcaster{
		outbox: ob,
		pub:    pub,
		cfg:    cfg,
		looper: director.NewTimedLooper(director.FOREVER, cfg.FlushInterval, make(chan error, 1)),
		m:      m,
		log:    log.WithField("pkg", "broadcaster"),
	}
	if n, err := ob.Pending(); err != nil {
		b.log.WithError(err).Warn("unable to count pending events")
	} else if m != nil {
		m.FeedQueue.Set(float64(n))
	}
	return b
}

// LastSeq is the highest revision still waiting in the outbox. The store
// must resume numbering above it.
func (b *Broadcaster) LastSeq() (uint64, error) {
	return b.outbox.LastSeq()
}

// Enqueue records ev in the outbox. Failures are logged; the mutation
// has already been committed.
func (b *Broadcaster) Enqueue(ev service.Event) {
	payload, err := ev.Encode()
	if err != nil {
		b.log.WithError(err).WithField("seq", ev.Seq).Error("unable to encode event")
		return
	}
	if err := b.outbox.Append(ev.Seq, payload); err != nil {
		b.log.WithError(err).WithField("seq", ev.Seq).Error("unable to append event to outbox")
		return
	}
	if b.m != nil {
		b.m.FeedQueue.Inc()
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run flushes on every tick until ctx is done, then drains once more.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.log.Info("broadcaster started")

	b.looper.Loop(func() error {
		select {
		case <-ctx.Done():
			// ctx is gone; the final drain gets its own
			if err := b.Flush(context.Background()); err != nil {
				b.log.WithError(err).Warn("final flush incomplete, events remain in outbox")
			}
			b.looper.Quit()
			return nil
		default:
		}

		if err := b.Flush(ctx); err != nil {
			b.log.WithError(err).Warn("flush failed, will retry next tick")
		}
		return nil
	})

	b.log.Info("broadcaster exiting")
	return nil
}

// Flush ships every pending event, BatchSize at a time. It stops at the
// first batch that still fails after MaxRetries attempts.
func (b *Broadcaster) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	for {
		msgs, last, err := b.nextBatch()
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return nil
		}
		if err := b.publish(ctx, msgs); err != nil {
			return err
		}
		if err := b.outbox.Ack(last); err != nil {
			return errors.Wrap(err, "ack outbox")
		}
		if b.m != nil {
			b.m.FeedPublished.Add(float64(len(msgs)))
			b.m.FeedQueue.Sub(float64(len(msgs)))
		}
		b.log.WithFields(logrus.Fields{"count": len(msgs), "through": last}).Debug("batch published")
	}
}

// ------------------------------------------------
// HELPERS
// ------------------------------------------------

func (b *Broadcaster) nextBatch() ([]kafka.Message, uint64, error) {
	msgs := make([]kafka.Message, 0, b.cfg.BatchSize)
	var last uint64
	err := b.outbox.Scan(b.cfg.BatchSize, func(seq uint64, payload []byte) error {
		var ev struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(payload, &ev); err != nil {
			return errors.Wrapf(err, "decode event %d", seq)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(ev.Key), Value: payload})
		last = seq
		return nil
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "scan outbox")
	}
	return msgs, last, nil
}

func (b *Broadcaster) publish(ctx context.Context, msgs []kafka.Message) error {
	var err error
	for attempt := 1; attempt <= b.cfg.MaxRetries; attempt++ {
		if err = b.pub.Publish(ctx, msgs); err == nil {
			return nil
		}
		if b.m != nil {
			b.m.FeedFailed.Inc()
		}
		b.log.WithError(err).Errorf("unable to publish %d message(s) [retry %d/%d]", len(msgs), attempt, b.cfg.MaxRetries)
		if attempt == b.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.RetryInterval):
		}
	}
	return errors.Wrapf(err, "giving up after %d attempts", b.cfg.MaxRetries)
}
