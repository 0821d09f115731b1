// Package outbox stores change events between commit and broker ack.
//
// Events are keyed by revision so a scan returns them in commit order.
// An empty directory opens an in-memory store; events then survive
// broker outages but not restarts.
package outbox

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
)

const prefix = "event/"

var (
	lowerBound = []byte(prefix)
	upperBound = []byte(prefix + "~")
)

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	opts := &pebble.Options{}
	if dir == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrap(err, "open outbox")
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Append stores payload under seq. The write goes to the memtable only;
// Ack is the durable point.
func (o *Outbox) Append(seq uint64, payload []byte) error {
	return o.db.Set(keyFor(seq), payload, pebble.NoSync)
}

// Scan visits up to limit pending events in seq order. limit <= 0 visits all.
func (o *Outbox) Scan(limit int, fn func(seq uint64, payload []byte) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: lowerBound,
		UpperBound: upperBound,
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		if limit > 0 && n == limit {
			break
		}
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		// pebble reuses the value buffer on Next
		payload := append([]byte(nil), iter.Value()...)
		if err := fn(seq, payload); err != nil {
			return err
		}
		n++
	}
	return iter.Error()
}

// Ack removes every event with seq <= through.
func (o *Outbox) Ack(through uint64) error {
	return o.db.DeleteRange(lowerBound, keyFor(through+1), pebble.Sync)
}

// LastSeq returns the highest pending seq, 0 when the outbox is empty.
// Revisions handed out after a restart must start above it or Append
// overwrites undelivered events.
func (o *Outbox) LastSeq() (uint64, error) {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: lowerBound,
		UpperBound: upperBound,
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

// Pending counts the events not yet acked.
func (o *Outbox) Pending() (int, error) {
	n := 0
	err := o.Scan(0, func(uint64, []byte) error {
		n++
		return nil
	})
	return n, err
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	if len(b) <= len(prefix) {
		return 0, errors.Errorf("malformed outbox key %q", b)
	}
	seq, err := strconv.ParseUint(string(b[len(prefix):]), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed outbox key %q", b)
	}
	return seq, nil
}
