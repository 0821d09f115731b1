package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Op is the kind of mutation a change event describes.
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Event is one committed mutation, in revision order.
type Event struct {
	ID    string `json:"id"`
	Seq   uint64 `json:"seq"`
	Op    Op     `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	Time  int64  `json:"time"`
}

// ChangeFeed receives events while the store lock is held, so Enqueue
// must not block on I/O.
type ChangeFeed interface {
	Enqueue(ev Event)
}

func newEvent(seq uint64, op Op, key, value string, now time.Time) Event {
	return Event{
		ID:    uuid.NewString(),
		Seq:   seq,
		Op:    op,
		Key:   key,
		Value: value,
		Time:  now.UnixNano(),
	}
}

// Encode renders the event as JSON.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
