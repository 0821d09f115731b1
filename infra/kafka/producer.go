package kafka

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// Message is a broker-neutral record.
type Message struct {
	Key   []byte
	Value []byte
}

// Producer publishes through a kafka-go Writer.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish writes msgs as one batch. Messages with the same key land on
// the same partition, which keeps per-key ordering.
func (p *Producer) Publish(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, toKafkaMessages(msgs)...); err != nil {
		return errors.Wrapf(err, "write %d message(s)", len(msgs))
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func toKafkaMessages(msgs []Message) []kafka.Message {
	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		out[i] = kafka.Message{Key: m.Key, Value: m.Value}
	}
	return out
}
