package kafka

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// SyncProducer publishes through a sarama SyncProducer and waits for
// every in-sync replica.
type SyncProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSaramaConfig(retries int) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = retries
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

func NewSyncProducer(brokers []string, topic string, retries int) (*SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig(retries))
	if err != nil {
		return nil, errors.Wrap(err, "could not create sarama producer")
	}
	return WrapSyncProducer(producer, topic), nil
}

// WrapSyncProducer adapts an existing producer, e.g. a sarama mock.
func WrapSyncProducer(producer sarama.SyncProducer, topic string) *SyncProducer {
	return &SyncProducer{producer: producer, topic: topic}
}

func (p *SyncProducer) Publish(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := make([]*sarama.ProducerMessage, len(msgs))
	for i, m := range msgs {
		batch[i] = &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.ByteEncoder(m.Key),
			Value: sarama.ByteEncoder(m.Value),
		}
	}
	if err := p.producer.SendMessages(batch); err != nil {
		return errors.Wrapf(err, "send %d message(s)", len(msgs))
	}
	return nil
}

func (p *SyncProducer) Close() error {
	return p.producer.Close()
}
