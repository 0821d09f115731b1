package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToKafkaMessages(t *testing.T) {
	msgs := []Message{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	}
	out := toKafkaMessages(msgs)
	require.Len(t, out, 2)
	assert.Equal(t, []byte("a"), out[0].Key)
	assert.Equal(t, []byte("2"), out[1].Value)
}

func TestSyncProducerPublish(t *testing.T) {
	mock := mocks.NewSyncProducer(t, NewSaramaConfig(3))
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(v []byte) error {
		assert.Equal(t, "one", string(v))
		return nil
	})
	mock.ExpectSendMessageAndSucceed()

	p := WrapSyncProducer(mock, "changes")
	err := p.Publish(context.Background(), []Message{
		{Key: []byte("k1"), Value: []byte("one")},
		{Key: []byte("k2"), Value: []byte("two")},
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestSyncProducerPublishFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, NewSaramaConfig(0))
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := WrapSyncProducer(mock, "changes")
	err := p.Publish(context.Background(), []Message{{Key: []byte("k"), Value: []byte("v")}})
	require.Error(t, err)
	require.NoError(t, p.Close())
}

func TestSyncProducerEmptyAndCancelled(t *testing.T) {
	mock := mocks.NewSyncProducer(t, NewSaramaConfig(0))
	p := WrapSyncProducer(mock, "changes")

	require.NoError(t, p.Publish(context.Background(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, []Message{{Value: []byte("x")}}), context.Canceled)
	require.NoError(t, p.Close())
}

type fakeAdmin struct {
	sarama.ClusterAdmin
	topics  map[string]sarama.TopicDetail
	brokers int
	created map[string]*sarama.TopicDetail
}

func (f *fakeAdmin) ListTopics() (map[string]sarama.TopicDetail, error) {
	return f.topics, nil
}

func (f *fakeAdmin) DescribeCluster() ([]*sarama.Broker, int32, error) {
	out := make([]*sarama.Broker, f.brokers)
	for i := range out {
		out[i] = sarama.NewBroker("localhost:9092")
	}
	return out, 0, nil
}

func (f *fakeAdmin) CreateTopic(topic string, detail *sarama.TopicDetail, _ bool) error {
	if f.created == nil {
		f.created = map[string]*sarama.TopicDetail{}
	}
	f.created[topic] = detail
	return nil
}

func TestEnsureTopic(t *testing.T) {
	admin := &fakeAdmin{
		topics:  map[string]sarama.TopicDetail{"existing": {}},
		brokers: 1,
	}

	created, err := EnsureTopic(admin, "existing", 3, 3)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, admin.created)

	created, err = EnsureTopic(admin, "fresh", 3, 3)
	require.NoError(t, err)
	assert.True(t, created)
	require.Contains(t, admin.created, "fresh")
	assert.Equal(t, int32(3), admin.created["fresh"].NumPartitions)
	assert.Equal(t, int16(1), admin.created["fresh"].ReplicationFactor)
}
