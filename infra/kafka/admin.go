package kafka

import (
	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

func NewClusterAdmin(brokers []string) (sarama.ClusterAdmin, error) {
	admin, err := sarama.NewClusterAdmin(brokers, sarama.NewConfig())
	if err != nil {
		return nil, errors.Wrap(err, "could not open new connection to kafka")
	}
	return admin, nil
}

// EnsureTopic creates topic unless it already exists. Against a single
// broker the replication factor is lowered to 1. It reports whether the
// topic was created.
func EnsureTopic(admin sarama.ClusterAdmin, topic string, partitions, replication int) (bool, error) {
	topics, err := admin.ListTopics()
	if err != nil {
		return false, errors.Wrap(err, "unable to list topics")
	}
	if _, ok := topics[topic]; ok {
		return false, nil
	}

	brokers, _, err := admin.DescribeCluster()
	if err != nil {
		return false, errors.Wrap(err, "could not get broker list")
	}
	if n := len(brokers); n > 0 && replication > n {
		replication = n
	}

	detail := &sarama.TopicDetail{
		NumPartitions:     int32(partitions),
		ReplicationFactor: int16(replication),
	}
	if err := admin.CreateTopic(topic, detail, false); err != nil {
		return false, errors.Wrapf(err, "unable to create kafka topic %q", topic)
	}
	return true, nil
}
