// Package kafka carries change events to Kafka.
//
// Two producers share one Publish signature: Producer wraps a
// segmentio/kafka-go Writer and SyncProducer wraps an IBM/sarama
// SyncProducer. EnsureTopic uses the sarama cluster admin, which
// kafka-go does not offer.
package kafka
