// Package broadcaster ships committed change events to Kafka.
package broadcaster
