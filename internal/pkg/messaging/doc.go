// Package messaging provides a broker-agnostic API for publishing and
// consuming messages over NATS, Kafka, NSQ, or Google Pub/Sub.
//
// Business code depends on Publisher/Consumer only; the broker is picked at
// startup through NewFromDriver.
package messaging
