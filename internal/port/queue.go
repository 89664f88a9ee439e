package port

import "context"

// Message is one delivery from a queue. ID identifies the delivery and doubles
// as the dedup token; for Kafka it is topic/partition/offset.
type Message struct {
	ID    string
	Key   []byte
	Value []byte
}

// Consumer reads from one queue with at-least-once semantics: a fetched
// message that is never committed becomes eligible for redelivery.
type Consumer interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msg Message) error
	Close() error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
	Close() error
}
