package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smartinv/fulfillment/internal/port"
)

// KafkaConsumer wraps a kafka-go reader with explicit commit so that a
// message handled with an error is redelivered rather than silently acked.
// It tracks a single in-flight delivery: the caller must commit (or abandon)
// a fetched message before fetching the next one, since committing a later
// offset would ack every earlier offset on the partition.
type KafkaConsumer struct {
	reader *kafka.Reader

	mu         sync.Mutex
	inflight   kafka.Message
	inflightID string
}

func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
	}
}

func (c *KafkaConsumer) Fetch(ctx context.Context) (port.Message, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return port.Message{}, err
	}

	id := deliveryID(m)
	c.mu.Lock()
	// An abandoned in-flight message is overwritten here; it was never
	// committed, so the group redelivers it after a rebalance.
	c.inflight = m
	c.inflightID = id
	c.mu.Unlock()

	return port.Message{ID: id, Key: m.Key, Value: m.Value}, nil
}

func (c *KafkaConsumer) Commit(ctx context.Context, msg port.Message) error {
	c.mu.Lock()
	if c.inflightID != msg.ID {
		c.mu.Unlock()
		return fmt.Errorf("commit: message %s is not in flight", msg.ID)
	}
	m := c.inflight
	c.inflightID = ""
	c.mu.Unlock()

	return c.reader.CommitMessages(ctx, m)
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

// deliveryID is the dedup token for a delivery: the same message redelivered
// keeps the same topic/partition/offset coordinates.
func deliveryID(m kafka.Message) string {
	return fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset)
}

// KafkaPublisher writes to any topic through one shared writer.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
