package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaSink struct {
	writer messageWriter
}

func (s kafkaSink) send(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
}

// KafkaPublisher writes events as JSON messages keyed by entity id.
type KafkaPublisher struct {
	publisher
	writer messageWriter
}

// NewKafkaWriter returns an asynchronous writer, so a slow or missing broker
// never holds up a request. Delivery errors surface through the log.
func NewKafkaWriter(brokers []string, topic string, log logging.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error(context.Background(), "kafka delivery failed", "messages", len(messages), "error", err)
			}
		},
	}
}

func NewKafkaPublisher(brokers []string, topic string, log logging.Logger) *KafkaPublisher {
	log = log.With("module", "events", "topic", topic)
	return newKafkaPublisher(NewKafkaWriter(brokers, topic, log), log)
}

func newKafkaPublisher(w messageWriter, log logging.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		publisher: publisher{sink: kafkaSink{writer: w}, log: log, now: time.Now},
		writer:    w,
	}
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// New picks the kafka publisher when brokers are configured.
func New(brokers []string, topic string, log logging.Logger) Publisher {
	if len(brokers) == 0 {
		return NewLogPublisher(log)
	}
	return NewKafkaPublisher(brokers, topic, log)
}
