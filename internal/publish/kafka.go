package publish

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/vaahk/wxdecode/internal/weather"
	"github.com/vaahk/wxdecode/pkg/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Kafka produces one message per report, keyed by station.
type Kafka struct {
	writer messageWriter
	logger *logger.Logger
}

// NewKafka creates a producer for topic.
func NewKafka(brokers []string, topic string, log *logger.Logger) *Kafka {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Kafka{writer: w, logger: log.Named("kafka")}
}

func (k *Kafka) Publish(ctx context.Context, r weather.Report) error {
	msg, err := serializeToMessage(r)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	k.logger.Debug("Published report", logger.String("type", string(r.Kind)))
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// serializeToMessage marshals a report into a Kafka message.
func serializeToMessage(r weather.Report) (kafkago.Message, error) {
	data, err := encode(r)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(r.Station),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(r.Kind)},
			{Key: "fetched_at", Value: []byte(r.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
