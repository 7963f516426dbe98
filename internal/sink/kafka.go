package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

// KafkaConfig selects the brokers and topic naming.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every record as a JSON message on a per-table
// topic, keyed by table and id so compaction keeps one row per key.
type KafkaSink struct {
	writer messageWriter
	prefix string
	now    func() time.Time
}

// NewKafkaSink builds a sink writing to cfg.Brokers. Topics must exist.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("sink.kafka.brokers is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
	return NewKafkaSinkWithWriter(writer, cfg.TopicPrefix), nil
}

// NewKafkaSinkWithWriter builds a sink over a custom writer (tests).
func NewKafkaSinkWithWriter(writer messageWriter, prefix string) *KafkaSink {
	return &KafkaSink{writer: writer, prefix: prefix, now: time.Now}
}

// Topic returns the topic records of table are published to.
func (s *KafkaSink) Topic(table graph.Table) string {
	return s.prefix + strings.ToLower(string(table))
}

// Write publishes the batch in a single produce call.
func (s *KafkaSink) Write(ctx context.Context, batch []graph.Record) error {
	if len(batch) == 0 {
		return nil
	}
	now := s.now().UTC()
	msgs := make([]kafka.Message, 0, len(batch))
	for _, record := range batch {
		payload, err := recordJSON(record)
		if err != nil {
			return err
		}
		values := record.Values()
		msgs = append(msgs, kafka.Message{
			Topic: s.Topic(record.Table()),
			Key:   []byte(string(record.Table()) + ":" + formatValue(values[0])),
			Value: payload,
			Time:  now,
		})
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close shuts down the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func recordJSON(record graph.Record) ([]byte, error) {
	columns := record.Table().Columns()
	values := dateValues(record.Values())
	row := make(map[string]any, len(columns))
	for i, col := range columns {
		row[col] = values[i]
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal %s row: %w", record.Table(), err)
	}
	return payload, nil
}

