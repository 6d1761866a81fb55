package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orderapp/internal/config"
	"orderapp/internal/usecase"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	BatchTimeout = 10 * time.Millisecond
	BatchSize    = 1
)

// otelkafka.Writer が満たす
type MessageWriter interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// 注文イベントをKafkaに流す（keyは注文ID）
type KafkaPublisher struct {
	writer MessageWriter
	log    *zap.Logger
}

func NewKafkaPublisher(cfg config.Kafka, serviceName string, tp trace.TracerProvider, log *zap.Logger) (*KafkaPublisher, error) {
	baseWriter := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.OrderTopic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           BatchTimeout,
		BatchSize:              BatchSize,
		AllowAutoTopicCreation: true,
	}

	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(cfg.OrderTopic),
				attribute.String("messaging.kafka.client_id", serviceName),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka writer: %w", err)
	}

	return NewPublisher(writer, log), nil
}

func NewPublisher(writer MessageWriter, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{writer: writer, log: log.Named("kafka")}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev usecase.OrderEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}

	// WriteMessage（単数）でないとspanが付かない
	if err := p.writer.WriteMessage(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", ev.Type, err)
	}

	p.log.Debug("order event published",
		zap.String("type", ev.Type),
		zap.String("order_id", ev.OrderID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
