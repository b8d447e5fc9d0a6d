package producer

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/segmentio/kafka-go"

	"ledgersetup/types"
)

// NewIndexWriter returns the writer for index events.
func NewIndexWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

func NewSaramaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll // ack from all in-sync replicas
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true // required by SyncProducer

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create sarama producer: %w", err)
	}
	return producer, nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WriterPublisher publishes through a segmentio kafka.Writer.
type WriterPublisher struct {
	w messageWriter
}

func NewWriterPublisher(w messageWriter) *WriterPublisher {
	return &WriterPublisher{w: w}
}

func (p *WriterPublisher) Publish(ctx context.Context, ev types.IndexEvent) error {
	value, err := encode(ev)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{Key: ev.Key(), Value: value}); err != nil {
		return fmt.Errorf("write index event %s.%s: %w", ev.Table, ev.Field, err)
	}
	return nil
}

func (p *WriterPublisher) Close() error { return p.w.Close() }

// SaramaPublisher publishes through a sarama SyncProducer.
type SaramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSaramaPublisher(producer sarama.SyncProducer, topic string) *SaramaPublisher {
	return &SaramaPublisher{producer: producer, topic: topic}
}

func (p *SaramaPublisher) Publish(ctx context.Context, ev types.IndexEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := encode(ev)
	if err != nil {
		return err
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(ev.Key()),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("send index event %s.%s: %w", ev.Table, ev.Field, err)
	}
	return nil
}

func (p *SaramaPublisher) Close() error { return p.producer.Close() }
