package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledgersetup/config"
	"ledgersetup/index"
	"ledgersetup/types"
)

// Publisher ships index events to a Kafka topic.
type Publisher interface {
	Publish(ctx context.Context, ev types.IndexEvent) error
	Close() error
}

// New returns the publisher selected by cfg.KafkaClient, or nil when no
// brokers are configured.
func New(cfg config.Config) (Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, nil
	}
	switch cfg.KafkaClient {
	case "sarama":
		p, err := NewSaramaProducer(cfg.KafkaBrokers)
		if err != nil {
			return nil, err
		}
		return NewSaramaPublisher(p, cfg.TopicIndex), nil
	case "kafka-go", "":
		return NewWriterPublisher(NewIndexWriter(cfg.KafkaBrokers, cfg.TopicIndex)), nil
	}
	return nil, fmt.Errorf("unsupported kafka client %q", cfg.KafkaClient)
}

// Observer turns ensure results into published events.
func Observer(p Publisher, dialect string) index.Observer {
	return index.ObserverFunc(func(ctx context.Context, r index.Result) error {
		return p.Publish(ctx, Event(r, dialect))
	})
}

// Event converts a result into its wire form.
func Event(r index.Result, dialect string) types.IndexEvent {
	ev := types.IndexEvent{
		RunID:      r.RunID,
		Position:   r.Position,
		Table:      r.Request.TableName,
		Field:      r.Request.FieldName,
		Action:     r.Action.String(),
		DurationMs: r.Duration.Milliseconds(),
		Dialect:    dialect,
		At:         time.Now().UTC(),
	}
	if r.Err != nil {
		ev.Action = "failed"
		ev.Error = r.Err.Error()
	}
	return ev
}

func encode(ev types.IndexEvent) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal index event: %w", err)
	}
	return b, nil
}
