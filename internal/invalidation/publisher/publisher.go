// Package publisher announces backing-store changes on the invalidation topic.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/cartalex/internal/invalidation"
)

// Sender is the part of sarama.SyncProducer the publisher uses.
type Sender interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type Publisher struct {
	topic  string
	source string
	tables invalidation.TableSet
	prod   Sender
	now    func() time.Time
}

// New connects a synchronous producer that waits for every broker ack.
func New(brokers []string, topic, source string, tables invalidation.TableSet) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("publisher: create sync producer: %w", err)
	}
	return NewWithSender(prod, topic, source, tables), nil
}

func NewWithSender(s Sender, topic, source string, tables invalidation.TableSet) *Publisher {
	return &Publisher{topic: topic, source: source, tables: tables, prod: s, now: time.Now}
}

// Publish fills the envelope defaults, validates the event and sends it keyed
// by table so changes to one table stay ordered on a partition.
func (p *Publisher) Publish(ctx context.Context, ev invalidation.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.Version == 0 {
		ev.Version = 1
	}
	if ev.TS.IsZero() {
		ev.TS = p.now().UTC()
	}
	if ev.Source == "" {
		ev.Source = p.source
	}
	if err := ev.Validate(p.tables); err != nil {
		return fmt.Errorf("publisher: invalid event: %w", err)
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("publisher: marshal: %w", err)
	}
	_, _, err = p.prod.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Table),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("publisher: send %s: %w", ev.Key(), err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("publisher: close producer: %w", err)
	}
	return nil
}
