package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	obs "github.com/mohammed-shakir/cartalex/internal/core/observability"
	"github.com/mohammed-shakir/cartalex/internal/invalidation"
	mylog "github.com/mohammed-shakir/cartalex/internal/logger"
)

// Catalog maps a changed table to the cache tags that read it.
type Catalog interface {
	HasTable(table string) bool
	Dependents(table string) []string
}

type Purger interface {
	Purge(ctx context.Context, tags ...string) (int, error)
}

type Consumer struct {
	cfg     Config
	logger  *slog.Logger
	catalog Catalog
	purger  Purger
	dedupe  *versionDedupe
}

func New(cfg Config, logger *slog.Logger, cat Catalog, p Purger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.WithDefaults()
	return &Consumer{
		cfg:     cfg,
		logger:  logger,
		catalog: cat,
		purger:  p,
		dedupe:  newVersionDedupe(cfg.DedupeSize),
	}
}

// consumes invalidation events from kafka until ctx is done
func (c *Consumer) Start(ctx context.Context) error {
	if c.catalog == nil || c.purger == nil {
		return errors.New("kafkaconsumer: missing dependencies (catalog/purger)")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	ctx = mylog.WithComponent(ctx, "kafka_consumer")
	handler := &groupHandler{process: c.ProcessOne, log: c.logger}

	c.logger.InfoContext(ctx, "kafka invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "kafka invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				if ctx.Err() != nil {
					continue
				}
				obs.IncKafkaConsumerError("consume")
				c.logger.ErrorContext(ctx, "kafka consumer error",
					"err", err, "brokers", c.cfg.Brokers, "topic", c.cfg.Topic)
				select {
				case <-ctx.Done():
				case <-time.After(2 * time.Second):
				}
			}
		}
	}
}

// ProcessOne purges the responses that depend on the event's table.
// Undecodable or invalid events are logged and skipped so they cannot stall
// the partition; a failed purge is returned for redelivery.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncKafkaConsumerError("decode")
		c.logger.WarnContext(ctx, "skipping undecodable invalidation event",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(c.catalog); err != nil {
		obs.IncInvalidation(ev.Table, "rejected", 0)
		c.logger.WarnContext(ctx, "skipping invalid invalidation event",
			"table", ev.Table, "offset", msg.Offset, "err", err)
		return nil
	}

	key := ev.Key()
	if !c.dedupe.shouldApply(key, ev.TS.UnixNano()) {
		obs.IncInvalidation(ev.Table, "duplicate", 0)
		return nil
	}

	tags := c.catalog.Dependents(ev.Table)
	pctx, cancel := context.WithTimeout(ctx, c.cfg.PurgeTimeout)
	defer cancel()
	n, err := c.purger.Purge(pctx, tags...)
	if err != nil {
		c.dedupe.forget(key)
		obs.IncKafkaConsumerError("purge")
		return fmt.Errorf("purge %v: %w", tags, err)
	}

	obs.IncInvalidation(ev.Table, "applied", n)
	c.logger.DebugContext(ctx, "invalidated cached responses",
		"table", ev.Table, "op", ev.Op, "tags", tags, "entries", n)
	return nil
}
