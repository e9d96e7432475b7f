// Command cartalex-invalidate publishes a change event so running servers
// purge the cached responses that read the table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/cartalex/internal/catalog"
	"github.com/mohammed-shakir/cartalex/internal/core/config"
	"github.com/mohammed-shakir/cartalex/internal/invalidation"
	"github.com/mohammed-shakir/cartalex/internal/invalidation/publisher"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	table := flag.String("table", "", "changed table (required)")
	op := flag.String("op", "update", "insert, update or delete")
	id := flag.Int64("id", -1, "changed row id; negative means the whole table")
	brokers := flag.String("brokers", cfg.Invalidation.Brokers, "comma separated Kafka brokers")
	topic := flag.String("topic", cfg.Invalidation.Topic, "invalidation topic")
	source := flag.String("source", "cartalex-invalidate", "event source")
	flag.Parse()

	if strings.TrimSpace(*table) == "" {
		fmt.Fprintln(os.Stderr, "cartalex-invalidate: -table is required")
		flag.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bl := config.InvalidationCfg{Brokers: *brokers}.BrokerList()
	p, err := publisher.New(bl, *topic, *source, catalog.Sites())
	if err != nil {
		fmt.Fprintln(os.Stderr, "cartalex-invalidate:", err)
		return 1
	}
	defer func() { _ = p.Close() }()

	ev := invalidation.Event{Op: *op, Table: *table}
	if *id >= 0 {
		ev.ID = id
	}
	if err := p.Publish(ctx, ev); err != nil {
		fmt.Fprintln(os.Stderr, "cartalex-invalidate:", err)
		return 1
	}
	fmt.Printf("published %s %s to %s\n", ev.Op, ev.Key(), *topic)
	return 0
}
