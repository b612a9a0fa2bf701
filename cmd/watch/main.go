// Command watch subscribes to the "cats" aggregate type and prints every
// dispatched event, mirroring the original sub.py/watch_all.py demos.
// Unregistered event types decode to an eventlog.Unknown value instead
// of failing the subscription.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	eventlog "github.com/jules-labs/go-eventlog"
	"github.com/jules-labs/go-eventlog/internal/demoenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := demoenv.NewLogger()
	defer func() { _ = logger.Sync() }()

	dsn := demoenv.DSN()
	pool, err := demoenv.Connect(ctx, dsn, logger)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	registry := eventlog.NewRegistry()
	lenient := eventlog.NewLenientRegistry(registry)

	client, err := eventlog.NewClient(ctx, pool, dsn, registry, eventlog.WithClientLogger(logger))
	if err != nil {
		log.Fatalf("new client: %v", err)
	}
	defer client.Close()

	if err := client.Setup(ctx); err != nil {
		log.Fatalf("setup: %v", err)
	}

	handler := func(_ context.Context, _ pgx.Tx, event eventlog.RecordedEvent) error {
		value, err := lenient.Decode(event.EventType, event.Data)
		if err != nil {
			return err
		}
		logger.Info("dispatched",
			zap.String("aggregate_id", event.AggregateID),
			zap.Int64("version", event.Version),
			zap.String("event_type", event.EventType),
			zap.Any("value", value),
		)
		return nil
	}

	opts := eventlog.SubscribeOptions{BatchSize: 10}
	if err := client.Subscribe(ctx, "demo_watch", "cats", opts, handler); err != nil && ctx.Err() == nil {
		log.Fatalf("subscribe: %v", err)
	}
	logger.Info("watch stopped")
}
