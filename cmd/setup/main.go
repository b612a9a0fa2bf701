// Command setup declares the eventlog schema against the database named
// by the DB_* environment variables, then appends and reads back one
// demo event, mirroring the original setup_tables demo.
package main

import (
	"context"
	"encoding/json"
	"log"

	"go.uber.org/zap"

	eventlog "github.com/jules-labs/go-eventlog"
	"github.com/jules-labs/go-eventlog/internal/demoenv"
)

// CatCreated is a demo domain event.
type CatCreated struct {
	Name string `json:"name"`
}

func main() {
	ctx := context.Background()
	logger := demoenv.NewLogger()
	defer func() { _ = logger.Sync() }()

	dsn := demoenv.DSN()
	pool, err := demoenv.Connect(ctx, dsn, logger)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	registry := eventlog.NewRegistry()
	registry.Register("CatCreated", eventlog.JSONCodec[CatCreated]())

	client, err := eventlog.NewClient(ctx, pool, dsn, registry, eventlog.WithClientLogger(logger))
	if err != nil {
		log.Fatalf("new client: %v", err)
	}
	defer client.Close()

	if err := client.Setup(ctx); err != nil {
		log.Fatalf("setup: %v", err)
	}

	const aggregateID = "b5ce6861-1572-4900-9a88-e05fce485c54"
	payload, err := registry.Encode("CatCreated", CatCreated{Name: "Mittens"})
	if err != nil {
		log.Fatalf("encode: %v", err)
	}

	recorded, err := client.Append(ctx, "cats", aggregateID, []eventlog.NewEvent{{
		AggregateID: aggregateID,
		Version:     1,
		EventType:   "CatCreated",
		Data:        payload,
	}}, 0)
	if err != nil {
		log.Fatalf("append: %v", err)
	}
	logger.Info("appended", zap.Int64("event_id", recorded[0].ID), zap.Int64("transaction_id", recorded[0].TransactionID))

	events, err := client.LoadStream(ctx, aggregateID, eventlog.LoadStreamOptions{})
	if err != nil {
		log.Fatalf("load stream: %v", err)
	}
	for _, e := range events {
		var data json.RawMessage = e.Data
		logger.Info("event", zap.Int64("version", e.Version), zap.String("type", e.EventType), zap.Any("data", data))
	}
}
