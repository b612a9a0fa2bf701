// Command catupdater endlessly appends events onto one cat's stream (a
// CatCreated for an empty stream, CatUpdated after that), retrying on optimistic-concurrency
// conflicts, mirroring the original endless_updater demo. Run several
// instances against the same cat id to exercise Scenario B (optimistic
// conflict) live.
package main

import (
	"context"
	"encoding/base64"
	"log"
	"math/rand"
	"os"
	"time"

	"go.jetify.com/typeid"
	"go.uber.org/zap"

	eventlog "github.com/jules-labs/go-eventlog"
	"github.com/jules-labs/go-eventlog/internal/demoenv"
)

type CatCreated struct {
	CatName string `json:"cat_name"`
}

type CatUpdated struct {
	NewRandomValue string `json:"new_random_value"`
}

func randomValue() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return base64.URLEncoding.EncodeToString(buf)
}

func main() {
	var catID string
	if len(os.Args) >= 2 {
		catID = os.Args[1]
	} else {
		tid, err := typeid.WithPrefix("cat")
		if err != nil {
			log.Fatalf("mint cat id: %v", err)
		}
		catID = tid.String()
		log.Printf("no cat-id given, minted %s", catID)
	}

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
	registry.Register("CatUpdated", eventlog.JSONCodec[CatUpdated]())

	client, err := eventlog.NewClient(ctx, pool, dsn, registry, eventlog.WithClientLogger(logger))
	if err != nil {
		log.Fatalf("new client: %v", err)
	}
	defer client.Close()

	if err := client.Setup(ctx); err != nil {
		log.Fatalf("setup: %v", err)
	}

	for {
		events, err := client.LoadStream(ctx, catID, eventlog.LoadStreamOptions{Reverse: true, Limit: 1})
		if err != nil {
			log.Fatalf("load stream: %v", err)
		}

		expectedVersion := int64(0)
		if len(events) > 0 {
			expectedVersion = events[0].Version
		}

		var eventType string
		var payload []byte
		if expectedVersion == 0 {
			payload, err = registry.Encode("CatCreated", CatCreated{CatName: catID})
			eventType = "CatCreated"
		} else {
			payload, err = registry.Encode("CatUpdated", CatUpdated{NewRandomValue: randomValue()})
			eventType = "CatUpdated"
		}
		if err != nil {
			log.Fatalf("encode: %v", err)
		}

		_, err = client.Append(ctx, "cats", catID, []eventlog.NewEvent{{
			AggregateID: catID,
			Version:     expectedVersion + 1,
			EventType:   eventType,
			Data:        payload,
		}}, expectedVersion)
		switch {
		case err == nil:
			logger.Info("appended", zap.String("event_type", eventType), zap.Int64("version", expectedVersion+1))
		case eventlog.IsExpectedVersionError(err):
			// Someone else won the race for this version; reload and retry.
		default:
			log.Fatalf("append: %v", err)
		}

		time.Sleep(50 * time.Millisecond)
	}
}
