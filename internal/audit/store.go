package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"switchyard/internal/config"
	"switchyard/internal/constants"
	"switchyard/internal/logger"
	"switchyard/pkg/migrations"
)

// NewStore selects the sink for the audit configuration. The mongodb sink
// needs a connected client; without one the trail falls back to the log
// sink instead of failing startup.
func NewStore(ctx context.Context, client *mongo.Client, cfg config.AuditConfig, log logger.Logger) (Store, error) {
	if cfg.Sink == "mongodb" && client != nil {
		return NewMongoStore(ctx, client, cfg.MongoDB)
	}
	return NewLogStore(log), nil
}

// LogStore writes audit records to the structured log. It is the default
// sink and the fallback when no MongoDB is configured.
type LogStore struct {
	logger logger.Logger
}

func NewLogStore(log logger.Logger) *LogStore {
	return &LogStore{logger: log}
}

func (s *LogStore) Write(_ context.Context, record Record) error {
	s.logger.Infow("audit",
		"event_id", record.EventID,
		"correlation_id", record.CorrelationID,
		"event_type", record.EventType,
		"orchestration", record.Orchestration,
		"stage", record.Stage,
		"target", record.Target,
		"detail", record.Detail,
	)
	return nil
}

func (s *LogStore) Close(context.Context) error {
	return nil
}

// MongoStore persists audit records to a capped-style collection indexed
// for event and correlation lookups.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(ctx context.Context, client *mongo.Client, cfg config.MongoDBConfig) (*MongoStore, error) {
	dbName := cfg.Database
	if dbName == "" {
		dbName = constants.DefaultMongoDBName
	}
	collName := cfg.Collection
	if collName == "" {
		collName = constants.DefaultAuditColl
	}

	db := client.Database(dbName)
	if err := migrations.EnsureAuditCollection(ctx, db, collName); err != nil {
		return nil, fmt.Errorf("failed to prepare audit collection: %w", err)
	}

	return &MongoStore{collection: db.Collection(collName)}, nil
}

func (s *MongoStore) Write(ctx context.Context, record Record) error {
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(context.Context) error {
	// the mongo client is owned by the bootstrap layer
	return nil
}
