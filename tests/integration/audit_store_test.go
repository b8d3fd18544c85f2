package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"switchyard/internal/audit"
	"switchyard/internal/config"
)

func auditMongoConfig() config.MongoDBConfig {
	return config.MongoDBConfig{
		Database:   "test_db",
		Collection: "audit_trail",
	}
}

func TestMongoStoreWritesAuditRecords(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true)

	ctx := context.Background()

	store, err := audit.NewMongoStore(ctx, infra.MongoClient, auditMongoConfig())
	require.NoError(t, err)

	record := audit.Record{
		EventID:       uuid.New().String(),
		CorrelationID: uuid.New().String(),
		EventType:     "OrderCreated",
		Orchestration: "order-processing",
		Stage:         audit.StageRouted,
		Target:        "premium-orders",
		Timestamp:     time.Now().UTC(),
	}
	require.NoError(t, store.Write(ctx, record))

	collection := infra.MongoDB.Collection("audit_trail")
	var found audit.Record
	err = collection.FindOne(ctx, bson.M{"event_id": record.EventID}).Decode(&found)
	require.NoError(t, err)

	assert.Equal(t, record.EventID, found.EventID)
	assert.Equal(t, record.CorrelationID, found.CorrelationID)
	assert.Equal(t, "OrderCreated", found.EventType)
	assert.Equal(t, audit.StageRouted, found.Stage)
	assert.Equal(t, "premium-orders", found.Target)
}

func TestMongoStoreCreatesLookupIndexes(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true)

	ctx := context.Background()

	_, err := audit.NewMongoStore(ctx, infra.MongoClient, auditMongoConfig())
	require.NoError(t, err)

	cursor, err := infra.MongoDB.Collection("audit_trail").Indexes().List(ctx)
	require.NoError(t, err)

	var indexes []bson.M
	require.NoError(t, cursor.All(ctx, &indexes))

	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		if name, ok := idx["name"].(string); ok {
			names = append(names, name)
		}
	}

	assert.Contains(t, names, "idx_audit_event_id")
	assert.Contains(t, names, "idx_audit_correlation_id")
	assert.Contains(t, names, "idx_audit_event_type_timestamp")
	assert.Contains(t, names, "idx_audit_stage_timestamp")
}

func TestMongoStoreIsIdempotentAcrossRestarts(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true)

	ctx := context.Background()

	_, err := audit.NewMongoStore(ctx, infra.MongoClient, auditMongoConfig())
	require.NoError(t, err)

	// a second service start must tolerate the existing collection and indexes
	_, err = audit.NewMongoStore(ctx, infra.MongoClient, auditMongoConfig())
	require.NoError(t, err)
}

func TestAuditTrailFlushesToMongo(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true)

	ctx := context.Background()

	store, err := audit.NewMongoStore(ctx, infra.MongoClient, auditMongoConfig())
	require.NoError(t, err)

	trail := audit.NewTrail(store, createTestLogger())
	trailCtx, cancel := context.WithCancel(context.Background())
	trail.Start(trailCtx)

	event := createTestEvent("OrderCreated", map[string]interface{}{"customerTier": "premium"})
	trail.Record(event, audit.StageReceived, "", "")
	trail.Record(event, audit.StageRouted, "premium-orders", "routed via conditional branch")

	cancel()
	require.NoError(t, trail.Stop(ctx))

	collection := infra.MongoDB.Collection("audit_trail")
	count, err := collection.CountDocuments(ctx, bson.M{"event_id": event.EventID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count, "both stages should be persisted")

	var routed audit.Record
	err = collection.FindOne(ctx, bson.M{
		"event_id": event.EventID,
		"stage":    string(audit.StageRouted),
	}).Decode(&routed)
	require.NoError(t, err)
	assert.Equal(t, "premium-orders", routed.Target)
}
