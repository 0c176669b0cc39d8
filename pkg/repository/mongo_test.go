package repository

import (
	"context"
	"testing"

	"github.com/example/storefront/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoAuditLog(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	cfg := &config.MongoDBConfig{Database: "storefront", Collection: "order_audit"}

	mt.Run("record", func(mt *mtest.T) {
		repo := NewMongoRepositoryFromClient(mt.Client, cfg)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.Record(context.Background(), "order_created", 5, map[string]interface{}{"total": "200.00"})
		require.NoError(t, err)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewMongoRepositoryFromClient(mt.Client, cfg)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.order_audit", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "a1"},
				{Key: "service", Value: "storefront"},
				{Key: "action", Value: "status_changed"},
				{Key: "order_id", Value: int64(5)},
				{Key: "data", Value: bson.D{{Key: "status", Value: "paid"}}},
			}))

		logs, err := repo.GetAuditLogs(context.Background(), 5, 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "status_changed", logs[0].Action)
		assert.Equal(t, int64(5), logs[0].OrderID)
		assert.Equal(t, "paid", logs[0].Data["status"])
	})
}
