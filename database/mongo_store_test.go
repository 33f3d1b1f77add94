package database_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"health-assistant-backend/database"
	"health-assistant-backend/services"
)

func TestMongoAnalyticsSink_RecordAfterClose(t *testing.T) {
	// Connect is lazy, so no server is needed as long as nothing is inserted.
	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(100*time.Millisecond))
	gt.NoError(t, err).Required()
	defer func() { _ = client.Disconnect(context.Background()) }()

	sink := database.NewMongoAnalyticsSink(client.Database("health_test"), slog.Default())
	sink.Close()

	sink.Record(context.Background(), services.EventChatTurn, map[string]any{"intent": "greeting"}, "s1")
	sink.Close()
}
