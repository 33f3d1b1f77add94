package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"health-assistant-backend/config"
)

const (
	sessionsCollection  = "sessions"
	messagesCollection  = "messages"
	analyticsCollection = "analytics_events"
)

// ConnectMongoDB establishes connection to MongoDB and makes sure the
// collections used by the assistant are indexed.
func ConnectMongoDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.BuildDatabaseURI()).
		SetMaxPoolSize(uint64(cfg.Database.MaxConnections)).
		SetMinPoolSize(uint64(cfg.Database.MinConnections)).
		SetMaxConnIdleTime(cfg.Database.MaxIdleTime)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to connect to MongoDB")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, goerr.Wrap(err, "failed to ping MongoDB")
	}

	db := client.Database(cfg.Database.Name)
	logger.Info("connected to MongoDB", "database", cfg.Database.Name)

	if err := createIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	logger.Debug("database indexes created")

	return client, db, nil
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		sessionsCollection: {
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
			{Keys: bson.D{{Key: "metadata.channel", Value: 1}}},
		},
		messagesCollection: {
			{Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "timestamp", Value: 1},
			}},
		},
		analyticsCollection: {
			{Keys: bson.D{
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			}},
			{Keys: bson.D{{Key: "session_id", Value: 1}}},
		},
	}

	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return goerr.Wrap(err, "failed to create indexes", goerr.V("collection", name))
		}
	}
	return nil
}

// DisconnectMongoDB closes the MongoDB connection
func DisconnectMongoDB(ctx context.Context, client *mongo.Client) error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return goerr.Wrap(err, "failed to disconnect from MongoDB")
	}
	return nil
}
