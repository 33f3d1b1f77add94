package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"health-assistant-backend/config"
	"health-assistant-backend/services"
)

// Connection owns whichever backend DB_TYPE selected and exposes it through
// the service interfaces.
type Connection struct {
	Type      string
	Sessions  services.SessionStore
	Analytics services.AnalyticsSink

	mongoClient *mongo.Client
	mongoSink   *MongoAnalyticsSink
	postgres    *PostgresSessionStore
}

// Connect establishes database connection based on config
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Connection, error) {
	conn := &Connection{Type: cfg.Database.Type}

	switch cfg.Database.Type {
	case config.DatabaseMemory:
		conn.Sessions = NewMemoryStore()
		logger.Warn("using in-memory session store, sessions will not survive a restart")

	case config.DatabaseMongoDB:
		client, db, err := ConnectMongoDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		conn.mongoClient = client
		conn.mongoSink = NewMongoAnalyticsSink(db, logger)
		conn.Sessions = NewMongoSessionStore(db)
		conn.Analytics = conn.mongoSink

	case config.DatabasePostgreSQL:
		store, err := NewPostgresSessionStore(ctx, cfg.BuildDatabaseURI())
		if err != nil {
			return nil, err
		}
		conn.postgres = store
		conn.Sessions = store
		logger.Info("connected to PostgreSQL", "database", cfg.Database.Name)

	default:
		return nil, goerr.New("unsupported database type", goerr.V("type", cfg.Database.Type))
	}

	return conn, nil
}

// Disconnect closes database connection
func (c *Connection) Disconnect(ctx context.Context) error {
	if c.mongoSink != nil {
		c.mongoSink.Close()
	}
	if c.postgres != nil {
		c.postgres.Close()
	}
	return DisconnectMongoDB(ctx, c.mongoClient)
}

// HealthCheck performs a database health check
func (c *Connection) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch {
	case c.mongoClient != nil:
		return c.mongoClient.Ping(ctx, readpref.Primary())
	case c.postgres != nil:
		return c.postgres.Ping(ctx)
	default:
		return nil
	}
}
