package database

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

// MongoSessionStore keeps one document per session in `sessions` and one per
// turn in `messages`.
type MongoSessionStore struct {
	sessions *mongo.Collection
	messages *mongo.Collection
}

var _ services.SessionStore = (*MongoSessionStore)(nil)

func NewMongoSessionStore(db *mongo.Database) *MongoSessionStore {
	return &MongoSessionStore{
		sessions: db.Collection(sessionsCollection),
		messages: db.Collection(messagesCollection),
	}
}

func (s *MongoSessionStore) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	err := s.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("sessionID", id))
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"session_id": id}, opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find messages", goerr.V("sessionID", id))
	}
	if err := cursor.All(ctx, &rec.Messages); err != nil {
		return nil, goerr.Wrap(err, "failed to decode messages", goerr.V("sessionID", id))
	}
	return &rec, nil
}

// Create upserts so a retried Create after a lost acknowledgement is harmless.
func (s *MongoSessionStore) Create(ctx context.Context, id string, profile models.UserProfile, metadata models.SessionMetadata) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"profile":    profile,
			"metadata":   metadata,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	if _, err := s.sessions.UpdateByID(ctx, id, update, options.Update().SetUpsert(true)); err != nil {
		return goerr.Wrap(err, "failed to create session", goerr.V("sessionID", id))
	}
	return nil
}

func (s *MongoSessionStore) Update(ctx context.Context, id string, profile models.UserProfile, metadata models.SessionMetadata) error {
	res, err := s.sessions.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"profile":    profile,
			"metadata":   metadata,
			"updated_at": time.Now().UTC(),
		},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to update session", goerr.V("sessionID", id))
	}
	if res.MatchedCount == 0 {
		return goerr.Wrap(ErrSessionNotFound, "failed to update session", goerr.V("sessionID", id))
	}
	return nil
}

func (s *MongoSessionStore) AppendMessage(ctx context.Context, id string, role models.Role, text string, annotations *models.Annotations) error {
	msg := models.StoredMessage{
		SessionID:   id,
		Role:        role,
		Text:        text,
		Annotations: annotations,
		Timestamp:   time.Now().UTC(),
	}
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return goerr.Wrap(err, "failed to append message", goerr.V("sessionID", id))
	}
	return nil
}

type analyticsEvent struct {
	EventType string         `bson:"event_type"`
	SessionID string         `bson:"session_id"`
	Data      map[string]any `bson:"data"`
	Timestamp time.Time      `bson:"timestamp"`
}

// MongoAnalyticsSink writes events to `analytics_events` in the background.
type MongoAnalyticsSink struct {
	events *mongo.Collection
	logger *slog.Logger
	queue  chan analyticsEvent
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

var _ services.AnalyticsSink = (*MongoAnalyticsSink)(nil)

const analyticsQueueSize = 256

func NewMongoAnalyticsSink(db *mongo.Database, logger *slog.Logger) *MongoAnalyticsSink {
	s := &MongoAnalyticsSink{
		events: db.Collection(analyticsCollection),
		logger: logger,
		queue:  make(chan analyticsEvent, analyticsQueueSize),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *MongoAnalyticsSink) Record(_ context.Context, eventType string, payload map[string]any, sessionID string) {
	ev := analyticsEvent{
		EventType: eventType,
		SessionID: sessionID,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Warn("analytics sink closed, dropping event", "event_type", eventType)
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.logger.Warn("analytics queue full, dropping event", "event_type", eventType)
	}
}

func (s *MongoAnalyticsSink) run() {
	defer close(s.done)
	for ev := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := s.events.InsertOne(ctx, ev); err != nil {
			s.logger.Error("failed to record analytics event", "event_type", ev.EventType, "error", err)
		}
		cancel()
	}
}

// Close flushes queued events. Events recorded afterwards are dropped.
func (s *MongoAnalyticsSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}
