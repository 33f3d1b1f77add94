//go:build integration

package database_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"health-assistant-backend/database"
	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

func exerciseStore(t *testing.T, store services.SessionStore) {
	t.Helper()
	ctx := context.Background()
	id := "integration-" + uuid.NewString()[:8]

	rec, err := store.Get(ctx, id)
	gt.NoError(t, err).Required()
	gt.V(t, rec).Nil()

	profile := models.UserProfile{Medications: []string{"warfarin", "aspirin"}}
	meta := models.SessionMetadata{
		CurrentTopic: "headache",
		Appointment:  models.AppointmentState{AskedType: true},
	}
	gt.NoError(t, store.Create(ctx, id, profile, meta)).Required()

	ann := &models.Annotations{
		Intent:    models.IntentSymptom,
		Sentiment: models.SentimentNegative,
		Entities:  &models.Entities{Medications: []string{"warfarin"}},
	}
	gt.NoError(t, store.AppendMessage(ctx, id, models.RoleUser, "I take warfarin", ann)).Required()
	gt.NoError(t, store.AppendMessage(ctx, id, models.RoleAssistant, "Noted.", nil)).Required()

	meta.Appointment = models.AppointmentState{}
	gt.NoError(t, store.Update(ctx, id, profile, meta)).Required()

	rec, err = store.Get(ctx, id)
	gt.NoError(t, err).Required()
	gt.V(t, rec).NotNil().Required()
	gt.V(t, rec.Profile.Medications).Equal([]string{"warfarin", "aspirin"})
	gt.B(t, rec.Metadata.Appointment.Active()).False()
	gt.A(t, rec.Messages).Length(2).Required()
	gt.V(t, rec.Messages[0].Role).Equal(models.RoleUser)
	gt.V(t, rec.Messages[0].Annotations.Intent).Equal(models.IntentSymptom)
	gt.V(t, rec.Messages[1].Annotations).Nil()
}

func TestIntegration_MongoSessionStore(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	gt.NoError(t, err).Required()
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("health_assistant_test")
	t.Cleanup(func() { _ = db.Drop(context.Background()) })

	exerciseStore(t, database.NewMongoSessionStore(db))
}

func TestIntegration_PostgresSessionStore(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	store, err := database.NewPostgresSessionStore(context.Background(), dbURL)
	gt.NoError(t, err).Required()
	t.Cleanup(store.Close)

	exerciseStore(t, store)
}
