package services_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"health-assistant-backend/database"
	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

func TestContextCache_MissCreatesFreshSession(t *testing.T) {
	cache := services.NewContextCache(database.NewMemoryStore(), nil)

	sc := cache.GetOrLoad(context.Background(), "new-session")
	gt.V(t, sc).NotNil().Required()
	gt.V(t, sc.ID).Equal("new-session")
	gt.A(t, sc.Turns).Length(0)
	gt.V(t, cache.Len()).Equal(1)

	again := cache.GetOrLoad(context.Background(), "new-session")
	gt.B(t, sc == again).True()
}

func TestContextCache_HydratesFromStore(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()

	profile := models.UserProfile{Medications: []string{"metformin"}}
	metadata := models.SessionMetadata{
		CurrentTopic: "fever",
		TopicFlags:   models.TopicFlags{AskedDuration: true},
		Appointment:  models.AppointmentState{AskedType: true},
		Channel:      models.ChannelWhatsApp,
	}
	gt.NoError(t, store.Create(ctx, "s1", profile, metadata)).Required()
	gt.NoError(t, store.AppendMessage(ctx, "s1", models.RoleUser, "I have a fever", nil)).Required()
	gt.NoError(t, store.AppendMessage(ctx, "s1", models.RoleAssistant, "How long?", nil)).Required()

	cache := services.NewContextCache(store, nil)
	sc := cache.GetOrLoad(ctx, "s1")

	gt.V(t, sc.CurrentTopic).Equal("fever")
	gt.B(t, sc.TopicFlags.AskedDuration).True()
	gt.B(t, sc.Appointment.AskedType).True()
	gt.V(t, sc.Channel).Equal(models.ChannelWhatsApp)
	gt.V(t, sc.Profile.Medications).Equal([]string{"metformin"})
	gt.A(t, sc.Turns).Length(2).Required()
	gt.V(t, sc.Turns[0].Text).Equal("I have a fever")
}

func TestContextCache_PersistCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	cache := services.NewContextCache(store, nil)

	sc := cache.GetOrLoad(ctx, "s1")
	sc.SetTopic("cough")
	turn := models.Turn{Role: models.RoleUser, Text: "I have a cough"}
	sc.AppendTurn(turn)
	cache.Persist(ctx, sc, []models.Turn{turn})

	rec, err := store.Get(ctx, "s1")
	gt.NoError(t, err).Required()
	gt.V(t, rec).NotNil().Required()
	gt.V(t, rec.Metadata.CurrentTopic).Equal("cough")
	gt.A(t, rec.Messages).Length(1)

	sc.Profile.AddSymptoms("cough")
	cache.Persist(ctx, sc, nil)

	rec, err = store.Get(ctx, "s1")
	gt.NoError(t, err).Required()
	gt.V(t, rec.Profile.Symptoms).Equal([]string{"cough"})
	gt.A(t, rec.Messages).Length(1)
}

func TestContextCache_StoreFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	cache := services.NewContextCache(store, nil)

	sc := cache.GetOrLoad(ctx, "s1")
	gt.V(t, sc).NotNil().Required()
	gt.V(t, sc.ID).Equal("s1")

	turn := models.Turn{Role: models.RoleUser, Text: "hello"}
	sc.AppendTurn(turn)
	cache.Persist(ctx, sc, []models.Turn{turn})

	// Get, Create and one AppendMessage were all attempted
	gt.V(t, store.calls).Equal(3)

	cached, ok := cache.Peek("s1")
	gt.B(t, ok).True()
	gt.A(t, cached.Turns).Length(1)
}

func TestContextCache_WithoutStore(t *testing.T) {
	cache := services.NewContextCache(nil, nil)
	sc := cache.GetOrLoad(context.Background(), "s1")
	cache.Persist(context.Background(), sc, []models.Turn{{Role: models.RoleUser, Text: "hi"}})

	_, ok := cache.Peek("missing")
	gt.B(t, ok).False()
}
