package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

var ErrSessionNotFound = errors.New("session not found")

// MemoryStore is the SessionStore used when DB_TYPE=memory. Everything is
// lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.SessionRecord
}

var _ services.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.SessionRecord)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	cp.Profile = cloneProfile(rec.Profile)
	cp.Messages = append([]models.StoredMessage(nil), rec.Messages...)
	return &cp, nil
}

func (s *MemoryStore) Create(_ context.Context, id string, profile models.UserProfile, metadata models.SessionMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if rec, ok := s.sessions[id]; ok {
		rec.Profile, rec.Metadata, rec.UpdatedAt = cloneProfile(profile), metadata, now
		return nil
	}
	s.sessions[id] = &models.SessionRecord{
		ID:        id,
		Profile:   cloneProfile(profile),
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, profile models.UserProfile, metadata models.SessionMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return goerr.Wrap(ErrSessionNotFound, "failed to update session", goerr.V("sessionID", id))
	}
	rec.Profile = cloneProfile(profile)
	rec.Metadata = metadata
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, id string, role models.Role, text string, annotations *models.Annotations) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return goerr.Wrap(ErrSessionNotFound, "failed to append message", goerr.V("sessionID", id))
	}
	rec.Messages = append(rec.Messages, models.StoredMessage{
		SessionID:   id,
		Role:        role,
		Text:        text,
		Annotations: annotations,
		Timestamp:   time.Now().UTC(),
	})
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func cloneProfile(p models.UserProfile) models.UserProfile {
	return models.UserProfile{
		Medications: append([]string(nil), p.Medications...),
		Symptoms:    append([]string(nil), p.Symptoms...),
		Conditions:  append([]string(nil), p.Conditions...),
	}
}
