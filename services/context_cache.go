package services

import (
	"context"
	"log/slog"
	"sync"

	"health-assistant-backend/models"
)

type cacheEntry struct {
	session *models.SessionContext
	// stored is set once the store has confirmed a Create for this session.
	stored bool
}

// ContextCache keeps session contexts in memory for the lifetime of the
// process. Entries never expire; a miss hydrates from the store and falls
// back to a fresh context. The cache stays authoritative when the store is
// unreachable.
type ContextCache struct {
	store  SessionStore
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

func NewContextCache(store SessionStore, logger *slog.Logger) *ContextCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextCache{
		store:   store,
		logger:  logger,
		entries: make(map[string]*cacheEntry),
	}
}

// GetOrLoad returns the context for id, hydrating it on a cold read.
func (c *ContextCache) GetOrLoad(ctx context.Context, id string) *models.SessionContext {
	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		c.mu.Unlock()
		return e.session
	}
	c.mu.Unlock()

	entry := c.hydrate(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	// another turn may have hydrated the same id while we were loading
	if e, ok := c.entries[id]; ok {
		return e.session
	}
	c.entries[id] = entry
	return entry.session
}

func (c *ContextCache) hydrate(ctx context.Context, id string) *cacheEntry {
	if c.store == nil {
		return &cacheEntry{session: models.NewSessionContext(id)}
	}

	rec, err := c.store.Get(ctx, id)
	if err != nil {
		c.logger.Warn("failed to load session from store, starting fresh", "session_id", id, "error", err)
		return &cacheEntry{session: models.NewSessionContext(id)}
	}
	if rec == nil {
		return &cacheEntry{session: models.NewSessionContext(id)}
	}

	c.logger.Debug("session hydrated from store", "session_id", id, "messages", len(rec.Messages))
	return &cacheEntry{session: rec.ToContext(), stored: true}
}

// Peek returns the cached context without hydrating.
func (c *ContextCache) Peek(id string) (*models.SessionContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Persist mirrors the session and the turns added during this turn to the
// store. Failures are logged and never returned.
func (c *ContextCache) Persist(ctx context.Context, sc *models.SessionContext, newTurns []models.Turn) {
	if c.store == nil {
		return
	}

	c.mu.Lock()
	entry, ok := c.entries[sc.ID]
	var stored bool
	if ok {
		stored = entry.stored
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	metadata := sc.Metadata()
	if stored {
		if err := c.store.Update(ctx, sc.ID, sc.Profile, metadata); err != nil {
			c.logger.Error("failed to update session", "session_id", sc.ID, "error", err)
		}
	} else {
		if err := c.store.Create(ctx, sc.ID, sc.Profile, metadata); err != nil {
			c.logger.Error("failed to create session", "session_id", sc.ID, "error", err)
		} else {
			c.mu.Lock()
			entry.stored = true
			c.mu.Unlock()
		}
	}

	for _, t := range newTurns {
		if err := c.store.AppendMessage(ctx, sc.ID, t.Role, t.Text, t.Annotations); err != nil {
			c.logger.Error("failed to append message", "session_id", sc.ID, "role", t.Role, "error", err)
		}
	}
}

func (c *ContextCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
