package services_test

import (
	"context"
	"errors"
	"sync"

	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

type fakeGenerator struct {
	mu        sync.Mutex
	available bool
	text      string
	err       error
	panicWith any
	calls     int
	lastCall  generatorCall
}

type generatorCall struct {
	Domain  services.DomainContext
	History int
	Prompt  string
}

func (g *fakeGenerator) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, history []models.Turn, domain services.DomainContext) (string, error) {
	g.mu.Lock()
	g.calls++
	g.lastCall = generatorCall{Domain: domain, History: len(history), Prompt: prompt}
	panicWith, text, err := g.panicWith, g.text, g.err
	g.mu.Unlock()

	if panicWith != nil {
		panic(panicWith)
	}
	return text, err
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type emitted struct {
	Event   string
	Payload any
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []emitted
}

func (n *fakeNotifier) Emit(event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, emitted{Event: event, Payload: payload})
}

func (n *fakeNotifier) Count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Event == event {
			c++
		}
	}
	return c
}

type fakeSink struct {
	mu     sync.Mutex
	events map[string]int
}

func (s *fakeSink) Record(_ context.Context, eventType string, _ map[string]any, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		s.events = make(map[string]int)
	}
	s.events[eventType]++
}

func (s *fakeSink) Count(eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[eventType]
}

var errStoreDown = errors.New("store unavailable")

// failingStore rejects every call.
type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (s *failingStore) hit() error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return errStoreDown
}

func (s *failingStore) Get(context.Context, string) (*models.SessionRecord, error) {
	return nil, s.hit()
}

func (s *failingStore) Create(context.Context, string, models.UserProfile, models.SessionMetadata) error {
	return s.hit()
}

func (s *failingStore) Update(context.Context, string, models.UserProfile, models.SessionMetadata) error {
	return s.hit()
}

func (s *failingStore) AppendMessage(context.Context, string, models.Role, string, *models.Annotations) error {
	return s.hit()
}

// blockingGenerator holds every call until its context ends.
type blockingGenerator struct {
	mu          sync.Mutex
	hadDeadline bool
}

func (g *blockingGenerator) Available() bool { return true }

func (g *blockingGenerator) Generate(ctx context.Context, _ string, _ []models.Turn, _ services.DomainContext) (string, error) {
	_, ok := ctx.Deadline()
	g.mu.Lock()
	g.hadDeadline = ok
	g.mu.Unlock()

	<-ctx.Done()
	return "too late", ctx.Err()
}

func (g *blockingGenerator) HadDeadline() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hadDeadline
}
