package state

import (
	"context"
	"sync"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// MemoryStore keeps flow contexts in a plain map. The default driver for
// single-process deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	contexts map[string]domain.FlowContext
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contexts: make(map[string]domain.FlowContext)}
}

func (s *MemoryStore) Get(ctx context.Context, conversationID string) (domain.FlowContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fc, ok := s.contexts[conversationID]
	if !ok {
		return domain.FlowContext{State: domain.StateIdle}, nil
	}
	return fc, nil
}

func (s *MemoryStore) Set(ctx context.Context, conversationID string, fc domain.FlowContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fc.Idle() && fc.RecordID == "" {
		delete(s.contexts, conversationID)
		return nil
	}
	s.contexts[conversationID] = fc
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, conversationID)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts = nil
	return nil
}
