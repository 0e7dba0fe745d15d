package session

import (
	"context"
	"sync"

	"github.com/shouni/gemini-image-studio/pkg/domain"
)

// MemoryStore はプロセス内だけで保持するストアです。テストや一時利用向けです。
type MemoryStore struct {
	mu    sync.Mutex
	state *domain.SessionState
	saves int
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return domain.NewSessionState(), nil
	}
	return s.state.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, state *domain.SessionState) error {
	if state == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.saves++
	return nil
}

// Saves は Save が呼ばれた回数を返します。
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
