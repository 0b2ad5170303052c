package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
	"github.com/zhouzirui/expert-panel/backend/internal/store"
)

func TestSessionLocksAreReleased(t *testing.T) {
	s := NewService(store.NewMemory(), persona.NewMemoryStore(persona.Seed()), nil, nil, Config{})

	unlock := s.lock("a")
	assert.Len(t, s.locks, 1)
	unlock()
	assert.Empty(t, s.locks)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.lock("b")()
		}()
	}
	wg.Wait()

	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	assert.Empty(t, s.locks)
}
