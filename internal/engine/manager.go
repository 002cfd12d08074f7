package engine

import (
	"sync"
	"sync/atomic"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

// PolicyManager hands out the current engine and allows swapping the policy at runtime.
// Decisions in flight keep using the engine they loaded.
type PolicyManager struct {
	currentEngine atomic.Pointer[Engine]
	mu            sync.Mutex
}

func NewManager(initial core.Policy) *PolicyManager {
	m := &PolicyManager{}
	m.currentEngine.Store(New(initial))
	return m
}

func (m *PolicyManager) GetEngine() *Engine {
	return m.currentEngine.Load()
}

// Update replaces the policy. The policy is expected to be validated already.
func (m *PolicyManager) Update(policy core.Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentEngine.Store(New(policy))
}
