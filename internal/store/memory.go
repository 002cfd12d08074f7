package store

import (
	"context"
	"sync"
	"time"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

// DefaultConsumedRetention is how long a consumed marker outlives the take.
// Afterwards the operation id is unknown again and lookups return ErrOperationNotFound.
const DefaultConsumedRetention = 10 * time.Minute

var _ core.OperationRegistry = (*InMemoryOperationRegistry)(nil)

// InMemoryOperationRegistry keeps operations in a map guarded by a single mutex.
// Take holds the lock across read, delete and marker write, which makes it atomic per operation id.
type InMemoryOperationRegistry struct {
	mu        sync.Mutex
	now       func() time.Time
	retention time.Duration

	live map[string]core.VerificationOperation
	// consumed maps an operation id to the expiry of its consumed marker
	consumed map[string]time.Time
}

func NewInMemoryOperationRegistry(consumedRetention time.Duration) *InMemoryOperationRegistry {
	if consumedRetention <= 0 {
		consumedRetention = DefaultConsumedRetention
	}
	return &InMemoryOperationRegistry{
		now:       time.Now,
		retention: consumedRetention,
		live:      make(map[string]core.VerificationOperation),
		consumed:  make(map[string]time.Time),
	}
}

// SetClock overrides the time source. Used by tests.
func (s *InMemoryOperationRegistry) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *InMemoryOperationRegistry) Put(_ context.Context, op core.VerificationOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.live[op.ID] = op
	delete(s.consumed, op.ID)
	return nil
}

func (s *InMemoryOperationRegistry) Get(_ context.Context, operationID string) (*core.VerificationOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, err := s.lookup(operationID)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (s *InMemoryOperationRegistry) Take(_ context.Context, operationID string) (*core.VerificationOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, err := s.lookup(operationID)
	if err != nil {
		return nil, err
	}
	delete(s.live, operationID)
	s.consumed[operationID] = s.now().Add(s.retention)
	return &op, nil
}

func (s *InMemoryOperationRegistry) Delete(_ context.Context, operationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.live, operationID)
	return nil
}

func (s *InMemoryOperationRegistry) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, op := range s.live {
		if op.IsExpired(now) {
			delete(s.live, id)
			evicted++
		}
	}
	for id, until := range s.consumed {
		if now.After(until) {
			delete(s.consumed, id)
		}
	}
	return evicted, nil
}

// Len returns the number of live operations.
func (s *InMemoryOperationRegistry) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// lookup must be called with s.mu held.
func (s *InMemoryOperationRegistry) lookup(operationID string) (core.VerificationOperation, error) {
	now := s.now()

	if until, ok := s.consumed[operationID]; ok {
		if !now.After(until) {
			return core.VerificationOperation{}, core.ErrOperationConsumed
		}
		delete(s.consumed, operationID)
	}

	op, ok := s.live[operationID]
	if !ok {
		return core.VerificationOperation{}, core.ErrOperationNotFound
	}
	if op.IsExpired(now) {
		delete(s.live, operationID)
		return core.VerificationOperation{}, core.ErrOperationExpired
	}
	return op, nil
}
