package store

import (
	"context"
	"sync"

	"github.com/rosilesmarcos01/bbms-sub000/internal/core"
)

var _ core.IdentityStore = (*StaticIdentityStore)(nil)

// StaticIdentityStore serves identities defined in the configuration file.
// Enrollment state is kept in memory only and is lost on restart.
type StaticIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]core.Identity
}

func NewStaticIdentityStore(identities []core.Identity) *StaticIdentityStore {
	m := make(map[string]core.Identity, len(identities))
	for _, id := range identities {
		m[id.Ref] = id
	}
	return &StaticIdentityStore{identities: m}
}

func (s *StaticIdentityStore) Get(_ context.Context, ref string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.identities[ref]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}
	return &id, nil
}

func (s *StaticIdentityStore) MarkEnrolled(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.identities[ref]
	if !ok {
		return core.ErrIdentityNotFound
	}
	id.Enrolled = true
	s.identities[ref] = id
	return nil
}
