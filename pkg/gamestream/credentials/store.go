// Package credentials provides stores for the bearer token used to open the
// event stream.
package credentials

import (
	"errors"
	"sync"

	"github.com/tsarna/gamestream/pkg/gamestream"
)

var (
	ErrNotFound = errors.New("credential not found")
	ErrReadOnly = errors.New("credential store is read-only")
)

// Store is a writable credential source.
type Store interface {
	gamestream.CredentialSource
	Set(key, value string) error
	Delete(key string) error
}

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// ChainStore reads from each source in order and returns the first non-empty
// credential. ErrNotFound from a source moves on to the next one; any other
// error stops the lookup.
type ChainStore []gamestream.CredentialSource

func (c ChainStore) Get(key string) (string, error) {
	for _, source := range c {
		if source == nil {
			continue
		}
		value, err := source.Get(key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return "", err
		}
		if value != "" {
			return value, nil
		}
	}
	return "", ErrNotFound
}
