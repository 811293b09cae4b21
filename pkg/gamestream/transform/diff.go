package transform

import (
	"fmt"
	"sync"

	"github.com/tsarna/go-structdiff"
	"github.com/tsarna/gamestream/pkg/gamestream"
)

// StateDelta turns successive game state snapshots into deltas. The first
// snapshot after construction or Reset is returned whole; after that only
// the fields that changed are returned, and an unchanged snapshot yields an
// empty map.
type StateDelta struct {
	mu   sync.Mutex
	last map[string]any
}

func NewStateDelta() *StateDelta {
	return &StateDelta{}
}

// Apply records state and returns what changed since the previous one.
func (s *StateDelta) Apply(state gamestream.GameStatePayload) (map[string]any, error) {
	value, err := ToPrimitive(state)
	if err != nil {
		return nil, err
	}
	current, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("game state encoded as %T, not an object", value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.last
	s.last = current
	if previous == nil {
		return current, nil
	}

	diff, err := structdiff.Diff(previous, current)
	if err != nil {
		return nil, fmt.Errorf("failed to diff game state: %w", err)
	}

	delta, _ := any(diff).(map[string]any)
	if delta == nil {
		delta = map[string]any{}
	}
	return delta, nil
}

// Reset forgets the last snapshot, typically on a new connection.
func (s *StateDelta) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
}
