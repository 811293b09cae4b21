// Package transform reshapes event payloads for display: jq filtering and
// game state deltas.
package transform

import (
	"encoding/json"
	"fmt"

	"github.com/tsarna/gamestream/pkg/gamestream"
)

// ToPrimitive converts a payload into JSON-compatible primitives (maps,
// slices, float64, string, bool, nil) so it can be fed to jq or diffed.
func ToPrimitive(payload gamestream.Payload) (any, error) {
	if payload == nil {
		return nil, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", payload.EventType(), err)
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", payload.EventType(), err)
	}
	return out, nil
}
