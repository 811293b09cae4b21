package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsarna/gamestream/pkg/gamestream"
)

func TestJqFilter(t *testing.T) {
	ctx := context.Background()
	gameID := "g1"
	state := gamestream.GameStatePayload{GameID: &gameID, Mistakes: 2, RemainingAttempts: 2, Active: true}

	t.Run("field extraction", func(t *testing.T) {
		f, err := NewJqFilter(".mistakes")
		require.NoError(t, err)

		results, err := f.Apply(ctx, gamestream.EventGameState, state)
		require.NoError(t, err)
		assert.Equal(t, []any{float64(2)}, results)
		assert.Equal(t, ".mistakes", f.String())
	})

	t.Run("event variable", func(t *testing.T) {
		f, err := NewJqFilter(`select($event == "gameWon") | .score`)
		require.NoError(t, err)

		results, err := f.Apply(ctx, gamestream.EventGameState, state)
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = f.Apply(ctx, gamestream.EventGameWon, gamestream.GameWonPayload{GameID: "g1", Score: 42})
		require.NoError(t, err)
		assert.Equal(t, []any{float64(42)}, results)
	})

	t.Run("multiple results", func(t *testing.T) {
		f, err := NewJqFilter(".game_id, .active")
		require.NoError(t, err)

		results, err := f.Apply(ctx, gamestream.EventGameState, state)
		require.NoError(t, err)
		assert.Equal(t, []any{"g1", true}, results)
	})

	t.Run("restructure", func(t *testing.T) {
		f, err := NewJqFilter(`{type: $event, left: .remaining_attempts}`)
		require.NoError(t, err)

		results, err := f.Apply(ctx, gamestream.EventGameState, state)
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"type": "gameState", "left": float64(2)}}, results)
	})

	t.Run("error payload", func(t *testing.T) {
		f, err := NewJqFilter(".message")
		require.NoError(t, err)

		results, err := f.Apply(ctx, gamestream.EventError, gamestream.ErrorPayload{Message: "Connection error", Kind: gamestream.ErrorKindTransport})
		require.NoError(t, err)
		assert.Equal(t, []any{"Connection error"}, results)
	})

	t.Run("apply value", func(t *testing.T) {
		f, err := NewJqFilter(".a")
		require.NoError(t, err)

		results, err := f.ApplyValue(ctx, gamestream.EventConnected, map[string]any{"a": "b"})
		require.NoError(t, err)
		assert.Equal(t, []any{"b"}, results)
	})

	t.Run("runtime error", func(t *testing.T) {
		f, err := NewJqFilter(".mistakes | error")
		require.NoError(t, err)

		_, err = f.Apply(ctx, gamestream.EventGameState, state)
		assert.ErrorContains(t, err, "jq query '.mistakes | error' failed")
	})

	t.Run("invalid query", func(t *testing.T) {
		_, err := NewJqFilter(".[")
		assert.ErrorContains(t, err, "failed to parse jq query")

		_, err = NewJqFilter("$undefined")
		assert.ErrorContains(t, err, "failed to compile jq query")
	})
}

func TestToPrimitive(t *testing.T) {
	value, err := ToPrimitive(nil)
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = ToPrimitive(gamestream.ConnectedPayload{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, value)

	value, err = ToPrimitive(gamestream.GameStatePayload{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"game_id":            nil,
		"mistakes":           float64(0),
		"completed":          false,
		"remaining_attempts": float64(0),
		"active":             false,
	}, value)
}
