package transform

import (
	"context"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/tsarna/gamestream/pkg/gamestream"
)

// JqFilter applies a compiled jq query to event payloads.
//
// The query runs on the payload in its JSON form and can read the event type
// as $event:
//
//	select($event == "gameState") | {mistakes, remaining_attempts}
//
// Every value the query emits is returned; an empty result means the event
// was filtered out.
type JqFilter struct {
	query string
	code  *gojq.Code
}

// NewJqFilter parses and compiles query.
func NewJqFilter(query string) (*JqFilter, error) {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq query '%s': %w", query, err)
	}

	code, err := gojq.Compile(parsed, gojq.WithVariables([]string{"$event"}))
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq query '%s': %w", query, err)
	}

	return &JqFilter{query: query, code: code}, nil
}

func (f *JqFilter) String() string {
	return f.query
}

// Apply runs the query. The first runtime error stops the run and is returned.
func (f *JqFilter) Apply(ctx context.Context, eventType gamestream.EventType, payload gamestream.Payload) ([]any, error) {
	input, err := ToPrimitive(payload)
	if err != nil {
		return nil, err
	}
	return f.run(ctx, string(eventType), input)
}

// ApplyValue runs the query on an already primitive value.
func (f *JqFilter) ApplyValue(ctx context.Context, eventType gamestream.EventType, input any) ([]any, error) {
	return f.run(ctx, string(eventType), input)
}

func (f *JqFilter) run(ctx context.Context, eventType string, input any) ([]any, error) {
	iter := f.code.RunWithContext(ctx, input, eventType)

	var results []any
	for {
		result, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := result.(error); isErr {
			return nil, fmt.Errorf("jq query '%s' failed: %w", f.query, err)
		}
		results = append(results, result)
	}
	return results, nil
}
