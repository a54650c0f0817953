// Package schema defines the contract between forms and third-party schema
// libraries. Adapters live in sub-packages (structs, openapi); forms only see
// the Schema interface.
package schema

import (
	"context"
	"errors"

	"github.com/goliatone/go-commandform/pkg/issues"
)

// ErrNilSchema is returned when validation is attempted without a schema.
var ErrNilSchema = errors.New("schema: schema is nil")

// Schema validates a form snapshot and converts it into the typed input a
// command expects. Validation failures are reported as issues; the error
// return is reserved for adapter faults (bad configuration, broken schema).
type Schema[T any] interface {
	Validate(ctx context.Context, values map[string]any) (T, []issues.Issue, error)
}

// Func adapts a plain function to the Schema interface.
type Func[T any] func(ctx context.Context, values map[string]any) (T, []issues.Issue, error)

// Validate implements Schema.
func (fn Func[T]) Validate(ctx context.Context, values map[string]any) (T, []issues.Issue, error) {
	return fn(ctx, values)
}

// Validate runs s against values and folds reported issues into an
// *issues.ValidationError so callers deal with a single error value.
func Validate[T any](ctx context.Context, s Schema[T], values map[string]any) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNilSchema
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	out, list, err := s.Validate(ctx, values)
	if err != nil {
		return zero, err
	}
	if len(list) > 0 {
		return zero, issues.NewValidationError(list...)
	}
	return out, nil
}

// Passthrough accepts any snapshot and returns it unchanged. Useful for
// commands that validate server side only.
func Passthrough() Schema[map[string]any] {
	return Func[map[string]any](func(_ context.Context, values map[string]any) (map[string]any, []issues.Issue, error) {
		return values, nil, nil
	})
}
