// Package commandform binds a schema-validated form snapshot to a remote
// command. The implementation lives in pkg/form; this package re-exports the
// common entry points so most callers need a single import.
package commandform

import (
	"context"

	"github.com/goliatone/go-commandform/pkg/command"
	"github.com/goliatone/go-commandform/pkg/form"
	"github.com/goliatone/go-commandform/pkg/issues"
	"github.com/goliatone/go-commandform/pkg/schema"
)

// Version of the module.
const Version = "0.4.0"

// Form aliases form.Form.
type Form[T, R any] = form.Form[T, R]

// Option aliases form.Option.
type Option = form.Option

// Hooks aliases form.Hooks.
type Hooks[T, R any] = form.Hooks[T, R]

// ResetPolicy aliases form.ResetPolicy.
type ResetPolicy = form.ResetPolicy

// Record is the per-field error record.
type Record = issues.Record

// Issue is a single validation failure.
type Issue = issues.Issue

const (
	ResetNever     = form.ResetNever
	ResetOnSuccess = form.ResetOnSuccess
	ResetOnError   = form.ResetOnError
	ResetAlways    = form.ResetAlways
)

// New constructs a form; see form.New.
func New[T, R any](ctx context.Context, s schema.Schema[T], cmd command.Command[T, R], opts ...Option) (*Form[T, R], error) {
	return form.New(ctx, s, cmd, opts...)
}

// StandardValidate runs a schema and folds its issues into an
// *issues.ValidationError.
func StandardValidate[T any](ctx context.Context, s schema.Schema[T], values map[string]any) (T, error) {
	return schema.Validate(ctx, s, values)
}

// IssuesToRecord maps issues to a message-per-path record keyed by dot-joined
// paths.
func IssuesToRecord(list []Issue) Record {
	return issues.ToRecord(list)
}
