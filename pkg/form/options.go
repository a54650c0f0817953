package form

import (
	"context"

	"go.uber.org/zap"

	"github.com/goliatone/go-commandform/pkg/issues"
)

// ResetPolicy decides when a form returns to its initial values after a
// submission settles.
type ResetPolicy int

const (
	// ResetNever keeps the submitted values.
	ResetNever ResetPolicy = iota
	// ResetOnSuccess resets after the command succeeds.
	ResetOnSuccess
	// ResetOnError resets after the command fails.
	ResetOnError
	// ResetAlways resets after every settled command call.
	ResetAlways
)

func (p ResetPolicy) String() string {
	switch p {
	case ResetOnSuccess:
		return "onSuccess"
	case ResetOnError:
		return "onError"
	case ResetAlways:
		return "always"
	default:
		return "never"
	}
}

// ParseResetPolicy maps config strings ("never", "onSuccess", "on_error",
// "always", ...) to a policy.
func ParseResetPolicy(raw string) (ResetPolicy, bool) {
	switch normalizePolicy(raw) {
	case "", "never", "none":
		return ResetNever, true
	case "onsuccess", "success":
		return ResetOnSuccess, true
	case "onerror", "error":
		return ResetOnError, true
	case "always":
		return ResetAlways, true
	default:
		return ResetNever, false
	}
}

func (p ResetPolicy) onSuccess() bool {
	return p == ResetOnSuccess || p == ResetAlways
}

func (p ResetPolicy) onError() bool {
	return p == ResetOnError || p == ResetAlways
}

// InitialFunc resolves initial values on demand. Forms built with it
// re-resolve on Sync, standing in for a reactive source.
type InitialFunc func(ctx context.Context) (map[string]any, error)

// Hooks are typed callbacks around the submission lifecycle.
type Hooks[T, R any] struct {
	// OnSubmit runs with validated input before the command. Returning an
	// error aborts the submission.
	OnSubmit func(ctx context.Context, input T) error
	// OnSuccess receives the command result.
	OnSuccess func(ctx context.Context, result R)
	// OnError receives errors that could not be mapped onto fields.
	OnError func(ctx context.Context, err error)
}

// Option configures a Form.
type Option func(*settings)

type settings struct {
	initial     map[string]any
	initialFunc InitialFunc
	reset       ResetPolicy
	preprocess  func(map[string]any) map[string]any
	invalidate  func(ctx context.Context) error
	logger      *zap.Logger
	sanitize    func(string) string
	hooks       any
}

func defaultSettings() settings {
	return settings{
		logger:   zap.NewNop(),
		sanitize: issues.Sanitize,
	}
}

// WithInitial seeds the form with a static copy of values.
func WithInitial(values map[string]any) Option {
	return func(s *settings) {
		s.initial = cloneValues(values)
		s.initialFunc = nil
	}
}

// WithInitialFunc seeds the form from fn, resolved at construction and again
// on every Sync.
func WithInitialFunc(fn InitialFunc) Option {
	return func(s *settings) {
		s.initialFunc = fn
		s.initial = nil
	}
}

// WithReset selects the reset policy.
func WithReset(policy ResetPolicy) Option {
	return func(s *settings) {
		s.reset = policy
	}
}

// WithPreprocess transforms a copy of the snapshot before validation.
func WithPreprocess(fn func(map[string]any) map[string]any) Option {
	return func(s *settings) {
		s.preprocess = fn
	}
}

// WithInvalidate registers a refresh callback run after a successful command.
// Its error is logged and does not fail the submission.
func WithInvalidate(fn func(ctx context.Context) error) Option {
	return func(s *settings) {
		s.invalidate = fn
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSanitizer replaces the function applied to server-provided messages.
// Pass nil to keep messages untouched.
func WithSanitizer(fn func(string) string) Option {
	return func(s *settings) {
		s.sanitize = fn
	}
}

// WithHooks registers typed lifecycle hooks. The type parameters must match
// the form's input and result types.
func WithHooks[T, R any](hooks Hooks[T, R]) Option {
	return func(s *settings) {
		s.hooks = hooks
	}
}

func normalizePolicy(raw string) string {
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		switch {
		case r == '_' || r == '-' || r == ' ':
			continue
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
