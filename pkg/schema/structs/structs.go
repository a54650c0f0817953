// Package structs adapts go-playground/validator struct tags to the
// schema.Schema contract. Form snapshots are decoded into the target struct
// through its json tags, then validated; issue paths use the json names.
package structs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-commandform/pkg/issues"
	"github.com/goliatone/go-commandform/pkg/schema"
)

// Schema validates snapshots into values of type T. T must be a struct type.
type Schema[T any] struct {
	validate *validator.Validate
	messages map[string]string
	strict   bool
}

// Ensure the implementation satisfies the public interface.
var _ schema.Schema[struct{}] = (*Schema[struct{}])(nil)

// Option configures a struct schema.
type Option func(*options)

type options struct {
	validate *validator.Validate
	messages map[string]string
	strict   bool
}

// WithValidator injects a pre-configured validator, for example one with
// custom tags registered. The json tag-name function is installed on it.
func WithValidator(v *validator.Validate) Option {
	return func(o *options) {
		if v != nil {
			o.validate = v
		}
	}
}

// WithMessages overrides the message used for a validator tag. Messages may
// contain a single %s which receives the tag parameter.
func WithMessages(messages map[string]string) Option {
	return func(o *options) {
		for tag, msg := range messages {
			o.messages[tag] = msg
		}
	}
}

// WithStrictFields reports snapshot keys that do not map to a struct field.
func WithStrictFields() Option {
	return func(o *options) {
		o.strict = true
	}
}

// New constructs a struct schema for T.
func New[T any](opts ...Option) *Schema[T] {
	cfg := options{messages: make(map[string]string)}
	for _, opt := range opts {
		opt(&cfg)
	}
	v := cfg.validate
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	v.RegisterTagNameFunc(jsonFieldName)

	return &Schema[T]{
		validate: v,
		messages: cfg.messages,
		strict:   cfg.strict,
	}
}

// Validate implements schema.Schema.
func (s *Schema[T]) Validate(ctx context.Context, values map[string]any) (T, []issues.Issue, error) {
	var out T
	if err := ctx.Err(); err != nil {
		return out, nil, err
	}
	if kind := reflect.TypeOf(out); kind == nil || kind.Kind() != reflect.Struct {
		return out, nil, fmt.Errorf("structs schema: %T is not a struct type", out)
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return out, nil, fmt.Errorf("structs schema: encode snapshot: %w", err)
	}

	var found []issues.Issue
	if err := s.decode(raw, &out); err != nil {
		issue, ok := decodeIssue(err)
		if !ok {
			return out, nil, fmt.Errorf("structs schema: decode snapshot: %w", err)
		}
		found = append(found, issue)
	}

	if err := s.validate.StructCtx(ctx, out); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return out, nil, fmt.Errorf("structs schema: %w", err)
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return out, nil, fmt.Errorf("structs schema: %w", err)
		}
		for _, fe := range fieldErrs {
			found = append(found, issues.Issue{
				Path:    namespacePath(fe.Namespace()),
				Message: s.message(fe),
			})
		}
	}

	if len(found) > 0 {
		return out, found, nil
	}
	return out, nil, nil
}

func (s *Schema[T]) decode(raw []byte, out *T) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if s.strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(out)
}

func decodeIssue(err error) (issues.Issue, bool) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return issues.Issue{
			Path:    issues.ParsePath(typeErr.Field),
			Message: "must be of type " + describeType(typeErr.Type),
		}, true
	}
	msg := err.Error()
	if field, ok := strings.CutPrefix(msg, "json: unknown field "); ok {
		return issues.Issue{
			Path:    []string{strings.Trim(field, `"`)},
			Message: "is not a recognised field",
		}, true
	}
	return issues.Issue{}, false
}

func describeType(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return t.String()
	}
}

// namespacePath turns "Signup.owner.emails[1]" into [owner emails 1]. The
// leading segment is the struct type name and is dropped.
func namespacePath(namespace string) []string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return nil
	}
	rest = strings.NewReplacer("[", ".", "]", "").Replace(rest)
	parts := strings.Split(rest, ".")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return name
	}
}
