// Package openapi adapts kin-openapi schemas to the schema.Schema contract.
// Schemas come from an operation's request body, a named component, or are
// supplied directly; snapshots are validated with VisitJSON and issue paths
// are taken from the JSON pointer of each failure.
package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-commandform/pkg/issues"
	"github.com/goliatone/go-commandform/pkg/schema"
)

// Schema validates form snapshots against an OpenAPI/JSON schema.
type Schema struct {
	value *openapi3.Schema
	name  string
}

// Ensure the implementation satisfies the public interface.
var _ schema.Schema[map[string]any] = (*Schema)(nil)

// FromSchema wraps an already resolved schema.
func FromSchema(value *openapi3.Schema) (*Schema, error) {
	if value == nil {
		return nil, errors.New("openapi schema: schema is nil")
	}
	return &Schema{value: value}, nil
}

// FromJSON decodes a standalone JSON schema document.
func FromJSON(raw []byte) (*Schema, error) {
	value := openapi3.NewSchema()
	if err := value.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("openapi schema: decode schema: %w", err)
	}
	return FromSchema(value)
}

// FromOperation uses the request body schema of the operation identified by
// operationID. JSON media types are preferred over form encodings.
func FromOperation(doc *openapi3.T, operationID string) (*Schema, error) {
	op, err := FindOperation(doc, operationID)
	if err != nil {
		return nil, err
	}
	if op.Operation.RequestBody == nil || op.Operation.RequestBody.Value == nil {
		return nil, fmt.Errorf("openapi schema: operation %q has no request body", operationID)
	}
	content := op.Operation.RequestBody.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil && mt.Schema.Value != nil {
			return &Schema{value: mt.Schema.Value, name: operationID}, nil
		}
	}
	mediaTypes := make([]string, 0, len(content))
	for mediaType := range content {
		mediaTypes = append(mediaTypes, mediaType)
	}
	sort.Strings(mediaTypes)
	for _, mediaType := range mediaTypes {
		if mt := content[mediaType]; mt.Schema != nil && mt.Schema.Value != nil {
			return &Schema{value: mt.Schema.Value, name: operationID}, nil
		}
	}
	return nil, fmt.Errorf("openapi schema: operation %q has no request body schema", operationID)
}

// FromComponent uses the named schema under components.schemas.
func FromComponent(doc *openapi3.T, name string) (*Schema, error) {
	if doc == nil || doc.Components == nil {
		return nil, errors.New("openapi schema: document has no components")
	}
	ref, ok := doc.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("openapi schema: component %q not found", name)
	}
	return &Schema{value: ref.Value, name: name}, nil
}

// Name returns the operation or component the schema was built from.
func (s *Schema) Name() string {
	return s.name
}

// Validate implements schema.Schema. Values are normalised through a JSON
// round-trip so Go numeric and slice types validate like decoded JSON.
func (s *Schema) Validate(ctx context.Context, values map[string]any) (map[string]any, []issues.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	normalized, err := normalize(values)
	if err != nil {
		return nil, nil, fmt.Errorf("openapi schema: normalise snapshot: %w", err)
	}

	err = s.value.VisitJSON(normalized, openapi3.MultiErrors())
	if err == nil {
		return normalized, nil, nil
	}

	found := collectIssues(err, nil)
	if len(found) == 0 {
		return nil, nil, fmt.Errorf("openapi schema: %w", err)
	}
	return normalized, found, nil
}

func normalize(values map[string]any) (map[string]any, error) {
	if values == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func collectIssues(err error, dest []issues.Issue) []issues.Issue {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, inner := range multi {
			dest = collectIssues(inner, dest)
		}
		return dest
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		return append(dest, issueFromSchemaError(schemaErr))
	}
	return dest
}

func issueFromSchemaError(err *openapi3.SchemaError) issues.Issue {
	path := append([]string(nil), err.JSONPointer()...)
	message := strings.TrimSpace(err.Reason)
	if err.SchemaField == "required" {
		if prop := missingProperty(message); prop != "" && (len(path) == 0 || path[len(path)-1] != prop) {
			path = append(path, prop)
		}
		message = "is required"
	}
	if message == "" {
		message = "must be valid"
	}
	return issues.Issue{Path: path, Message: message}
}

// missingProperty extracts x from `property "x" is missing`.
func missingProperty(reason string) string {
	_, rest, ok := strings.Cut(reason, `"`)
	if !ok {
		return ""
	}
	prop, _, ok := strings.Cut(rest, `"`)
	if !ok {
		return ""
	}
	return prop
}
