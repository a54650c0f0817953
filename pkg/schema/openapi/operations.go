package openapi

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Operation is an operation located in a document together with its method
// and path template.
type Operation struct {
	ID        string
	Method    string
	Path      string
	Operation *openapi3.Operation
}

// Operations lists every operation in the document, sorted by ID. Operations
// without an operationId are keyed as "<method>:<path>".
func Operations(doc *openapi3.T) []Operation {
	if doc == nil || doc.Paths == nil {
		return nil
	}

	var out []Operation
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			out = append(out, Operation{
				ID:        id,
				Method:    strings.ToUpper(method),
				Path:      path,
				Operation: op,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// FindOperation returns the operation with the given ID.
func FindOperation(doc *openapi3.T, operationID string) (Operation, error) {
	if doc == nil {
		return Operation{}, errors.New("openapi schema: document is nil")
	}
	operationID = strings.TrimSpace(operationID)
	if operationID == "" {
		return Operation{}, errors.New("openapi schema: operation id is required")
	}
	for _, op := range Operations(doc) {
		if op.ID == operationID {
			return op, nil
		}
	}
	return Operation{}, fmt.Errorf("openapi schema: operation %q not found", operationID)
}

// Endpoint joins the first server URL of the document with the operation
// path. Path parameters are left unexpanded.
func (o Operation) Endpoint(doc *openapi3.T, override string) string {
	base := strings.TrimSpace(override)
	if base == "" && doc != nil && len(doc.Servers) > 0 && doc.Servers[0] != nil {
		base = doc.Servers[0].URL
	}
	if base == "" {
		return o.Path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(o.Path, "/")
}

// HTTPMethod returns the method, defaulting to POST.
func (o Operation) HTTPMethod() string {
	if o.Method == "" {
		return http.MethodPost
	}
	return o.Method
}
