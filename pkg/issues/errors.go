package issues

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Kind discriminates the failures a submission can end with.
type Kind int

const (
	// KindUnknown covers every error the form cannot map onto fields.
	KindUnknown Kind = iota
	// KindValidation is a schema validation failure, client or server side.
	KindValidation
	// KindHTTP is an HTTP error whose body carries at least one issue.
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Classify reports the kind of err. Wrapped errors are recognised. An
// HTTPError without issues has nothing to map and classifies as KindUnknown.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidation
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && len(httpErr.Body.Issues) > 0 {
		return KindHTTP
	}
	return KindUnknown
}

// ValidationError carries the issues reported by a schema.
type ValidationError struct {
	Issues []Issue
}

// NewValidationError wraps issues in a ValidationError.
func NewValidationError(list ...Issue) *ValidationError {
	return &ValidationError{Issues: append([]Issue(nil), list...)}
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + describe(e.Issues[0])
	default:
		return fmt.Sprintf("validation failed: %s (and %d more)", describe(e.Issues[0]), len(e.Issues)-1)
	}
}

// Record maps the issues to a per-field record.
func (e *ValidationError) Record() Record {
	return ToRecord(e.Issues)
}

// ErrorBody is the JSON body of a framework HTTP error.
type ErrorBody struct {
	Message string  `json:"message"`
	Issues  []Issue `json:"issues,omitempty"`
}

// HTTPError is a transport-level failure with a status code and a decoded
// body. Issues in the body are merged into the form's error record.
type HTTPError struct {
	Status int
	Body   ErrorBody
}

// NewHTTPError builds an HTTPError.
func NewHTTPError(status int, message string, list ...Issue) *HTTPError {
	return &HTTPError{
		Status: status,
		Body:   ErrorBody{Message: message, Issues: append([]Issue(nil), list...)},
	}
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		return fmt.Sprintf("http error %d", e.Status)
	}
	return fmt.Sprintf("http error %d: %s", e.Status, msg)
}

// Record maps the body issues to a per-field record.
func (e *HTTPError) Record() Record {
	return ToRecord(e.Body.Issues)
}

func describe(issue Issue) string {
	if key := issue.Key(); key != "" {
		return key + ": " + issue.Message
	}
	return issue.Message
}

// UnmarshalJSON accepts paths as a dotted or pointer string, or as an array
// of string keys, numeric indexes, or {"key": ...} segments.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Path    json.RawMessage `json:"path"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	path, err := decodePath(raw.Path)
	if err != nil {
		return fmt.Errorf("issues: decode path: %w", err)
	}
	i.Path = path
	i.Message = raw.Message
	return nil
}

func decodePath(raw json.RawMessage) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return ParsePath(s), nil
	}

	var segments []any
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		value := segment
		if obj, ok := segment.(map[string]any); ok {
			value = obj["key"]
		}
		switch typed := value.(type) {
		case string:
			out = append(out, typed)
		case float64:
			out = append(out, strconv.FormatFloat(typed, 'f', -1, 64))
		default:
			return nil, fmt.Errorf("unsupported path segment %v", segment)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
