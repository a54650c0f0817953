package issues

import (
	"sort"
	"strings"
)

// FormKey is the record key used for messages that do not belong to a field.
const FormKey = ""

// Issue is a single validation failure reported against a field path.
type Issue struct {
	Path    []string `json:"path,omitempty"`
	Message string   `json:"message"`
}

// NewIssue builds an Issue from a raw path string in any supported notation
// (JSON pointer, dotted, bracketed).
func NewIssue(path, message string) Issue {
	return Issue{Path: ParsePath(path), Message: message}
}

// Key returns the dot-joined path used as the record key.
func (i Issue) Key() string {
	return JoinPath(i.Path)
}

// Record maps dot-joined field paths to a single message each. The FormKey
// entry carries form-level messages.
type Record map[string]string

// ToRecord maps issues to a record. The first message reported for a path
// wins so the result does not depend on map iteration anywhere upstream.
func ToRecord(list []Issue) Record {
	if len(list) == 0 {
		return Record{}
	}
	out := make(Record, len(list))
	for _, issue := range list {
		msg := strings.TrimSpace(issue.Message)
		if msg == "" {
			continue
		}
		key := issue.Key()
		if _, exists := out[key]; exists {
			continue
		}
		out[key] = msg
	}
	return out
}

// Merge returns a new record holding r overlaid with other. Keys present in
// other win.
func (r Record) Merge(other Record) Record {
	out := make(Record, len(r)+len(other))
	for key, msg := range r {
		out[key] = msg
	}
	for key, msg := range other {
		out[key] = msg
	}
	return out
}

// Clone returns a copy of the record; a nil record clones to an empty one.
func (r Record) Clone() Record {
	return r.Merge(nil)
}

// Get returns the message for a path in any supported notation. The exact
// key wins; leading transport wrappers are only dropped when it has no entry.
func (r Record) Get(path string) (string, bool) {
	segments := ParsePath(path)
	if msg, ok := r[JoinPath(segments)]; ok {
		return msg, true
	}
	if stripped := unwrap(segments, nil); len(stripped) != len(segments) {
		msg, ok := r[JoinPath(stripped)]
		return msg, ok
	}
	return "", false
}

// Resolve moves keys wrapped in transport segments ("body.name",
// "payload.data.title") onto the field path they wrap. A leading segment for
// which isField returns true is a real field and stops the unwrapping. When
// both a wrapped and an exact key land on the same path the exact key wins.
func (r Record) Resolve(isField func(name string) bool) Record {
	out := make(Record, len(r))
	for key, msg := range r {
		resolved := JoinPath(unwrap(splitKey(key), isField))
		if _, exists := out[resolved]; exists && resolved != key {
			continue
		}
		out[resolved] = msg
	}
	return out
}

// Form returns the form-level message, if any.
func (r Record) Form() string {
	return r[FormKey]
}

// Paths lists the keys of the record in sorted order.
func (r Record) Paths() []string {
	if len(r) == 0 {
		return nil
	}
	out := make([]string, 0, len(r))
	for key := range r {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Issues converts the record back to issues, ordered by path.
func (r Record) Issues() []Issue {
	paths := r.Paths()
	if len(paths) == 0 {
		return nil
	}
	out := make([]Issue, 0, len(paths))
	for _, path := range paths {
		out = append(out, Issue{Path: splitKey(path), Message: r[path]})
	}
	return out
}

// JoinPath joins path segments with dots, skipping empty segments.
func JoinPath(segments []string) string {
	if len(segments) == 0 {
		return FormKey
	}
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ".")
}

func splitKey(key string) []string {
	if key == FormKey {
		return nil
	}
	return strings.Split(key, ".")
}
