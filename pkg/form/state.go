package form

import (
	"fmt"
	"strconv"
	"strings"
)

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneValues(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}

func splitPath(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("form: empty field path")
	}
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("form: invalid field path %q", path)
		}
	}
	return segments, nil
}

func getPath(root map[string]any, path string) (any, bool) {
	segments, err := splitPath(path)
	if err != nil || root == nil {
		return nil, false
	}
	current := any(root)
	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// setPath writes value at a dotted path, creating maps for name segments and
// slices for numeric segments. Slices grow as needed; the grown slice is
// stored back into its parent.
func setPath(root map[string]any, path string, value any) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	updated, err := assign(root, segments, value)
	if err != nil {
		return fmt.Errorf("form: set %q: %w", path, err)
	}
	if _, ok := updated.(map[string]any); !ok {
		return fmt.Errorf("form: set %q: root must stay an object", path)
	}
	return nil
}

func assign(node any, segments []string, value any) (any, error) {
	if len(segments) == 0 {
		return value, nil
	}
	segment, rest := segments[0], segments[1:]

	if idx, err := strconv.Atoi(segment); err == nil {
		if idx < 0 {
			return nil, fmt.Errorf("negative index %d", idx)
		}
		list, ok := node.([]any)
		if !ok {
			if node != nil {
				return nil, fmt.Errorf("segment %q indexes a non-list value", segment)
			}
			list = nil
		}
		if len(list) <= idx {
			list = append(list, make([]any, idx+1-len(list))...)
		}
		child, err := assign(list[idx], rest, value)
		if err != nil {
			return nil, err
		}
		list[idx] = child
		return list, nil
	}

	object, ok := node.(map[string]any)
	if !ok {
		if node != nil {
			return nil, fmt.Errorf("segment %q addresses a non-object value", segment)
		}
		object = make(map[string]any)
	}
	child, err := assign(object[segment], rest, value)
	if err != nil {
		return nil, err
	}
	object[segment] = child
	return object, nil
}
