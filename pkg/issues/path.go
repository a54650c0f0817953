package issues

import (
	"strings"
)

// ParsePath normalises JSON pointers, dotted paths, bracketed indexes and
// "$."-prefixed paths into plain segments. Form-level keys ("__all__",
// "non_field_errors", ...) resolve to the empty path. Transport wrappers such
// as "body" are kept; see Record.Resolve.
func ParsePath(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return nil
	}

	clean := strings.TrimPrefix(trimmed, "#/")
	clean = strings.TrimPrefix(clean, "$/")
	clean = strings.TrimPrefix(clean, "$.")
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = strings.TrimPrefix(clean, "#")
		clean = strings.TrimPrefix(clean, "/")
		clean = strings.TrimPrefix(clean, ".")
		clean = strings.TrimPrefix(clean, "$")
	}

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = replacer.Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		out = append(out, unescapePointer(segment))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FieldPathFromPointer converts a JSON-Schema location pointer such as
// "#/properties/owner/properties/email" into the dotted field path
// "owner.email". Keyword segments are collapsed; array indexes are kept.
func FieldPathFromPointer(pointer string) string {
	trimmed := strings.TrimSpace(pointer)
	trimmed = strings.TrimPrefix(trimmed, "#")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for idx := 0; idx < len(parts); idx++ {
		segment := unescapePointer(parts[idx])
		switch segment {
		case "properties":
			if idx+1 < len(parts) {
				out = append(out, unescapePointer(parts[idx+1]))
				idx++
			}
		case "items":
		case "oneOf", "anyOf", "allOf":
			if idx+1 < len(parts) && isNumeric(parts[idx+1]) {
				idx++
			}
		case "$defs", "definitions":
			if idx+1 < len(parts) {
				idx++
			}
		default:
			if segment == "" {
				continue
			}
			out = append(out, segment)
		}
	}
	return strings.Join(out, ".")
}

func unescapePointer(segment string) string {
	segment = strings.ReplaceAll(segment, "~1", "/")
	return strings.ReplaceAll(segment, "~0", "~")
}

var wrapperSegments = map[string]struct{}{
	"body":    {},
	"request": {},
	"payload": {},
	"data":    {},
}

// unwrap drops leading transport wrappers. A wrapper is kept when isField
// reports it as a real field, and at least one segment always remains.
func unwrap(segments []string, isField func(string) bool) []string {
	out := segments
	for len(out) > 1 {
		if _, ok := wrapperSegments[strings.ToLower(out[0])]; !ok {
			break
		}
		if isField != nil && isField(out[0]) {
			break
		}
		out = out[1:]
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "_form", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
