package openapi

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Field describes a top-level property of an object schema. Interactive
// collectors use it to decide which prompt to show.
type Field struct {
	Name        string
	Type        string
	Format      string
	Description string
	Required    bool
	ReadOnly    bool
	Enum        []any
	Default     any
	Items       string
	ItemEnum    []any
}

// Fields lists the properties of the schema sorted by name. Read-only
// properties are included but flagged.
func (s *Schema) Fields() []Field {
	if s == nil || s.value == nil || len(s.value.Properties) == 0 {
		return nil
	}

	required := make(map[string]struct{}, len(s.value.Required))
	for _, name := range s.value.Required {
		required[name] = struct{}{}
	}

	names := make([]string, 0, len(s.value.Properties))
	for name := range s.value.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Field, 0, len(names))
	for _, name := range names {
		ref := s.value.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value
		_, isRequired := required[name]
		field := Field{
			Name:        name,
			Type:        firstType(prop.Type),
			Format:      prop.Format,
			Description: strings.TrimSpace(prop.Description),
			Required:    isRequired,
			ReadOnly:    prop.ReadOnly,
			Default:     prop.Default,
		}
		if len(prop.Enum) > 0 {
			field.Enum = append([]any(nil), prop.Enum...)
		}
		if prop.Items != nil && prop.Items.Value != nil {
			field.Items = firstType(prop.Items.Value.Type)
			if len(prop.Items.Value.Enum) > 0 {
				field.ItemEnum = append([]any(nil), prop.Items.Value.Enum...)
			}
		}
		out = append(out, field)
	}
	return out
}

// Defaults returns the declared default of every property that has one.
func (s *Schema) Defaults() map[string]any {
	out := make(map[string]any)
	for _, field := range s.Fields() {
		if field.Default != nil && !field.ReadOnly {
			out[field.Name] = field.Default
		}
	}
	return out
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	default:
		return strings.Join(values, ",")
	}
}
