package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-commandform/pkg/issues"
	"github.com/goliatone/go-commandform/pkg/schema/openapi"
)

// Collect prompts for each writable field and returns the updated values.
// When errs is non-empty only the fields it mentions are asked again, with
// the error shown as help text. Blank answers to optional fields remove the
// value.
func Collect(ctx context.Context, driver Driver, fields []openapi.Field, values map[string]any, errs issues.Record) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}

	retry := failedFields(errs)
	if msg := errs.Form(); msg != "" {
		if err := driver.Info(ctx, "! "+msg); err != nil {
			return nil, err
		}
	}

	for _, field := range fields {
		if field.ReadOnly {
			continue
		}
		if len(retry) > 0 {
			if _, ok := retry[field.Name]; !ok {
				continue
			}
		}

		current, has := out[field.Name]
		if !has {
			current = field.Default
		}
		value, set, err := ask(ctx, driver, field, current, retry[field.Name])
		if err != nil {
			return nil, fmt.Errorf("prompt: %s: %w", field.Name, err)
		}
		if set {
			out[field.Name] = value
		} else {
			delete(out, field.Name)
		}
	}
	return out, nil
}

// failedFields maps top-level field names to the first message reported for
// them or any of their descendants.
func failedFields(errs issues.Record) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string)
	for _, key := range errs.Paths() {
		if key == issues.FormKey {
			continue
		}
		head, _, _ := strings.Cut(key, ".")
		if _, ok := out[head]; !ok {
			out[head] = errs[key]
		}
	}
	return out
}

func ask(ctx context.Context, driver Driver, field openapi.Field, current any, problem string) (any, bool, error) {
	message := field.Name
	if field.Required {
		message += " *"
	}
	help := field.Description
	if problem != "" {
		help = strings.TrimSpace(problem + ". " + help)
		message += " (" + problem + ")"
	}

	switch {
	case len(field.Enum) > 0:
		return askEnum(ctx, driver, field, message, help, current)
	case field.Type == "boolean":
		def, _ := current.(bool)
		v, err := driver.Confirm(ctx, ConfirmConfig{Message: message, Help: help, Default: def})
		return v, err == nil, err
	case field.Type == "array" && len(field.ItemEnum) > 0:
		return askChoices(ctx, driver, field, message, help, current)
	case field.Type == "array":
		return askList(ctx, driver, field, message, help, current)
	}

	cfg := InputConfig{
		Message:   message,
		Help:      help,
		Default:   formatDefault(current),
		Validator: scalarValidator(field),
	}
	var (
		raw string
		err error
	)
	if field.Format == "password" {
		cfg.Default = ""
		raw, err = driver.Password(ctx, cfg)
	} else {
		raw, err = driver.Input(ctx, cfg)
	}
	if err != nil {
		return nil, false, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" && !field.Required {
		return nil, false, nil
	}
	v, err := convertScalar(field.Type, raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func askEnum(ctx context.Context, driver Driver, field openapi.Field, message, help string, current any) (any, bool, error) {
	options := make([]string, len(field.Enum))
	def := -1
	for i, v := range field.Enum {
		options[i] = fmt.Sprint(v)
		if current != nil && fmt.Sprint(current) == options[i] {
			def = i
		}
	}
	idx, err := driver.Select(ctx, SelectConfig{Message: message, Help: help, Options: options, DefaultIndex: def})
	if err != nil {
		return nil, false, err
	}
	if idx < 0 || idx >= len(field.Enum) {
		return nil, false, fmt.Errorf("selection out of range")
	}
	return field.Enum[idx], true, nil
}

func askChoices(ctx context.Context, driver Driver, field openapi.Field, message, help string, current any) (any, bool, error) {
	selected := make(map[string]struct{})
	if list, ok := current.([]any); ok {
		for _, item := range list {
			selected[fmt.Sprint(item)] = struct{}{}
		}
	}
	options := make([]string, len(field.ItemEnum))
	var defaults []int
	for i, v := range field.ItemEnum {
		options[i] = fmt.Sprint(v)
		if _, ok := selected[options[i]]; ok {
			defaults = append(defaults, i)
		}
	}
	picked, err := driver.MultiSelect(ctx, SelectConfig{Message: message, Help: help, Options: options, Defaults: defaults})
	if err != nil {
		return nil, false, err
	}
	if len(picked) == 0 && !field.Required {
		return nil, false, nil
	}
	out := make([]any, 0, len(picked))
	for _, idx := range picked {
		if idx < 0 || idx >= len(field.ItemEnum) {
			return nil, false, fmt.Errorf("selection out of range")
		}
		out = append(out, field.ItemEnum[idx])
	}
	return out, true, nil
}

func askList(ctx context.Context, driver Driver, field openapi.Field, message, help string, current any) (any, bool, error) {
	var existing []string
	if list, ok := current.([]any); ok {
		for _, item := range list {
			existing = append(existing, fmt.Sprint(item))
		}
	}
	raw, err := driver.Input(ctx, InputConfig{
		Message: message + " (comma separated)",
		Help:    help,
		Default: strings.Join(existing, ", "),
	})
	if err != nil {
		return nil, false, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if field.Required {
			return []any{}, true, nil
		}
		return nil, false, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]any, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := convertScalar(field.Items, part)
		if err != nil {
			return nil, false, err
		}
		out = append(out, v)
	}
	return out, true, nil
}

func scalarValidator(field openapi.Field) func(string) error {
	return func(raw string) error {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			if field.Required {
				return fmt.Errorf("value is required")
			}
			return nil
		}
		_, err := convertScalar(field.Type, raw)
		return err
	}
}

// convertScalar parses raw into the JSON value matching the schema type.
func convertScalar(kind, raw string) (any, error) {
	switch kind {
	case "integer":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return n, nil
	case "number":
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return n, nil
	case "boolean":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}

func formatDefault(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
