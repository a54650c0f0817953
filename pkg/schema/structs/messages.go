package structs

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const messageInvalid = "must be valid"

var defaultMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"url":      "must be a valid URL",
	"uuid":     "must be a valid UUID",
	"oneof":    "must be one of: %s",
	"eqfield":  "does not match %s",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"gt":       "must be greater than %s",
	"lt":       "must be less than %s",
	"number":   "must be a number",
	"alphanum": "must contain only letters and numbers",
}

func (s *Schema[T]) message(fe validator.FieldError) string {
	if msg, ok := s.messages[fe.Tag()]; ok {
		return format(msg, fe.Param())
	}

	switch fe.Tag() {
	case "min", "max", "len":
		return sizeMessage(fe)
	case "oneof":
		return format(defaultMessages["oneof"], strings.Join(strings.Fields(fe.Param()), ", "))
	}

	if msg, ok := defaultMessages[fe.Tag()]; ok {
		return format(msg, fe.Param())
	}
	return messageInvalid
}

func sizeMessage(fe validator.FieldError) string {
	bound := map[string]string{
		"min": "at least",
		"max": "at most",
		"len": "exactly",
	}[fe.Tag()]

	switch fe.Kind() {
	case reflect.String:
		return fmt.Sprintf("must be %s %s characters long", bound, fe.Param())
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("must contain %s %s items", bound, fe.Param())
	default:
		return fmt.Sprintf("must be %s %s", bound, fe.Param())
	}
}

func format(msg, param string) string {
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, param)
	}
	return msg
}
