package issues_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-commandform/pkg/issues"
)

func TestParsePath(t *testing.T) {
	cases := map[string][]string{
		"name":                  {"name"},
		"/body/name":            {"body", "name"},
		"body.owner.email":      {"body", "owner", "email"},
		"$.body.tags[0]":        {"body", "tags", "0"},
		"request.payload.owner": {"request", "payload", "owner"},
		"#/items/2/title":       {"items", "2", "title"},
		"owner/phone/~1number":  {"owner", "phone", "/number"},
		"data":                  {"data"},
		"non_field_errors":      nil,
		"__all__":               nil,
		"":                      nil,
		"/":                     nil,
	}
	for raw, want := range cases {
		if diff := cmp.Diff(want, issues.ParsePath(raw)); diff != "" {
			t.Errorf("ParsePath(%q) mismatch (-want +got):\n%s", raw, diff)
		}
	}
}

func TestFieldPathFromPointer(t *testing.T) {
	cases := map[string]string{
		"#/properties/title":                          "title",
		"/properties/owner/properties/email":          "owner.email",
		"#/properties/tags/items":                     "tags",
		"#/properties/contact/oneOf/1/properties/fax": "contact.fax",
		"#/$defs/address/properties/zip":              "zip",
		"":                                            "",
	}
	for pointer, want := range cases {
		if got := issues.FieldPathFromPointer(pointer); got != want {
			t.Errorf("FieldPathFromPointer(%q) = %q, want %q", pointer, got, want)
		}
	}
}
