package schema_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-commandform/pkg/issues"
	"github.com/goliatone/go-commandform/pkg/schema"
)

func TestValidate_FoldsIssues(t *testing.T) {
	s := schema.Func[string](func(_ context.Context, values map[string]any) (string, []issues.Issue, error) {
		name, _ := values["name"].(string)
		if name == "" {
			return "", []issues.Issue{issues.NewIssue("name", "Name is required")}, nil
		}
		return name, nil, nil
	})

	_, err := schema.Validate[string](context.Background(), s, map[string]any{})
	var validationErr *issues.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if diff := cmp.Diff(issues.Record{"name": "Name is required"}, validationErr.Record()); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	got, err := schema.Validate[string](context.Background(), s, map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Ada" {
		t.Fatalf("expected output Ada, got %q", got)
	}
}

func TestValidate_AdapterFault(t *testing.T) {
	boom := errors.New("schema compile failed")
	s := schema.Func[int](func(context.Context, map[string]any) (int, []issues.Issue, error) {
		return 0, nil, boom
	})
	if _, err := schema.Validate[int](context.Background(), s, nil); !errors.Is(err, boom) {
		t.Fatalf("expected adapter fault, got %v", err)
	}
	if _, err := schema.Validate[int](context.Background(), nil, nil); !errors.Is(err, schema.ErrNilSchema) {
		t.Fatalf("expected ErrNilSchema, got %v", err)
	}
}

func TestValidate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := schema.Validate(ctx, schema.Passthrough(), map[string]any{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
