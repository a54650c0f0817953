package form_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-commandform/pkg/command"
	"github.com/goliatone/go-commandform/pkg/form"
	"github.com/goliatone/go-commandform/pkg/issues"
	"github.com/goliatone/go-commandform/pkg/schema/structs"
)

type profile struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
}

type saved struct {
	ID string
}

func okCommand(calls *int32) command.Command[profile, saved] {
	return func(_ context.Context, in profile) (saved, error) {
		atomic.AddInt32(calls, 1)
		return saved{ID: "id-" + in.Name}, nil
	}
}

func failingCommand(err error) command.Command[profile, saved] {
	return func(context.Context, profile) (saved, error) {
		return saved{}, err
	}
}

func newForm(t *testing.T, cmd command.Command[profile, saved], opts ...form.Option) *form.Form[profile, saved] {
	t.Helper()
	f, err := form.New[profile, saved](context.Background(), structs.New[profile](), cmd, opts...)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	return f
}

var validValues = map[string]any{"name": "Ada", "email": "ada@example.com"}

func TestNew_RequiresSchemaAndCommand(t *testing.T) {
	var calls int32
	if _, err := form.New[profile, saved](context.Background(), nil, okCommand(&calls)); !errors.Is(err, form.ErrNilSchema) {
		t.Fatalf("expected ErrNilSchema, got %v", err)
	}
	if _, err := form.New[profile, saved](context.Background(), structs.New[profile](), nil); !errors.Is(err, form.ErrNilCommand) {
		t.Fatalf("expected ErrNilCommand, got %v", err)
	}
	_, err := form.New[profile, saved](context.Background(), structs.New[profile](), okCommand(&calls),
		form.WithHooks(form.Hooks[string, int]{}))
	if err == nil {
		t.Fatalf("expected hooks type mismatch error")
	}
}

func TestSet_MergeAndReplace(t *testing.T) {
	var calls int32
	f := newForm(t, okCommand(&calls), form.WithInitial(map[string]any{"name": "Ada"}))

	f.Set(map[string]any{"email": "a@b.co"}, false)
	f.Set(map[string]any{"name": "Grace"}, false)
	if diff := cmp.Diff(map[string]any{"name": "Grace", "email": "a@b.co"}, f.Values()); diff != "" {
		t.Fatalf("merged values mismatch (-want +got):\n%s", diff)
	}

	f.Set(map[string]any{"email": "x@y.z"}, true)
	if diff := cmp.Diff(map[string]any{"email": "x@y.z"}, f.Values()); diff != "" {
		t.Fatalf("replaced values mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_OrderIndependentPerKey(t *testing.T) {
	var calls int32
	a := newForm(t, okCommand(&calls))
	b := newForm(t, okCommand(&calls))

	first := map[string]any{"name": "Ada"}
	second := map[string]any{"email": "ada@example.com"}

	a.Set(first, false)
	a.Set(second, false)
	b.Set(second, false)
	b.Set(first, false)

	if diff := cmp.Diff(a.Values(), b.Values()); diff != "" {
		t.Fatalf("merge depends on order (-a +b):\n%s", diff)
	}
}

func TestSetFieldAndValue(t *testing.T) {
	var calls int32
	f := newForm(t, okCommand(&calls))

	if err := f.SetField("owner.emails.1", "b@example.com"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if err := f.SetField("owner.name", "Ada"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	want := map[string]any{
		"owner": map[string]any{
			"name":   "Ada",
			"emails": []any{nil, "b@example.com"},
		},
	}
	if diff := cmp.Diff(want, f.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if got, ok := f.Value("owner.emails.1"); !ok || got != "b@example.com" {
		t.Fatalf("expected nested value, got %v %v", got, ok)
	}
	if _, ok := f.Value("owner.missing"); ok {
		t.Fatalf("expected missing path to report false")
	}
	if err := f.SetField("owner.name.first", "x"); err == nil {
		t.Fatalf("expected error when descending into a string")
	}
	if err := f.SetField("", "x"); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestValuesAreCopies(t *testing.T) {
	var calls int32
	initial := map[string]any{"tags": []any{"a"}}
	f := newForm(t, okCommand(&calls), form.WithInitial(initial))

	initial["tags"].([]any)[0] = "mutated"
	values := f.Values()
	values["tags"].([]any)[0] = "changed"

	if diff := cmp.Diff(map[string]any{"tags": []any{"a"}}, f.Values()); diff != "" {
		t.Fatalf("form state leaked (-want +got):\n%s", diff)
	}
}

func TestReset_RestoresInitial(t *testing.T) {
	var calls int32
	f := newForm(t, okCommand(&calls), form.WithInitial(map[string]any{"name": "Ada"}))

	f.Set(map[string]any{"name": "Grace", "email": "g@example.com"}, false)
	f.SetErrors(issues.Record{"name": "taken"})
	if !f.Dirty() {
		t.Fatalf("expected dirty form after edits")
	}

	f.Reset()
	if diff := cmp.Diff(map[string]any{"name": "Ada"}, f.Values()); diff != "" {
		t.Fatalf("reset values mismatch (-want +got):\n%s", diff)
	}
	if len(f.Errors()) != 0 {
		t.Fatalf("expected errors cleared, got %#v", f.Errors())
	}
	if f.Dirty() {
		t.Fatalf("expected clean form after reset")
	}
}

func TestSync_ReactiveInitial(t *testing.T) {
	var calls int32
	name := "Ada"
	f := newForm(t, okCommand(&calls), form.WithInitialFunc(func(context.Context) (map[string]any, error) {
		return map[string]any{"name": name}, nil
	}))

	if diff := cmp.Diff(map[string]any{"name": "Ada"}, f.Values()); diff != "" {
		t.Fatalf("initial values mismatch (-want +got):\n%s", diff)
	}

	name = "Grace"
	f.Set(map[string]any{"email": "x@example.com"}, false)
	f.Reset()
	if diff := cmp.Diff(map[string]any{"name": "Ada"}, f.Values()); diff != "" {
		t.Fatalf("reset must use the last resolved value (-want +got):\n%s", diff)
	}

	if err := f.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"name": "Grace"}, f.Values()); diff != "" {
		t.Fatalf("synced values mismatch (-want +got):\n%s", diff)
	}

	f.Set(map[string]any{"name": "Other"}, false)
	f.Reset()
	if diff := cmp.Diff(map[string]any{"name": "Grace"}, f.Values()); diff != "" {
		t.Fatalf("reset after sync mismatch (-want +got):\n%s", diff)
	}
}

func TestSync_ErrorKeepsState(t *testing.T) {
	var calls int32
	fail := false
	f := newForm(t, okCommand(&calls), form.WithInitialFunc(func(context.Context) (map[string]any, error) {
		if fail {
			return nil, errors.New("source offline")
		}
		return map[string]any{"name": "Ada"}, nil
	}))
	fail = true
	if err := f.Sync(context.Background()); err == nil {
		t.Fatalf("expected sync error")
	}
	if diff := cmp.Diff(map[string]any{"name": "Ada"}, f.Values()); diff != "" {
		t.Fatalf("values changed on failed sync (-want +got):\n%s", diff)
	}

	static := newForm(t, okCommand(&calls), form.WithInitial(map[string]any{"name": "Ada"}))
	static.Set(map[string]any{"name": "Edited"}, false)
	if err := static.Sync(context.Background()); err != nil {
		t.Fatalf("sync on static form: %v", err)
	}
	if got, _ := static.Value("name"); got != "Edited" {
		t.Fatalf("sync must not touch static forms, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	var calls int32
	f := newForm(t, okCommand(&calls))
	f.Set(map[string]any{"name": "A", "email": "nope"}, false)

	_, err := f.Validate(context.Background())
	var validationErr *issues.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := issues.Record{
		"name":  "must be at least 2 characters long",
		"email": "must be a valid email",
	}
	if diff := cmp.Diff(want, f.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if f.Error("email") == "" {
		t.Fatalf("expected email error lookup")
	}

	f.Set(validValues, false)
	got, err := f.Validate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Ada" || len(f.Errors()) != 0 {
		t.Fatalf("expected clean validation, got %#v errors %#v", got, f.Errors())
	}
}

func TestPreprocess(t *testing.T) {
	var calls int32
	f := newForm(t, okCommand(&calls),
		form.WithInitial(validValues),
		form.WithPreprocess(func(values map[string]any) map[string]any {
			values["name"] = "Pre"
			return values
		}),
	)

	res, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.ID != "id-Pre" {
		t.Fatalf("expected preprocessed input, got %q", res.ID)
	}
	if got, _ := f.Value("name"); got != "Ada" {
		t.Fatalf("preprocess must not mutate the snapshot, got %v", got)
	}
}

func TestErrorRecordEditing(t *testing.T) {
	var calls int32
	f := newForm(t, okCommand(&calls))
	f.SetErrors(issues.Record{"name": "taken"})
	f.AddIssues(issues.NewIssue("/email", "invalid"), issues.NewIssue("name", "reserved"), issues.Issue{Path: []string{"x"}})

	want := issues.Record{"name": "reserved", "email": "invalid"}
	if diff := cmp.Diff(want, f.Errors()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	list := []issues.Issue{
		issues.NewIssue("email", "  first  "),
		issues.NewIssue("email", "second"),
		issues.NewIssue("name", "   "),
	}
	f.SetErrors(nil)
	f.AddIssues(list...)
	if diff := cmp.Diff(issues.ToRecord(list), f.Errors()); diff != "" {
		t.Fatalf("AddIssues must agree with ToRecord (-want +got):\n%s", diff)
	}
	f.ClearErrors()
	if len(f.Errors()) != 0 {
		t.Fatalf("expected cleared errors")
	}
}

func TestSubscribe(t *testing.T) {
	var calls int32
	f := newForm(t, okCommand(&calls))

	var mu sync.Mutex
	var seen []form.Snapshot
	unsubscribe := f.Subscribe(func(s form.Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	f.Set(validValues, false)
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	unsubscribe()
	unsubscribe()
	f.Set(map[string]any{"name": "ignored"}, false)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 3 {
		t.Fatalf("expected several notifications, got %d", len(seen))
	}
	sawSubmitting := false
	for _, s := range seen {
		if s.Submitting {
			sawSubmitting = true
		}
	}
	if !sawSubmitting {
		t.Fatalf("expected a notification while submitting")
	}
	last := seen[len(seen)-1]
	if last.Submitting || !last.HasResult {
		t.Fatalf("expected settled snapshot with result, got %#v", last)
	}
	if _, ok := last.Values["name"]; !ok || last.Values["name"] == "ignored" {
		t.Fatalf("unsubscribed callback still ran: %#v", last.Values)
	}
}

func TestLoggerRecordsLifecycle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newForm(t, failingCommand(errors.New("boom")), form.WithInitial(validValues), form.WithLogger(zap.New(core)))

	if _, err := f.Submit(context.Background()); err == nil {
		t.Fatalf("expected error")
	}

	started := logs.FilterMessage("form submission started").All()
	failed := logs.FilterMessage("form submission failed").All()
	if len(started) != 1 || len(failed) != 1 {
		t.Fatalf("expected start and failure entries, got %d/%d", len(started), len(failed))
	}
	if started[0].ContextMap()["submission"] != failed[0].ContextMap()["submission"] {
		t.Fatalf("expected entries to share the submission id")
	}
	if failed[0].ContextMap()["kind"] != "unknown" {
		t.Fatalf("expected unknown kind, got %v", failed[0].ContextMap()["kind"])
	}
}

type envelope struct {
	Data struct {
		Name string `json:"name" validate:"required"`
	} `json:"data"`
}

func TestErrors_FieldNamedLikeWrapper(t *testing.T) {
	serverErr := issues.NewValidationError(
		issues.NewIssue("data.name", "already used"),
		issues.NewIssue("/body/data/name", "ignored duplicate"),
	)
	cmd := command.Command[envelope, saved](func(context.Context, envelope) (saved, error) {
		return saved{}, serverErr
	})
	f, err := form.New[envelope, saved](context.Background(), structs.New[envelope](), cmd,
		form.WithInitial(map[string]any{"data": map[string]any{}}),
	)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}

	if _, err := f.Validate(context.Background()); err == nil {
		t.Fatalf("expected client validation error")
	}
	if diff := cmp.Diff(issues.Record{"data.name": "is required"}, f.Errors()); diff != "" {
		t.Fatalf("client errors mismatch (-want +got):\n%s", diff)
	}
	if got := f.Error("data.name"); got != "is required" {
		t.Fatalf("Error(data.name) = %q, want the client message", got)
	}

	if err := f.SetField("data.name", "Ada"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, serverErr) {
		t.Fatalf("expected server error, got %v", err)
	}
	if diff := cmp.Diff(issues.Record{"data.name": "already used"}, f.Errors()); diff != "" {
		t.Fatalf("server errors must share the client key (-want +got):\n%s", diff)
	}
	if got := f.Error("data.name"); got != "already used" {
		t.Fatalf("Error(data.name) = %q, want the server message", got)
	}
}
