package form

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-commandform/pkg/command"
	"github.com/goliatone/go-commandform/pkg/issues"
	"github.com/goliatone/go-commandform/pkg/schema"
)

var (
	// ErrSubmitting is returned when Submit is called while a submission is
	// already in flight.
	ErrSubmitting = errors.New("form: submission already in flight")
	// ErrNilSchema is returned by New without a schema.
	ErrNilSchema = errors.New("form: schema is required")
	// ErrNilCommand is returned by New without a command.
	ErrNilCommand = errors.New("form: command is required")
)

// Snapshot is a point-in-time copy of the observable form state.
type Snapshot struct {
	Values     map[string]any
	Errors     issues.Record
	Submitting bool
	HasResult  bool
}

// Form binds a schema-validated snapshot to a remote command. It tracks the
// values being edited, a per-field error record fed by client validation and
// server responses, and a single in-flight submission.
type Form[T, R any] struct {
	schema  schema.Schema[T]
	command command.Command[T, R]
	cfg     settings
	hooks   Hooks[T, R]
	logger  *zap.Logger

	mu         sync.Mutex
	values     map[string]any
	initial    map[string]any
	errors     issues.Record
	submitting bool
	result     R
	hasResult  bool

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSub     int
}

// New builds a form. Reactive initial values are resolved before returning.
func New[T, R any](ctx context.Context, s schema.Schema[T], cmd command.Command[T, R], opts ...Option) (*Form[T, R], error) {
	if s == nil {
		return nil, ErrNilSchema
	}
	if cmd == nil {
		return nil, ErrNilCommand
	}

	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Form[T, R]{
		schema:      s,
		command:     cmd,
		cfg:         cfg,
		logger:      cfg.logger,
		errors:      issues.Record{},
		subscribers: make(map[int]func(Snapshot)),
	}

	if cfg.hooks != nil {
		hooks, ok := cfg.hooks.(Hooks[T, R])
		if !ok {
			return nil, fmt.Errorf("form: hooks type %T does not match form types", cfg.hooks)
		}
		f.hooks = hooks
	}

	initial, err := f.resolveInitial(ctx)
	if err != nil {
		return nil, err
	}
	f.initial = initial
	f.values = cloneValues(initial)
	return f, nil
}

// Values returns a copy of the current snapshot.
func (f *Form[T, R]) Values() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneValues(f.values)
}

// Value resolves a dotted path ("owner.email", "tags.0") in the snapshot.
func (f *Form[T, R]) Value(path string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := getPath(f.values, path)
	if !ok {
		return nil, false
	}
	return deepCopy(value), true
}

// Set merges values into the snapshot key by key, or replaces the snapshot
// when clear is true.
func (f *Form[T, R]) Set(values map[string]any, clear bool) {
	f.mu.Lock()
	if clear {
		f.values = cloneValues(values)
	} else {
		for key, value := range values {
			f.values[key] = deepCopy(value)
		}
	}
	f.mu.Unlock()
	f.notify()
}

// SetField writes a single value at a dotted path, creating intermediate
// objects and lists.
func (f *Form[T, R]) SetField(path string, value any) error {
	f.mu.Lock()
	err := setPath(f.values, path, deepCopy(value))
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.notify()
	return nil
}

// Reset restores the last resolved initial values and clears errors.
func (f *Form[T, R]) Reset() {
	f.mu.Lock()
	f.resetLocked()
	f.mu.Unlock()
	f.notify()
}

// Sync re-resolves a reactive initial source and resets the form to it.
// Forms with static initial values are left untouched.
func (f *Form[T, R]) Sync(ctx context.Context) error {
	if f.cfg.initialFunc == nil {
		return nil
	}
	initial, err := f.resolveInitial(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.initial = initial
	f.resetLocked()
	f.mu.Unlock()
	f.notify()
	return nil
}

// Dirty reports whether the snapshot differs from the initial values.
func (f *Form[T, R]) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !reflect.DeepEqual(f.values, f.initial)
}

// Validate runs the schema against the current snapshot and replaces the
// error record with the outcome. Validation failures are returned as
// *issues.ValidationError.
func (f *Form[T, R]) Validate(ctx context.Context) (T, error) {
	input, err := f.validate(ctx, f.Values())
	if err != nil {
		var validationErr *issues.ValidationError
		if errors.As(err, &validationErr) {
			f.replaceErrors(validationErr.Record())
		}
		return input, err
	}
	f.replaceErrors(nil)
	return input, nil
}

// Errors returns a copy of the error record.
func (f *Form[T, R]) Errors() issues.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors.Clone()
}

// Error returns the message for a field path, or "" when the field is valid.
func (f *Form[T, R]) Error(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, _ := f.errors.Get(path)
	return msg
}

// SetErrors replaces the error record.
func (f *Form[T, R]) SetErrors(record issues.Record) {
	f.replaceErrors(record)
}

// AddIssues merges issues into the error record. Within list the first
// message per path wins; the merged messages replace existing ones.
func (f *Form[T, R]) AddIssues(list ...issues.Issue) {
	record := issues.ToRecord(list)
	if len(record) == 0 {
		return
	}
	f.mu.Lock()
	f.errors = f.errors.Merge(record)
	f.mu.Unlock()
	f.notify()
}

// ClearErrors empties the error record.
func (f *Form[T, R]) ClearErrors() {
	f.replaceErrors(nil)
}

// Submitting reports whether a submission is in flight.
func (f *Form[T, R]) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Result returns the result of the last successful submission.
func (f *Form[T, R]) Result() (R, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.hasResult
}

// Snapshot returns a copy of the observable state.
func (f *Form[T, R]) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change. The
// returned function removes the subscription.
func (f *Form[T, R]) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	f.subMu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subscribers[id] = fn
	f.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.subMu.Lock()
			delete(f.subscribers, id)
			f.subMu.Unlock()
		})
	}
}

// Submit validates the snapshot and, when valid, calls the command. Only one
// submission may be in flight; concurrent calls get ErrSubmitting.
//
// Client-side validation failures set the error record and return
// *issues.ValidationError without calling the command. Command failures are
// reconciled by kind: validation errors replace the record, HTTP errors with
// issues are merged into it, and anything else goes to the OnError hook. The
// command error is returned in every case.
func (f *Form[T, R]) Submit(ctx context.Context) (R, error) {
	var zero R

	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return zero, ErrSubmitting
	}
	f.submitting = true
	values := cloneValues(f.values)
	f.mu.Unlock()
	f.notify()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
		f.notify()
	}()

	log := f.logger.With(zap.String("submission", uuid.NewString()))
	log.Debug("form submission started", zap.Int("fields", len(values)))

	input, err := f.validate(ctx, values)
	if err != nil {
		var validationErr *issues.ValidationError
		if errors.As(err, &validationErr) {
			log.Debug("form submission rejected by schema", zap.Strings("paths", validationErr.Record().Paths()))
			f.replaceErrors(validationErr.Record())
			return zero, err
		}
		log.Warn("form schema failed", zap.Error(err))
		f.forward(ctx, err)
		return zero, err
	}
	f.replaceErrors(nil)

	if f.hooks.OnSubmit != nil {
		if err := f.hooks.OnSubmit(ctx, input); err != nil {
			log.Debug("form submission aborted by hook", zap.Error(err))
			err = fmt.Errorf("form: submit hook: %w", err)
			f.forward(ctx, err)
			return zero, err
		}
	}

	result, err := f.command(ctx, input)
	if err != nil {
		f.fail(ctx, log, err)
		return zero, err
	}

	f.mu.Lock()
	f.result = result
	f.hasResult = true
	f.mu.Unlock()

	if f.cfg.invalidate != nil {
		if err := f.cfg.invalidate(ctx); err != nil {
			log.Warn("form invalidate failed", zap.Error(err))
		}
	}
	if f.hooks.OnSuccess != nil {
		f.hooks.OnSuccess(ctx, result)
	}
	if f.cfg.reset.onSuccess() {
		f.Reset()
	}

	log.Debug("form submission succeeded", zap.Stringer("reset", f.cfg.reset))
	return result, nil
}

func (f *Form[T, R]) fail(ctx context.Context, log *zap.Logger, err error) {
	kind := issues.Classify(err)
	log.Warn("form submission failed", zap.Error(err), zap.Stringer("kind", kind))

	// reset first so server errors stay visible afterwards
	if f.cfg.reset.onError() {
		f.Reset()
	}

	switch kind {
	case issues.KindValidation:
		var validationErr *issues.ValidationError
		errors.As(err, &validationErr)
		f.replaceErrors(f.serverRecord(validationErr.Record()))
	case issues.KindHTTP:
		var httpErr *issues.HTTPError
		errors.As(err, &httpErr)
		record := f.serverRecord(httpErr.Record())
		f.mu.Lock()
		f.errors = f.errors.Merge(record)
		f.mu.Unlock()
		f.notify()
	default:
		f.forward(ctx, err)
	}
}

// serverRecord sanitizes server messages and moves wrapped paths
// ("body.name") onto form fields. Top-level keys of the snapshot or the
// initial values count as fields, so a real "data" field keeps its key.
func (f *Form[T, R]) serverRecord(record issues.Record) issues.Record {
	f.mu.Lock()
	fields := make(map[string]struct{}, len(f.values)+len(f.initial))
	for key := range f.values {
		fields[key] = struct{}{}
	}
	for key := range f.initial {
		fields[key] = struct{}{}
	}
	f.mu.Unlock()

	isField := func(name string) bool {
		_, ok := fields[name]
		return ok
	}
	return issues.SanitizeRecord(record, f.cfg.sanitize).Resolve(isField)
}

func (f *Form[T, R]) forward(ctx context.Context, err error) {
	if f.hooks.OnError != nil {
		f.hooks.OnError(ctx, err)
	}
}

func (f *Form[T, R]) validate(ctx context.Context, values map[string]any) (T, error) {
	if f.cfg.preprocess != nil {
		values = f.cfg.preprocess(values)
	}
	return schema.Validate(ctx, f.schema, values)
}

func (f *Form[T, R]) resolveInitial(ctx context.Context) (map[string]any, error) {
	if f.cfg.initialFunc == nil {
		return cloneValues(f.cfg.initial), nil
	}
	values, err := f.cfg.initialFunc(ctx)
	if err != nil {
		return nil, fmt.Errorf("form: resolve initial values: %w", err)
	}
	return cloneValues(values), nil
}

func (f *Form[T, R]) replaceErrors(record issues.Record) {
	f.mu.Lock()
	f.errors = record.Clone()
	f.mu.Unlock()
	f.notify()
}

func (f *Form[T, R]) resetLocked() {
	f.values = cloneValues(f.initial)
	f.errors = issues.Record{}
}

func (f *Form[T, R]) snapshotLocked() Snapshot {
	return Snapshot{
		Values:     cloneValues(f.values),
		Errors:     f.errors.Clone(),
		Submitting: f.submitting,
		HasResult:  f.hasResult,
	}
}

func (f *Form[T, R]) notify() {
	f.subMu.Lock()
	if len(f.subscribers) == 0 {
		f.subMu.Unlock()
		return
	}
	ids := make([]int, 0, len(f.subscribers))
	for id := range f.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, f.subscribers[id])
	}
	f.subMu.Unlock()

	snap := f.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
}
