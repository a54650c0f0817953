package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-commandform/internal/config"
	"github.com/goliatone/go-commandform/internal/prompt"
	"github.com/goliatone/go-commandform/pkg/command"
	"github.com/goliatone/go-commandform/pkg/form"
	"github.com/goliatone/go-commandform/pkg/issues"
	"github.com/goliatone/go-commandform/pkg/schema/openapi"
)

type payload = map[string]any

type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	out         io.Writer
	driver      prompt.Driver
	valuesPath  string
	interactive bool
	attempts    int
}

func newApp(cmd *cobra.Command) *app {
	a := &app{
		cfg:         cfg,
		logger:      logger,
		out:         cmd.OutOrStdout(),
		valuesPath:  valuesPath,
		interactive: interactive,
		attempts:    attempts,
	}
	if a.interactive {
		a.driver = prompt.NewSurveyDriver()
	}
	return a
}

func (a *app) operations(ctx context.Context) error {
	doc, err := a.loadDocument(ctx)
	if err != nil {
		return err
	}
	for _, op := range openapi.Operations(doc) {
		marker := " "
		if op.Operation.RequestBody != nil {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %-7s %-32s %s\n", marker, op.Method, op.ID, op.Path)
	}
	return nil
}

func (a *app) writeConfig(path string, overwrite bool) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required (--config)")
	}
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	// the Authorization header comes from COMMANDFORM_TOKEN and stays out of the file
	out := *a.cfg
	out.Headers = make(map[string]string, len(a.cfg.Headers))
	for name, value := range a.cfg.Headers {
		if !strings.EqualFold(name, "Authorization") {
			out.Headers[name] = value
		}
	}
	if len(out.Headers) == 0 {
		out.Headers = nil
	}
	if err := out.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "wrote %s\n", path)
	return nil
}

func (a *app) validate(ctx context.Context) error {
	f, schema, _, err := a.build(ctx)
	if err != nil {
		return err
	}
	for attempt := 1; ; attempt++ {
		if err := a.collect(ctx, f, schema); err != nil {
			return err
		}
		_, err := f.Validate(ctx)
		if err == nil {
			fmt.Fprintln(a.out, "ok")
			return nil
		}
		if issues.Classify(err) != issues.KindValidation {
			return err
		}
		if !a.retry(attempt) {
			a.printErrors(f.Errors())
			return err
		}
	}
}

func (a *app) submit(ctx context.Context) error {
	f, schema, op, err := a.build(ctx)
	if err != nil {
		return err
	}
	a.logger.Debug("submitting operation",
		zap.String("operation", op.ID),
		zap.String("schema", schema.Name()),
		zap.String("method", op.HTTPMethod()),
	)

	for attempt := 1; ; attempt++ {
		if err := a.collect(ctx, f, schema); err != nil {
			return err
		}
		result, err := f.Submit(ctx)
		if err == nil {
			return a.printResult(result)
		}
		mapped := issues.Classify(err) != issues.KindUnknown
		if !mapped || !a.retry(attempt) {
			if len(f.Errors()) > 0 {
				a.printErrors(f.Errors())
			}
			return err
		}
	}
}

func (a *app) retry(attempt int) bool {
	return a.interactive && attempt < a.attempts
}

// build loads the document and wires a form for the configured operation.
func (a *app) build(ctx context.Context) (*form.Form[payload, payload], *openapi.Schema, openapi.Operation, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, nil, openapi.Operation{}, err
	}
	policy, err := a.cfg.ResetPolicy()
	if err != nil {
		return nil, nil, openapi.Operation{}, err
	}

	doc, err := a.loadDocument(ctx)
	if err != nil {
		return nil, nil, openapi.Operation{}, err
	}
	op, err := openapi.FindOperation(doc, a.cfg.Operation)
	if err != nil {
		return nil, nil, openapi.Operation{}, err
	}
	schema, err := openapi.FromOperation(doc, op.ID)
	if err != nil {
		return nil, nil, openapi.Operation{}, err
	}

	initial := schema.Defaults()
	for k, v := range a.cfg.Initial {
		initial[k] = v
	}

	f, err := form.New[payload, payload](ctx, schema, a.command(doc, op),
		form.WithInitial(initial),
		form.WithReset(policy),
		form.WithLogger(a.logger),
		form.WithPreprocess(dropEmpty),
		form.WithHooks(form.Hooks[payload, payload]{
			OnError: func(_ context.Context, err error) {
				a.logger.Error("submission failed", zap.String("operation", op.ID), zap.Error(err))
			},
		}),
	)
	if err != nil {
		return nil, nil, openapi.Operation{}, err
	}

	if a.valuesPath != "" {
		values, err := readValues(a.valuesPath)
		if err != nil {
			return nil, nil, openapi.Operation{}, err
		}
		f.Set(values, false)
	}
	return f, schema, op, nil
}

func (a *app) command(doc *openapi3.T, op openapi.Operation) command.Command[payload, payload] {
	opts := []command.HTTPOption{
		command.WithMethod(op.HTTPMethod()),
		command.WithTimeout(a.cfg.GetTimeout()),
	}
	for name, value := range a.cfg.Headers {
		opts = append(opts, command.WithHeader(name, value))
	}
	return command.HTTP[payload, payload](op.Endpoint(doc, a.cfg.Endpoint), opts...)
}

func (a *app) loadDocument(ctx context.Context) (*openapi3.T, error) {
	if strings.TrimSpace(a.cfg.Document) == "" {
		return nil, errors.New("document is required (--document or COMMANDFORM_DOCUMENT)")
	}
	var opts []openapi.LoadOption
	if a.cfg.AllowHTTP {
		opts = append(opts, openapi.WithHTTPFallback(a.cfg.GetTimeout()))
	}
	return openapi.Load(ctx, a.cfg.Document, opts...)
}

func (a *app) collect(ctx context.Context, f *form.Form[payload, payload], schema *openapi.Schema) error {
	if !a.interactive || a.driver == nil {
		return nil
	}
	values, err := prompt.Collect(ctx, a.driver, schema.Fields(), f.Values(), f.Errors())
	if err != nil {
		return err
	}
	f.Set(values, true)
	return nil
}

func (a *app) printResult(result payload) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if result == nil {
		result = payload{}
	}
	return enc.Encode(result)
}

func (a *app) printErrors(record issues.Record) {
	if msg := record.Form(); msg != "" {
		fmt.Fprintf(a.out, "error: %s\n", msg)
	}
	for _, path := range record.Paths() {
		if path == issues.FormKey {
			continue
		}
		fmt.Fprintf(a.out, "%s: %s\n", path, record[path])
	}
}

// readValues decodes a YAML or JSON file into form values.
func readValues(path string) (payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	values := payload{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse values %s: %w", path, err)
	}
	return values, nil
}

// dropEmpty removes top-level blank strings so optional fields left empty are
// treated as absent.
func dropEmpty(values payload) payload {
	for k, v := range values {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			delete(values, k)
		}
	}
	return values
}
