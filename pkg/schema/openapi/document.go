package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// LoadOptions configures how documents are fetched. Loading is offline-first:
// URLs are only fetched when an HTTP client is configured or HTTP fallback is
// enabled explicitly.
type LoadOptions struct {
	// FileSystem resolves relative locations when set; the OS filesystem is
	// used otherwise.
	FileSystem fs.FS

	// HTTPClient enables loading from http(s) locations.
	HTTPClient *http.Client

	// AllowHTTPFallback uses a default client when HTTPClient is nil.
	AllowHTTPFallback bool

	// RequestTimeout caps remote fetch durations.
	RequestTimeout time.Duration

	// ValidateDocument runs kin-openapi document validation after loading.
	ValidateDocument bool
}

// LoadOption mutates LoadOptions.
type LoadOption func(*LoadOptions)

// WithFileSystem loads locations from files instead of the OS.
func WithFileSystem(files fs.FS) LoadOption {
	return func(opts *LoadOptions) {
		opts.FileSystem = files
	}
}

// WithHTTPClient enables remote documents using client.
func WithHTTPClient(client *http.Client) LoadOption {
	return func(opts *LoadOptions) {
		opts.HTTPClient = client
	}
}

// WithHTTPFallback enables remote documents with a default client and an
// optional timeout.
func WithHTTPFallback(timeout time.Duration) LoadOption {
	return func(opts *LoadOptions) {
		opts.AllowHTTPFallback = true
		opts.RequestTimeout = timeout
	}
}

// WithDocumentValidation validates the document after loading.
func WithDocumentValidation() LoadOption {
	return func(opts *LoadOptions) {
		opts.ValidateDocument = true
	}
}

// Load reads an OpenAPI document (JSON or YAML) from a file path, an fs.FS
// entry, or an http(s) URL.
func Load(ctx context.Context, location string, options ...LoadOption) (*openapi3.T, error) {
	cfg := LoadOptions{}
	for _, opt := range options {
		opt(&cfg)
	}

	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("openapi schema: document location is required")
	}

	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		client := cfg.HTTPClient
		if client == nil && cfg.AllowHTTPFallback {
			client = &http.Client{}
		}
		if client == nil {
			return nil, errors.New("openapi schema: http support disabled")
		}
		data, err = loadHTTP(ctx, client, location, cfg.RequestTimeout)
	case cfg.FileSystem != nil:
		data, err = loadFromFS(ctx, cfg.FileSystem, location)
	default:
		data, err = loadFile(ctx, location)
	}
	if err != nil {
		return nil, fmt.Errorf("openapi schema: load %s: %w", location, err)
	}

	return Parse(ctx, data, cfg.ValidateDocument)
}

// Parse decodes raw document bytes. References inside the document are
// resolved; external references are not followed.
func Parse(ctx context.Context, data []byte, validate bool) (*openapi3.T, error) {
	if len(data) == 0 {
		return nil, errors.New("openapi schema: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi schema: parse document: %w", err)
	}
	if validate {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi schema: validate document: %w", err)
		}
	}
	return doc, nil
}

func loadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func loadFromFS(ctx context.Context, filesystem fs.FS, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(filesystem, strings.TrimPrefix(name, "./"))
}

func loadHTTP(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("unexpected status " + resp.Status)
	}
	return io.ReadAll(resp.Body)
}
