// Package assets is the model-loading collaborator: fetchers that retrieve
// device meshes by URI and a Service that never fails, answering with a
// fallback result whenever a model cannot be produced.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
)

// ErrUnsupportedScheme is returned for URIs no fetcher handles.
var ErrUnsupportedScheme = errors.New("assets: unsupported uri scheme")

// Fetcher retrieves a mesh by URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*kernel.Mesh, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, uri string) (*kernel.Mesh, error)

func (f FetcherFunc) Fetch(ctx context.Context, uri string) (*kernel.Mesh, error) {
	return f(ctx, uri)
}

// DecodeMesh reads a JSON mesh and checks that its arrays are consistent.
func DecodeMesh(r io.Reader) (*kernel.Mesh, error) {
	var m kernel.Mesh
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode mesh: %w", err)
	}
	if len(m.Vertices) == 0 || len(m.Vertices)%3 != 0 {
		return nil, fmt.Errorf("decode mesh: %d vertex floats is not a positive multiple of 3", len(m.Vertices))
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return nil, fmt.Errorf("decode mesh: %d normals for %d vertices", len(m.Normals)/3, m.VertexCount())
	}
	if len(m.Normals) == 0 {
		m.Normals = make([]float32, len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return nil, fmt.Errorf("decode mesh: %d indices is not a multiple of 3", len(m.Indices))
	}
	n := uint32(m.VertexCount())
	for _, idx := range m.Indices {
		if idx >= n {
			return nil, fmt.Errorf("decode mesh: index %d out of range (%d vertices)", idx, n)
		}
	}
	return &m, nil
}

// FileFetcher reads meshes from disk. Relative paths and file:// URIs are
// resolved against BaseDir; paths escaping BaseDir are rejected.
type FileFetcher struct {
	BaseDir string
}

func (f FileFetcher) Fetch(ctx context.Context, uri string) (*kernel.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := strings.TrimPrefix(uri, "file://")
	if f.BaseDir != "" {
		clean := filepath.Clean("/" + p)
		p = filepath.Join(f.BaseDir, clean)
	}
	fh, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", uri, err)
	}
	defer fh.Close()
	return DecodeMesh(fh)
}

// HTTPFetcher downloads meshes over HTTP(S).
type HTTPFetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

func (f HTTPFetcher) Fetch(ctx context.Context, uri string) (*kernel.Mesh, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build model request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch model %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch model %s: status %d", uri, resp.StatusCode)
	}
	return DecodeMesh(io.LimitReader(resp.Body, 64<<20))
}

// SchemeRouter dispatches on the URI scheme. URIs without a scheme use the
// "file" entry.
type SchemeRouter map[string]Fetcher

func (r SchemeRouter) Fetch(ctx context.Context, uri string) (*kernel.Mesh, error) {
	scheme := "file"
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" {
		scheme = u.Scheme
	}
	f, ok := r[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return f.Fetch(ctx, uri)
}

// DefaultRouter serves file, http and https URIs.
func DefaultRouter(baseDir string, timeout time.Duration) SchemeRouter {
	h := HTTPFetcher{Timeout: timeout}
	return SchemeRouter{
		"file":  FileFetcher{BaseDir: baseDir},
		"http":  h,
		"https": h,
	}
}
