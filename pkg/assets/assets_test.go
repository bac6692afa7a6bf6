package assets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
)

const triangleJSON = `{"vertices":[0,0,0, 1,0,0, 0,1,0],"indices":[0,1,2],"name":"tri"}`

func TestDecodeMesh(t *testing.T) {
	m, err := DecodeMesh(strings.NewReader(triangleJSON))
	if err != nil {
		t.Fatalf("DecodeMesh: %v", err)
	}
	if m.VertexCount() != 3 || len(m.Normals) != 9 {
		t.Errorf("mesh = %d vertices %d normal floats", m.VertexCount(), len(m.Normals))
	}

	bad := []string{
		`{"vertices":[0,0],"indices":[]}`,
		`{"vertices":[0,0,0],"indices":[0,1,2]}`,
		`{"vertices":[0,0,0],"indices":[0,0]}`,
		`{"vertices":[0,0,0],"normals":[1],"indices":[]}`,
		`not json`,
	}
	for _, b := range bad {
		if _, err := DecodeMesh(strings.NewReader(b)); err == nil {
			t.Errorf("DecodeMesh(%s) should fail", b)
		}
	}
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "server.json"), []byte(triangleJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	f := FileFetcher{BaseDir: dir}
	m, err := f.Fetch(context.Background(), "file://server.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if m.Name != "tri" {
		t.Errorf("name = %q", m.Name)
	}
	if _, err := f.Fetch(context.Background(), "../../etc/passwd"); err == nil {
		t.Error("escaping the base dir should not find a file")
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(triangleJSON))
	}))
	defer srv.Close()

	router := DefaultRouter(t.TempDir(), 0)
	if _, err := router.Fetch(context.Background(), srv.URL+"/ok.json"); err != nil {
		t.Errorf("Fetch ok: %v", err)
	}
	if _, err := router.Fetch(context.Background(), srv.URL+"/missing.json"); err == nil {
		t.Error("404 should fail")
	}
	if _, err := router.Fetch(context.Background(), "ftp://host/x.json"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("ftp err = %v, want ErrUnsupportedScheme", err)
	}
}

func TestServiceNeverFails(t *testing.T) {
	var results []string
	var mu sync.Mutex
	observe := func(r string) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}
	var calls atomic.Int32
	f := FetcherFunc(func(ctx context.Context, uri string) (*kernel.Mesh, error) {
		calls.Add(1)
		if uri == "broken" {
			return nil, errors.New("boom")
		}
		return DecodeMesh(strings.NewReader(triangleJSON))
	})
	s := NewService(f, WithObserver(observe))
	ctx := context.Background()

	if m := s.Load(ctx, "good"); m.Fallback || m.Mesh == nil {
		t.Fatalf("good load = %+v", m)
	}
	if m := s.Load(ctx, "good"); m.Fallback {
		t.Fatal("cached load fell back")
	}
	if m := s.Load(ctx, "broken"); !m.Fallback || m.Mesh != nil || m.Err == nil {
		t.Fatalf("broken load = %+v", m)
	}
	s.Load(ctx, "broken")
	if m := s.Load(ctx, ""); !m.Fallback {
		t.Fatal("empty uri should fall back")
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("fetcher called %d times, want 2 (one per uri)", got)
	}
	want := []string{ResultLoaded, ResultCached, ResultFallback, ResultFallback, ResultFallback}
	if strings.Join(results, ",") != strings.Join(want, ",") {
		t.Errorf("results = %v, want %v", results, want)
	}

	s.Reset()
	if s.Len() != 0 {
		t.Error("Reset should empty the cache")
	}
}

func TestServiceNilFetcher(t *testing.T) {
	s := NewService(nil)
	if m := s.Load(context.Background(), "anything"); !m.Fallback {
		t.Error("nil fetcher should always fall back")
	}
}

func TestServiceDoesNotCacheCancellation(t *testing.T) {
	f := FetcherFunc(func(ctx context.Context, uri string) (*kernel.Mesh, error) {
		return nil, ctx.Err()
	})
	s := NewService(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if m := s.Load(ctx, "x"); !m.Fallback {
		t.Fatal("cancelled load should fall back")
	}
	if s.Len() != 0 {
		t.Error("a cancelled load must not poison the cache")
	}
}

func TestServiceSharedFetchSurvivesCancelledCaller(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	f := FetcherFunc(func(ctx context.Context, uri string) (*kernel.Mesh, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return DecodeMesh(strings.NewReader(triangleJSON))
	})
	s := NewService(f)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan Model, 1)
	go func() { first <- s.Load(ctx, "shared") }()
	<-started
	cancel()
	if m := <-first; !m.Fallback {
		t.Fatalf("cancelled caller = %+v, want fallback", m)
	}

	second := make(chan Model, 1)
	go func() { second <- s.Load(context.Background(), "shared") }()
	close(release)
	m := <-second
	if m.Fallback || m.Mesh == nil {
		t.Fatalf("live caller = %+v, want the loaded model", m)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetcher called %d times, want 1", got)
	}
	if s.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", s.Len())
	}
}
