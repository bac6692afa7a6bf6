package assets

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
)

// Load outcomes reported to observers.
const (
	ResultLoaded   = "loaded"
	ResultCached   = "cached"
	ResultFallback = "fallback"
)

// Model is the answer to a load. Mesh is nil exactly when Fallback is set;
// callers then build their default primitive.
type Model struct {
	URI      string
	Mesh     *kernel.Mesh
	Fallback bool
	Err      error
}

// Service loads models through a Fetcher with a session-lifetime cache.
// Entries live until Reset. Failures are cached too, so a broken URI is
// attempted once per session. Concurrent loads of one URI share a fetch.
type Service struct {
	fetcher Fetcher
	log     zerolog.Logger
	observe func(result string)
	group   singleflight.Group

	mu    sync.RWMutex
	cache map[string]Model
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for fallbacks.
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// WithObserver registers a callback invoked with the outcome of every Load.
func WithObserver(fn func(result string)) ServiceOption {
	return func(s *Service) { s.observe = fn }
}

// NewService returns a Service. A nil fetcher makes every load fall back.
func NewService(f Fetcher, opts ...ServiceOption) *Service {
	s := &Service{fetcher: f, log: zerolog.Nop(), cache: make(map[string]Model)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load resolves uri. It never fails: any error, an empty URI, a missing
// fetcher or a cancelled context yields a fallback Model.
func (s *Service) Load(ctx context.Context, uri string) Model {
	if uri == "" || s == nil || s.fetcher == nil {
		return s.report(Model{URI: uri, Fallback: true}, ResultFallback)
	}

	s.mu.RLock()
	m, ok := s.cache[uri]
	s.mu.RUnlock()
	if ok {
		if m.Fallback {
			return s.report(m, ResultFallback)
		}
		return s.report(m, ResultCached)
	}

	if err := ctx.Err(); err != nil {
		return s.report(Model{URI: uri, Fallback: true, Err: err}, ResultFallback)
	}

	// The shared fetch outlives any one caller; each caller only stops
	// waiting when its own ctx ends. Fetchers bound it with their timeout.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(uri, func() (any, error) {
		mesh, err := s.fetcher.Fetch(fetchCtx, uri)
		m := Model{URI: uri, Mesh: mesh}
		if err != nil || mesh == nil || mesh.IsEmpty() {
			m = Model{URI: uri, Fallback: true, Err: err}
			s.log.Warn().Err(err).Str("uri", uri).Msg("model load failed, using fallback primitive")
		}
		s.mu.Lock()
		s.cache[uri] = m
		s.mu.Unlock()
		return m, nil
	})
	select {
	case <-ctx.Done():
		return s.report(Model{URI: uri, Fallback: true, Err: ctx.Err()}, ResultFallback)
	case r := <-ch:
		m = r.Val.(Model)
	}
	if m.Fallback {
		return s.report(m, ResultFallback)
	}
	return s.report(m, ResultLoaded)
}

// Reset drops every cached entry.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]Model)
}

// Len returns the number of cached entries.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

func (s *Service) report(m Model, result string) Model {
	if s != nil && s.observe != nil {
		s.observe(result)
	}
	return m
}
