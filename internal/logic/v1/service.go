package v1

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/duynhne/profile-card-service/internal/core/domain"
	"github.com/duynhne/profile-card-service/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ViewOptions bounds the registry. MaxActive caps views still loading;
// settled views only leave through TTL expiry. A zero TTL disables expiry.
type ViewOptions struct {
	TTL       time.Duration
	MaxActive int
}

// ViewService keeps the views mounted in this process, keyed by id.
// Nothing is persisted; a restart forgets every view.
type ViewService struct {
	fetcher domain.UserFetcher
	logger  *zap.Logger
	opts    ViewOptions

	mu    sync.Mutex
	views map[string]*ProfileView
}

// NewViewService creates an empty registry
func NewViewService(fetcher domain.UserFetcher, logger *zap.Logger, opts ViewOptions) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{
		fetcher: fetcher,
		logger:  logger,
		opts:    opts,
		views:   make(map[string]*ProfileView),
	}
}

// Mount creates, registers and mounts a new view
func (s *ViewService) Mount(ctx context.Context) (*ProfileView, error) {
	ctx, span := middleware.StartSpan(ctx, "view.mount", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	s.mu.Lock()
	if s.opts.MaxActive > 0 && s.loadingLocked() >= s.opts.MaxActive {
		s.mu.Unlock()
		span.SetAttributes(attribute.Bool("view.mounted", false))
		return nil, fmt.Errorf("mount view (limit %d): %w", s.opts.MaxActive, domain.ErrTooManyViews)
	}
	id := uuid.NewString()
	view := NewProfileView(id, s.fetcher, s.logger.With(zap.String("view_id", id)))
	s.views[id] = view
	n := len(s.views)
	s.mu.Unlock()

	middleware.SetViewsActive(n)
	view.Mount(ctx)

	span.SetAttributes(
		attribute.String("view.id", id),
		attribute.Bool("view.mounted", true),
	)
	return view, nil
}

// loadingLocked counts views whose fetch has not settled. Caller holds s.mu.
func (s *ViewService) loadingLocked() int {
	n := 0
	for _, view := range s.views {
		if !view.Settled() {
			n++
		}
	}
	return n
}

// Get returns a mounted view
func (s *ViewService) Get(id string) (*ProfileView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.views[id]
	if !ok {
		return nil, fmt.Errorf("get view %q: %w", id, domain.ErrViewNotFound)
	}
	return view, nil
}

// Teardown cancels the view's fetch and forgets it
func (s *ViewService) Teardown(id string) error {
	s.mu.Lock()
	view, ok := s.views[id]
	if ok {
		delete(s.views, id)
	}
	n := len(s.views)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("teardown view %q: %w", id, domain.ErrViewNotFound)
	}
	view.Teardown()
	middleware.SetViewsActive(n)
	return nil
}

// Len returns the number of registered views
func (s *ViewService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Sweep tears down views mounted more than TTL before now and returns how many were removed
func (s *ViewService) Sweep(now time.Time) int {
	if s.opts.TTL <= 0 {
		return 0
	}

	var expired []*ProfileView
	s.mu.Lock()
	for id, view := range s.views {
		if now.Sub(view.MountedAt()) > s.opts.TTL {
			expired = append(expired, view)
			delete(s.views, id)
		}
	}
	n := len(s.views)
	s.mu.Unlock()

	for _, view := range expired {
		view.Teardown()
	}
	if len(expired) > 0 {
		middleware.SetViewsActive(n)
		s.logger.Debug("Swept expired views", zap.Int("removed", len(expired)), zap.Int("active", n))
	}
	return len(expired)
}

// Run sweeps on every interval until ctx is done
func (s *ViewService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// Close tears down every view
func (s *ViewService) Close() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*ProfileView)
	s.mu.Unlock()

	for _, view := range views {
		view.Teardown()
	}
	middleware.SetViewsActive(0)
}
