package v1

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/duynhne/profile-card-service/internal/core/domain"
	"github.com/duynhne/profile-card-service/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProfileView is one mounted profile card. It starts Pending, runs a single
// fetch task when first mounted, and settles into Ready or Failed for good.
//
// The fetch task is bound to the view, not to whatever request mounted it:
// Teardown cancels the task and any result that arrives afterwards is dropped.
type ProfileView struct {
	id      string
	fetcher domain.UserFetcher
	logger  *zap.Logger

	mountOnce sync.Once
	done      chan struct{}

	mu        sync.RWMutex
	status    domain.LoadStatus
	user      *domain.UserRecord
	mountedAt time.Time
	settledAt time.Time
	cancel    context.CancelFunc
	closed    bool
	onSettle  []func(domain.ViewState)
}

// NewProfileView creates a view in the Pending state. Nothing is fetched until Mount.
func NewProfileView(id string, fetcher domain.UserFetcher, logger *zap.Logger) *ProfileView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileView{
		id:        id,
		fetcher:   fetcher,
		logger:    logger,
		done:      make(chan struct{}),
		status:    domain.StatusPending,
		mountedAt: time.Now(),
	}
}

// ID returns the view id
func (v *ProfileView) ID() string {
	return v.id
}

// Mount schedules the fetch task. Only the first call has an effect.
// Cancellation of ctx does not reach the task; trace context does.
func (v *ProfileView) Mount(ctx context.Context) {
	v.mountOnce.Do(func() {
		taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

		v.mu.Lock()
		if v.closed {
			v.mu.Unlock()
			cancel()
			close(v.done)
			return
		}
		v.mountedAt = time.Now()
		v.cancel = cancel
		v.mu.Unlock()

		go v.load(taskCtx, cancel)
	})
}

func (v *ProfileView) load(ctx context.Context, cancel context.CancelFunc) {
	defer close(v.done)
	defer cancel()

	ctx, span := middleware.StartSpan(ctx, "view.load", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("view.id", v.id),
	))
	defer span.End()

	user, err := v.fetch(ctx)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		span.SetAttributes(attribute.Bool("view.discarded", true))
		v.logger.Debug("Discarding fetch result for torn down view", zap.Error(err))
		return
	}
	if err != nil {
		v.status = domain.StatusFailed
	} else {
		v.status = domain.StatusReady
		v.user = user
	}
	v.settledAt = time.Now()
	state := v.stateLocked()
	callbacks := v.onSettle
	v.onSettle = nil
	v.mu.Unlock()

	span.SetAttributes(attribute.String("view.status", state.Status.String()))
	middleware.ObserveViewTransition(state.Status.String())
	if err != nil {
		span.RecordError(err)
		v.logger.Error("Error loading user data", zap.Error(err))
	} else {
		v.logger.Info("View ready")
	}

	for _, cb := range callbacks {
		cb(state)
	}
}

// fetch shields the view from fetcher panics and nil results so a broken
// fetcher ends in Failed rather than taking the process down.
func (v *ProfileView) fetch(ctx context.Context) (user *domain.UserRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			user = nil
			err = fmt.Errorf("%w: fetcher panic: %v", domain.ErrFetchFailure, r)
		}
	}()

	user, err = v.fetcher.FetchUser(ctx)
	if err == nil && user == nil {
		err = fmt.Errorf("%w: fetcher returned no record", domain.ErrFetchFailure)
	}
	return user, err
}

// OnSettle registers cb to run once the view reaches Ready or Failed.
// If the view already settled, cb runs immediately. Torn down views never call cb.
func (v *ProfileView) OnSettle(cb func(domain.ViewState)) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	if v.status.Terminal() {
		state := v.stateLocked()
		v.mu.Unlock()
		cb(state)
		return
	}
	v.onSettle = append(v.onSettle, cb)
	v.mu.Unlock()
}

// Teardown cancels an in-flight fetch and freezes the view. Safe to call more than once.
func (v *ProfileView) Teardown() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.onSettle = nil
	cancel := v.cancel
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// never mounted: no task will close done
	v.mountOnce.Do(func() { close(v.done) })
}

// Closed reports whether Teardown ran
func (v *ProfileView) Closed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.closed
}

// State returns a snapshot of the view
func (v *ProfileView) State() domain.ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stateLocked()
}

func (v *ProfileView) stateLocked() domain.ViewState {
	state := domain.ViewState{
		ID:        v.id,
		Status:    v.status,
		MountedAt: v.mountedAt,
	}
	if v.user != nil {
		u := *v.user
		state.User = &u
	}
	if !v.settledAt.IsZero() {
		t := v.settledAt
		state.SettledAt = &t
	}
	return state
}

// Settled reports whether the view reached Ready or Failed
func (v *ProfileView) Settled() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status.Terminal()
}

// MountedAt returns when the view was mounted
func (v *ProfileView) MountedAt() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mountedAt
}

// Done is closed when the fetch task has finished, whether its result was
// applied or discarded.
func (v *ProfileView) Done() <-chan struct{} {
	return v.done
}

// Wait blocks until the fetch task finishes or ctx ends, then returns the
// current state. The error is ctx.Err() when ctx ended first.
func (v *ProfileView) Wait(ctx context.Context) (domain.ViewState, error) {
	select {
	case <-v.done:
		return v.State(), nil
	case <-ctx.Done():
		return v.State(), ctx.Err()
	}
}
