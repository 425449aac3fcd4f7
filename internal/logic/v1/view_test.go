package v1_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/duynhne/profile-card-service/internal/core/domain"
	"github.com/duynhne/profile-card-service/internal/core/mocks"
	v1 "github.com/duynhne/profile-card-service/internal/logic/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleUser() *domain.UserRecord {
	return &domain.UserRecord{
		FirstName: "Ana",
		LastName:  "Lima",
		Gender:    "female",
		Phone:     "(11) 5555-0100",
		Email:     "ana.lima@example.com",
		City:      "Porto",
		Country:   "Portugal",
		AvatarURL: "https://randomuser.me/api/portraits/women/1.jpg",
	}
}

func waitSettled(t *testing.T, view *v1.ProfileView) domain.ViewState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := view.Wait(ctx)
	require.NoError(t, err)
	return state
}

func TestProfileView_Mount(t *testing.T) {
	ctx := context.Background()

	t.Run("pending before mount and no fetch issued", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		state := view.State()

		assert.Equal(t, domain.StatusPending, state.Status)
		assert.Nil(t, state.User)
		assert.False(t, view.Settled())
		fetcher.AssertNotCalled(t, "FetchUser", mock.Anything)
	})

	t.Run("success transitions to ready", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Return(sampleUser(), nil).Once()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		view.Mount(ctx)
		state := waitSettled(t, view)

		assert.Equal(t, domain.StatusReady, state.Status)
		assert.Equal(t, sampleUser(), state.User)
		assert.NotNil(t, state.SettledAt)
		assert.True(t, view.Settled())
		fetcher.AssertExpectations(t)
	})

	t.Run("failure transitions to failed without user data", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Return(nil, domain.ErrFetchFailure).Once()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		view.Mount(ctx)
		state := waitSettled(t, view)

		assert.Equal(t, domain.StatusFailed, state.Status)
		assert.Nil(t, state.User)
		fetcher.AssertExpectations(t)
	})

	t.Run("nil record without error is a failure", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Return(nil, nil).Once()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		view.Mount(ctx)
		state := waitSettled(t, view)

		assert.Equal(t, domain.StatusFailed, state.Status)
	})

	t.Run("fetcher panic is a failure", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Panic("boom").Once()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		view.Mount(ctx)
		state := waitSettled(t, view)

		assert.Equal(t, domain.StatusFailed, state.Status)
	})

	t.Run("repeated mount issues exactly one fetch", func(t *testing.T) {
		release := make(chan struct{})
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Run(func(mock.Arguments) {
			<-release
		}).Return(sampleUser(), nil).Once()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		view.Mount(ctx)
		view.Mount(ctx)
		close(release)
		waitSettled(t, view)
		view.Mount(ctx)

		fetcher.AssertNumberOfCalls(t, "FetchUser", 1)
		assert.Equal(t, domain.StatusReady, view.State().Status)
	})

	t.Run("canceling the mounting context does not cancel the fetch", func(t *testing.T) {
		release := make(chan struct{})
		var fetchCtxErr atomic.Value
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Run(func(args mock.Arguments) {
			<-release
			if err := args.Get(0).(context.Context).Err(); err != nil {
				fetchCtxErr.Store(err)
			}
		}).Return(sampleUser(), nil).Once()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		reqCtx, cancel := context.WithCancel(ctx)
		view.Mount(reqCtx)
		cancel()
		close(release)
		state := waitSettled(t, view)

		assert.Equal(t, domain.StatusReady, state.Status)
		assert.Nil(t, fetchCtxErr.Load())
	})
}

func TestProfileView_Teardown(t *testing.T) {
	ctx := context.Background()

	t.Run("teardown before completion discards the result", func(t *testing.T) {
		started := make(chan struct{})
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).Return(sampleUser(), nil).Once()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		var called atomic.Bool
		view.OnSettle(func(domain.ViewState) { called.Store(true) })

		view.Mount(ctx)
		<-started
		view.Teardown()
		state := waitSettled(t, view)

		assert.Equal(t, domain.StatusPending, state.Status)
		assert.Nil(t, state.User)
		assert.True(t, view.Closed())
		assert.False(t, called.Load())
	})

	t.Run("teardown before mount prevents the fetch", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		view.Teardown()
		view.Mount(ctx)

		select {
		case <-view.Done():
		case <-time.After(time.Second):
			t.Fatal("done not closed")
		}
		fetcher.AssertNotCalled(t, "FetchUser", mock.Anything)
	})

	t.Run("teardown after settle keeps the terminal state", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Return(sampleUser(), nil).Once()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		view.Mount(ctx)
		waitSettled(t, view)
		view.Teardown()
		view.Teardown()

		assert.Equal(t, domain.StatusReady, view.State().Status)
	})
}

func TestProfileView_OnSettle(t *testing.T) {
	ctx := context.Background()

	t.Run("callback receives the settled state once", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Return(nil, errors.New("network down")).Once()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())

		got := make(chan domain.ViewState, 2)
		view.OnSettle(func(s domain.ViewState) { got <- s })
		view.Mount(ctx)
		waitSettled(t, view)

		select {
		case s := <-got:
			assert.Equal(t, domain.StatusFailed, s.Status)
		case <-time.After(time.Second):
			t.Fatal("callback not called")
		}
		assert.Len(t, got, 0)
	})

	t.Run("late registration runs immediately", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Return(sampleUser(), nil).Once()
		view := v1.NewProfileView("view-1", fetcher, zap.NewNop())
		view.Mount(ctx)
		waitSettled(t, view)

		var status domain.LoadStatus
		view.OnSettle(func(s domain.ViewState) { status = s.Status })

		assert.Equal(t, domain.StatusReady, status)
	})
}

func TestProfileView_Wait(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	fetcher := mocks.NewMockUserFetcher()
	fetcher.On("FetchUser", mock.Anything).Run(func(mock.Arguments) {
		<-release
	}).Return(sampleUser(), nil).Once()
	view := v1.NewProfileView("view-1", fetcher, zap.NewNop())
	view.Mount(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	state, err := view.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.StatusPending, state.Status)
}
