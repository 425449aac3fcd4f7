package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/duynhne/profile-card-service/internal/core/domain"
	"github.com/duynhne/profile-card-service/internal/core/mocks"
	logicv1 "github.com/duynhne/profile-card-service/internal/logic/v1"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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

func passThrough(c *gin.Context) { c.Next() }

func newTestRouter(t *testing.T, fetcher domain.UserFetcher, opts logicv1.ViewOptions) (*gin.Engine, *logicv1.ViewService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	svc := logicv1.NewViewService(fetcher, zap.NewNop(), opts)
	t.Cleanup(svc.Close)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	RegisterRoutes(r, NewViewHandler(svc, zap.NewNop()), passThrough)
	return r, svc
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func mountSettled(t *testing.T, svc *logicv1.ViewService) domain.ViewState {
	t.Helper()
	view, err := svc.Mount(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := view.Wait(ctx)
	require.NoError(t, err)
	return state
}

func TestLandingPage(t *testing.T) {
	fetcher := mocks.NewMockUserFetcher()
	r, svc := newTestRouter(t, fetcher, logicv1.ViewOptions{})

	w := serve(r, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `method="post"`)
	assert.Contains(t, body, `action="/views"`)
	assert.Equal(t, 0, svc.Len())
	fetcher.AssertNotCalled(t, "FetchUser", mock.Anything)
}

func TestMountPage(t *testing.T) {
	fetcher := mocks.NewMockUserFetcher()
	fetcher.On("FetchUser", mock.Anything).Return(sampleUser(), nil)
	r, svc := newTestRouter(t, fetcher, logicv1.ViewOptions{})

	w := serve(r, http.MethodPost, "/views")

	require.Equal(t, http.StatusSeeOther, w.Code)
	location := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/views/"), location)
	id := strings.TrimPrefix(location, "/views/")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	_, err = svc.Get(id)
	assert.NoError(t, err)
}

func TestMountPage_TooManyViews(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	fetcher := mocks.NewMockUserFetcher()
	fetcher.On("FetchUser", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(sampleUser(), nil)
	r, _ := newTestRouter(t, fetcher, logicv1.ViewOptions{MaxActive: 1})

	require.Equal(t, http.StatusSeeOther, serve(r, http.MethodPost, "/views").Code)
	w := serve(r, http.MethodPost, "/views")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), busyMessage)
}

func TestShowPage(t *testing.T) {
	t.Run("pending renders the loading indicator", func(t *testing.T) {
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(sampleUser(), nil)
		r, svc := newTestRouter(t, fetcher, logicv1.ViewOptions{})

		view, err := svc.Mount(context.Background())
		require.NoError(t, err)
		w := serve(r, http.MethodGet, "/views/"+view.ID())

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `data-status="pending"`)
		assert.Contains(t, body, `class="spinner"`)
		assert.Contains(t, body, `http-equiv="refresh"`)
		assert.NotContains(t, body, "Ana")
	})

	t.Run("ready renders every field", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Return(sampleUser(), nil)
		r, svc := newTestRouter(t, fetcher, logicv1.ViewOptions{})

		state := mountSettled(t, svc)
		w := serve(r, http.MethodGet, "/views/"+state.ID)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `data-status="ready"`)
		assert.Contains(t, body, "Ana Lima")
		assert.Contains(t, body, ">Female<")
		assert.Contains(t, body, "(11) 5555-0100")
		assert.Contains(t, body, "ana.lima@example.com")
		assert.Contains(t, body, "Porto, Portugal")
		assert.Contains(t, body, `src="https://randomuser.me/api/portraits/women/1.jpg"`)
		assert.Contains(t, body, "Message")
		assert.Contains(t, body, "Follow")
		assert.NotContains(t, body, `http-equiv="refresh"`)
	})

	t.Run("failed renders the retry page without user data", func(t *testing.T) {
		fetcher := mocks.NewMockUserFetcher()
		fetcher.On("FetchUser", mock.Anything).Return(nil, domain.ErrFetchFailure)
		r, svc := newTestRouter(t, fetcher, logicv1.ViewOptions{})

		state := mountSettled(t, svc)
		w := serve(r, http.MethodGet, "/views/"+state.ID)

		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `data-status="failed"`)
		assert.Contains(t, body, failedMessage)
		assert.Contains(t, body, `action="/views"`)
		assert.NotContains(t, body, "fetch user failed")
	})

	t.Run("invalid id", func(t *testing.T) {
		r, _ := newTestRouter(t, mocks.NewMockUserFetcher(), logicv1.ViewOptions{})

		assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/views/not-a-uuid").Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		r, _ := newTestRouter(t, mocks.NewMockUserFetcher(), logicv1.ViewOptions{})

		w := serve(r, http.MethodGet, "/views/"+uuid.NewString())

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), notFoundMessage)
	})
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestViewAPI(t *testing.T) {
	fetcher := mocks.NewMockUserFetcher()
	fetcher.On("FetchUser", mock.Anything).Return(sampleUser(), nil)
	r, _ := newTestRouter(t, fetcher, logicv1.ViewOptions{})

	w := serve(r, http.MethodPost, "/api/v1/views")
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeView(t, w)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "/api/v1/views/"+id, w.Header().Get("Location"))

	w = serve(r, http.MethodGet, "/api/v1/views/"+id+"?wait=2s")
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeView(t, w)
	assert.Equal(t, "ready", got["status"])
	card, ok := got["card"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ana Lima", card["full_name"])
	assert.Equal(t, "Female", card["gender_label"])
	assert.Equal(t, "Porto, Portugal", card["location"])

	w = serve(r, http.MethodDelete, "/api/v1/views/"+id)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(r, http.MethodGet, "/api/v1/views/"+id)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodDelete, "/api/v1/views/"+id)
	assert.Equal(t, http.StatusNotFound, w.Code)

	fetcher.AssertNumberOfCalls(t, "FetchUser", 1)
}

func TestGetView_Pending(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	fetcher := mocks.NewMockUserFetcher()
	fetcher.On("FetchUser", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(sampleUser(), nil)
	r, svc := newTestRouter(t, fetcher, logicv1.ViewOptions{})

	view, err := svc.Mount(context.Background())
	require.NoError(t, err)

	w := serve(r, http.MethodGet, "/api/v1/views/"+view.ID()+"?wait=20ms")

	require.Equal(t, http.StatusOK, w.Code)
	got := decodeView(t, w)
	assert.Equal(t, "pending", got["status"])
	assert.NotContains(t, got, "user")
	assert.NotContains(t, got, "card")
}

func TestGetView_BadRequest(t *testing.T) {
	r, _ := newTestRouter(t, mocks.NewMockUserFetcher(), logicv1.ViewOptions{})
	id := uuid.NewString()

	tests := []struct {
		name   string
		target string
	}{
		{name: "invalid id", target: "/api/v1/views/nope"},
		{name: "malformed wait", target: "/api/v1/views/" + id + "?wait=soon"},
		{name: "negative wait", target: "/api/v1/views/" + id + "?wait=-1s"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, tc.target)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
