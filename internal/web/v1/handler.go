package v1

import (
	"errors"
	"net/http"

	"github.com/duynhne/profile-card-service/internal/core/domain"
	logicv1 "github.com/duynhne/profile-card-service/internal/logic/v1"
	"github.com/duynhne/profile-card-service/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	pageTitle = "User Profile"

	// loadingRefreshSeconds is how often the loading page re-polls its view
	loadingRefreshSeconds = 1

	failedMessage   = "We couldn't load this profile."
	notFoundMessage = "This profile view has expired."
	busyMessage     = "Too many profiles are loading right now."
)

// ViewHandler serves profile views as HTML pages and as JSON
type ViewHandler struct {
	service *logicv1.ViewService
	logger  *zap.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(service *logicv1.ViewService, logger *zap.Logger) *ViewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewHandler{
		service: service,
		logger:  logger,
	}
}

type pageData struct {
	Title          string
	ID             string
	RefreshSeconds int
	Card           *domain.Card
	Message        string
}

type viewResponse struct {
	domain.ViewState
	Card *domain.Card `json:"card,omitempty"`
}

func newViewResponse(state domain.ViewState) viewResponse {
	resp := viewResponse{ViewState: state}
	if state.Status == domain.StatusReady && state.User != nil {
		card := logicv1.NewCard(*state.User)
		resp.Card = &card
	}
	return resp
}

// LandingPage renders a form that posts to /views. Mounting only happens on
// POST so prefetchers and crawlers do not start fetches.
func (h *ViewHandler) LandingPage(c *gin.Context) {
	c.HTML(http.StatusOK, "landing", pageData{Title: pageTitle})
}

// MountPage mounts a new view and redirects the browser to it
func (h *ViewHandler) MountPage(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.mount_page", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()
	logger := middleware.LoggerFromContext(c, h.logger)

	view, err := h.service.Mount(ctx)
	if err != nil {
		span.RecordError(err)
		logger.Warn("Failed to mount view", zap.Error(err))
		if errors.Is(err, domain.ErrTooManyViews) {
			c.HTML(http.StatusServiceUnavailable, "failed", pageData{Title: pageTitle, Message: busyMessage})
			return
		}
		c.HTML(http.StatusInternalServerError, "failed", pageData{Title: pageTitle, Message: failedMessage})
		return
	}

	logger.Info("View mounted", zap.String("view_id", view.ID()))
	c.Redirect(http.StatusSeeOther, "/views/"+view.ID())
}

// ShowPage renders the loading spinner, the card, or the failure page
// depending on the view's status.
func (h *ViewHandler) ShowPage(c *gin.Context) {
	id, ok := viewIDParam(c)
	if !ok {
		c.HTML(http.StatusBadRequest, "failed", pageData{Title: pageTitle, Message: notFoundMessage})
		return
	}

	view, err := h.service.Get(id)
	if err != nil {
		c.HTML(http.StatusNotFound, "failed", pageData{Title: pageTitle, Message: notFoundMessage})
		return
	}

	state := view.State()
	data := pageData{Title: pageTitle, ID: state.ID}

	switch state.Status {
	case domain.StatusReady:
		card := logicv1.NewCard(*state.User)
		data.Card = &card
		data.Title = card.FullName
		c.HTML(http.StatusOK, "card", data)
	case domain.StatusFailed:
		data.Message = failedMessage
		c.HTML(http.StatusOK, "failed", data)
	default:
		data.RefreshSeconds = loadingRefreshSeconds
		c.HTML(http.StatusOK, "loading", data)
	}
}

// MountView handles POST /api/v1/views
func (h *ViewHandler) MountView(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.mount_view", trace.WithAttributes(
		attribute.String("layer", "web"),
	))
	defer span.End()
	logger := middleware.LoggerFromContext(c, h.logger)

	view, err := h.service.Mount(ctx)
	if err != nil {
		span.RecordError(err)
		logger.Warn("Failed to mount view", zap.Error(err))
		switch {
		case errors.Is(err, domain.ErrTooManyViews):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Too many active views"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	state := view.State()
	logger.Info("View mounted", zap.String("view_id", state.ID))
	c.Header("Location", "/api/v1/views/"+state.ID)
	c.JSON(http.StatusCreated, newViewResponse(state))
}

// GetView handles GET /api/v1/views/:id. With ?wait=<duration> it holds the
// request until the view settles or the wait elapses.
func (h *ViewHandler) GetView(c *gin.Context) {
	id, ok := viewIDParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid view id"})
		return
	}
	wait, err := waitParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": sanitizeValidationError(err)})
		return
	}

	view, err := h.service.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "View not found"})
		return
	}

	state := view.State()
	if wait > 0 && !state.Status.Terminal() {
		ctx, cancel := contextWithWait(c, wait)
		defer cancel()
		// a timeout is not an error here: the caller gets the pending state
		state, _ = view.Wait(ctx)
	}

	c.JSON(http.StatusOK, newViewResponse(state))
}

// DeleteView handles DELETE /api/v1/views/:id
func (h *ViewHandler) DeleteView(c *gin.Context) {
	logger := middleware.LoggerFromContext(c, h.logger)

	id, ok := viewIDParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid view id"})
		return
	}

	if err := h.service.Teardown(id); err != nil {
		if errors.Is(err, domain.ErrViewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "View not found"})
			return
		}
		logger.Error("Failed to tear down view", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	logger.Info("View torn down", zap.String("view_id", id))
	c.Status(http.StatusNoContent)
}
