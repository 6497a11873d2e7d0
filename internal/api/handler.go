// Package api implements the JSON route handlers under /api. Handlers parse
// and validate query parameters, then delegate to a service.
package api

import (
	"context"
	"net/http"

	"github.com/civicmatch/civic-match/internal/apperr"
	authmw "github.com/civicmatch/civic-match/internal/auth/middleware"
	"github.com/civicmatch/civic-match/internal/models"
	"github.com/gin-gonic/gin"
)

// ChallengeService is the subset of services.ChallengeService used by the API.
type ChallengeService interface {
	GetCategories(ctx context.Context) ([]models.Category, error)
}

// EventService is the subset of services.EventDiscoveryService used by the API.
type EventService interface {
	GetCombinedEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetDiscoveredEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetEventsInBounds(ctx context.Context, b models.Bounds) ([]models.Event, error)
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
}

type StatsService interface {
	GetStats(ctx context.Context) (*models.Stats, error)
}

type AccountService interface {
	DeleteAccount(ctx context.Context, userID string) error
}

// Handler serves the /api routes.
type Handler struct {
	challenges ChallengeService
	events     EventService
	stats      StatsService
	accounts   AccountService
}

// NewHandler creates a new Handler
func NewHandler(challenges ChallengeService, events EventService, stats StatsService, accounts AccountService) *Handler {
	return &Handler{
		challenges: challenges,
		events:     events,
		stats:      stats,
		accounts:   accounts,
	}
}

// RegisterRoutes mounts the handlers on r. requireUser guards account routes.
func (h *Handler) RegisterRoutes(r gin.IRouter, requireUser gin.HandlerFunc) {
	r.GET("/categories", h.GetCategories)
	r.GET("/events", h.GetCombinedEvents)
	r.GET("/events/discovered", h.GetDiscoveredEvents)
	r.GET("/events/map", h.GetEventsInBounds)
	r.GET("/events/:id", h.GetEventByID)
	r.GET("/stats", h.GetStats)
	r.GET("/logo", h.GetLogo)
	r.GET("/openapi.json", h.GetOpenAPI)
	r.DELETE("/account", requireUser, h.DeleteAccount)
}

// GetCategories handles GET /api/categories
func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.challenges.GetCategories(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetCombinedEvents handles GET /api/events
func (h *Handler) GetCombinedEvents(c *gin.Context) {
	filter, err := parseEventFilter(c, false)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	events, err := h.events.GetCombinedEvents(c.Request.Context(), filter)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	respondEvents(c, events)
}

// GetDiscoveredEvents handles GET /api/events/discovered
func (h *Handler) GetDiscoveredEvents(c *gin.Context) {
	filter, err := parseEventFilter(c, true)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	events, err := h.events.GetDiscoveredEvents(c.Request.Context(), filter)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	respondEvents(c, events)
}

// GetEventsInBounds handles GET /api/events/map
func (h *Handler) GetEventsInBounds(c *gin.Context) {
	bounds, err := parseBounds(c)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	events, err := h.events.GetEventsInBounds(c.Request.Context(), bounds)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	respondEvents(c, events)
}

// GetEventByID handles GET /api/events/:id
func (h *Handler) GetEventByID(c *gin.Context) {
	id, err := parseUUID("id", c.Param("id"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	event, err := h.events.GetEventByID(c.Request.Context(), id)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// GetStats handles GET /api/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.stats.GetStats(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// DeleteAccount handles DELETE /api/account
func (h *Handler) DeleteAccount(c *gin.Context) {
	user := authmw.User(c)
	if user == nil {
		RespondAppError(c, apperr.NewUnauthorized("authentication required"))
		return
	}
	userID, err := parseUUID("sub", user.UserID)
	if err != nil {
		RespondAppError(c, apperr.NewUnauthorized("token subject is not a user id"))
		return
	}

	if err := h.accounts.DeleteAccount(c.Request.Context(), userID); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

func respondEvents(c *gin.Context, events []models.Event) {
	if events == nil {
		events = []models.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
