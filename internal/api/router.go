package api

import (
	"errors"
	"net/http"

	"github.com/civicmatch/civic-match/internal/apperr"
	"github.com/civicmatch/civic-match/internal/auth"
	"github.com/civicmatch/civic-match/internal/logger"
	"github.com/civicmatch/civic-match/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// BasePath is where the router is mounted.
const BasePath = "/api"

// NewRouter builds the gin engine serving every /api route.
func NewRouter(h *Handler, requireUser gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Handler panic", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		RespondAppError(c, errInternal)
	}))
	r.HandleMethodNotAllowed = true

	h.RegisterRoutes(r.Group(BasePath), requireUser)

	r.NoRoute(func(c *gin.Context) {
		RespondAppError(c, apperr.NewNotFound("Route", c.Request.URL.Path))
	})
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{
			"error":   http.StatusText(http.StatusMethodNotAllowed),
			"message": "method not allowed",
			"code":    "METHOD_NOT_ALLOWED",
		})
	})
	return r
}

var errInternal = errors.New("internal server error")

func newRouter(
	challenges *services.ChallengeService,
	events *services.EventDiscoveryService,
	stats *services.StatsService,
	accounts *services.AccountService,
	authSvc *auth.Service,
) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	return NewRouter(NewHandler(challenges, events, stats, accounts), authSvc.RequireUser())
}

// Module provides the /api router, named "api" for the origin mux
var Module = fx.Module("api",
	fx.Provide(
		fx.Annotate(
			newRouter,
			fx.ResultTags(`name:"api"`),
		),
	),
)
