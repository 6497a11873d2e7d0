package api

import (
	"github.com/civicmatch/civic-match/internal/logger"
	"github.com/civicmatch/civic-match/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondAppError sends a standardised JSON error response
func RespondAppError(c *gin.Context, err error) {
	status, body := utils.NewErrorBody(err)
	if status >= 500 {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, body)
}
