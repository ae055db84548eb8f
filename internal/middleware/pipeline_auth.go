package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/services"
)

const triggerKey = "trigger"

// PipelineAuthMiddleware guards the batch endpoints with the X-API-Key
// header. Accepted requests carry the pipeline trigger on their context so
// the batch run and its audit entry record where they came from.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	log := logger.Named("pipeline")
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithError(c, apperrors.ErrPipelineNotConfigured)
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			log.Warnw("rejected pipeline request", "path", c.Request.URL.Path, "client_ip", c.ClientIP(), "key_present", key != "")
			abortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}

		c.Set(triggerKey, services.TriggerPipeline)
		c.Request = c.Request.WithContext(services.WithTrigger(c.Request.Context(), services.TriggerPipeline))
		c.Next()
	}
}
