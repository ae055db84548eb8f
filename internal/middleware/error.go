package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
)

const errorCodeKey = "errorCode"

// ErrorHandler renders the last error a handler attached with c.Error,
// unless the handler already answered.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RespondWithError(c, c.Errors.Last().Err)
	}
}

// RespondWithError answers an *AppError with its own status and code. Any
// other error is logged with the request context and answered as
// INTERNAL_ERROR so internals never reach the client.
func RespondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Get().Errorw("unexpected error", append(requestFields(c), "error", err.Error())...)
		appErr = apperrors.ErrInternalServer
	} else if appErr.Internal != nil {
		logger.Get().Errorw("app error", append(requestFields(c),
			"code", appErr.Code,
			"internal", appErr.Internal.Error(),
		)...)
	}
	writeError(c, appErr)
}

// abortWithError stops the chain and answers with appErr.
func abortWithError(c *gin.Context, appErr *apperrors.AppError) {
	writeError(c, appErr)
	c.Abort()
}

func writeError(c *gin.Context, appErr *apperrors.AppError) {
	c.Set(errorCodeKey, appErr.Code)
	c.JSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}

// requestFields are the key/value pairs every request log line carries.
func requestFields(c *gin.Context) []interface{} {
	fields := []interface{}{
		"request_id", c.GetString(requestIDKey),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	if route := c.FullPath(); route != "" {
		fields = append(fields, "route", route)
	}
	if userID := c.GetString(userIDKey); userID != "" {
		fields = append(fields, "user_id", userID)
	}
	if trigger := c.GetString(triggerKey); trigger != "" {
		fields = append(fields, "trigger", trigger)
	}
	return fields
}
