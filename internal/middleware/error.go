package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/practice-api/internal/handler"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error when
// no response has been written yet.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		for _, e := range c.Errors {
			log.Debug("request error",
				"request_id", c.GetString(ContextRequestID),
				"path", c.Request.URL.Path,
				"error", e.Error())
		}
		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		c.JSON(apperrors.HTTPStatus(lastErr), handler.ErrorBody(lastErr))
	}
}
