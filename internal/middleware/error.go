package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sehatsathi/sehatsathi-api/pkg/errors"
	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

// ErrorHandler logs errors attached with c.Error. Client errors are logged
// at debug level. A handler that attached an error without writing a
// response gets the standard error envelope.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			level := zerolog.ErrorLevel
			if appErr, ok := errors.As(e.Err); ok && appErr.StatusCode() < 500 {
				level = zerolog.DebugLevel
			}
			log.WithLevel(level).
				Err(e.Err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		if !c.Writer.Written() {
			httputil.RespondWithError(c, c.Errors.Last().Err)
		}
	}
}
