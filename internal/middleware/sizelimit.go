package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/pkg/httputil"
)

// SizeLimitConfig represents size limit configuration
type SizeLimitConfig struct {
	MaxBodySize   int64 // in bytes
	MaxHeaderSize int   // in bytes
	ErrorMessage  string
}

func DefaultSizeLimitConfig() SizeLimitConfig {
	return SizeLimitConfig{
		MaxBodySize:   12 << 20,
		MaxHeaderSize: 1 << 14, // 16KB
		ErrorMessage:  "Request size exceeds limit",
	}
}

// SizeLimit rejects oversized requests up front and caps the body reader
// for requests without a Content-Length.
func SizeLimit(config SizeLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > config.MaxBodySize {
			tooLarge(c, fmt.Sprintf("%s: body size exceeds %d bytes", config.ErrorMessage, config.MaxBodySize))
			return
		}

		headerSize := 0
		for name, values := range c.Request.Header {
			headerSize += len(name)
			for _, value := range values {
				headerSize += len(value)
			}
		}
		if config.MaxHeaderSize > 0 && headerSize > config.MaxHeaderSize {
			tooLarge(c, fmt.Sprintf("%s: header size exceeds %d bytes", config.ErrorMessage, config.MaxHeaderSize))
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxBodySize)
		}
		c.Next()
	}
}

func tooLarge(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.Response{
		Status:  httputil.StatusError,
		Message: msg,
	})
}
