package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
)

// CORS builds the gin-contrib handler from config. A "*" origin allows
// any origin without credentials.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  cfg.AllowedHeaders,
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", HeaderXRequestID},
		MaxAge:        12 * time.Hour,
	}

	c.AllowAllOrigins = len(cfg.AllowedOrigins) == 0
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			c.AllowAllOrigins = true
			break
		}
	}
	if !c.AllowAllOrigins {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	}

	return cors.New(c)
}
