package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/johnrobertdelinila/juan-heart-web-sub002/internal/config"
)

// CORS adapts rs/cors to gin. A "*" origin entry allows any origin without
// credentials; an explicit allow-list gets credentialed responses.
// Preflights from origins outside the list are answered with 403.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	anyOrigin := slices.Contains(cfg.AllowedOrigins, "*")
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: !anyOrigin,
		MaxAge:           int(cfg.MaxAge.Seconds()),
	})

	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)

		if ctx.Request.Method != http.MethodOptions || ctx.GetHeader("Access-Control-Request-Method") == "" {
			ctx.Next()
			return
		}
		if ctx.Writer.Header().Get("Access-Control-Allow-Origin") == "" {
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}
		ctx.AbortWithStatus(http.StatusNoContent)
	}
}
