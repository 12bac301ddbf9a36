package router

import (
	"github.com/gin-gonic/gin"

	authhandler "updown_backend/internal/feature/auth/transport/handler"
	guesshandler "updown_backend/internal/feature/guess/transport/handler"
	markethandler "updown_backend/internal/feature/market/transport/handler"
	streamhandler "updown_backend/internal/feature/stream/transport/handler"
	platformhandler "updown_backend/internal/platform/http/handler"
	jwtmw "updown_backend/internal/platform/jwt"
	"updown_backend/internal/shared/ratelimiter"
)

// NewRouter wires every HTTP endpoint onto one gin engine.
func NewRouter(
	health *platformhandler.HealthHandler,
	authH *authhandler.AuthHandler,
	priceH *markethandler.PriceHandler,
	guessH *guesshandler.GuessHandler,
	streamH *streamhandler.StreamHandler,
	guessLimiter *ratelimiter.UserRateLimiter,
) *gin.Engine {
	r := gin.Default()

	// No auth required.
	r.GET("/healthz", health.Health)
	r.POST("/signup", authH.Signup)
	r.POST("/login", authH.Login)

	// Everything below requires a valid JWT (header or ?token= for SSE).
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired())
	{
		auth.GET("/me", authH.Me)
		auth.GET("/price", priceH.Snapshot)
		auth.POST("/guess", guessLimiter.Middleware(), guessH.Submit)
		auth.GET("/stream", streamH.Stream)
	}

	return r
}
