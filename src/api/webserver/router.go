package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/collablink/collab-comms/src/api/config"
	"github.com/collablink/collab-comms/src/api/engine"
)

// New builds the HTTP surface over an assembled engine. Identity arrives
// as a JWT issued by the session service; this layer only resolves and
// forwards it.
func New(cfg config.Config, eng *engine.Engine) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	attachRoutes(r, cfg, eng)
	return r
}

func attachRoutes(r *gin.Engine, cfg config.Config, eng *engine.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(RequestID())

	propH := NewProposals(eng)
	msgH := NewMessages(eng)
	notifH := NewNotifications(eng)
	limiter := NewRateLimiter(60, time.Minute)

	v1 := r.Group("/v1")
	v1.Use(JWTMiddleware([]byte(cfg.JWTSecret)), RateLimitMiddleware(limiter))
	{
		v1.POST("/proposals", propH.Create)
		v1.GET("/proposals", propH.List)
		v1.GET("/proposals/attention", propH.NeedsAttention)
		v1.GET("/proposals/:id", propH.Get)
		v1.PATCH("/proposals/:id", propH.Edit)
		v1.POST("/proposals/:id/respond", propH.Respond)
		v1.POST("/proposals/:id/archive", propH.Archive)
		v1.DELETE("/proposals/:id", propH.Delete)

		v1.POST("/proposals/:id/messages", msgH.Create)
		v1.GET("/proposals/:id/messages", msgH.List)
		v1.GET("/proposals/:id/messages/unread", msgH.UnreadCount)

		v1.GET("/notifications", notifH.List)
		v1.POST("/notifications/:id/read", notifH.MarkRead)
	}
}
