package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/playforge/catalog/src/api/config"
)

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://catalog.playforge.dev"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authH := NewAuth(db, []byte(cfg.JWTSecret))
	propH := NewProposals(db, rdb)
	limiter := NewRateLimiter(30, time.Minute)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/login", authH.Login)

		secured := v1.Group("")
		secured.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		{
			secured.GET("/proposals/mine", propH.ListMine)
			secured.GET("/proposals/:id", propH.Get)

			mutating := secured.Group("")
			mutating.Use(RateLimitMiddleware(limiter))
			{
				mutating.POST("/proposals", propH.Submit)
				mutating.PUT("/proposals/:id", propH.Update)
				mutating.POST("/proposals/:id/revise", propH.Revise)
				mutating.POST("/proposals/:id/feedback/ack", propH.AcknowledgeFeedback)
				mutating.DELETE("/proposals/:id", propH.Delete)
			}

			admin := secured.Group("")
			admin.Use(AdminMiddleware())
			{
				admin.GET("/proposals", propH.List)
				admin.POST("/proposals/:id/approve", propH.Approve)
				admin.POST("/proposals/:id/decline", propH.Decline)
			}
		}
	}
}
