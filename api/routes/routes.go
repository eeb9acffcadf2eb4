package routes

import (
	"net/http"

	"github.com/ArowuTest/prizedraw-engine/internal/config"
	"github.com/ArowuTest/prizedraw-engine/internal/handlers"
	"github.com/ArowuTest/prizedraw-engine/internal/middleware"
	"github.com/ArowuTest/prizedraw-engine/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// HandlerDependencies holds all handler instances needed by the router
type HandlerDependencies struct {
	DrawHandler         *handlers.DrawHandler
	NotificationHandler *handlers.NotificationHandler
	Tokens              *jwt.TokenService
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedHosts))
	router.Use(middleware.TimeoutMiddleware(cfg.Server.RequestTimeout))

	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		public.GET("/draws", deps.DrawHandler.ListDraws)
		public.GET("/draws/:id", deps.DrawHandler.GetDraw)
		public.GET("/draws/:id/prizes", deps.DrawHandler.ListPrizes)
	}

	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(deps.Tokens))
	{
		draws := protected.Group("/draws")
		{
			draws.POST("", deps.DrawHandler.CreateDraw)
			draws.POST("/:id/announce", deps.DrawHandler.AnnounceDraw)
			draws.POST("/:id/revert", deps.DrawHandler.RevertDraw)
			draws.POST("/:id/prizes", deps.DrawHandler.CreatePrize)
			draws.POST("/:id/entries", deps.DrawHandler.EnterDraw)
			draws.POST("/:id/selection", deps.DrawHandler.RunSelection)
			draws.POST("/:id/expire", deps.DrawHandler.ExpireAndRedraw)
			draws.GET("/:id/winners", deps.DrawHandler.ListWinners)
		}

		prizes := protected.Group("/prizes")
		{
			prizes.POST("/:id/deactivate", deps.DrawHandler.DeactivatePrize)
			prizes.POST("/:id/winners", deps.DrawHandler.AssignManualWinner)
		}

		winners := protected.Group("/winners")
		{
			winners.POST("/:id/claim", deps.DrawHandler.Claim)
			winners.POST("/:id/payout", deps.DrawHandler.MarkPaid)
		}

		protected.GET("/rollovers", deps.DrawHandler.ListRollovers)
		protected.GET("/me/notifications", deps.NotificationHandler.GetMyNotifications)
	}

	return router
}
