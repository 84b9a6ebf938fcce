package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(router *gin.Engine, handler *Handler, corsOrigins []string) {
	router.Use(cors.New(corsConfig(corsOrigins)))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.POST("/score", handler.ScorePlot)
	}

	company := api.Group("")
	company.Use(RequireCompany(handler.db, handler.logger))
	{
		company.POST("/grounds", handler.CreateGround)
		company.PUT("/clients/:id/preferences", handler.SetPreferences)

		company.GET("/matches", handler.ListMatches)
		company.POST("/matches/generate", handler.GenerateMatches)
		company.POST("/matches/approve", handler.ApproveMatches)
		company.DELETE("/matches/:id", handler.DeleteMatch)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", CompanyHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
