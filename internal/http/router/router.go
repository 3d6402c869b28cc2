package router

import (
	"github.com/gin-gonic/gin"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/http/handler"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/http/middleware"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/internal/queue"
)

type RouterConfig struct {
	WebhookToken string
}

func SetupRoutes(router *gin.Engine, producer queue.Producer, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	eventHandler := handler.NewEventHandler(producer)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.WebhookAuth(cfg.WebhookToken))
	{
		v1.POST("/events", eventHandler.Ingest)
	}
}
