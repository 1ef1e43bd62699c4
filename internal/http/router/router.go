package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/intake/internal/http/handler/webhook"
)

type RouterConfig struct {
	SlackSigningSecret string
	Dispatcher         webhook.Dispatcher
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig) {
	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", health)
	router.GET("/", health)

	slackHandler := webhook.NewSlackWebhookHandler(cfg.SlackSigningSecret, cfg.Dispatcher)
	SlackRouter(router.Group("/slack"), slackHandler)
}
