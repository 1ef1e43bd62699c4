package router

import (
	"basegraph.app/intake/internal/http/handler/webhook"
	"github.com/gin-gonic/gin"
)

func SlackRouter(router *gin.RouterGroup, handler *webhook.SlackWebhookHandler) {
	router.POST("/events", handler.HandleEvents)
	router.POST("/interactive", handler.HandleInteractive)
}
