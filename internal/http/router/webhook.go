package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/trigger/internal/http/handler/webhook"
)

func WebhookRouter(router *gin.RouterGroup, handler *webhook.GitLabWebhookHandler) {
	router.POST("/:job", handler.HandleEvent)
}
