package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/trigger/internal/http/handler"
	"basegraph.app/trigger/internal/http/handler/webhook"
	"basegraph.app/trigger/internal/mapper"
	"basegraph.app/trigger/internal/service"
)

type RouterConfig struct {
	WebhookToken string
}

func SetupRoutes(router *gin.Engine, registry *service.Registry, jobs service.JobService, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	webhookHandler := webhook.NewGitLabWebhookHandler(registry, mapper.NewGitLabEventMapper(), cfg.WebhookToken)
	WebhookRouter(router.Group("/project"), webhookHandler)

	v1 := router.Group("/api/v1")
	{
		jobHandler := handler.NewJobHandler(jobs)
		JobRouter(v1.Group("/jobs"), jobHandler)

		gitlabHandler := handler.NewGitLabHandler(jobs)
		GitLabRouter(v1.Group("/gitlab"), gitlabHandler)
	}
}
