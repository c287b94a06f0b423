package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/trigger/internal/http/handler"
)

func GitLabRouter(router *gin.RouterGroup, handler *handler.GitLabHandler) {
	router.POST("/test-connection", handler.TestConnection)
}
