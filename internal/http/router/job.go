package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/trigger/internal/http/handler"
)

func JobRouter(router *gin.RouterGroup, handler *handler.JobHandler) {
	router.GET("/:job", handler.Get)
	router.PUT("/:job", handler.Save)
	router.GET("/:job/branches", handler.Branches)
	router.PUT("/:job/policy", handler.UpdatePolicy)
}
