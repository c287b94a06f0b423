package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/trigger/internal/gitlabclient"
	"basegraph.app/trigger/internal/http/dto"
	"basegraph.app/trigger/internal/service"
)

type GitLabHandler struct {
	jobs service.JobService
}

func NewGitLabHandler(jobs service.JobService) *GitLabHandler {
	return &GitLabHandler{jobs: jobs}
}

func (h *GitLabHandler) TestConnection(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TestGitLabConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username, err := h.jobs.TestConnection(ctx, gitlabclient.Config{
		HostURL:                 req.HostURL,
		APIToken:                req.APIToken,
		IgnoreCertificateErrors: req.IgnoreCertificateErrors,
	})
	if err != nil {
		slog.WarnContext(ctx, "gitlab connection test failed", "error", err, "host_url", req.HostURL)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.TestGitLabConnectionResponse{Username: username})
}
