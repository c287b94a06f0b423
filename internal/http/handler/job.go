package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/trigger/internal/http/dto"
	"basegraph.app/trigger/internal/service"
	"basegraph.app/trigger/internal/trigger"
)

type JobHandler struct {
	jobs service.JobService
}

func NewJobHandler(jobs service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func (h *JobHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	details, err := h.jobs.Get(ctx, c.Param("job"))
	if err != nil {
		h.fail(c, err, "failed to load job")
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(details))
}

func (h *JobHandler) Save(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SaveJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	details, err := h.jobs.Save(ctx, req.ToJob(c.Param("job")))
	if err != nil {
		h.fail(c, err, "failed to save job")
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(details))
}

func (h *JobHandler) Branches(c *gin.Context) {
	ctx := c.Request.Context()

	branches, err := h.jobs.Branches(ctx, c.Param("job"))
	if err != nil {
		h.fail(c, err, "failed to list branches")
		return
	}

	c.JSON(http.StatusOK, dto.BranchesResponse{Branches: branches})
}

func (h *JobHandler) UpdatePolicy(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	details, err := h.jobs.UpdatePolicy(ctx, c.Param("job"), req.Settings)
	if err != nil {
		h.fail(c, err, "failed to update policy")
		return
	}

	c.JSON(http.StatusOK, dto.ToJobResponse(details))
}

func (h *JobHandler) fail(c *gin.Context, err error, msg string) {
	ctx := c.Request.Context()

	switch {
	case errors.Is(err, service.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, trigger.ErrConfiguration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(ctx, msg, "error", err, "job", c.Param("job"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
