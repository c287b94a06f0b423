package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"basegraph.app/trigger/common/logger"
	"basegraph.app/trigger/internal/domain"
	"basegraph.app/trigger/internal/http/dto"
	"basegraph.app/trigger/internal/mapper"
	"basegraph.app/trigger/internal/service"
	"basegraph.app/trigger/internal/trigger"
)

// maxBodyBytes bounds a hook payload. GitLab truncates push hooks to 20 commits.
const maxBodyBytes = 5 << 20

// TriggerRouter hands an event to the trigger of a job.
type TriggerRouter interface {
	Handle(ctx context.Context, job string, event domain.Event) (*trigger.Result, error)
}

type GitLabWebhookHandler struct {
	triggers TriggerRouter
	mapper   mapper.EventMapper
	token    string
}

// NewGitLabWebhookHandler creates the hook receiver. An empty token accepts
// hooks without X-Gitlab-Token.
func NewGitLabWebhookHandler(triggers TriggerRouter, mapper mapper.EventMapper, token string) *GitLabWebhookHandler {
	return &GitLabWebhookHandler{
		triggers: triggers,
		mapper:   mapper,
		token:    token,
	}
}

func (h *GitLabWebhookHandler) HandleEvent(c *gin.Context) {
	job := c.Param("job")
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		JobName:   logger.Ptr(job),
		Component: "trigger.http.webhook",
	})

	if h.token != "" {
		secret := c.GetHeader("X-Gitlab-Token")
		if secret == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing webhook token"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(secret), []byte(h.token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	eventType := gitlab.HookEventType(c.Request)
	event, err := h.mapper.Map(eventType, body)
	if err != nil {
		if errors.Is(err, mapper.ErrUnsupportedEvent) {
			slog.InfoContext(ctx, "gitlab event type not handled, ignoring", "event_type", eventType)
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "event type not supported"})
			return
		}
		slog.WarnContext(ctx, "invalid gitlab payload", "error", err, "event_type", eventType)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	slog.InfoContext(ctx, "gitlab webhook received",
		"event_kind", event.Kind(),
		"branch", domain.SourceBranch(event))

	result, err := h.triggers.Handle(ctx, job, event)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "failed to process gitlab event", "error", err)
		} else {
			slog.WarnContext(ctx, "gitlab event rejected", "error", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, dto.ToWebhookResponse(result))
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound, "job not found"
	case errors.Is(err, trigger.ErrConfiguration):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, trigger.ErrQueueStopped):
		return http.StatusServiceUnavailable, "trigger is shutting down"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "failed to process event"
	}
}
