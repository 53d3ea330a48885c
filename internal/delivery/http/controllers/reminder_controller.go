package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	h "eventhorizon/internal/delivery/http/helpers"
	"eventhorizon/internal/domain"
)

// ScanTrigger starts one reminder scan asynchronously. The scheduler
// implements it; RunNow must return domain.ErrScanInProgress when a scan is
// already running instead of queuing another one.
type ScanTrigger interface {
	RunNow(ctx context.Context) error
}

type ReminderController struct {
	Logger  *slog.Logger
	Trigger ScanTrigger
}

func NewReminderController(logger *slog.Logger, trigger ScanTrigger) *ReminderController {
	return &ReminderController{
		Logger:  logger,
		Trigger: trigger,
	}
}

// RunScan godoc
// @Summary Trigger a reminder scan
// @Description Starts one reminder scan and returns immediately; the scan runs in the background. Returns 409 if a scan is already running.
// @Tags reminders
// @Produce json
// @Security BearerAuth
// @Success 202 {object} helpers.APIResponse "data contains the scan status"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /reminders/run [post]
func (c *ReminderController) RunScan(w http.ResponseWriter, r *http.Request) {
	// RunNow detaches the scan from the request context before spawning it.
	if err := c.Trigger.RunNow(r.Context()); err != nil {
		if errors.Is(err, domain.ErrScanInProgress) {
			h.WriteJSONError(w, http.StatusConflict, h.ErrCodeConflict, "scan already in progress")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	h.WriteJSONSuccess(w, http.StatusAccepted, map[string]string{"status": "scan started"})
}
