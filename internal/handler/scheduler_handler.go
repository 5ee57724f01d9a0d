package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-centre-api/internal/dto"
	"github.com/noah-isme/edu-centre-api/pkg/calendar"
	appErrors "github.com/noah-isme/edu-centre-api/pkg/errors"
	"github.com/noah-isme/edu-centre-api/pkg/response"
)

type sessionScheduler interface {
	RunMonth(ctx context.Context, month string) (*dto.ExpandMonthResult, error)
	EnsureUpcomingSessions(ctx context.Context, base time.Time) (*dto.UpcomingSessionsResult, error)
	DeleteSessionsByMonth(ctx context.Context, month string) (*dto.DeleteSessionsResult, error)
	DeleteSessionsBetween(ctx context.Context, start, end string) (*dto.DeleteSessionsResult, error)
}

// SchedulerHandler exposes manual session expansion and maintenance.
type SchedulerHandler struct {
	service sessionScheduler
	logger  *zap.Logger
	now     func() time.Time
}

// NewSchedulerHandler constructs the handler.
func NewSchedulerHandler(svc sessionScheduler, logger *zap.Logger) *SchedulerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerHandler{service: svc, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Run godoc
// @Summary Expand recurring class schedules into sessions for a month
// @Description Idempotent. Omitting month expands the current UTC month.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param month query string false "Month (YYYY-MM)"
// @Param payload body dto.RunSchedulerRequest false "Month in body"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scheduler/run [post]
func (h *SchedulerHandler) Run(c *gin.Context) {
	var req dto.RunSchedulerRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	if req.Month == "" && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	result, err := h.service.RunMonth(c.Request.Context(), req.Month)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("manual scheduler run", zap.String("actor", actorID(c)), zap.String("month", result.Month), zap.Int("created", result.CreatedCount))
	response.OK(c, result)
}

// EnsureUpcoming godoc
// @Summary Expand the rolling horizon of months
// @Tags Scheduler
// @Produce json
// @Param month query string false "First month of the horizon (YYYY-MM), defaults to the current month"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scheduler/ensure-upcoming [post]
func (h *SchedulerHandler) EnsureUpcoming(c *gin.Context) {
	base, ok := calendar.ResolveMonth(strings.TrimSpace(c.Query("month")), h.now())
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month must use the YYYY-MM format"))
		return
	}
	result, err := h.service.EnsureUpcomingSessions(c.Request.Context(), base)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteMonth godoc
// @Summary Delete every session of a month
// @Tags Scheduler
// @Produce json
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scheduler/sessions [delete]
func (h *SchedulerHandler) DeleteMonth(c *gin.Context) {
	month := strings.TrimSpace(c.Query("month"))
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month is required"))
		return
	}
	result, err := h.service.DeleteSessionsByMonth(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("sessions deleted by month", zap.String("actor", actorID(c)), zap.String("month", month), zap.Int("deleted", result.DeletedCount))
	response.OK(c, result)
}

// DeleteRange godoc
// @Summary Delete every session within an inclusive date range
// @Tags Scheduler
// @Produce json
// @Param start query string true "Start date (YYYY-MM-DD)"
// @Param end query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /scheduler/sessions/range [delete]
func (h *SchedulerHandler) DeleteRange(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	result, err := h.service.DeleteSessionsBetween(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("sessions deleted by range", zap.String("actor", actorID(c)), zap.String("start", start), zap.String("end", end), zap.Int("deleted", result.DeletedCount))
	response.OK(c, result)
}
