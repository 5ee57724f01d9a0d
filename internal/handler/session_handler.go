package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-centre-api/internal/dto"
	"github.com/noah-isme/edu-centre-api/internal/models"
	appErrors "github.com/noah-isme/edu-centre-api/pkg/errors"
	"github.com/noah-isme/edu-centre-api/pkg/response"
)

type sessionManager interface {
	List(ctx context.Context, query dto.SessionQuery) ([]models.Session, error)
	CreateSpecial(ctx context.Context, req dto.CreateSpecialSessionRequest) (*models.Session, error)
	Reschedule(ctx context.Context, id string, req dto.RescheduleSessionRequest) (*dto.RescheduleResult, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateSessionStatusRequest) (*models.Session, error)
}

// SessionHandler exposes session listing and lifecycle endpoints.
type SessionHandler struct {
	service sessionManager
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc sessionManager) *SessionHandler {
	return &SessionHandler{service: svc}
}

// List godoc
// @Summary List sessions of a month
// @Tags Sessions
// @Produce json
// @Param month query string false "Month (YYYY-MM), defaults to the current month"
// @Param classId query string false "Class filter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	var query dto.SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	sessions, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sessions, map[string]interface{}{"count": len(sessions)})
}

// CreateSpecial godoc
// @Summary Create a one-off session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSpecialSessionRequest true "Special session"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/special [post]
func (h *SessionHandler) CreateSpecial(c *gin.Context) {
	var req dto.CreateSpecialSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.service.CreateSpecial(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Reschedule godoc
// @Summary Cancel a scheduled session and create its replacement
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.RescheduleSessionRequest true "New slot"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/reschedule [post]
func (h *SessionHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// UpdateStatus godoc
// @Summary Complete or cancel a scheduled session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.UpdateSessionStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/status [patch]
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}
