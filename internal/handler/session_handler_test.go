package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-centre-api/internal/dto"
	"github.com/noah-isme/edu-centre-api/internal/models"
	appErrors "github.com/noah-isme/edu-centre-api/pkg/errors"
)

type sessionManagerMock struct {
	query   dto.SessionQuery
	special dto.CreateSpecialSessionRequest
	id      string
	status  dto.UpdateSessionStatusRequest
	err     error
}

func (m *sessionManagerMock) List(ctx context.Context, query dto.SessionQuery) ([]models.Session, error) {
	m.query = query
	if m.err != nil {
		return nil, m.err
	}
	return []models.Session{{ID: "c1_2025-03-03_0900", ClassID: "c1", Date: "2025-03-03", StartTime: "09:00"}}, nil
}

func (m *sessionManagerMock) CreateSpecial(ctx context.Context, req dto.CreateSpecialSessionRequest) (*models.Session, error) {
	m.special = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Session{ID: "new", ClassID: req.ClassID, Type: models.SessionTypeSpecial}, nil
}

func (m *sessionManagerMock) Reschedule(ctx context.Context, id string, req dto.RescheduleSessionRequest) (*dto.RescheduleResult, error) {
	m.id = id
	if m.err != nil {
		return nil, m.err
	}
	return &dto.RescheduleResult{Cancelled: &models.Session{ID: id}, Created: &models.Session{ID: "new"}}, nil
}

func (m *sessionManagerMock) UpdateStatus(ctx context.Context, id string, req dto.UpdateSessionStatusRequest) (*models.Session, error) {
	m.id, m.status = id, req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Session{ID: id, Status: req.Status}, nil
}

func newSessionRouter(mock *sessionManagerMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSessionHandler(mock)
	r := gin.New()
	r.GET("/sessions", h.List)
	r.POST("/sessions/special", h.CreateSpecial)
	r.POST("/sessions/:id/reschedule", h.Reschedule)
	r.PATCH("/sessions/:id/status", h.UpdateStatus)
	return r
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSessionListBindsQuery(t *testing.T) {
	mock := &sessionManagerMock{}
	w := httptest.NewRecorder()
	newSessionRouter(mock).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions?month=2025-03&classId=c1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.SessionQuery{Month: "2025-03", ClassID: "c1"}, mock.query)

	var body struct {
		Data []models.Session   `json:"data"`
		Meta map[string]float64 `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "2025-03-03", body.Data[0].Date)
	assert.Equal(t, float64(1), body.Meta["count"])
}

func TestSessionListInvalidMonth(t *testing.T) {
	mock := &sessionManagerMock{err: appErrors.Clone(appErrors.ErrValidation, "month must use the YYYY-MM format")}
	w := httptest.NewRecorder()
	newSessionRouter(mock).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions?month=13-2025", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionCreateSpecial(t *testing.T) {
	mock := &sessionManagerMock{}
	w := httptest.NewRecorder()
	newSessionRouter(mock).ServeHTTP(w, jsonRequest(http.MethodPost, "/sessions/special",
		`{"classId":"c1","date":"2025-03-05","startTime":"16:00","targetStudentIds":["stu-1"]}`))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c1", mock.special.ClassID)
	assert.Equal(t, []string{"stu-1"}, mock.special.TargetStudentIDs)
}

func TestSessionCreateSpecialConflict(t *testing.T) {
	mock := &sessionManagerMock{err: appErrors.ErrSessionConflict}
	w := httptest.NewRecorder()
	newSessionRouter(mock).ServeHTTP(w, jsonRequest(http.MethodPost, "/sessions/special", `{"classId":"c1","date":"2025-03-03","startTime":"09:00"}`))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_CONFLICT")
}

func TestSessionCreateSpecialMalformed(t *testing.T) {
	w := httptest.NewRecorder()
	newSessionRouter(&sessionManagerMock{}).ServeHTTP(w, jsonRequest(http.MethodPost, "/sessions/special", `{"classId":`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionReschedule(t *testing.T) {
	mock := &sessionManagerMock{}
	w := httptest.NewRecorder()
	newSessionRouter(mock).ServeHTTP(w, jsonRequest(http.MethodPost, "/sessions/s1/reschedule", `{"date":"2025-03-04","startTime":"10:00"}`))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", mock.id)
}

func TestSessionUpdateStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "completed", want: http.StatusOK},
		{name: "terminal", err: appErrors.ErrSessionTerminal, want: http.StatusConflict},
		{name: "unknown", err: appErrors.Clone(appErrors.ErrNotFound, "session not found"), want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &sessionManagerMock{err: tt.err}
			w := httptest.NewRecorder()
			newSessionRouter(mock).ServeHTTP(w, jsonRequest(http.MethodPatch, "/sessions/s1/status", `{"status":"COMPLETED"}`))

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "s1", mock.id)
			assert.Equal(t, models.SessionStatusCompleted, mock.status.Status)
		})
	}
}
