package dto

import "github.com/noah-isme/edu-centre-api/internal/models"

// SessionQuery filters the session listing.
type SessionQuery struct {
	Month   string `form:"month"`
	ClassID string `form:"classId"`
}

// CreateSpecialSessionRequest creates a manual session outside the recurring schedule.
type CreateSpecialSessionRequest struct {
	ClassID          string   `json:"classId" validate:"required"`
	Date             string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime        string   `json:"startTime" validate:"required,datetime=15:04"`
	DurationMinutes  int      `json:"durationMinutes" validate:"omitempty,min=1,max=1440"`
	TargetStudentIDs []string `json:"targetStudentIds" validate:"omitempty,dive,required"`
}

// RescheduleSessionRequest moves a scheduled session to a new slot.
type RescheduleSessionRequest struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"startTime" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"durationMinutes" validate:"omitempty,min=1,max=1440"`
}

// UpdateSessionStatusRequest changes the lifecycle state of a session.
type UpdateSessionStatusRequest struct {
	Status models.SessionStatus `json:"status" validate:"required,oneof=COMPLETED CANCELLED"`
}

// RescheduleResult returns both sides of a reschedule.
type RescheduleResult struct {
	Cancelled *models.Session `json:"cancelled"`
	Created   *models.Session `json:"created"`
}
