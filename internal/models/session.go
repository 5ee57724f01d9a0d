package models

import (
	"time"

	"github.com/lib/pq"
)

// SessionType distinguishes generated sessions from manually created ones.
type SessionType string

const (
	SessionTypeRegular SessionType = "REGULAR"
	SessionTypeSpecial SessionType = "SPECIAL"
)

// SessionStatus tracks the lifecycle of a session.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "SCHEDULED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusCancelled SessionStatus = "CANCELLED"
)

// Valid reports whether the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusCompleted, SessionStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a session may move from s to next.
// COMPLETED and CANCELLED are terminal.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return s == SessionStatusScheduled && (next == SessionStatusCompleted || next == SessionStatusCancelled)
}

// Session is one concrete occurrence of a class on a given date and start time.
type Session struct {
	ID               string         `db:"id" json:"id"`
	ClassID          string         `db:"class_id" json:"class_id"`
	Date             string         `db:"date" json:"date"`
	StartTime        string         `db:"start_time" json:"start_time"`
	DurationMinutes  int            `db:"duration_minutes" json:"duration_minutes"`
	Type             SessionType    `db:"type" json:"type"`
	Status           SessionStatus  `db:"status" json:"status"`
	TargetStudentIDs pq.StringArray `db:"target_student_ids" json:"target_student_ids"`
	RescheduledFrom  *string        `db:"rescheduled_from" json:"rescheduled_from,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// SessionKey is the dedup key of a session slot.
func SessionKey(classID, date, startTime string) string {
	return classID + "|" + date + "|" + startTime
}

// Key returns the session's dedup key.
func (s Session) Key() string {
	return SessionKey(s.ClassID, s.Date, s.StartTime)
}

// SessionFilter narrows session listings to a date range and optionally a class.
type SessionFilter struct {
	StartDate string
	EndDate   string
	ClassID   string
}
