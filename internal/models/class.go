package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Class represents a recurring teaching group.
type Class struct {
	ID              string             `db:"id" json:"id"`
	Name            string             `db:"name" json:"name"`
	Grade           string             `db:"grade" json:"grade"`
	TeacherID       *string            `db:"teacher_id" json:"teacher_id,omitempty"`
	LocationID      *string            `db:"location_id" json:"location_id,omitempty"`
	DefaultSchedule types.NullJSONText `db:"default_schedule" json:"default_schedule"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}
