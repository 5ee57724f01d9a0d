package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/edu-centre-api/internal/models"
	appErrors "github.com/noah-isme/edu-centre-api/pkg/errors"
)

const pgUniqueViolation = "23505"

const (
	sessionColumns       = `id, class_id, date, start_time, duration_minutes, type, status, target_student_ids, rescheduled_from, created_at, updated_at`
	sessionSelectColumns = `id, class_id, to_char(date, 'YYYY-MM-DD') AS date, start_time, duration_minutes, type, status, target_student_ids, rescheduled_from, created_at, updated_at`
)

// SessionRepository persists concrete class sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListInRange returns the slot keys of every session dated within [start, end].
func (r *SessionRepository) ListInRange(ctx context.Context, start, end string) ([]models.Session, error) {
	const query = `SELECT id, class_id, to_char(date, 'YYYY-MM-DD') AS date, start_time FROM sessions WHERE date >= $1 AND date <= $2`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, start, end); err != nil {
		return nil, fmt.Errorf("list sessions in range: %w", err)
	}
	return sessions, nil
}

// DeleteInRange removes every session dated within [start, end] and returns exactly the ids
// the statement removed, ordered by date and start time.
func (r *SessionRepository) DeleteInRange(ctx context.Context, start, end string) ([]string, error) {
	const query = `WITH deleted AS (
	DELETE FROM sessions WHERE date >= $1 AND date <= $2 RETURNING id, date, start_time
)
SELECT id FROM deleted ORDER BY date ASC, start_time ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, start, end); err != nil {
		return nil, fmt.Errorf("delete sessions in range: %w", err)
	}
	return ids, nil
}

// List returns full session rows for a filter ordered by date and start time.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM sessions WHERE %s ORDER BY date ASC, start_time ASC, class_id ASC", sessionSelectColumns, strings.Join(conditions, " AND "))
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionSelectColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Insert stores a session. A duplicate (class_id, date, start_time) or id yields
// appErrors.ErrSessionConflict so callers never have to inspect driver messages.
func (r *SessionRepository) Insert(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	query := fmt.Sprintf("INSERT INTO sessions (%s) VALUES (:id, :class_id, :date, :start_time, :duration_minutes, :type, :status, :target_student_ids, :rescheduled_from, :created_at, :updated_at)", sessionColumns)
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, session); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrSessionConflict.Code, appErrors.ErrSessionConflict.Status, appErrors.ErrSessionConflict.Message)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// TransitionStatus moves a session from one status to another. It fails with
// appErrors.ErrSessionTerminal when the row is missing or no longer in the from status.
func (r *SessionRepository) TransitionStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to models.SessionStatus) error {
	const query = `UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.exec(exec).ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session status rows: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrSessionTerminal, fmt.Sprintf("session is not %s", from))
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return false
}
