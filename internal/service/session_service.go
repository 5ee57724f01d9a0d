package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-centre-api/internal/dto"
	"github.com/noah-isme/edu-centre-api/internal/models"
	"github.com/noah-isme/edu-centre-api/pkg/calendar"
	appErrors "github.com/noah-isme/edu-centre-api/pkg/errors"
	"github.com/noah-isme/edu-centre-api/pkg/jobs"
)

const sessionCachePattern = "sessions:*"

func sessionCacheKey(month, classID string) string {
	if classID == "" {
		classID = "all"
	}
	return fmt.Sprintf("sessions:%s:%s", month, classID)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type sessionStore interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error
	TransitionStatus(ctx context.Context, exec sqlx.ExtContext, id string, from, to models.SessionStatus) error
}

type sessionClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type sessionCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type backfillEnqueuer interface {
	TryEnqueue(job jobs.Job) bool
}

// SessionServiceConfig tunes the read path.
type SessionServiceConfig struct {
	CacheTTL       time.Duration
	BackfillOnList bool
}

// SessionService manages manual sessions and session lifecycle changes.
type SessionService struct {
	sessions  sessionStore
	classes   sessionClassReader
	tx        txProvider
	cache     sessionCache
	backfill  backfillEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SessionServiceConfig
	now       func() time.Time
}

// NewSessionService wires the session service. cache and backfill may be nil.
func NewSessionService(
	sessions sessionStore,
	classes sessionClassReader,
	tx txProvider,
	cache sessionCache,
	backfill backfillEnqueuer,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SessionServiceConfig,
) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &SessionService{
		sessions:  sessions,
		classes:   classes,
		tx:        tx,
		cache:     cache,
		backfill:  backfill,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns the sessions of a month, optionally for one class. When enabled it also
// schedules a rolling-horizon backfill without waiting for it.
func (s *SessionService) List(ctx context.Context, query dto.SessionQuery) ([]models.Session, error) {
	month, ok := calendar.ResolveMonth(strings.TrimSpace(query.Month), s.now())
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must use the YYYY-MM format")
	}
	s.requestBackfill()

	classID := strings.TrimSpace(query.ClassID)
	key := sessionCacheKey(calendar.FormatMonth(month), classID)
	if s.cache != nil {
		var cached []models.Session
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	rng := calendar.MonthRange(month)
	sessions, err := s.sessions.List(ctx, models.SessionFilter{StartDate: rng.StartDate(), EndDate: rng.EndDate(), ClassID: classID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, sessions, s.cfg.CacheTTL)
	}
	return sessions, nil
}

// CreateSpecial adds a one-off session. It fails with ErrSessionConflict when the class
// already has a session at that date and start time.
func (s *SessionService) CreateSpecial(ctx context.Context, req dto.CreateSpecialSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = NormalizeSchedule(rawSchedule(*class)).DurationMinutes
	}
	session := &models.Session{
		ID:               uuid.NewString(),
		ClassID:          class.ID,
		Date:             req.Date,
		StartTime:        canonicalTime(req.StartTime),
		DurationMinutes:  duration,
		Type:             models.SessionTypeSpecial,
		Status:           models.SessionStatusScheduled,
		TargetStudentIDs: req.TargetStudentIDs,
	}
	if err := s.sessions.Insert(ctx, nil, session); err != nil {
		if appErrors.HasCode(err, appErrors.ErrSessionConflict.Code) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.metrics.RecordSessionsCreated(string(models.SessionTypeSpecial), 1)
	s.invalidate(ctx)
	return session, nil
}

// Reschedule cancels a scheduled session and creates its SPECIAL replacement in one
// transaction. The replacement keeps the original's target students.
func (s *SessionService) Reschedule(ctx context.Context, id string, req dto.RescheduleSessionRequest) (*dto.RescheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	original, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.Status != models.SessionStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrSessionTerminal, fmt.Sprintf("cannot reschedule a %s session", original.Status))
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = original.DurationMinutes
	}
	var targets []string
	if original.TargetStudentIDs != nil {
		targets = append([]string{}, original.TargetStudentIDs...)
	}
	replacement := &models.Session{
		ID:               uuid.NewString(),
		ClassID:          original.ClassID,
		Date:             req.Date,
		StartTime:        canonicalTime(req.StartTime),
		DurationMinutes:  duration,
		Type:             models.SessionTypeSpecial,
		Status:           models.SessionStatusScheduled,
		TargetStudentIDs: targets,
		RescheduledFrom:  &original.ID,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.sessions.TransitionStatus(ctx, tx, original.ID, models.SessionStatusScheduled, models.SessionStatusCancelled); err != nil {
		return nil, err
	}
	if err = s.sessions.Insert(ctx, tx, replacement); err != nil {
		if appErrors.HasCode(err, appErrors.ErrSessionConflict.Code) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create replacement session")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reschedule")
	}

	original.Status = models.SessionStatusCancelled
	s.metrics.RecordSessionsCreated(string(models.SessionTypeSpecial), 1)
	s.invalidate(ctx)
	s.logger.Info("session rescheduled", zap.String("from", original.ID), zap.String("to", replacement.ID))
	return &dto.RescheduleResult{Cancelled: original, Created: replacement}, nil
}

// UpdateStatus completes or cancels a scheduled session. Terminal sessions cannot change.
func (s *SessionService) UpdateStatus(ctx context.Context, id string, req dto.UpdateSessionStatusRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrSessionTerminal, fmt.Sprintf("cannot move session from %s to %s", session.Status, req.Status))
	}
	if err := s.sessions.TransitionStatus(ctx, nil, session.ID, session.Status, req.Status); err != nil {
		if appErrors.HasCode(err, appErrors.ErrSessionTerminal.Code) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session status")
	}

	session.Status = req.Status
	s.invalidate(ctx)
	return session, nil
}

func (s *SessionService) load(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *SessionService) requestBackfill() {
	if !s.cfg.BackfillOnList || s.backfill == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeEnsureUpcoming}
	if !s.backfill.TryEnqueue(job) {
		s.logger.Debug("session backfill skipped, queue busy")
	}
}

func (s *SessionService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, sessionCachePattern); err != nil {
		s.logger.Warn("session cache invalidation failed", zap.Error(err))
	}
}
