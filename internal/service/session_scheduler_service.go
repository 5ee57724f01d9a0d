package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-centre-api/internal/dto"
	"github.com/noah-isme/edu-centre-api/internal/models"
	"github.com/noah-isme/edu-centre-api/pkg/calendar"
	appErrors "github.com/noah-isme/edu-centre-api/pkg/errors"
	"github.com/noah-isme/edu-centre-api/pkg/jobs"
)

// JobTypeEnsureUpcoming identifies rolling-horizon backfill jobs.
const JobTypeEnsureUpcoming = "ensure_upcoming"

const defaultHorizonMonths = 3

type schedulerClassReader interface {
	ListSchedules(ctx context.Context) ([]models.Class, error)
}

type schedulerSessionStore interface {
	ListInRange(ctx context.Context, start, end string) ([]models.Session, error)
	DeleteInRange(ctx context.Context, start, end string) ([]string, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// SessionSchedulerConfig governs the rolling horizon.
type SessionSchedulerConfig struct {
	HorizonMonths int
}

// SessionSchedulerService expands class recurrences into concrete sessions.
//
// It keeps no state between calls: every expansion re-reads classes and the month's sessions,
// and concurrent runs are reconciled by the (class_id, date, start_time) unique constraint.
type SessionSchedulerService struct {
	classes  schedulerClassReader
	sessions schedulerSessionStore
	cache    cacheInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      SessionSchedulerConfig
	now      func() time.Time
}

// NewSessionSchedulerService wires the scheduler.
func NewSessionSchedulerService(classes schedulerClassReader, sessions schedulerSessionStore, cache cacheInvalidator, metrics *MetricsService, logger *zap.Logger, cfg SessionSchedulerConfig) *SessionSchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HorizonMonths <= 0 {
		cfg.HorizonMonths = defaultHorizonMonths
	}
	return &SessionSchedulerService{
		classes:  classes,
		sessions: sessions,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ExpandMonth creates the REGULAR sessions missing from month. Slots already taken, whether by
// an earlier run, a manual session or a concurrent writer, are left untouched.
func (s *SessionSchedulerService) ExpandMonth(ctx context.Context, month time.Time) (*dto.ExpandMonthResult, error) {
	rng := calendar.MonthRange(month)
	result := &dto.ExpandMonthResult{
		Month:           calendar.FormatMonth(rng.Start),
		CreatedSessions: []dto.CreatedSessionSummary{},
	}
	if s.classes == nil || s.sessions == nil {
		return result, nil
	}

	started := time.Now()
	defer func() { s.metrics.ObserveExpansion(time.Since(started)) }()

	classes, err := s.classes.ListSchedules(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.sessions.ListInRange(ctx, rng.StartDate(), rng.EndDate())
	if err != nil {
		return nil, err
	}

	scheduled := make(map[string]struct{}, len(existing))
	for _, session := range existing {
		scheduled[session.Key()] = struct{}{}
	}

	days := rng.Days()
	for _, class := range classes {
		schedule := NormalizeSchedule(rawSchedule(class))
		if !schedule.Schedulable() {
			continue
		}
		for _, day := range days {
			if !schedule.HasDay(calendar.WeekdayName(day)) {
				continue
			}
			date := calendar.FormatDate(day)
			key := models.SessionKey(class.ID, date, schedule.Time)
			if _, ok := scheduled[key]; ok {
				continue
			}

			session := &models.Session{
				ID:              RegularSessionID(class.ID, date, schedule.Time),
				ClassID:         class.ID,
				Date:            date,
				StartTime:       schedule.Time,
				DurationMinutes: schedule.DurationMinutes,
				Type:            models.SessionTypeRegular,
				Status:          models.SessionStatusScheduled,
			}
			err := s.sessions.Insert(ctx, nil, session)
			scheduled[key] = struct{}{}
			if err != nil {
				if appErrors.HasCode(err, appErrors.ErrSessionConflict.Code) {
					s.metrics.RecordSessionConflict()
					s.logger.Debug("session slot already taken", zap.String("class_id", class.ID), zap.String("date", date), zap.String("start_time", schedule.Time))
					continue
				}
				s.metrics.RecordSessionsCreated(string(models.SessionTypeRegular), len(result.CreatedSessions))
				return nil, err
			}

			result.CreatedSessions = append(result.CreatedSessions, dto.CreatedSessionSummary{
				ID:              session.ID,
				ClassID:         session.ClassID,
				Date:            session.Date,
				StartTime:       session.StartTime,
				DurationMinutes: session.DurationMinutes,
			})
		}
	}

	result.CreatedCount = len(result.CreatedSessions)
	s.metrics.RecordSessionsCreated(string(models.SessionTypeRegular), result.CreatedCount)
	if result.CreatedCount > 0 {
		s.invalidateSessions(ctx)
		s.logger.Info("sessions expanded", zap.String("month", result.Month), zap.Int("created", result.CreatedCount))
	}
	return result, nil
}

// RunMonth expands an explicit YYYY-MM month, or the current month when input is empty.
func (s *SessionSchedulerService) RunMonth(ctx context.Context, monthInput string) (*dto.ExpandMonthResult, error) {
	month, err := s.resolveMonth(monthInput)
	if err != nil {
		return nil, err
	}
	return s.ExpandMonth(ctx, month)
}

// EnsureUpcomingSessions expands base's month and the following months of the horizon, in
// order. The first failure stops the walk and is returned.
func (s *SessionSchedulerService) EnsureUpcomingSessions(ctx context.Context, base time.Time) (*dto.UpcomingSessionsResult, error) {
	out := &dto.UpcomingSessionsResult{Months: make([]dto.ExpandMonthResult, 0, s.cfg.HorizonMonths)}
	for i := 0; i < s.cfg.HorizonMonths; i++ {
		res, err := s.ExpandMonth(ctx, calendar.AddMonths(base, i))
		if err != nil {
			return nil, fmt.Errorf("ensure sessions for %s: %w", calendar.FormatMonth(calendar.AddMonths(base, i)), err)
		}
		out.Months = append(out.Months, *res)
	}
	return out, nil
}

// RunScheduledMaintenance is the periodic entry point: it expands the reference month only.
func (s *SessionSchedulerService) RunScheduledMaintenance(ctx context.Context, ref time.Time) (*dto.MaintenanceResult, error) {
	res, err := s.ExpandMonth(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &dto.MaintenanceResult{ScheduleResult: res}, nil
}

// HandleBackfillJob runs the rolling-horizon expansion for a queued job.
func (s *SessionSchedulerService) HandleBackfillJob(ctx context.Context, job jobs.Job) error {
	res, err := s.EnsureUpcomingSessions(ctx, s.now())
	if err != nil {
		return err
	}
	created := 0
	for _, month := range res.Months {
		created += month.CreatedCount
	}
	s.logger.Debug("backfill job finished", zap.String("job_id", job.ID), zap.Int("created", created))
	return nil
}

// DeleteSessionsInRange removes every session dated within [start, end] and returns their ids.
// Missing bounds or storage make it a no-op.
func (s *SessionSchedulerService) DeleteSessionsInRange(ctx context.Context, start, end time.Time) (*dto.DeleteSessionsResult, error) {
	if s.sessions == nil || start.IsZero() || end.IsZero() {
		return &dto.DeleteSessionsResult{}, nil
	}
	startDate, endDate := calendar.FormatDate(start), calendar.FormatDate(end)

	ids, err := s.sessions.DeleteInRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &dto.DeleteSessionsResult{DeletedIDs: []string{}}, nil
	}

	s.metrics.RecordSessionsDeleted(len(ids))
	s.invalidateSessions(ctx)
	s.logger.Info("sessions deleted", zap.String("start", startDate), zap.String("end", endDate), zap.Int("deleted", len(ids)))
	return &dto.DeleteSessionsResult{DeletedCount: len(ids), DeletedIDs: ids}, nil
}

// DeleteSessionsByMonth clears a YYYY-MM month, or the current month when input is empty.
func (s *SessionSchedulerService) DeleteSessionsByMonth(ctx context.Context, monthInput string) (*dto.DeleteSessionsResult, error) {
	month, err := s.resolveMonth(monthInput)
	if err != nil {
		return nil, err
	}
	rng := calendar.MonthRange(month)
	return s.DeleteSessionsInRange(ctx, rng.Start, rng.End)
}

// DeleteSessionsBetween clears an explicit YYYY-MM-DD range.
func (s *SessionSchedulerService) DeleteSessionsBetween(ctx context.Context, startInput, endInput string) (*dto.DeleteSessionsResult, error) {
	start, okStart := calendar.ParseDate(startInput)
	end, okEnd := calendar.ParseDate(endInput)
	if !okStart || !okEnd {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start and end must use the YYYY-MM-DD format")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must not be before start")
	}
	return s.DeleteSessionsInRange(ctx, start, end)
}

func (s *SessionSchedulerService) resolveMonth(input string) (time.Time, error) {
	month, ok := calendar.ResolveMonth(strings.TrimSpace(input), s.now())
	if !ok {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "month must use the YYYY-MM format")
	}
	return month, nil
}

func (s *SessionSchedulerService) invalidateSessions(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, sessionCachePattern); err != nil {
		s.logger.Warn("session cache invalidation failed", zap.Error(err))
	}
}

// RegularSessionID derives the deterministic id of a generated session.
func RegularSessionID(classID, date, startTime string) string {
	return fmt.Sprintf("%s_%s_%s", classID, date, strings.ReplaceAll(startTime, ":", ""))
}

func rawSchedule(class models.Class) []byte {
	if !class.DefaultSchedule.Valid {
		return nil
	}
	return []byte(class.DefaultSchedule.JSONText)
}
