package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-centre-api/internal/models"
	appErrors "github.com/noah-isme/edu-centre-api/pkg/errors"
	"github.com/noah-isme/edu-centre-api/pkg/jobs"
)

func TestExpandMonthMondayClass(t *testing.T) {
	store := newMemorySessionStore()
	svc := newSchedulerFixture(&classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"dayOfWeek":"Monday","time":"09:00"}`),
	}}, store)

	res, err := svc.ExpandMonth(context.Background(), month(2025, time.March))
	require.NoError(t, err)

	assert.Equal(t, "2025-03", res.Month)
	assert.Equal(t, 5, res.CreatedCount)
	require.Len(t, res.CreatedSessions, 5)

	var dates []string
	for _, created := range res.CreatedSessions {
		dates = append(dates, created.Date)
		assert.Equal(t, "c1", created.ClassID)
		assert.Equal(t, "09:00", created.StartTime)
		assert.Equal(t, 60, created.DurationMinutes)
	}
	assert.Equal(t, []string{"2025-03-03", "2025-03-10", "2025-03-17", "2025-03-24", "2025-03-31"}, dates)

	stored := store.all()
	require.Len(t, stored, 5)
	for _, session := range stored {
		assert.Equal(t, models.SessionTypeRegular, session.Type)
		assert.Equal(t, models.SessionStatusScheduled, session.Status)
		assert.Nil(t, session.TargetStudentIDs)
	}
	assert.Contains(t, store.ids(), "c1_2025-03-03_0900")
}

func TestExpandMonthIsIdempotent(t *testing.T) {
	store := newMemorySessionStore()
	classes := &classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"days":["Tuesday","Thursday"],"time":"16:00","durationMinutes":90}`),
	}}
	svc := newSchedulerFixture(classes, store)

	first, err := svc.ExpandMonth(context.Background(), month(2025, time.April))
	require.NoError(t, err)
	assert.Equal(t, 9, first.CreatedCount)
	before := store.ids()

	second, err := svc.ExpandMonth(context.Background(), month(2025, time.April))
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreatedCount)
	assert.Empty(t, second.CreatedSessions)
	assert.Equal(t, before, store.ids())

	// a class added between runs only fills its own slots
	classes.classes = append(classes.classes, classWithSchedule("c2", `{"dayOfWeek":"Sunday","time":"10:00"}`))
	third, err := svc.ExpandMonth(context.Background(), month(2025, time.April))
	require.NoError(t, err)
	assert.Equal(t, 4, third.CreatedCount)
	for _, created := range third.CreatedSessions {
		assert.Equal(t, "c2", created.ClassID)
	}
}

func TestExpandMonthSkipsManualSessionAtSameSlot(t *testing.T) {
	store := newMemorySessionStore()
	store.seed(models.Session{ID: "special-1", ClassID: "c1", Date: "2025-03-10", StartTime: "09:00", Type: models.SessionTypeSpecial, Status: models.SessionStatusScheduled, TargetStudentIDs: []string{"stu-1"}})
	svc := newSchedulerFixture(&classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"dayOfWeek":"Monday","time":"09:00"}`),
	}}, store)

	res, err := svc.ExpandMonth(context.Background(), month(2025, time.March))
	require.NoError(t, err)
	assert.Equal(t, 4, res.CreatedCount)

	atSlot := 0
	for _, session := range store.all() {
		if session.Key() == "c1|2025-03-10|09:00" {
			atSlot++
			assert.Equal(t, "special-1", session.ID)
		}
	}
	assert.Equal(t, 1, atSlot)
	assert.Equal(t, 0, store.conflictCount())
}

func TestExpandMonthSkipsUnschedulableClasses(t *testing.T) {
	store := newMemorySessionStore()
	svc := newSchedulerFixture(&classReaderStub{classes: []models.Class{
		classWithSchedule("no-time", `{"dayOfWeek":"Monday"}`),
		classWithSchedule("no-days", `{"days":[],"time":"09:00"}`),
		classWithSchedule("garbage", `{"dayOfWeek":`),
		classWithSchedule("split-slots", `[{"dayOfWeek":"Saturday","time":"10:00"},{"dayOfWeek":"Sunday","time":"11:00","durationMinutes":30}]`),
		{ID: "null"},
	}}, store)

	res, err := svc.ExpandMonth(context.Background(), month(2025, time.March))
	require.NoError(t, err)
	assert.Equal(t, 0, res.CreatedCount)
	assert.Equal(t, "2025-03", res.Month)
	assert.Empty(t, store.all())
}

func TestExpandMonthRespectsMonthLength(t *testing.T) {
	everyDay := `{"days":["Monday","Tuesday","Wednesday","Thursday","Friday","Saturday","Sunday"],"time":"08:00"}`
	tests := []struct {
		name     string
		month    time.Time
		want     int
		lastDate string
	}{
		{"leap february", month(2024, time.February), 29, "2024-02-29"},
		{"non-leap february", month(2025, time.February), 28, "2025-02-28"},
		{"thirty day month", month(2025, time.June), 30, "2025-06-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemorySessionStore()
			svc := newSchedulerFixture(&classReaderStub{classes: []models.Class{classWithSchedule("daily", everyDay)}}, store)

			res, err := svc.ExpandMonth(context.Background(), tt.month)
			require.NoError(t, err)
			require.Equal(t, tt.want, res.CreatedCount)
			assert.Equal(t, tt.lastDate, res.CreatedSessions[len(res.CreatedSessions)-1].Date)
			for _, created := range res.CreatedSessions {
				assert.Equal(t, tt.month.Format("2006-01"), created.Date[:7])
			}
		})
	}
}

func TestExpandMonthTreatsConcurrentDuplicateAsBenign(t *testing.T) {
	store := newMemorySessionStore()
	store.barrier = &sync.WaitGroup{}
	store.barrier.Add(2)
	classes := &classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"dayOfWeek":"Monday","time":"09:00"}`),
		classWithSchedule("c2", `{"days":["Wednesday"],"time":"15:30"}`),
	}}
	svc := newSchedulerFixture(classes, store)

	var wg sync.WaitGroup
	results := make([]int, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.ExpandMonth(context.Background(), month(2025, time.March))
			errs[i] = err
			if res != nil {
				results[i] = res.CreatedCount
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	// March 2025: five Mondays and four Wednesdays
	assert.Equal(t, 9, results[0]+results[1])
	assert.Equal(t, 9, store.conflictCount())

	perSlot := map[string]int{}
	for _, session := range store.all() {
		perSlot[session.Key()]++
	}
	assert.Len(t, perSlot, 9)
	for key, n := range perSlot {
		assert.Equal(t, 1, n, key)
	}
}

func TestExpandMonthPropagatesStorageFailure(t *testing.T) {
	store := newMemorySessionStore()
	store.failInsertOn = "2025-03-17"
	svc := newSchedulerFixture(&classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"dayOfWeek":"Monday","time":"09:00"}`),
	}}, store)

	res, err := svc.ExpandMonth(context.Background(), month(2025, time.March))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.False(t, appErrors.HasCode(err, appErrors.ErrSessionConflict.Code))
	// earlier inserts are kept; a rerun fills the rest
	assert.Len(t, store.all(), 2)

	store.failInsertOn = ""
	res, err = svc.ExpandMonth(context.Background(), month(2025, time.March))
	require.NoError(t, err)
	assert.Equal(t, 3, res.CreatedCount)
	assert.Len(t, store.all(), 5)
}

func TestExpandMonthPropagatesClassLoadFailure(t *testing.T) {
	boom := errors.New("connection refused")
	svc := newSchedulerFixture(&classReaderStub{err: boom}, newMemorySessionStore())

	_, err := svc.ExpandMonth(context.Background(), month(2025, time.March))
	require.ErrorIs(t, err, boom)
}

func TestExpandMonthWithoutStorageIsNoop(t *testing.T) {
	svc := NewSessionSchedulerService(nil, nil, nil, nil, zap.NewNop(), SessionSchedulerConfig{})

	res, err := svc.ExpandMonth(context.Background(), month(2025, time.March))
	require.NoError(t, err)
	assert.Equal(t, 0, res.CreatedCount)
}

func TestExpandMonthInvalidatesCacheOnlyWhenCreating(t *testing.T) {
	store := newMemorySessionStore()
	cache := &cacheInvalidatorStub{}
	svc := NewSessionSchedulerService(&classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"dayOfWeek":"Friday","time":"18:00"}`),
	}}, store, cache, NewMetricsService(), zap.NewNop(), SessionSchedulerConfig{})

	_, err := svc.ExpandMonth(context.Background(), month(2025, time.May))
	require.NoError(t, err)
	_, err = svc.ExpandMonth(context.Background(), month(2025, time.May))
	require.NoError(t, err)

	assert.Equal(t, []string{sessionCachePattern}, cache.patterns)
}

func TestRunMonthRejectsInvalidInput(t *testing.T) {
	store := newMemorySessionStore()
	svc := newSchedulerFixture(&classReaderStub{}, store)

	for _, input := range []string{"2025-13", "abc", "03-2025"} {
		_, err := svc.RunMonth(context.Background(), input)
		require.Error(t, err, input)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
		assert.Equal(t, 400, appErrors.FromError(err).Status)
	}
	assert.Empty(t, store.listedFrom)
}

func TestRunMonthDefaultsToCurrentMonth(t *testing.T) {
	store := newMemorySessionStore()
	svc := newSchedulerFixture(&classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"dayOfWeek":"Monday","time":"09:00"}`),
	}}, store)
	svc.now = func() time.Time { return time.Date(2025, time.March, 20, 23, 30, 0, 0, time.UTC) }

	res, err := svc.RunMonth(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", res.Month)
	assert.Equal(t, 5, res.CreatedCount)
}

func TestEnsureUpcomingSessionsCoversRollingHorizon(t *testing.T) {
	store := newMemorySessionStore()
	svc := newSchedulerFixture(&classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"dayOfWeek":"Monday","time":"09:00"}`),
	}}, store)

	res, err := svc.EnsureUpcomingSessions(context.Background(), time.Date(2025, time.November, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, res.Months, 3)
	assert.Equal(t, "2025-11", res.Months[0].Month)
	assert.Equal(t, "2025-12", res.Months[1].Month)
	assert.Equal(t, "2026-01", res.Months[2].Month)
	// Mondays: Nov 2025 has 4, Dec 2025 has 5, Jan 2026 has 4
	assert.Equal(t, 4, res.Months[0].CreatedCount)
	assert.Equal(t, 5, res.Months[1].CreatedCount)
	assert.Equal(t, 4, res.Months[2].CreatedCount)

	again, err := svc.EnsureUpcomingSessions(context.Background(), time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	for _, m := range again.Months {
		assert.Equal(t, 0, m.CreatedCount)
	}
}

func TestEnsureUpcomingSessionsStopsOnFailure(t *testing.T) {
	store := newMemorySessionStore()
	store.failListFrom = "2025-12-01"
	svc := newSchedulerFixture(&classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"dayOfWeek":"Monday","time":"09:00"}`),
	}}, store)

	_, err := svc.EnsureUpcomingSessions(context.Background(), time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2025-12")
	assert.Len(t, store.all(), 4)
	assert.Equal(t, []string{"2025-11-01", "2025-12-01"}, store.listedFrom)
}

func TestRunScheduledMaintenanceExpandsCurrentMonthOnly(t *testing.T) {
	store := newMemorySessionStore()
	store.seed(models.Session{ID: "old", ClassID: "c1", Date: "2026-02-02", StartTime: "09:00"})
	svc := newSchedulerFixture(&classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"dayOfWeek":"Monday","time":"09:00"}`),
	}}, store)

	res, err := svc.RunScheduledMaintenance(context.Background(), time.Date(2025, time.March, 5, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, res.ScheduleResult)
	assert.Equal(t, "2025-03", res.ScheduleResult.Month)
	assert.Equal(t, 5, res.ScheduleResult.CreatedCount)
	assert.Contains(t, store.ids(), "old")
}

func TestHandleBackfillJob(t *testing.T) {
	store := newMemorySessionStore()
	svc := newSchedulerFixture(&classReaderStub{classes: []models.Class{
		classWithSchedule("c1", `{"dayOfWeek":"Monday","time":"09:00"}`),
	}}, store)
	svc.now = func() time.Time { return time.Date(2025, time.November, 10, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, svc.HandleBackfillJob(context.Background(), jobs.Job{ID: "job-1", Type: JobTypeEnsureUpcoming}))
	assert.Len(t, store.all(), 13)
}

func TestDeleteSessionsByMonth(t *testing.T) {
	store := newMemorySessionStore()
	store.seed(
		models.Session{ID: "dec-31", ClassID: "c1", Date: "2024-12-31", StartTime: "09:00"},
		models.Session{ID: "jan-01", ClassID: "c1", Date: "2025-01-01", StartTime: "09:00"},
		models.Session{ID: "jan-15", ClassID: "c2", Date: "2025-01-15", StartTime: "10:00"},
		models.Session{ID: "jan-31", ClassID: "c1", Date: "2025-01-31", StartTime: "09:00"},
		models.Session{ID: "feb-01", ClassID: "c1", Date: "2025-02-01", StartTime: "09:00"},
	)
	svc := newSchedulerFixture(&classReaderStub{}, store)

	res, err := svc.DeleteSessionsByMonth(context.Background(), "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 3, res.DeletedCount)
	assert.ElementsMatch(t, []string{"jan-01", "jan-15", "jan-31"}, res.DeletedIDs)
	assert.Equal(t, []string{"dec-31", "feb-01"}, store.ids())
}

func TestDeleteSessionsReportsRowsInsertedBeforeDelete(t *testing.T) {
	store := newMemorySessionStore()
	store.seed(models.Session{ID: "early", ClassID: "c1", Date: "2025-01-06", StartTime: "09:00"})
	store.beforeDelete = func() {
		store.seed(models.Session{ID: "late", ClassID: "c2", Date: "2025-01-20", StartTime: "10:00"})
	}
	svc := newSchedulerFixture(&classReaderStub{}, store)

	res, err := svc.DeleteSessionsByMonth(context.Background(), "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 2, res.DeletedCount)
	assert.Equal(t, []string{"early", "late"}, res.DeletedIDs)
	assert.Empty(t, store.ids())
}

func TestDeleteSessionsByMonthRejectsInvalidMonth(t *testing.T) {
	store := newMemorySessionStore()
	store.seed(models.Session{ID: "keep", ClassID: "c1", Date: "2025-01-01", StartTime: "09:00"})
	svc := newSchedulerFixture(&classReaderStub{}, store)

	_, err := svc.DeleteSessionsByMonth(context.Background(), "2025-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Equal(t, []string{"keep"}, store.ids())
}

func TestDeleteSessionsInRangeNoop(t *testing.T) {
	store := newMemorySessionStore()
	store.seed(models.Session{ID: "keep", ClassID: "c1", Date: "2025-01-01", StartTime: "09:00"})
	svc := newSchedulerFixture(&classReaderStub{}, store)

	res, err := svc.DeleteSessionsInRange(context.Background(), time.Time{}, month(2025, time.January))
	require.NoError(t, err)
	assert.Equal(t, 0, res.DeletedCount)

	noStorage := NewSessionSchedulerService(nil, nil, nil, nil, nil, SessionSchedulerConfig{})
	res, err = noStorage.DeleteSessionsInRange(context.Background(), month(2025, time.January), month(2025, time.February))
	require.NoError(t, err)
	assert.Equal(t, 0, res.DeletedCount)
	assert.Equal(t, []string{"keep"}, store.ids())
}

func TestDeleteSessionsBetween(t *testing.T) {
	store := newMemorySessionStore()
	store.seed(
		models.Session{ID: "a", ClassID: "c1", Date: "2025-03-09", StartTime: "09:00"},
		models.Session{ID: "b", ClassID: "c1", Date: "2025-03-10", StartTime: "09:00"},
		models.Session{ID: "c", ClassID: "c1", Date: "2025-03-12", StartTime: "09:00"},
		models.Session{ID: "d", ClassID: "c1", Date: "2025-03-13", StartTime: "09:00"},
	)
	svc := newSchedulerFixture(&classReaderStub{}, store)

	res, err := svc.DeleteSessionsBetween(context.Background(), "2025-03-10", "2025-03-12")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, res.DeletedIDs)

	_, err = svc.DeleteSessionsBetween(context.Background(), "2025-03-12", "2025-03-10")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	_, err = svc.DeleteSessionsBetween(context.Background(), "", "2025-03-10")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestRegularSessionID(t *testing.T) {
	assert.Equal(t, "c1_2025-03-03_0900", RegularSessionID("c1", "2025-03-03", "09:00"))
}

// --- Fixtures ---

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func classWithSchedule(id, raw string) models.Class {
	return models.Class{ID: id, DefaultSchedule: types.NullJSONText{JSONText: types.JSONText(raw), Valid: raw != ""}}
}

func newSchedulerFixture(classes schedulerClassReader, store *memorySessionStore) *SessionSchedulerService {
	return NewSessionSchedulerService(classes, store, nil, NewMetricsService(), zap.NewNop(), SessionSchedulerConfig{HorizonMonths: 3})
}

type classReaderStub struct {
	classes []models.Class
	err     error
}

func (s *classReaderStub) ListSchedules(ctx context.Context) ([]models.Class, error) {
	return s.classes, s.err
}

type cacheInvalidatorStub struct {
	patterns []string
}

func (c *cacheInvalidatorStub) Invalidate(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return nil
}

// memorySessionStore mimics the sessions table including its unique slot constraint.
type memorySessionStore struct {
	mu        sync.Mutex
	rows      map[string]models.Session
	conflicts int

	barrier      *sync.WaitGroup
	failInsertOn string
	failListFrom string
	listedFrom   []string
	beforeDelete func()
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{rows: map[string]models.Session{}}
}

func (m *memorySessionStore) seed(sessions ...models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range sessions {
		m.rows[s.ID] = s
	}
}

func (m *memorySessionStore) ListInRange(ctx context.Context, start, end string) ([]models.Session, error) {
	m.mu.Lock()
	m.listedFrom = append(m.listedFrom, start)
	if m.failListFrom != "" && start == m.failListFrom {
		m.mu.Unlock()
		return nil, errors.New("list sessions in range: timeout")
	}
	var out []models.Session
	for _, s := range m.rows {
		if s.Date >= start && s.Date <= end {
			out = append(out, s)
		}
	}
	barrier := m.barrier
	m.mu.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	return out, nil
}

func (m *memorySessionStore) DeleteInRange(ctx context.Context, start, end string) ([]string, error) {
	if m.beforeDelete != nil {
		m.beforeDelete()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.rows {
		if s.Date >= start && s.Date <= end {
			ids = append(ids, id)
			delete(m.rows, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memorySessionStore) Insert(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsertOn != "" && session.Date == m.failInsertOn {
		return errors.New("insert session: connection reset")
	}
	if _, ok := m.rows[session.ID]; ok {
		m.conflicts++
		return appErrors.Wrap(errors.New("duplicate key"), appErrors.ErrSessionConflict.Code, appErrors.ErrSessionConflict.Status, appErrors.ErrSessionConflict.Message)
	}
	for _, existing := range m.rows {
		if existing.Key() == session.Key() {
			m.conflicts++
			return appErrors.Wrap(errors.New("duplicate key"), appErrors.ErrSessionConflict.Code, appErrors.ErrSessionConflict.Status, appErrors.ErrSessionConflict.Message)
		}
	}
	m.rows[session.ID] = *session
	return nil
}

func (m *memorySessionStore) conflictCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conflicts
}

func (m *memorySessionStore) all() []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Session, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memorySessionStore) ids() []string {
	var ids []string
	for _, s := range m.all() {
		ids = append(ids, s.ID)
	}
	return ids
}
