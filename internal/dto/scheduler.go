package dto

// CreatedSessionSummary describes a session produced by a monthly expansion.
type CreatedSessionSummary struct {
	ID              string `json:"id"`
	ClassID         string `json:"classId"`
	Date            string `json:"date"`
	StartTime       string `json:"startTime"`
	DurationMinutes int    `json:"durationMinutes"`
}

// ExpandMonthResult reports what a monthly expansion created.
type ExpandMonthResult struct {
	Month           string                  `json:"month"`
	CreatedCount    int                     `json:"createdCount"`
	CreatedSessions []CreatedSessionSummary `json:"createdSessions"`
}

// DeleteSessionsResult reports the sessions removed by a range deletion.
type DeleteSessionsResult struct {
	DeletedCount int      `json:"deletedCount"`
	DeletedIDs   []string `json:"deletedIds,omitempty"`
}

// MaintenanceResult is returned by the periodic maintenance tick.
type MaintenanceResult struct {
	ScheduleResult *ExpandMonthResult `json:"scheduleResult"`
}

// UpcomingSessionsResult summarises a rolling-horizon backfill.
type UpcomingSessionsResult struct {
	Months []ExpandMonthResult `json:"months"`
}

// RunSchedulerRequest optionally pins the month to expand.
type RunSchedulerRequest struct {
	Month string `json:"month" form:"month"`
}
