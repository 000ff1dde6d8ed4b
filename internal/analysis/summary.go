package analysis

import (
	"time"

	"wangsammo/backend/internal/config"
	"wangsammo/backend/internal/models"
)

// PublicSummary backs the public statistics page.
type PublicSummary struct {
	Total          int             `json:"total"`
	Resolved       int             `json:"resolved"`
	ResolutionRate int             `json:"resolution_rate"`
	Categories     []CategoryCount `json:"categories"`
	RecentActivity []DayBucket     `json:"recent_activity"`
}

func Public(rows []models.Complaint, now time.Time) PublicSummary {
	resolved := CountStatus(rows, models.StatusResolved)
	return PublicSummary{
		Total:          len(rows),
		Resolved:       resolved,
		ResolutionRate: ResolutionRate(len(rows), resolved),
		Categories:     CategoryCounts(rows),
		RecentActivity: DailyActivity(rows, now, config.ActivityWindowDays),
	}
}

// Report backs the officials' analytics dashboard.
type Report struct {
	Total                 int             `json:"total"`
	Resolved              int             `json:"resolved"`
	AverageResolutionDays float64         `json:"average_resolution_days"`
	ActiveUsers           int             `json:"active_users"`
	Categories            []CategoryCount `json:"categories"`
	Statuses              []StatusCount   `json:"statuses"`
	Timeline              []DayBucket     `json:"timeline"`
}

// Analytics builds the dashboard report. The average is rounded to one decimal.
func Analytics(rows []models.Complaint, now time.Time) Report {
	return Report{
		Total:                 len(rows),
		Resolved:              CountStatus(rows, models.StatusResolved),
		AverageResolutionDays: roundOneDecimal(AverageResolutionDays(rows)),
		ActiveUsers:           ActiveUsers(rows),
		Categories:            CategoryCounts(rows),
		Statuses:              StatusCounts(rows),
		Timeline:              DailyActivity(rows, now, config.ActivityWindowDays),
	}
}

// HomeSummary backs the home page cards.
type HomeSummary struct {
	Total      int `json:"total"`
	Resolved   int `json:"resolved"`
	InProgress int `json:"in_progress"`
	UserPoints int `json:"user_points"`
}

func Home(rows []models.Complaint, userPoints int) HomeSummary {
	return HomeSummary{
		Total:      len(rows),
		Resolved:   CountStatus(rows, models.StatusResolved),
		InProgress: CountStatus(rows, models.StatusInProgress),
		UserPoints: userPoints,
	}
}

// DashboardCounts are the counters above the officials' complaint list.
type DashboardCounts struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}

func Dashboard(rows []models.Complaint) DashboardCounts {
	return DashboardCounts{
		Total:      len(rows),
		Open:       CountStatus(rows, models.StatusOpen),
		InProgress: CountStatus(rows, models.StatusInProgress),
		Resolved:   CountStatus(rows, models.StatusResolved),
	}
}

// ProfileSummary counts a resident's own complaints. Anything not resolved
// is pending, closed included.
type ProfileSummary struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	Pending  int `json:"pending"`
}

func Profile(rows []models.Complaint) ProfileSummary {
	resolved := CountStatus(rows, models.StatusResolved)
	return ProfileSummary{
		Total:    len(rows),
		Resolved: resolved,
		Pending:  len(rows) - resolved,
	}
}
