// Package analysis derives the numbers shown on the public statistics page,
// the home page, the profile page and the officials' analytics dashboard.
// Every function is a pure transform over an already-fetched set of
// complaints; nothing here touches storage.
package analysis

import (
	"math"
	"time"

	"wangsammo/backend/internal/models"
)

const dayLayout = "2006-01-02"

// categoryColors are the chart colours of each category.
var categoryColors = map[models.Category]string{
	models.CategoryRoad:         "#ef4444",
	models.CategoryWater:        "#3b82f6",
	models.CategoryWaste:        "#22c55e",
	models.CategoryElectricity:  "#eab308",
	models.CategoryPublicSafety: "#dc2626",
	models.CategoryEnvironment:  "#16a34a",
	models.CategoryOther:        "#6b7280",
}

const fallbackColor = "#6b7280"

// CategoryCount is one slice of the category breakdown.
type CategoryCount struct {
	Category models.Category `json:"category"`
	Count    int             `json:"count"`
	Color    string          `json:"color"`
}

// StatusCount is one slice of the status distribution.
type StatusCount struct {
	Status models.Status `json:"status"`
	Count  int           `json:"count"`
}

// DayBucket counts complaints created, and resolved, on one UTC calendar day.
type DayBucket struct {
	Date       string `json:"date"`
	Complaints int    `json:"complaints"`
	Resolved   int    `json:"resolved"`
}

// CategoryCounts returns the categories that occur in rows, in display order.
// Unknown categories follow the known ones in order of first appearance.
func CategoryCounts(rows []models.Complaint) []CategoryCount {
	counts := make(map[models.Category]int)
	var unknown []models.Category
	for _, c := range rows {
		if counts[c.Category] == 0 && !c.Category.Valid() {
			unknown = append(unknown, c.Category)
		}
		counts[c.Category]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for _, cat := range append(append([]models.Category{}, models.Categories...), unknown...) {
		n := counts[cat]
		if n == 0 {
			continue
		}
		color, ok := categoryColors[cat]
		if !ok {
			color = fallbackColor
		}
		out = append(out, CategoryCount{Category: cat, Count: n, Color: color})
	}
	return out
}

// StatusCounts returns the statuses that occur in rows, in lifecycle order.
func StatusCounts(rows []models.Complaint) []StatusCount {
	counts := make(map[models.Status]int)
	for _, c := range rows {
		counts[c.Status]++
	}

	out := make([]StatusCount, 0, len(counts))
	for _, s := range models.Statuses {
		if n := counts[s]; n > 0 {
			out = append(out, StatusCount{Status: s, Count: n})
		}
	}
	return out
}

// CountStatus counts rows with the given status.
func CountStatus(rows []models.Complaint, status models.Status) int {
	n := 0
	for _, c := range rows {
		if c.Status == status {
			n++
		}
	}
	return n
}

// ResolutionRate is round(resolved/total*100), and 0 for an empty total.
func ResolutionRate(total, resolved int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(resolved) / float64(total) * 100))
}

// AverageResolutionDays is the mean of updated_at - created_at, in days,
// over resolved complaints that carry both timestamps. It is 0 when there
// are none.
func AverageResolutionDays(rows []models.Complaint) float64 {
	var sum time.Duration
	n := 0
	for _, c := range rows {
		if c.Status != models.StatusResolved || c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() {
			continue
		}
		sum += c.UpdatedAt.Sub(c.CreatedAt)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum.Hours() / 24 / float64(n)
}

// DailyActivity buckets the trailing days ending today (UTC), oldest first.
// A complaint counts on the day its created_at falls on; it counts as
// resolved on the day of its updated_at when its status is resolved.
func DailyActivity(rows []models.Complaint, now time.Time, days int) []DayBucket {
	if days <= 0 {
		return []DayBucket{}
	}
	today := now.UTC()
	buckets := make([]DayBucket, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, -(days - 1 - i)).Format(dayLayout)
		buckets[i].Date = day
		index[day] = i
	}

	for _, c := range rows {
		if i, ok := index[c.CreatedAt.UTC().Format(dayLayout)]; ok {
			buckets[i].Complaints++
		}
		if c.Status == models.StatusResolved && !c.UpdatedAt.IsZero() {
			if i, ok := index[c.UpdatedAt.UTC().Format(dayLayout)]; ok {
				buckets[i].Resolved++
			}
		}
	}
	return buckets
}

// ActiveUsers counts distinct submitters; anonymous complaints are ignored.
func ActiveUsers(rows []models.Complaint) int {
	seen := make(map[string]struct{})
	for _, c := range rows {
		if c.UserID != nil && *c.UserID != "" {
			seen[*c.UserID] = struct{}{}
		}
	}
	return len(seen)
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
