package store

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"socsim/pkg/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	topSourceCount   = 5
)

// ErrInvalidStatus is returned when a status update names an unknown state.
var ErrInvalidStatus = errors.New("invalid incident status")

// Filter selects incidents for a paged query. Empty fields match everything.
type Filter struct {
	Severity   models.Severity
	AttackType models.AttackType
	Status     string
	// Search is a case-insensitive substring of the source IP.
	Search string
	Page   int
	Limit  int
}

// Page is one page of a filtered query, newest first.
type Page struct {
	Incidents   []*models.EnrichedIncident `json:"incidents"`
	CurrentPage int                        `json:"currentPage"`
	TotalPages  int                        `json:"totalPages"`
	TotalCount  int                        `json:"totalCount"`
	Limit       int                        `json:"limit"`
	HasNextPage bool                       `json:"hasNextPage"`
	HasPrevPage bool                       `json:"hasPrevPage"`
}

// SourceCount is one entry of the top attacking sources.
type SourceCount struct {
	SourceIP string `json:"sourceIP"`
	Count    int    `json:"count"`
}

// Summary aggregates the stored incidents for the dashboard.
type Summary struct {
	TotalIncidents             int            `json:"totalIncidents"`
	IncidentsLast24Hours       int            `json:"incidentsLast24Hours"`
	AverageResolutionTimeHours float64        `json:"averageResolutionTimeHours"`
	SeverityBreakdown          map[string]int `json:"severityBreakdown"`
	AttackTypeBreakdown        map[string]int `json:"attackTypeBreakdown"`
	StatusBreakdown            map[string]int `json:"statusBreakdown"`
	TopAttackingIPs            []SourceCount  `json:"topAttackingIPs"`
}

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	f.Search = strings.ToLower(strings.TrimSpace(f.Search))
	return f
}

func (f Filter) match(row *models.EnrichedIncident) bool {
	if row == nil || row.Incident == nil {
		return false
	}
	inc := row.Incident
	if f.Severity != "" && inc.Severity != f.Severity {
		return false
	}
	if f.AttackType != "" && inc.AttackType != f.AttackType {
		return false
	}
	if f.Status != "" && models.NormalizeStatus(inc.Status) != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(inc.SourceIP), f.Search) {
		return false
	}
	return true
}

// paginate applies f to rows, which must already be newest first.
func paginate(rows []*models.EnrichedIncident, f Filter) *Page {
	f = f.normalized()
	matched := make([]*models.EnrichedIncident, 0, len(rows))
	for _, row := range rows {
		if f.match(row) {
			matched = append(matched, row)
		}
	}

	total := len(matched)
	pages := int(math.Ceil(float64(total) / float64(f.Limit)))
	start := min((f.Page-1)*f.Limit, total)
	end := min(start+f.Limit, total)

	return &Page{
		Incidents:   matched[start:end],
		CurrentPage: f.Page,
		TotalPages:  pages,
		TotalCount:  total,
		Limit:       f.Limit,
		HasNextPage: f.Page < pages,
		HasPrevPage: f.Page > 1,
	}
}

func summarize(rows []*models.EnrichedIncident, now time.Time) *Summary {
	sum := &Summary{
		SeverityBreakdown:   map[string]int{},
		AttackTypeBreakdown: map[string]int{},
		StatusBreakdown:     map[string]int{},
		TopAttackingIPs:     []SourceCount{},
	}
	for _, sev := range []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical} {
		sum.SeverityBreakdown[string(sev)] = 0
	}
	for _, st := range models.Statuses() {
		sum.StatusBreakdown[st] = 0
	}

	since := now.Add(-24 * time.Hour)
	sources := map[string]int{}
	var resolvedCount int
	var resolvedTotal time.Duration

	for _, row := range rows {
		if row == nil || row.Incident == nil {
			continue
		}
		inc := row.Incident
		sum.TotalIncidents++
		sum.SeverityBreakdown[string(inc.Severity)]++
		sum.AttackTypeBreakdown[string(inc.AttackType)]++
		sum.StatusBreakdown[models.NormalizeStatus(inc.Status)]++
		if !inc.Timestamp.Before(since) {
			sum.IncidentsLast24Hours++
		}
		if inc.SourceIP != "" {
			sources[inc.SourceIP]++
		}
		if row.ResolvedAt != nil {
			resolvedCount++
			resolvedTotal += row.ResolvedAt.Sub(inc.Timestamp)
		}
	}

	if resolvedCount > 0 {
		hours := resolvedTotal.Hours() / float64(resolvedCount)
		sum.AverageResolutionTimeHours = math.Round(hours*100) / 100
	}

	for ip, n := range sources {
		sum.TopAttackingIPs = append(sum.TopAttackingIPs, SourceCount{SourceIP: ip, Count: n})
	}
	sort.Slice(sum.TopAttackingIPs, func(i, j int) bool {
		a, b := sum.TopAttackingIPs[i], sum.TopAttackingIPs[j]
		if a.Count == b.Count {
			return a.SourceIP < b.SourceIP
		}
		return a.Count > b.Count
	})
	if len(sum.TopAttackingIPs) > topSourceCount {
		sum.TopAttackingIPs = sum.TopAttackingIPs[:topSourceCount]
	}
	return sum
}

func validStatus(status string) bool {
	for _, st := range models.Statuses() {
		if st == status {
			return true
		}
	}
	return false
}

// withStatus returns a copy of row carrying the new status. The original is
// left untouched since sinks may still hold it.
func withStatus(row *models.EnrichedIncident, status string, now time.Time) *models.EnrichedIncident {
	inc := *row.Incident
	inc.Status = status
	out := *row
	out.Incident = &inc
	if out.ResolvedAt == nil && (status == models.StatusResolved || status == models.StatusClosed) {
		at := now.UTC()
		out.ResolvedAt = &at
	}
	return &out
}
