package alerts

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"socsim/pkg/models"
)

// Config controls alert scoring behavior.
type Config struct {
	Window    time.Duration
	Threshold int
	MaxRows   int
	Cooldown  time.Duration
}

// Scorer correlates enriched incidents per source IP and raises alerts
// when the windowed score crosses the threshold.
type Scorer struct {
	mu       sync.Mutex
	cfg      Config
	bySource map[string]*sourceState
	now      func() time.Time
}

type sourceState struct {
	rows      []*models.EnrichedIncident
	lastAlert time.Time
}

// NewScorer creates a new scorer.
func NewScorer(cfg Config) *Scorer {
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 8
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 50
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 2 * time.Minute
	}
	return &Scorer{
		cfg:      cfg,
		bySource: make(map[string]*sourceState),
		now:      time.Now,
	}
}

// Add ingests enriched incidents and returns alerts if triggered.
func (s *Scorer) Add(rows []*models.EnrichedIncident) []*models.Alert {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var alertsOut []*models.Alert
	for _, row := range rows {
		if row == nil || row.Incident == nil || row.Incident.SourceIP == "" {
			continue
		}
		ip := row.Incident.SourceIP
		state := s.bySource[ip]
		if state == nil {
			state = &sourceState{}
			s.bySource[ip] = state
		}

		ts := row.Incident.Timestamp
		if ts.IsZero() {
			ts = s.now()
		}

		state.rows = append(state.rows, row)
		s.prune(state, ts)

		score, counts, types, techniques := s.score(state.rows)
		if score < s.cfg.Threshold {
			continue
		}
		if !state.lastAlert.IsZero() && ts.Sub(state.lastAlert) < s.cfg.Cooldown {
			continue
		}

		alertsOut = append(alertsOut, &models.Alert{
			AlertID:     newAlertID(ip),
			SourceIP:    ip,
			Score:       score,
			WindowStart: ts.Add(-s.cfg.Window),
			WindowEnd:   ts,
			AttackTypes: types,
			Techniques:  techniques,
			Counts:      counts,
			Evidence:    append([]*models.EnrichedIncident(nil), state.rows...),
		})
		state.lastAlert = ts
	}

	s.evictIdle()
	return alertsOut
}

func (s *Scorer) prune(state *sourceState, now time.Time) {
	cutoff := now.Add(-s.cfg.Window)
	idx := 0
	for idx < len(state.rows) {
		if !state.rows[idx].Incident.Timestamp.Before(cutoff) {
			break
		}
		idx++
	}
	if idx > 0 {
		state.rows = state.rows[idx:]
	}
	if len(state.rows) > s.cfg.MaxRows {
		state.rows = state.rows[len(state.rows)-s.cfg.MaxRows:]
	}
}

// evictIdle drops sources whose window emptied and whose cooldown passed.
func (s *Scorer) evictIdle() {
	now := s.now()
	for ip, state := range s.bySource {
		if len(state.rows) == 0 {
			delete(s.bySource, ip)
			continue
		}
		last := state.rows[len(state.rows)-1].Incident.Timestamp
		if now.Sub(last) > s.cfg.Window && now.Sub(state.lastAlert) > s.cfg.Cooldown {
			delete(s.bySource, ip)
		}
	}
}

func (s *Scorer) score(rows []*models.EnrichedIncident) (int, models.AlertCounts, []models.AttackType, []string) {
	severitySum := 0
	typeSet := make(map[models.AttackType]struct{})
	techSet := make(map[string]struct{})
	var counts models.AlertCounts

	for _, row := range rows {
		counts.Incidents++
		sev := row.Threat.Severity
		if sev == "" {
			sev = row.Incident.Severity
		}
		switch sev {
		case models.SeverityCritical:
			counts.Critical++
		case models.SeverityHigh:
			counts.High++
		}
		severitySum += severityWeight(string(sev))
		typeSet[row.Incident.AttackType] = struct{}{}
		if id := row.Classification.MitreAttack.ID; id != "" {
			techSet[id] = struct{}{}
		}
		for _, tag := range row.Tags {
			if tag.Technique != "" {
				techSet[tag.Technique] = struct{}{}
			}
		}
	}

	types := make([]models.AttackType, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	techniques := make([]string, 0, len(techSet))
	for t := range techSet {
		techniques = append(techniques, t)
	}
	sort.Strings(techniques)

	counts.AttackTypes = len(types)
	return severitySum + 2*len(types), counts, types, techniques
}

func severityWeight(level string) int {
	switch strings.ToLower(level) {
	case "critical":
		return 7
	case "high":
		return 5
	case "medium":
		return 3
	case "low":
		return 1
	default:
		return 1
	}
}

func newAlertID(sourceIP string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "ALR-" + sourceIP + "-" + time.Now().Format("20060102150405")
	}
	return "ALR-" + sourceIP + "-" + hex.EncodeToString(buf)
}
