package incidentclickhouse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socsim/pkg/models"
)

// Config configures the ClickHouse HTTP writer.
type Config struct {
	URL      string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
	Headers  map[string]string
}

// Row is the flattened ClickHouse record for one incident.
type Row struct {
	IncidentID      string   `json:"incident_id"`
	StoreID         string   `json:"store_id"`
	Timestamp       string   `json:"ts"`
	AttackType      string   `json:"attack_type"`
	Severity        string   `json:"severity"`
	Status          string   `json:"status"`
	SourceIP        string   `json:"source_ip"`
	Target          string   `json:"target"`
	ThreatScore     int      `json:"threat_score"`
	ThreatSeverity  string   `json:"threat_severity"`
	Categories      []string `json:"categories"`
	MitreID         string   `json:"mitre_id"`
	MitreName       string   `json:"mitre_name"`
	RuleIDs         []string `json:"rule_ids"`
	AffectedSystems int      `json:"affected_systems"`
	ExposedRecords  int      `json:"exposed_records"`
	ImpactFactor    float64  `json:"impact_factor"`
	Details         string   `json:"details"`
}

// Writer sends incidents to ClickHouse via HTTP JSONEachRow.
type Writer struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// NewWriter creates a ClickHouse HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("clickhouse URL is empty")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "socsim_incidents"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	q := fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", quoteIdent(cfg.Database), quoteIdent(cfg.Table))
	base := strings.TrimRight(cfg.URL, "/")
	endpoint := base + "/?query=" + url.QueryEscape(q)

	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Username != "" {
		headers["X-ClickHouse-User"] = cfg.Username
	}
	if cfg.Password != "" {
		headers["X-ClickHouse-Key"] = cfg.Password
	}

	return &Writer{
		endpoint: endpoint,
		headers:  headers,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// FlattenRow converts an enriched incident into a ClickHouse row.
func FlattenRow(in *models.EnrichedIncident) (Row, error) {
	inc := in.Incident
	row := Row{
		IncidentID:     inc.IncidentID,
		StoreID:        in.StoreID,
		Timestamp:      inc.Timestamp.UTC().Format("2006-01-02 15:04:05.000"),
		AttackType:     string(inc.AttackType),
		Severity:       string(inc.Severity),
		Status:         inc.Status,
		SourceIP:       inc.SourceIP,
		Target:         inc.Target(),
		ThreatScore:    in.Threat.Score,
		ThreatSeverity: string(in.Threat.Severity),
		Categories:     in.Classification.Categories,
		MitreID:        in.Classification.MitreAttack.ID,
		MitreName:      in.Classification.MitreAttack.Name,
		RuleIDs:        make([]string, 0, len(in.Tags)),
	}
	if row.Categories == nil {
		row.Categories = []string{}
	}
	for _, tag := range in.Tags {
		row.RuleIDs = append(row.RuleIDs, tag.ID)
	}

	exp := inc.Exposure()
	row.AffectedSystems = exp.AffectedSystems
	row.ExposedRecords = exp.ExposedRecords
	row.ImpactFactor = exp.ImpactFactor

	if inc.Details != nil {
		raw, err := json.Marshal(inc.Details)
		if err != nil {
			return Row{}, fmt.Errorf("marshal details for %s: %w", inc.IncidentID, err)
		}
		row.Details = string(raw)
	}
	return row, nil
}

// WriteIncidents sends a batch of incidents.
func (w *Writer) WriteIncidents(rows []*models.EnrichedIncident) error {
	if len(rows) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, in := range rows {
		if in == nil || in.Incident == nil {
			continue
		}
		row, err := FlattenRow(in)
		if err != nil {
			return err
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to marshal incident row: %w", err)
		}
	}
	if body.Len() == 0 {
		return nil
	}

	req, err := http.NewRequest(http.MethodPost, w.endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("clickhouse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("clickhouse request failed with status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Close releases resources.
func (w *Writer) Close() error {
	return nil
}

func quoteIdent(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "`", "")
	return "`" + v + "`"
}
