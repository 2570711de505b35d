package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIncidentJSONIsFlat(t *testing.T) {
	inc := Incident{
		IncidentID: "INC-000042",
		AttackType: AttackDDoS,
		Severity:   SeverityHigh,
		Status:     StatusOpen,
		SourceIP:   "10.1.2.3",
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Details:    DDoSDetails{TargetURL: "/api/login", AttackIntensity: 1200, RequestsPerSecond: 1200, Port: 443, DurationSeconds: 10},
	}

	raw, err := json.Marshal(inc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]interface{}
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}
	if flat["incidentId"] != "INC-000042" || flat["targetURL"] != "/api/login" {
		t.Fatalf("expected flat object, got %s", raw)
	}
	if flat["requestsPerSecond"].(float64) != 1200 {
		t.Fatalf("expected requestsPerSecond=1200, got %v", flat["requestsPerSecond"])
	}

	var back Incident
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	d, ok := back.Details.(DDoSDetails)
	if !ok {
		t.Fatalf("expected DDoSDetails, got %T", back.Details)
	}
	if d.RequestsPerSecond != 1200 || back.SourceIP != "10.1.2.3" || !back.Timestamp.Equal(inc.Timestamp) {
		t.Fatalf("unexpected decoded incident: %+v", back)
	}
}

func TestIncidentJSONFailedInjectionHasNullExposure(t *testing.T) {
	inc := Incident{
		IncidentID: "INC-000001",
		AttackType: AttackSQLInjection,
		Severity:   SeverityLow,
		Details:    SQLInjectionDetails{TargetEndpoint: "/api/users", Payload: "admin'--"},
	}
	raw, err := json.Marshal(inc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"dataExposed":null`) {
		t.Fatalf("expected null dataExposed, got %s", raw)
	}
}

func TestIncidentUnmarshalRejectsUnknownType(t *testing.T) {
	var inc Incident
	err := json.Unmarshal([]byte(`{"incidentId":"INC-1","attackType":"BruteForce"}`), &inc)
	if !errors.Is(err, ErrUnknownAttackType) {
		t.Fatalf("expected ErrUnknownAttackType, got %v", err)
	}
}

func TestExposureImpactFactor(t *testing.T) {
	cases := []struct {
		name    string
		details Details
		want    float64
	}{
		{"ddos capped", DDoSDetails{RequestsPerSecond: 6000}, 1.0},
		{"ddos partial", DDoSDetails{RequestsPerSecond: 2500}, 0.5},
		{"phishing", PhishingDetails{SuccessRate: 60}, 0.6},
		{"malware zero counts as one", MalwareDetails{InfectedSystemsCount: 0}, 0.02},
		{"sql failed", SQLInjectionDetails{Success: false}, 0.2},
		{"sql success", SQLInjectionDetails{Success: true, DataExposed: &SQLExposure{100, 100, 300}}, 0.5},
		{"xss success", XSSDetails{Success: true, DataExposed: &XSSExposure{50, 50, 150}}, 0.5},
	}
	for _, tc := range cases {
		got := tc.details.Exposure().ImpactFactor
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestFieldsUsesWireNames(t *testing.T) {
	inc := &Incident{
		IncidentID: "INC-000007",
		AttackType: AttackPhishing,
		Severity:   SeverityMedium,
		Details:    PhishingDetails{SenderEmail: "alert@banking-update.io", SuccessRate: 33},
	}
	fields := inc.Fields()
	if fields["senderEmail"] != "alert@banking-update.io" || fields["attackType"] != "Phishing" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestNormalizeStatus(t *testing.T) {
	if NormalizeStatus("") != StatusOpen {
		t.Fatalf("expected empty status to normalize to Open")
	}
	if NormalizeStatus(StatusResolved) != StatusResolved {
		t.Fatalf("expected Resolved to be kept")
	}
	if len(Statuses()) != 4 || Statuses()[0] != StatusOpen {
		t.Fatalf("unexpected statuses: %v", Statuses())
	}
}
