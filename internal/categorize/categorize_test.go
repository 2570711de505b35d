package categorize

import (
	"testing"

	"socsim/pkg/models"
)

func TestEveryAttackTypeIsMapped(t *testing.T) {
	for _, kind := range models.AttackTypes() {
		c := Categorize(kind)
		if len(c.Categories) != 2 || c.MitreAttack.ID == "" || len(c.Mitigation) < 6 {
			t.Fatalf("%s: incomplete classification %+v", kind, c)
		}
	}
}

func TestSQLInjectionMapping(t *testing.T) {
	c := Incident(&models.Incident{AttackType: models.AttackSQLInjection})
	if c.MitreAttack.ID != "T1190" || c.MitreAttack.Name != "Exploit Public-Facing Application" {
		t.Fatalf("unexpected mitre mapping %+v", c.MitreAttack)
	}
	if c.Categories[1] != "Data Breach" {
		t.Fatalf("unexpected categories %v", c.Categories)
	}
}

func TestUnknownFallsBack(t *testing.T) {
	c := Categorize("BruteForce")
	if len(c.Categories) != 1 || c.Categories[0] != "Unknown Attack" {
		t.Fatalf("unexpected fallback categories %v", c.Categories)
	}
	if c.MitreAttack.ID != "" || c.MitreAttack.Name != "Unknown" {
		t.Fatalf("unexpected fallback mitre %+v", c.MitreAttack)
	}
	if len(c.Mitigation) != 3 || c.Mitigation[0] != "Isolate affected systems" {
		t.Fatalf("unexpected fallback mitigation %v", c.Mitigation)
	}
	if got := Incident(nil); got.Categories[0] != "Unknown Attack" {
		t.Fatalf("nil incident must fall back")
	}
}

func TestResultsDoNotAliasTables(t *testing.T) {
	c := Categorize(models.AttackDDoS)
	c.Categories[0] = "mutated"
	c.Mitigation[0] = "mutated"
	again := Categorize(models.AttackDDoS)
	if again.Categories[0] != "Network Attack" || again.Mitigation[0] != "Enable DDoS protection services" {
		t.Fatalf("table was mutated through a returned slice")
	}
}
