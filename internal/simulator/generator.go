package simulator

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"socsim/pkg/models"
)

// band is an upper bound of a cumulative selection weight.
type band struct {
	upper float64
	kind  models.AttackType
}

// Selection weights: DDoS 30%, Phishing 25%, Malware 20%, SQLInjection 15%, XSS 10%.
var selectionBands = []band{
	{0.30, models.AttackDDoS},
	{0.55, models.AttackPhishing},
	{0.75, models.AttackMalware},
	{0.90, models.AttackSQLInjection},
	{1.00, models.AttackXSS},
}

// Generator produces weighted random incidents. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	now     func() time.Time
	malware MalwareSeverityPolicy
}

// Option customizes a Generator.
type Option func(*Generator)

// WithSeed makes generation reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithMalwarePolicy overrides the malware severity thresholds.
func WithMalwarePolicy(p MalwareSeverityPolicy) Option {
	return func(g *Generator) {
		g.malware = p
	}
}

// NewGenerator creates a generator seeded from the runtime unless WithSeed is given.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:     time.Now,
		malware: DefaultMalwareSeverityPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateRandomAttack picks a category by weight and simulates it.
func (g *Generator) GenerateRandomAttack() *models.Incident {
	g.mu.Lock()
	defer g.mu.Unlock()

	kind := selectAttackType(g.rng.Float64())
	return g.simulateLocked(kind)
}

// Generate simulates one incident of a fixed category.
func (g *Generator) Generate(kind models.AttackType) (*models.Incident, error) {
	if _, err := models.ParseAttackType(string(kind)); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.simulateLocked(kind), nil
}

func (g *Generator) simulateLocked(kind models.AttackType) *models.Incident {
	var (
		details  models.Details
		severity models.Severity
	)
	switch kind {
	case models.AttackDDoS:
		details, severity = SimulateDDoS(g.rng)
	case models.AttackPhishing:
		details, severity = SimulatePhishing(g.rng)
	case models.AttackMalware:
		details, severity = g.malware.Simulate(g.rng)
	case models.AttackSQLInjection:
		details, severity = SimulateSQLInjection(g.rng)
	default:
		kind = models.AttackXSS
		details, severity = SimulateXSS(g.rng)
	}

	return &models.Incident{
		IncidentID: newIncidentID(g.rng),
		AttackType: kind,
		Severity:   severity,
		Status:     models.StatusOpen,
		SourceIP:   RandomIP(g.rng),
		Timestamp:  g.now().UTC(),
		Details:    details,
	}
}

func selectAttackType(v float64) models.AttackType {
	for _, b := range selectionBands {
		if v < b.upper {
			return b.kind
		}
	}
	return selectionBands[len(selectionBands)-1].kind
}

// newIncidentID returns INC-XXXXXX. Collisions across runs are possible and accepted.
func newIncidentID(r *rand.Rand) string {
	return fmt.Sprintf("INC-%06d", r.IntN(999999))
}
