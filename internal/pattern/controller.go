package pattern

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"socsim/internal/logger"
)

const (
	Normal    = "normal"
	Wave      = "wave"
	Sustained = "sustained"
	Calm      = "calm"
)

// Pattern describes one named traffic shape in events per minute.
type Pattern struct {
	Key           string `json:"pattern"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	MinPerMinute  int    `json:"minAttacksPerMin,omitempty"`
	MaxPerMinute  int    `json:"maxAttacksPerMin,omitempty"`
	LowPerMinute  int    `json:"lowAttacksPerMin,omitempty"`
	HighPerMinute int    `json:"highAttacksPerMin,omitempty"`
	CycleSeconds  int    `json:"cycleSeconds,omitempty"`
}

var patterns = map[string]Pattern{
	Normal: {
		Key: Normal, Name: "Normal", Description: "Steady attack rate",
		MinPerMinute: 2, MaxPerMinute: 5,
	},
	Wave: {
		Key: Wave, Name: "Wave", Description: "Alternating high and low intensity",
		LowPerMinute: 1, HighPerMinute: 10, CycleSeconds: 30,
	},
	Sustained: {
		Key: Sustained, Name: "Sustained", Description: "Continuous high-intensity attacks",
		MinPerMinute: 8, MaxPerMinute: 12,
	},
	Calm: {
		Key: Calm, Name: "Calm", Description: "Minimal activity with random gaps",
		MinPerMinute: 0, MaxPerMinute: 1,
	},
}

// calmSilence is the chance that a calm tick asks for zero events.
const calmSilence = 0.85

// Names returns the valid pattern names, sorted.
func Names() []string {
	out := make([]string, 0, len(patterns))
	for k := range patterns {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Valid reports whether name is a known pattern.
func Valid(name string) bool {
	_, ok := patterns[name]
	return ok
}

// Controller turns the selected pattern into inter-event delays.
type Controller struct {
	mu      sync.Mutex
	current string
	anchor  time.Time
	rng     *rand.Rand
	now     func() time.Time
}

// NewController starts in the normal pattern with the cycle anchored at now().
func NewController(rng *rand.Rand, now func() time.Time) *Controller {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &Controller{
		current: Normal,
		anchor:  now(),
		rng:     rng,
		now:     now,
	}
}

// SetPattern switches pattern and restarts the wave cycle in its low phase.
// Unknown names leave the controller untouched and return false.
func (c *Controller) SetPattern(name string) bool {
	if !Valid(name) {
		logger.Warnf("Unknown pattern: %s. Available patterns: %s", name, strings.Join(Names(), ", "))
		return false
	}

	c.mu.Lock()
	c.current = name
	c.anchor = c.now()
	c.mu.Unlock()

	logger.Infof("Pattern changed to: %s", name)
	return true
}

// Current returns the active pattern definition.
func (c *Controller) Current() Pattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	return patterns[c.current]
}

// EventsPerMinute samples the target rate for the next event, floored at 1.
func (c *Controller) EventsPerMinute() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := patterns[c.current]
	var perMinute int
	switch c.current {
	case Normal, Sustained:
		perMinute = p.MinPerMinute + c.rng.IntN(p.MaxPerMinute-p.MinPerMinute+1)
	case Wave:
		cycle := time.Duration(p.CycleSeconds) * time.Second
		elapsed := c.now().Sub(c.anchor)
		if elapsed < 0 {
			elapsed = 0
		}
		if elapsed%(2*cycle) < cycle {
			perMinute = p.LowPerMinute
		} else {
			perMinute = p.HighPerMinute
		}
	case Calm:
		if c.rng.Float64() < calmSilence {
			perMinute = 0
		} else {
			perMinute = 1
		}
	}

	if perMinute < 1 {
		perMinute = 1
	}
	return perMinute
}

// NextDelay converts the sampled rate into the wait before the next event.
func (c *Controller) NextDelay() time.Duration {
	return time.Minute / time.Duration(c.EventsPerMinute())
}

// Describe returns a human readable rate for the active pattern.
func (c *Controller) Describe() string {
	p := c.Current()
	switch p.Key {
	case Wave:
		return fmt.Sprintf("Wave (low: %d/min, high: %d/min, cycle: %ds)", p.LowPerMinute, p.HighPerMinute, p.CycleSeconds)
	case Calm:
		return fmt.Sprintf("Calm (%d-%d/min with gaps)", p.MinPerMinute, p.MaxPerMinute)
	default:
		return fmt.Sprintf("%s (%d-%d/min)", p.Name, p.MinPerMinute, p.MaxPerMinute)
	}
}
