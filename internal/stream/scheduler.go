package stream

import (
	"math"
	"sync"
	"time"

	"socsim/internal/logger"
	"socsim/internal/pattern"
	"socsim/pkg/models"
)

// Source produces the next synthetic incident.
type Source interface {
	GenerateRandomAttack() *models.Incident
}

// Pacer decides how long to wait before the next incident.
type Pacer interface {
	NextDelay() time.Duration
	SetPattern(name string) bool
	Current() pattern.Pattern
	Describe() string
}

// Publisher receives every generated incident. Publish runs while the
// scheduler holds its lock, so it must not block and must not call back
// into the Scheduler.
type Publisher interface {
	Publish(inc *models.Incident)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(inc *models.Incident)

// Publish calls f(inc).
func (f PublisherFunc) Publish(inc *models.Incident) { f(inc) }

// Scheduler fires one incident per armed delay while running.
// At most one timer is armed at any time.
type Scheduler struct {
	mu         sync.Mutex
	source     Source
	pacer      Pacer
	clock      Clock
	publishers []Publisher
	onState    func(running bool)

	running   bool
	timer     Timer
	arm       uint64
	total     int64
	startedAt time.Time
	active    time.Duration
}

// New builds a stopped scheduler.
func New(source Source, pacer Pacer, clock Clock, publishers ...Publisher) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	return &Scheduler{
		source:     source,
		pacer:      pacer,
		clock:      clock,
		publishers: publishers,
	}
}

// Subscribe adds a publisher. It takes effect from the next event.
func (s *Scheduler) Subscribe(p Publisher) {
	s.mu.Lock()
	s.publishers = append(s.publishers, p)
	s.mu.Unlock()
}

// OnStateChange registers a callback invoked after every successful Start or Stop.
func (s *Scheduler) OnStateChange(fn func(running bool)) {
	s.mu.Lock()
	s.onState = fn
	s.mu.Unlock()
}

// Start arms the first delay. It returns false if already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warnf("Attack stream is already running")
		return false
	}
	s.running = true
	s.startedAt = s.clock.Now()
	s.armLocked()
	hook := s.onState
	s.mu.Unlock()

	logger.Infof("Attack stream started (pattern=%s)", s.pacer.Current().Key)
	if hook != nil {
		hook(true)
	}
	return true
}

// Stop cancels the pending delay. No event is published after Stop returns.
// It returns false if the stream was not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	s.arm++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.active += s.clock.Now().Sub(s.startedAt)
	hook := s.onState
	s.mu.Unlock()

	logger.Infof("Attack stream stopped")
	if hook != nil {
		hook(false)
	}
	return true
}

// SetPattern changes the pattern; the new rate applies from the next arm.
func (s *Scheduler) SetPattern(name string) bool {
	return s.pacer.SetPattern(name)
}

// Status reports whether the stream is running.
func (s *Scheduler) Status() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats derives the current counters.
func (s *Scheduler) Stats() models.StreamStats {
	s.mu.Lock()
	total := s.total
	running := s.running
	uptime := s.active
	if running {
		uptime += s.clock.Now().Sub(s.startedAt)
	}
	s.mu.Unlock()

	var avg float64
	if minutes := uptime.Minutes(); minutes > 0 {
		avg = math.Round(float64(total)/minutes*100) / 100
	}
	return models.StreamStats{
		TotalEventsGenerated:   total,
		CurrentPattern:         s.pacer.Current().Key,
		PatternDescription:     s.pacer.Describe(),
		AverageEventsPerMinute: avg,
		UptimeSeconds:          int64(uptime / time.Second),
		IsRunning:              running,
	}
}

func (s *Scheduler) armLocked() {
	s.arm++
	gen := s.arm
	delay := s.pacer.NextDelay()
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(gen) })
	logger.Debugf("Next attack in %s", delay)
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A stale timer from before Stop or a restart.
	if !s.running || gen != s.arm {
		return
	}

	inc := s.source.GenerateRandomAttack()
	s.total++
	for _, p := range s.publishers {
		p.Publish(inc)
	}
	s.armLocked()
}
