package dashboard

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/batteryfi/batteryfi/internal/metrics"
)

// Band classifies a state of charge.
type Band string

const (
	BandHigh     Band = "high"
	BandMedium   Band = "medium"
	BandLow      Band = "low"
	BandCritical Band = "critical"
)

// SoC limits and defaults for the simulated battery.
const (
	InitialSoC = 72.0
	MinSoC     = 20.0
	MaxSoC     = 100.0

	// TickSpec is the cron schedule for SoC updates.
	TickSpec = "@every 5s"
)

// SoCBand maps a state of charge to its display band.
func SoCBand(soc float64) Band {
	switch {
	case soc >= 70:
		return BandHigh
	case soc >= 40:
		return BandMedium
	case soc >= 20:
		return BandLow
	default:
		return BandCritical
	}
}

// Simulator random-walks the battery state of charge. Safe for concurrent
// use.
type Simulator struct {
	mu   sync.Mutex
	soc  float64
	rand func() float64
	hub  *Hub
	now  func() time.Time
}

// NewSimulator starts at InitialSoC. Updates are pushed to hub when it is
// non-nil.
func NewSimulator(hub *Hub) *Simulator {
	metrics.BatterySoC.Set(InitialSoC)
	return &Simulator{
		soc:  InitialSoC,
		rand: rand.Float64,
		hub:  hub,
		now:  time.Now,
	}
}

// SoC returns the current state of charge.
func (s *Simulator) SoC() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soc
}

// Step moves the SoC by up to ±1 and clamps it to [MinSoC, MaxSoC].
func (s *Simulator) Step() float64 {
	s.mu.Lock()
	next := s.soc + (s.rand()-0.5)*2
	next = max(MinSoC, min(MaxSoC, next))
	s.soc = next
	s.mu.Unlock()

	metrics.BatterySoC.Set(next)
	if s.hub != nil {
		s.hub.Broadcast(s.Update())
	}
	return next
}

// Update describes the current SoC for subscribers.
func (s *Simulator) Update() Update {
	soc := s.SoC()
	return Update{Type: "soc", SoC: soc, Band: SoCBand(soc), At: s.now().UTC()}
}

// Scheduler runs periodic dashboard jobs.
type Scheduler struct {
	cron    *cron.Cron
	baseCtx context.Context
}

// NewScheduler creates a stopped scheduler whose jobs receive baseCtx.
func NewScheduler(baseCtx context.Context) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		baseCtx: baseCtx,
	}
}

// Add registers job under a cron spec.
func (s *Scheduler) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() { job(s.baseCtx) })
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// Schedule registers the simulator's step on sched.
func (s *Simulator) Schedule(sched *Scheduler) error {
	_, err := sched.Add(TickSpec, func(context.Context) { s.Step() })
	return err
}
