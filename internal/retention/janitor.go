// Package retention sweeps the artifact store's temp namespaces on a schedule
package retention

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethanbaker/voice-assistant/internal/artifacts"
	"github.com/ethanbaker/voice-assistant/internal/metrics"
	"github.com/ethanbaker/voice-assistant/pkg/utils"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs a sweep at the top of every hour
const DefaultSchedule = "@hourly"

// Sweeper removes stale files from temp namespaces
type Sweeper interface {
	CleanupTemp(maxAge time.Duration) ([]string, error)
}

// Janitor runs retention sweeps on a cron schedule
type Janitor struct {
	sweeper  Sweeper
	maxAge   time.Duration
	schedule string
	metrics  *metrics.Metrics

	mutex sync.Mutex
	cron  *cron.Cron
	last  Sweep
}

// Sweep summarises one retention run
type Sweep struct {
	At      time.Time `json:"at"`
	Removed int       `json:"removed"`
	Error   string    `json:"error,omitempty"`
}

// JanitorOptions contains configuration options for the Janitor
type JanitorOptions struct {
	MaxAge   time.Duration
	Schedule string
	Metrics  *metrics.Metrics
}

// OptionsFromConfig reads RETENTION_MAX_AGE and RETENTION_CRON
func OptionsFromConfig(cfg *utils.Config) JanitorOptions {
	return JanitorOptions{
		MaxAge:   cfg.GetDurationWithDefault("RETENTION_MAX_AGE", artifacts.DefaultMaxAge),
		Schedule: cfg.GetWithDefault("RETENTION_CRON", DefaultSchedule),
	}
}

// NewJanitor creates a janitor and registers its cron entry. Call Start to
// begin sweeping
func NewJanitor(sweeper Sweeper, opts JanitorOptions) (*Janitor, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("a valid sweeper must be provided")
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = artifacts.DefaultMaxAge
	}
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}

	j := &Janitor{
		sweeper:  sweeper,
		maxAge:   opts.MaxAge,
		schedule: opts.Schedule,
		metrics:  opts.Metrics,
		cron:     cron.New(),
	}

	if _, err := j.cron.AddFunc(opts.Schedule, func() { j.Sweep() }); err != nil {
		return nil, fmt.Errorf("invalid retention schedule '%s': %w", opts.Schedule, err)
	}

	return j, nil
}

// Start begins the scheduled sweeps
func (j *Janitor) Start() {
	log.Printf("[RETENTION]: Sweeping temp files older than %s on schedule '%s'", j.maxAge, j.schedule)
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep runs one retention pass immediately
func (j *Janitor) Sweep() Sweep {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	removed, err := j.sweeper.CleanupTemp(j.maxAge)
	j.metrics.RecordRetention(len(removed), err)

	sweep := Sweep{At: time.Now(), Removed: len(removed)}
	if err != nil {
		sweep.Error = err.Error()
		log.Printf("[RETENTION]: Sweep failed after removing %d file(s): %v", len(removed), err)
	}

	j.last = sweep
	return sweep
}

// Last returns the most recent sweep
func (j *Janitor) Last() Sweep {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return j.last
}
