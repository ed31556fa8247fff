package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-history/internal/store"
)

// Scheduler periodically reloads the aggregate CSV file into an index.
type Scheduler struct {
	scheduler *gocron.Scheduler
	index     store.Index
	path      string
	interval  time.Duration
}

// New creates a new Scheduler.
func New(path string, interval time.Duration, index store.Index) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		index:     index,
		path:      path,
		interval:  interval,
	}
}

// Reload loads the file once. A failed reload keeps the previous contents.
func (s *Scheduler) Reload() error {
	if err := store.LoadCSV(s.index, s.path); err != nil {
		log.Printf("scheduler: reload of %s failed; keeping previous data: %v", s.path, err)
		return err
	}
	log.Printf("scheduler: reloaded %s", s.path)
	return nil
}

// Start schedules the periodic reload and starts the underlying scheduler. The first
// reload runs immediately.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		_ = s.Reload()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future reloads.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
