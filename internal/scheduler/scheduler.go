package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Prunable is a cache whose expired entries can be swept.
type Prunable interface {
	Name() string
	Prune() int
}

// Scheduler periodically sweeps expired entries out of in-memory caches.
type Scheduler struct {
	scheduler *gocron.Scheduler
	caches    []Prunable
	interval  time.Duration
}

// New creates a new Scheduler.
func New(caches []Prunable, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		caches:    caches,
		interval:  interval,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.caches) == 0 {
		log.Println("scheduler: no caches configured; nothing to schedule")
		return nil
	}

	seconds := int(s.interval.Seconds())
	if seconds <= 0 {
		seconds = 300
	}

	_, err := s.scheduler.Every(seconds).Seconds().WaitForSchedule().Do(s.Sweep)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Sweep prunes every cache once.
func (s *Scheduler) Sweep() {
	for _, c := range s.caches {
		if n := c.Prune(); n > 0 {
			log.Printf("scheduler: pruned %d expired entries from %s", n, c.Name())
		}
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
