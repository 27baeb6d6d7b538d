// Package scheduler runs recurring background tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// Task describes one recurring background job.
type Task struct {
	ID         string
	Name       string
	Cron       string
	Run        func(ctx context.Context) error
	RunOnStart bool
}

// TaskStatus reports a registered task for API responses.
type TaskStatus struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Cron    string     `json:"cron"`
	Running bool       `json:"running"`
	LastRun *time.Time `json:"lastRun,omitempty"`
	NextRun *time.Time `json:"nextRun,omitempty"`
}

type registration struct {
	task    Task
	job     gocron.Job
	running bool
	lastRun *time.Time
}

// Scheduler owns the cron engine and the set of registered tasks.
type Scheduler struct {
	engine gocron.Scheduler
	logger zerolog.Logger

	mu    sync.RWMutex
	tasks map[string]*registration
}

// New creates a stopped scheduler. Call Start after registering tasks.
func New(logger zerolog.Logger) (*Scheduler, error) {
	engine, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		engine: engine,
		logger: logger.With().Str("component", "scheduler").Logger(),
		tasks:  make(map[string]*registration),
	}, nil
}

// Register adds a task to the schedule.
func (s *Scheduler) Register(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return fmt.Errorf("task %q already registered", task.ID)
	}

	job, err := s.engine.NewJob(
		gocron.CronJob(task.Cron, false),
		gocron.NewTask(func() { s.execute(task.ID) }),
		gocron.WithName(task.Name),
		gocron.WithTags(task.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule task %q: %w", task.ID, err)
	}

	s.tasks[task.ID] = &registration{task: task, job: job}
	s.logger.Info().
		Str("id", task.ID).
		Str("cron", task.Cron).
		Msg("Registered task")
	return nil
}

// Start begins cron execution and kicks off any RunOnStart tasks.
func (s *Scheduler) Start() {
	s.engine.Start()

	s.mu.RLock()
	var startup []string
	for id, reg := range s.tasks {
		if reg.task.RunOnStart {
			startup = append(startup, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range startup {
		go s.execute(id)
	}
	s.logger.Info().Int("tasks", len(s.tasks)).Msg("Scheduler started")
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")
	return s.engine.Shutdown()
}

// RunNow triggers a task out of schedule.
func (s *Scheduler) RunNow(id string) error {
	s.mu.RLock()
	reg, ok := s.tasks[id]
	running := ok && reg.running
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("task %q not found", id)
	}
	if running {
		return fmt.Errorf("task %q is already running", id)
	}
	go s.execute(id)
	return nil
}

// Tasks returns the status of every registered task.
func (s *Scheduler) Tasks() []TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]TaskStatus, 0, len(s.tasks))
	for _, reg := range s.tasks {
		status := TaskStatus{
			ID:      reg.task.ID,
			Name:    reg.task.Name,
			Cron:    reg.task.Cron,
			Running: reg.running,
			LastRun: reg.lastRun,
		}
		if next, err := reg.job.NextRun(); err == nil {
			status.NextRun = &next
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (s *Scheduler) execute(id string) {
	s.mu.Lock()
	reg, ok := s.tasks[id]
	if !ok || reg.running {
		s.mu.Unlock()
		return
	}
	reg.running = true
	s.mu.Unlock()

	started := time.Now()
	s.logger.Info().Str("id", id).Msg("Task starting")

	err := reg.task.Run(context.Background())

	s.mu.Lock()
	reg.running = false
	reg.lastRun = &started
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).
			Str("id", id).
			Dur("duration", time.Since(started)).
			Msg("Task failed")
		return
	}
	s.logger.Info().
		Str("id", id).
		Dur("duration", time.Since(started)).
		Msg("Task finished")
}
