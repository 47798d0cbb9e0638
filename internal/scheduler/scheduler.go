// Package scheduler runs the periodic maintenance jobs: the outbox relay on
// the write service and the reconciliation sweep on the search service.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"job-marketplace-backend/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// Scheduler wraps robfig/cron. A task never overlaps with its own previous
// run.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	onStart []namedTask
	running sync.WaitGroup
}

type namedTask struct {
	name string
	task Task
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers task under spec ("@every 10s", "0 * * * *", ...). With
// runOnStart the task also runs once as soon as Start is called.
func (s *Scheduler) Add(name, spec string, runOnStart bool, task Task) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	if runOnStart {
		s.onStart = append(s.onStart, namedTask{name: name, task: task})
	}
	logger.Log.Info("Scheduled task", "task", name, "spec", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, t := range s.onStart {
		t := t
		s.running.Add(1)
		go func() {
			defer s.running.Done()
			s.run(t.name, t.task)
		}()
	}
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.running.Wait()
	logger.Log.Info("Scheduler stopped")
}

func (s *Scheduler) run(name string, task Task) {
	if s.ctx.Err() != nil {
		return
	}
	started := time.Now()
	if err := task(s.ctx); err != nil {
		logger.Log.Error("Scheduled task failed", "task", name, "error", err, "duration", time.Since(started).String())
		return
	}
	logger.Log.Debug("Scheduled task finished", "task", name, "duration", time.Since(started).String())
}
