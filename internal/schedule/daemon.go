// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule runs the pipeline on a cron schedule inside a
// long-lived process.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/blog-autopilot/internal/logger"
	"github.com/pdiddy/blog-autopilot/pkg/types"
)

// DefaultSpec runs once a day at 06:00.
const DefaultSpec = "0 6 * * *"

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Daemon triggers a Job on a cron schedule. A trigger that fires while the
// previous job is still running is skipped.
type Daemon struct {
	spec     string
	loc      *time.Location
	schedule cron.Schedule
	job      Job

	// RunOnStart triggers the job once immediately when Run begins.
	RunOnStart bool
}

// New validates cfg and returns a daemon for job.
func New(cfg types.ScheduleConfig, job Job) (*Daemon, error) {
	if job == nil {
		return nil, fmt.Errorf("schedule: job is required")
	}
	spec := cfg.Spec
	if spec == "" {
		spec = DefaultSpec
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing cron spec %q: %w", spec, err)
	}
	loc, err := loadLocation(cfg.Location)
	if err != nil {
		return nil, err
	}
	return &Daemon{spec: spec, loc: loc, schedule: sched, job: job}, nil
}

// Spec returns the cron expression in use.
func (d *Daemon) Spec() string {
	return d.spec
}

// Location returns the time zone the schedule is evaluated in.
func (d *Daemon) Location() *time.Location {
	return d.loc
}

// Next returns the first activation after t.
func (d *Daemon) Next(t time.Time) time.Time {
	return d.schedule.Next(t.In(d.loc))
}

// Run starts the scheduler and blocks until ctx is cancelled. It then
// stops the scheduler and waits for a running job to finish.
func (d *Daemon) Run(ctx context.Context) error {
	log := logger.G(ctx).WithField("spec", d.spec).WithField("location", d.loc.String())
	cl := cronLogger{log}

	c := cron.New(
		cron.WithLocation(d.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id := c.Schedule(d.schedule, cron.FuncJob(func() { d.runJob(ctx) }))

	c.Start()
	log.WithField("next", d.Next(time.Now())).Info("scheduler started")

	var wg sync.WaitGroup
	if d.RunOnStart {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Entry(id).WrappedJob.Run()
		}()
	}

	<-ctx.Done()
	log.Info("scheduler stopping")
	<-c.Stop().Done()
	wg.Wait()
	return nil
}

func (d *Daemon) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log := logger.G(ctx)
	start := time.Now()
	log.Info("scheduled run starting")
	if err := d.job(ctx); err != nil {
		log.WithError(err).WithField("elapsed", time.Since(start).Round(time.Millisecond)).Error("scheduled run failed")
		return
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("scheduled run finished")
}

func loadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", name, err)
	}
	return loc, nil
}

// cronLogger adapts a logrus entry to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.entry.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.entry.WithError(err).WithFields(fields(keysAndValues)).Error("cron: " + msg)
}

func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
