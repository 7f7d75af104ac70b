package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/vigil/pkg/config"
	"mercator-hq/vigil/pkg/safety/events"
	"mercator-hq/vigil/pkg/safety/profile"
)

// Job names used in logs and by NextRun.
const (
	JobProfileEviction = "profile_eviction"
	JobEventArchive    = "event_archive"
)

// Scheduler runs the enabled maintenance jobs on their cron schedules.
type Scheduler struct {
	cfg      config.MaintenanceConfig
	profiles *profile.Updater
	log      events.Log
	onStats  func(*profile.Stats)

	cron    *cron.Cron
	entries map[string]cron.EntryID
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger.With("component", "maintenance")
		}
	}
}

// WithProfileStats registers fn to receive a profile summary after every
// eviction run.
func WithProfileStats(fn func(*profile.Stats)) Option {
	return func(s *Scheduler) {
		s.onStats = fn
	}
}

// NewScheduler creates a scheduler for profiles and log. Either may be nil
// if the corresponding job is disabled. Eviction shares the per-user locks
// of profiles with the engine.
func NewScheduler(cfg config.MaintenanceConfig, profiles *profile.Updater, log events.Log, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		profiles: profiles,
		log:      log,
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		logger:  slog.Default().With("component", "maintenance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules every enabled job. If no job is enabled the scheduler
// does nothing. The scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("maintenance scheduler already running")
	}

	if s.cfg.ProfileEviction.Enabled {
		if s.profiles == nil {
			return fmt.Errorf("profile eviction enabled without a profile store")
		}
		evictor := NewProfileEvictor(s.profiles, s.cfg.ProfileEviction.MaxIdle)
		if err := s.schedule(JobProfileEviction, s.cfg.ProfileEviction.Schedule, func() {
			s.runEviction(ctx, evictor)
		}); err != nil {
			return err
		}
	}

	if s.cfg.EventArchive.Enabled {
		if s.log == nil {
			return fmt.Errorf("event archive enabled without an event log")
		}
		archiver, err := NewEventArchiver(s.log, s.cfg.EventArchive.Directory, s.cfg.EventArchive.Format)
		if err != nil {
			return err
		}
		if err := s.schedule(JobEventArchive, s.cfg.EventArchive.Schedule, func() {
			s.runArchive(ctx, archiver)
		}); err != nil {
			return err
		}
	}

	if len(s.entries) == 0 {
		s.logger.Info("no maintenance jobs enabled, skipping scheduler")
		return nil
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("maintenance scheduler started",
		"profile_eviction", s.cfg.ProfileEviction.Enabled,
		"event_archive", s.cfg.EventArchive.Enabled,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) schedule(name, spec string, fn func()) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q for %s: %w", spec, name, err)
	}
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

func (s *Scheduler) runEviction(ctx context.Context, evictor *ProfileEvictor) {
	s.logger.Info("starting scheduled profile eviction")

	removed, err := evictor.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled profile eviction failed", "error", err)
		return
	}

	if removed > 0 {
		s.logger.Info("scheduled profile eviction completed", "removed_count", removed)
	} else {
		s.logger.Debug("scheduled profile eviction completed, no profiles removed")
	}

	if s.onStats == nil {
		return
	}
	stats, err := profile.Summarize(ctx, s.profiles.Store())
	if err != nil {
		s.logger.Warn("failed to summarize profiles", "error", err)
		return
	}
	s.onStats(stats)
}

func (s *Scheduler) runArchive(ctx context.Context, archiver *EventArchiver) {
	s.logger.Info("starting scheduled event archive")

	path, n, err := archiver.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled event archive failed", "error", err)
		return
	}

	s.logger.Info("scheduled event archive completed",
		"path", path,
		"event_count", n,
	)
}

// Stop stops the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("maintenance scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled time for the named job, or nil if the
// job is not scheduled.
func (s *Scheduler) NextRun(job string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[job]
	if !ok {
		return nil
	}
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}
