package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/learnhub-backend/internal/platform/logger"
	"github.com/yungbote/learnhub-backend/internal/platform/redisx"
	"github.com/yungbote/learnhub-backend/internal/services"
)

const lockKey = "badge_reconcile"

// ErrSkipped is returned by RunOnce when another process holds the sweep lock.
var ErrSkipped = errors.New("reconcile: sweep already running elsewhere")

type Config struct {
	// Spec is a robfig/cron spec ("@every 1h", "0 3 * * *"). Empty disables the schedule.
	Spec string
	// LockTTL bounds how long a crashed owner can block other replicas.
	LockTTL time.Duration
	// RunTimeout caps a single scheduled sweep. Zero means no cap.
	RunTimeout time.Duration
}

// Scheduler runs the missing-badge sweep on a cron schedule. Runs never
// overlap within a process (SkipIfStillRunning) or across replicas (Locker).
type Scheduler struct {
	log     *logger.Logger
	sweeper services.ReconcileService
	locker  redisx.Locker
	cfg     Config

	cron *cron.Cron
	done chan struct{}
	once sync.Once
}

func NewScheduler(log *logger.Logger, sweeper services.ReconcileService, locker redisx.Locker, cfg Config) *Scheduler {
	if locker == nil {
		locker = redisx.NewLocalLocker()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Minute
	}
	cfg.Spec = strings.TrimSpace(cfg.Spec)
	slog := log.With("component", "ReconcileScheduler")
	cl := cronLogger{log: slog}
	return &Scheduler{
		log:     slog,
		sweeper: sweeper,
		locker:  locker,
		cfg:     cfg,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		done: make(chan struct{}),
	}
}

// Start registers the sweep and returns. The scheduler stops when ctx is
// cancelled; Done is closed once in-flight runs have returned.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Spec == "" {
		s.log.Info("reconcile schedule disabled")
		s.once.Do(func() { close(s.done) })
		return nil
	}
	if _, err := s.cron.AddFunc(s.cfg.Spec, func() { s.runScheduled(ctx) }); err != nil {
		s.once.Do(func() { close(s.done) })
		return fmt.Errorf("reconcile schedule %q: %w", s.cfg.Spec, err)
	}
	s.cron.Start()
	s.log.Info("reconcile schedule started", "spec", s.cfg.Spec)
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.log.Info("reconcile schedule stopped")
		s.once.Do(func() { close(s.done) })
	}()
	return nil
}

func (s *Scheduler) Done() <-chan struct{} { return s.done }

func (s *Scheduler) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}
	if _, err := s.RunOnce(ctx, services.SweepOptions{}); err != nil {
		if errors.Is(err, ErrSkipped) {
			s.log.Debug("reconcile run skipped, lock held")
			return
		}
		s.log.Warn("reconcile run failed", "error", err)
	}
}

// RunOnce takes the sweep lock and runs one sweep.
func (s *Scheduler) RunOnce(ctx context.Context, opts services.SweepOptions) (*services.SweepReport, error) {
	release, err := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, redisx.ErrLockHeld) {
			return nil, ErrSkipped
		}
		return nil, err
	}
	defer func() {
		// release on a fresh context so a cancelled run still frees the lock
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release(rctx); err != nil {
			s.log.Warn("reconcile lock release failed", "error", err)
		}
	}()
	return s.sweeper.Sweep(ctx, opts)
}

// cronLogger adapts the zap wrapper to cron.Logger.
type cronLogger struct{ log *logger.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
