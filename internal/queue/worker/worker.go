package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/projecthub-dev/projecthub/internal/domain/job"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/domain/user"
	"github.com/projecthub-dev/projecthub/internal/notifications"
	"github.com/projecthub-dev/projecthub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type ProjectReader interface {
	GetByID(ctx context.Context, id string) (project.Project, error)
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
	LockTTL       time.Duration
	Metrics       *observability.Prom
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	users    UserReader
	projects ProjectReader
	notifier notifications.Notifier
	log      *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, users UserReader, projects ProjectReader, notifier notifications.Notifier, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		users:    users,
		projects: projects,
		notifier: notifier,
		log:      log,
	}
}

// Run polls for jobs with cfg.Concurrency goroutines until ctx is cancelled,
// then waits up to ShutdownGrace for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.poll(ctx)
		}()
	}

	// one reaper loop returning stale processing jobs to pending
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.reap(ctx)
	}()

	<-ctx.Done()
	w.setReady(false)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
		return errors.New("worker shutdown grace period exceeded")
	}
}

func (w *Worker) poll(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := w.ProcessOne(ctx)
			if err != nil {
				w.log.Error("job processing error", "err", err)
			}
			// drain the backlog without waiting out the poll interval
			for processed && ctx.Err() == nil {
				processed, err = w.ProcessOne(ctx)
				if err != nil {
					w.log.Error("job processing error", "err", err)
				}
			}
		}
	}
}

func (w *Worker) reap(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.LockTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
			if err != nil {
				w.log.Error("requeue stale jobs failed", "err", err)
				continue
			}
			if n > 0 {
				w.log.Warn("requeued stale jobs", "count", n)
			}
		}
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
