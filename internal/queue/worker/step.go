package worker

import (
	"context"
	"errors"
	"time"

	"github.com/projecthub-dev/projecthub/internal/actorctx"
	"github.com/projecthub-dev/projecthub/internal/domain/job"
	"github.com/projecthub-dev/projecthub/internal/jobs"
	"github.com/projecthub-dev/projecthub/internal/notifications"
)

// ProcessOne claims and runs a single job. The bool reports whether a job was
// actually claimed.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	jctx := ctx
	if j.UserID != nil {
		jctx = actorctx.WithUserID(ctx, *j.UserID)
	}

	if w.cfg.Metrics != nil {
		w.cfg.Metrics.JobsInFlight.Inc()
		defer w.cfg.Metrics.JobsInFlight.Dec()
	}
	started := time.Now()

	err = w.execute(jctx, j)

	if err != nil {
		result := w.handleFailure(ctx, j, err)
		w.observeJob(j.Type, result, started)
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		w.observeJob(j.Type, "failed", started)
		return true, err
	}

	w.observeJob(j.Type, "done", started)
	w.log.Info("job done", "job_id", j.ID, "type", j.Type)
	return true, nil
}

func (w *Worker) observeJob(jobType, result string, started time.Time) {
	if w.cfg.Metrics == nil {
		return
	}
	w.cfg.Metrics.JobResults.WithLabelValues(jobType, result).Inc()
	w.cfg.Metrics.JobDuration.WithLabelValues(jobType, result).Observe(time.Since(started).Seconds())
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	t := jobs.JobType(j.Type)

	decoded, err := jobs.DecodePayload(t, j.Payload)
	if err != nil {
		return err
	}

	if err := jobs.ValidatePayload(t, decoded); err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.AssignmentNoticePayload:
		return w.sendAssignmentNotice(ctx, p)
	case jobs.LeadAssignedPayload:
		return w.sendLeadAssigned(ctx, p)
	default:
		return jobs.ErrInvalidJobType
	}
}

func (w *Worker) sendAssignmentNotice(ctx context.Context, p jobs.AssignmentNoticePayload) error {
	u, err := w.users.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}

	proj, err := w.projects.GetByID(ctx, p.ProjectID)
	if err != nil {
		return err
	}

	return w.notifier.SendAssignmentNotice(ctx, notifications.SendAssignmentNoticeInput{
		Email:       u.Email,
		Name:        u.Name,
		ProjectID:   proj.ID,
		ProjectName: proj.Name,
		AssignedBy:  p.AssignedBy,
	})
}

func (w *Worker) sendLeadAssigned(ctx context.Context, p jobs.LeadAssignedPayload) error {
	u, err := w.users.GetByID(ctx, p.LeadID)
	if err != nil {
		return err
	}

	proj, err := w.projects.GetByID(ctx, p.ProjectID)
	if err != nil {
		return err
	}

	return w.notifier.SendLeadAssigned(ctx, notifications.SendLeadAssignedInput{
		Email:       u.Email,
		Name:        u.Name,
		ProjectID:   proj.ID,
		ProjectName: proj.Name,
		AssignedBy:  p.AssignedBy,
	})
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) string {
	// attempts counts claims so far; the claimed run is attempts+1
	nextAttempt := j.Attempts + 1

	if nextAttempt >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, cause.Error()); err != nil {
			w.log.Error("mark failed error", "job_id", j.ID, "err", err)
		}
		w.log.Warn("job failed permanently", "job_id", j.ID, "type", j.Type, "err", cause)
		return "failed"
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(nextAttempt))

	if err := w.repo.Reschedule(ctx, j.ID, runAt, cause.Error()); err != nil {
		w.log.Error("reschedule error", "job_id", j.ID, "err", err)
		return "retry"
	}

	w.log.Info("job rescheduled", "job_id", j.ID, "type", j.Type, "attempt", nextAttempt, "run_at", runAt)
	return "retry"
}
