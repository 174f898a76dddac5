package notifications

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/projecthub-dev/projecthub/internal/actorctx"
)

type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) SendAssignmentNotice(ctx context.Context, in SendAssignmentNoticeInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("notification.assignment_notice email=%s name=%s project=%s assigned_by=%s user=%s",
		in.Email, in.Name, in.ProjectID, in.AssignedBy, targetUser(ctx),
	)
	return nil
}

func (n *LogNotifier) SendLeadAssigned(ctx context.Context, in SendLeadAssignedInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("notification.lead_assigned email=%s name=%s project=%s assigned_by=%s user=%s",
		in.Email, in.Name, in.ProjectID, in.AssignedBy, targetUser(ctx),
	)
	return nil
}

func targetUser(ctx context.Context) string {
	if id, ok := actorctx.UserIDFrom(ctx); ok {
		return id
	}
	return "-"
}

// Env knobs to simulate a slow or failing provider in local runs.
func simulateProvider(ctx context.Context) error {
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}
	return nil
}
