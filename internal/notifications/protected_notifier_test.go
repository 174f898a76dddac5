package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyNotifier struct {
	err   error
	calls int
}

func (f *flakyNotifier) SendAssignmentNotice(ctx context.Context, in SendAssignmentNoticeInput) error {
	f.calls++
	return f.err
}

func (f *flakyNotifier) SendLeadAssigned(ctx context.Context, in SendLeadAssignedInput) error {
	f.calls++
	return f.err
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	inner := &flakyNotifier{err: errors.New("provider down")}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		Timeout:          time.Second,
		FailureThreshold: 2,
		Cooldown:         time.Minute,
	})

	in := SendAssignmentNoticeInput{Email: "dev@example.com", ProjectID: "p1"}

	if err := n.SendAssignmentNotice(context.Background(), in); err == nil {
		t.Fatal("expected failure")
	}
	if err := n.SendAssignmentNotice(context.Background(), in); err == nil {
		t.Fatal("expected failure")
	}

	// circuit is open now; inner must not be called again
	err := n.SendAssignmentNotice(context.Background(), in)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 inner calls, got %d", inner.calls)
	}
}

func TestProtectedNotifier_RecoversAfterCooldown(t *testing.T) {
	inner := &flakyNotifier{err: errors.New("provider down")}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		Timeout:          time.Second,
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	in := SendLeadAssignedInput{Email: "lead@example.com", ProjectID: "p1"}

	if err := n.SendLeadAssigned(context.Background(), in); err == nil {
		t.Fatal("expected failure")
	}

	time.Sleep(20 * time.Millisecond)
	inner.err = nil

	if err := n.SendLeadAssigned(context.Background(), in); err != nil {
		t.Fatalf("expected half-open trial to succeed, got %v", err)
	}

	// closed again
	if err := n.SendLeadAssigned(context.Background(), in); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}
