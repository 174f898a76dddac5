package jobs

import (
	"testing"
	"time"
)

func TestEncodeDecode_AssignmentNotice(t *testing.T) {
	payload := AssignmentNoticePayload{
		ProjectID:  "project-123",
		UserID:     "user-456",
		AssignedBy: "user-789",
		AssignedAt: time.Now().UTC(),
	}

	b, err := EncodePayload(JobAssignmentNotice, payload)
	if err != nil {
		t.Fatalf("EncodePayload error: %v", err)
	}

	decoded, err := DecodePayload(JobAssignmentNotice, b)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}

	p, ok := decoded.(AssignmentNoticePayload)
	if !ok {
		t.Fatalf("expected AssignmentNoticePayload, got %T", decoded)
	}

	if p.ProjectID != payload.ProjectID {
		t.Fatalf("expected projectId %s, got %s", payload.ProjectID, p.ProjectID)
	}
	if p.UserID != payload.UserID {
		t.Fatalf("expected userId %s, got %s", payload.UserID, p.UserID)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(JobAssignmentNotice, LeadAssignedPayload{
		ProjectID: "p1",
		LeadID:    "u1",
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if err != ErrPayloadTypeMismatch {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestValidatePayload_RequiredIDs(t *testing.T) {
	err := ValidatePayload(JobAssignmentNotice, AssignmentNoticePayload{ProjectID: ""})
	if err == nil {
		t.Fatalf("expected error")
	}

	err = ValidatePayload(JobLeadAssigned, LeadAssignedPayload{ProjectID: "p1", LeadID: ""})
	if err == nil {
		t.Fatalf("expected error")
	}
}
