package jobs

import (
	"encoding/json"
	"time"
)

// Payloads stay minimal and ID-based; the worker loads details from the DB.

type AssignmentNoticePayload struct {
	ProjectID  string    `json:"projectId"`
	UserID     string    `json:"userId"`
	AssignedBy string    `json:"assignedBy"`
	RequestID  string    `json:"requestId,omitempty"`
	AssignedAt time.Time `json:"assignedAt"`
}

func (p AssignmentNoticePayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

type LeadAssignedPayload struct {
	ProjectID  string    `json:"projectId"`
	LeadID     string    `json:"leadId"`
	AssignedBy string    `json:"assignedBy"`
	RequestID  string    `json:"requestId,omitempty"`
	AssignedAt time.Time `json:"assignedAt"`
}

func (p LeadAssignedPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
