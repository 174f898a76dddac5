package jobs

import "strings"

// ValidatePayload performs minimal validation on decoded payloads.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case JobAssignmentNotice:
		var p AssignmentNoticePayload
		switch v := payload.(type) {
		case AssignmentNoticePayload:
			p = v
		case *AssignmentNoticePayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.ProjectID) == "" || trim(p.UserID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobLeadAssigned:
		var p LeadAssignedPayload
		switch v := payload.(type) {
		case LeadAssignedPayload:
			p = v
		case *LeadAssignedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.ProjectID) == "" || trim(p.LeadID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
