package notifications

import "context"

type SendAssignmentNoticeInput struct {
	Email       string
	Name        string
	ProjectID   string
	ProjectName string
	AssignedBy  string
}

type SendLeadAssignedInput struct {
	Email       string
	Name        string
	ProjectID   string
	ProjectName string
	AssignedBy  string
}

type Notifier interface {
	SendAssignmentNotice(ctx context.Context, input SendAssignmentNoticeInput) error
	SendLeadAssigned(ctx context.Context, input SendLeadAssignedInput) error
}
