package project

import (
	"errors"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusOnHold    Status = "on_hold"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusOnHold:
		return true
	default:
		return false
	}
}

type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	// CreatedBy is ownership and never changes. ProjectLeadID is the
	// designated lead, admin-assignable and nullable; when set it must
	// reference a user whose role can lead (project_lead or admin).
	CreatedBy     string    `json:"createdBy"`
	ProjectLeadID *string   `json:"projectLeadId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("project not found")

type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required,min=3,max=120"`
	Description string     `json:"description" binding:"omitempty,max=1000"`
	Status      string     `json:"status" binding:"omitempty,oneof=active completed on_hold"`
	Deadline    *time.Time `json:"deadline" binding:"omitempty"`
}

type UpdateProjectRequest struct {
	Name        string     `json:"name" binding:"required,min=3,max=120"`
	Description string     `json:"description" binding:"omitempty,max=1000"`
	Status      string     `json:"status" binding:"required,oneof=active completed on_hold"`
	Deadline    *time.Time `json:"deadline" binding:"omitempty"`
}
