package membership

import (
	"errors"
	"time"
)

// Membership is the fact that a user is assigned to a project. AssignedBy
// records the actor who performed the assignment for audit; it is never
// re-validated against current permissions.
type Membership struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	UserID     string    `json:"userId"`
	AssignedBy string    `json:"assignedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// At most one membership may exist per (project, user) pair. Stores surface
// this through ErrDuplicate, backed by a unique constraint so two concurrent
// inserts cannot both win.
var ErrDuplicate = errors.New("membership already exists")

type AssignRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
}

type AssignLeadRequest struct {
	ProjectLeadID string `json:"projectLeadId" binding:"required,uuid"`
}
