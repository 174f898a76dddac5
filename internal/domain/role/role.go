package role

import "errors"

// Role is a closed enumeration. Anything not listed here is rejected at the
// edge, so the policy code can switch exhaustively and deny by default.
type Role string

const (
	Admin       Role = "admin"
	ProjectLead Role = "project_lead"
	Developer   Role = "developer"
)

var ErrUnknownRole = errors.New("unknown role")

func Parse(s string) (Role, error) {
	switch Role(s) {
	case Admin, ProjectLead, Developer:
		return Role(s), nil
	default:
		return "", ErrUnknownRole
	}
}

func (r Role) IsValid() bool {
	switch r {
	case Admin, ProjectLead, Developer:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// CanLead reports whether a user with this role may be designated as a
// project's lead. Admins qualify alongside project leads.
func (r Role) CanLead() bool {
	switch r {
	case Admin, ProjectLead:
		return true
	default:
		return false
	}
}
