package jobs

type JobType string

const (
	// JobAssignmentNotice tells an assigned user they were added to a project.
	JobAssignmentNotice JobType = "assignment.notice"

	// JobLeadAssigned tells a user they now lead a project.
	JobLeadAssigned JobType = "lead.assigned"
)

func (t JobType) IsValid() bool {
	switch t {
	case JobAssignmentNotice, JobLeadAssigned:
		return true
	default:
		return false
	}
}
