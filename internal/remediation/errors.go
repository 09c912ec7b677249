package remediation

import "errors"

// Common errors.
var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrInvalidState     = errors.New("operation not allowed in current workflow status")
	ErrNoRollbackData   = errors.New("no rollback data available")
)

// stepOutcome is the result of dispatching a single step. Suspension on
// pending approvals is a distinct outcome, not an error: the loop halts and
// the workflow stays IN_PROGRESS until an approver resumes it.
type stepOutcome int

const (
	outcomeCompleted stepOutcome = iota
	outcomeSkipped
	outcomeSuspended
)
