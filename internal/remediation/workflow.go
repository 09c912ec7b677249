package remediation

import "time"

// Clone returns a deep copy of the workflow. Accessors return clones so the
// Manager remains the single writer of workflow state.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}

	out := *w
	out.Recommendation.Parameters = cloneMap(w.Recommendation.Parameters)
	out.RollbackData = cloneMap(w.RollbackData)
	out.ScheduledFor = cloneTime(w.ScheduledFor)
	out.StartedAt = cloneTime(w.StartedAt)
	out.CompletedAt = cloneTime(w.CompletedAt)

	out.Steps = make([]*WorkflowStep, len(w.Steps))
	for i, step := range w.Steps {
		s := *step
		s.StartTime = cloneTime(step.StartTime)
		s.EndTime = cloneTime(step.EndTime)
		s.Result = cloneMap(step.Result)
		out.Steps[i] = &s
	}

	out.Approvals = make([]*WorkflowApproval, len(w.Approvals))
	for i, approval := range w.Approvals {
		a := *approval
		a.ApprovedAt = cloneTime(approval.ApprovedAt)
		a.RequiredFor = append([]string(nil), approval.RequiredFor...)
		out.Approvals[i] = &a
	}

	out.AuditLog = make([]AuditEntry, len(w.AuditLog))
	for i, entry := range w.AuditLog {
		e := entry
		e.Details = cloneMap(entry.Details)
		out.AuditLog[i] = e
	}

	return &out
}

// Terminal reports whether the workflow can no longer make forward progress.
func (w *Workflow) Terminal() bool {
	switch w.Status {
	case WorkflowCompleted, WorkflowFailed, WorkflowCancelled, WorkflowRolledBack:
		return true
	default:
		return false
	}
}

// PendingApprovals returns the approvals still awaiting a decision.
func (w *Workflow) PendingApprovals() []*WorkflowApproval {
	var pending []*WorkflowApproval
	for _, approval := range w.Approvals {
		if approval.Status == ApprovalPending {
			pending = append(pending, approval)
		}
	}
	return pending
}

// approvalsSatisfied reports whether every approval slot is APPROVED.
func (w *Workflow) approvalsSatisfied() bool {
	for _, approval := range w.Approvals {
		if approval.Status != ApprovalApproved {
			return false
		}
	}
	return true
}

func (w *Workflow) appendAudit(action, actor string, details map[string]any, result AuditResult) {
	w.AuditLog = append(w.AuditLog, AuditEntry{
		Timestamp: time.Now(),
		Action:    action,
		Actor:     actor,
		Details:   details,
		Result:    result,
	})
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
