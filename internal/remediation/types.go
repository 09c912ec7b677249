// Package remediation provides the remediation workflow orchestration engine.
//
// A RemediationRecommendation produced by the detection pipeline is turned
// into a supervised, auditable, reversible sequence of steps: validation,
// optional human approval, execution via a pluggable action handler, and
// verification. Compensating rollback is supported for actions that capture
// rollback data at execution time.
package remediation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Priority of a remediation recommendation.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// WorkflowStatus is the lifecycle status of a workflow.
type WorkflowStatus string

const (
	WorkflowPending    WorkflowStatus = "PENDING"
	WorkflowInProgress WorkflowStatus = "IN_PROGRESS"
	WorkflowCompleted  WorkflowStatus = "COMPLETED"
	WorkflowFailed     WorkflowStatus = "FAILED"
	WorkflowCancelled  WorkflowStatus = "CANCELLED"
	WorkflowRolledBack WorkflowStatus = "ROLLED_BACK"
)

// StepType identifies the kind of work a workflow step performs. The set is
// closed; the execution loop switches exhaustively over it.
type StepType string

const (
	StepValidation   StepType = "VALIDATION"
	StepApproval     StepType = "APPROVAL"
	StepExecution    StepType = "EXECUTION"
	StepVerification StepType = "VERIFICATION"
	StepRollback     StepType = "ROLLBACK"
)

// StepStatus is the lifecycle status of a single step.
type StepStatus string

const (
	StepPending    StepStatus = "PENDING"
	StepInProgress StepStatus = "IN_PROGRESS"
	StepCompleted  StepStatus = "COMPLETED"
	StepFailed     StepStatus = "FAILED"
	StepSkipped    StepStatus = "SKIPPED"
)

// ApprovalStatus is the state of a single approval slot.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Approver roles generated by the approval requirement rules.
const (
	RoleSecurityOfficer   = "SECURITY_OFFICER"
	RoleComplianceOfficer = "COMPLIANCE_OFFICER"
)

// AuditResult marks the outcome recorded on an audit entry.
type AuditResult string

const (
	AuditSuccess AuditResult = "SUCCESS"
	AuditFailure AuditResult = "FAILURE"
)

// Audit event names appended by the engine.
const (
	AuditWorkflowCreated       = "WORKFLOW_CREATED"
	AuditWorkflowStarted       = "WORKFLOW_STARTED"
	AuditWorkflowCompleted     = "WORKFLOW_COMPLETED"
	AuditWorkflowCancelled     = "WORKFLOW_CANCELLED"
	AuditValidationCompleted   = "VALIDATION_COMPLETED"
	AuditApprovalsObtained     = "APPROVALS_OBTAINED"
	AuditApprovalGranted       = "APPROVAL_GRANTED"
	AuditApprovalRejected      = "APPROVAL_REJECTED"
	AuditApprovalTimeout       = "APPROVAL_TIMEOUT"
	AuditRemediationExecuted   = "REMEDIATION_EXECUTED"
	AuditVerificationCompleted = "VERIFICATION_COMPLETED"
	AuditRollbackExecuted      = "ROLLBACK_EXECUTED"
	AuditStepFailed            = "STEP_FAILED"
)

// Recommendation is an upstream-produced description of a single remediation
// action to take against a specific finding. The engine never mutates it.
type Recommendation struct {
	ID               string         `json:"id"`
	FindingID        string         `json:"finding_id"`
	Action           string         `json:"action"`
	Priority         Priority       `json:"priority"`
	Automatable      bool           `json:"automatable"`
	ActionHandlerRef string         `json:"action_handler_ref"`
	Parameters       map[string]any `json:"parameters"`
	EstimatedImpact  string         `json:"estimated_impact"`
}

// DeduplicationKey generates a stable key for detecting repeated
// recommendations against the same finding.
func (r *Recommendation) DeduplicationKey() string {
	components := []string{
		r.FindingID,
		r.Action,
		r.ActionHandlerRef,
	}
	data := strings.Join(components, "|")
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// WorkflowStep is the unit of sequencing within a workflow.
type WorkflowStep struct {
	ID        string         `json:"id"`
	Type      StepType       `json:"type"`
	Status    StepStatus     `json:"status"`
	StartTime *time.Time     `json:"start_time,omitempty"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// WorkflowApproval is a named sign-off slot attached to a workflow.
type WorkflowApproval struct {
	ID           string         `json:"id"`
	ApproverRole string         `json:"approver_role"`
	Status       ApprovalStatus `json:"status"`
	ApprovedBy   string         `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time     `json:"approved_at,omitempty"`
	Comments     string         `json:"comments,omitempty"`
	RequiredFor  []string       `json:"required_for"`
}

// AuditEntry is one append-only record of a state transition and its outcome.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	Details   map[string]any `json:"details,omitempty"`
	Result    AuditResult    `json:"result,omitempty"`
}

// Workflow is the stateful, auditable execution of one recommendation.
// The Manager exclusively owns its mutable fields; accessors hand out
// deep copies only.
type Workflow struct {
	ID             string              `json:"id"`
	RemediationID  string              `json:"remediation_id"`
	Recommendation Recommendation      `json:"recommendation"`
	Status         WorkflowStatus      `json:"status"`
	Steps          []*WorkflowStep     `json:"steps"`
	Approvals      []*WorkflowApproval `json:"approvals"`
	RollbackData   map[string]any      `json:"rollback_data,omitempty"`
	AuditLog       []AuditEntry        `json:"audit_log"`
	CreatedAt      time.Time           `json:"created_at"`
	ScheduledFor   *time.Time          `json:"scheduled_for,omitempty"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}

// RemediationResult is the outcome shape surfaced for "did this run" queries
// and returned by rollback operations.
type RemediationResult struct {
	RemediationID     string    `json:"remediation_id"`
	Success           bool      `json:"success"`
	Message           string    `json:"message"`
	ExecutedAt        time.Time `json:"executed_at"`
	RollbackAvailable bool      `json:"rollback_available"`
}
