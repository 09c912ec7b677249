package remediation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shamsejaz/PrivacyGuard-sub012/internal/actions"
	"github.com/Shamsejaz/PrivacyGuard-sub012/internal/observability"
)

// actorSystem attributes audit entries written by the engine itself.
const actorSystem = "system"

// ManagerConfig configures a workflow Manager.
type ManagerConfig struct {
	Store    Store
	Registry *actions.Registry
	Logger   *zap.Logger
	Metrics  *observability.Metrics

	// ApprovalTimeout cancels workflows parked on a PENDING approval for
	// longer than this. Zero disables the policy.
	ApprovalTimeout time.Duration
}

// Manager orchestrates remediation workflows. All mutating operations are
// serialized by a single mutex; workflows handed out by the query surface
// are deep copies.
type Manager struct {
	mu              sync.Mutex
	store           Store
	registry        *actions.Registry
	logger          *zap.Logger
	metrics         *observability.Metrics
	approvalTimeout time.Duration
}

// NewManager creates a workflow manager. Store and Registry are required;
// a nil logger is replaced with a no-op logger.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		store:           store,
		registry:        cfg.Registry,
		logger:          logger,
		metrics:         cfg.Metrics,
		approvalTimeout: cfg.ApprovalTimeout,
	}
}

// CreateWorkflow builds a workflow for the recommendation and stores it as
// PENDING. Unless scheduledFor is in the future, the workflow is started and
// driven synchronously before returning. Handler resolution is not checked
// here; an unresolvable handler fails the VALIDATION step instead.
func (m *Manager) CreateWorkflow(ctx context.Context, rec Recommendation, scheduledFor *time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	approvals := m.requiredApprovals(rec)

	wf := &Workflow{
		ID:             fmt.Sprintf("wf-%s-%d", rec.ID, now.UnixNano()),
		RemediationID:  rec.ID,
		Recommendation: rec,
		Status:         WorkflowPending,
		Steps:          buildSteps(len(approvals) > 0),
		Approvals:      approvals,
		CreatedAt:      now,
		ScheduledFor:   cloneTime(scheduledFor),
	}

	roles := make([]string, len(approvals))
	for i, approval := range approvals {
		roles[i] = approval.ApproverRole
	}
	wf.appendAudit(AuditWorkflowCreated, actorSystem, map[string]any{
		"remediation_id":     rec.ID,
		"finding_id":         rec.FindingID,
		"action":             rec.Action,
		"priority":           string(rec.Priority),
		"steps":              len(wf.Steps),
		"approvals_required": roles,
	}, AuditSuccess)

	m.logger.Info("Workflow created",
		zap.String("workflow_id", wf.ID),
		zap.String("action", rec.Action),
		zap.String("priority", string(rec.Priority)),
		zap.Int("approvals_required", len(approvals)),
	)
	if m.metrics != nil {
		m.metrics.WorkflowsCreated.WithLabelValues(rec.Action, string(rec.Priority)).Inc()
	}

	if scheduledFor == nil || !scheduledFor.After(now) {
		m.start(ctx, wf)
	}

	if err := m.store.Put(ctx, wf); err != nil {
		return "", err
	}
	return wf.ID, nil
}

// StartWorkflow begins execution of a PENDING workflow.
func (m *Manager) StartWorkflow(ctx context.Context, workflowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf, err := m.store.Get(ctx, workflowID)
	if err != nil {
		return err
	}
	if wf.Status != WorkflowPending {
		return fmt.Errorf("%w: workflow %s is %s, not PENDING", ErrInvalidState, workflowID, wf.Status)
	}

	m.start(ctx, wf)
	return m.store.Put(ctx, wf)
}

// ApproveWorkflow marks the PENDING approval for the given role as APPROVED.
// It returns false when no such approval exists, including when the role was
// already decided. Once every approval is APPROVED and the workflow is still
// IN_PROGRESS, execution resumes from the first non-terminal step.
func (m *Manager) ApproveWorkflow(ctx context.Context, workflowID, approverRole, approvedBy, comments string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf, err := m.store.Get(ctx, workflowID)
	if err != nil {
		return false, err
	}

	approval := findPendingApproval(wf, approverRole)
	if approval == nil {
		return false, nil
	}

	now := time.Now()
	approval.Status = ApprovalApproved
	approval.ApprovedBy = approvedBy
	approval.ApprovedAt = &now
	approval.Comments = comments

	wf.appendAudit(AuditApprovalGranted, approvedBy, map[string]any{
		"role":     approverRole,
		"comments": comments,
	}, AuditSuccess)

	m.logger.Info("Approval granted",
		zap.String("workflow_id", workflowID),
		zap.String("role", approverRole),
		zap.String("approved_by", approvedBy),
	)
	if m.metrics != nil {
		m.metrics.ApprovalDecisions.WithLabelValues(approverRole, "approved").Inc()
	}

	if wf.approvalsSatisfied() && wf.Status == WorkflowInProgress {
		m.runSteps(ctx, wf)
	}

	if err := m.store.Put(ctx, wf); err != nil {
		return false, err
	}
	return true, nil
}

// RejectWorkflow marks the PENDING approval for the given role as REJECTED
// and cancels the workflow. A rejected workflow never resumes execution.
func (m *Manager) RejectWorkflow(ctx context.Context, workflowID, approverRole, rejectedBy, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf, err := m.store.Get(ctx, workflowID)
	if err != nil {
		return false, err
	}

	approval := findPendingApproval(wf, approverRole)
	if approval == nil {
		return false, nil
	}

	now := time.Now()
	approval.Status = ApprovalRejected
	approval.ApprovedBy = rejectedBy
	approval.ApprovedAt = &now
	approval.Comments = reason

	wf.Status = WorkflowCancelled
	wf.appendAudit(AuditApprovalRejected, rejectedBy, map[string]any{
		"role":   approverRole,
		"reason": reason,
	}, AuditFailure)

	m.logger.Warn("Approval rejected, workflow cancelled",
		zap.String("workflow_id", workflowID),
		zap.String("role", approverRole),
		zap.String("rejected_by", rejectedBy),
	)
	if m.metrics != nil {
		m.metrics.ApprovalDecisions.WithLabelValues(approverRole, "rejected").Inc()
		m.metrics.WorkflowsFinished.WithLabelValues(string(WorkflowCancelled)).Inc()
	}

	if err := m.store.Put(ctx, wf); err != nil {
		return false, err
	}
	return true, nil
}

// CancelWorkflow cancels a workflow that is not yet COMPLETED or CANCELLED.
// The audit entry is attributed to the calling actor. In-flight steps are
// not interrupted; cancellation is cooperative.
func (m *Manager) CancelWorkflow(ctx context.Context, workflowID, cancelledBy, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf, err := m.store.Get(ctx, workflowID)
	if err != nil {
		return err
	}
	if wf.Status == WorkflowCompleted || wf.Status == WorkflowCancelled {
		return fmt.Errorf("%w: cannot cancel workflow %s in status %s", ErrInvalidState, workflowID, wf.Status)
	}

	wf.Status = WorkflowCancelled
	wf.appendAudit(AuditWorkflowCancelled, cancelledBy, map[string]any{
		"reason": reason,
	}, AuditSuccess)

	m.logger.Info("Workflow cancelled",
		zap.String("workflow_id", workflowID),
		zap.String("cancelled_by", cancelledBy),
		zap.String("reason", reason),
	)
	if m.metrics != nil {
		m.metrics.WorkflowsFinished.WithLabelValues(string(WorkflowCancelled)).Inc()
	}

	return m.store.Put(ctx, wf)
}

// RollbackWorkflow appends a ROLLBACK step to a COMPLETED workflow and
// executes the compensating handler with the captured rollback data. On
// success the workflow moves to ROLLED_BACK and the rollback data is
// cleared. On failure the workflow stays COMPLETED and a failure result is
// returned, so the rollback can be retried.
func (m *Manager) RollbackWorkflow(ctx context.Context, workflowID string) (*RemediationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wf, err := m.store.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status != WorkflowCompleted {
		return nil, fmt.Errorf("%w: cannot roll back workflow %s in status %s", ErrInvalidState, workflowID, wf.Status)
	}
	if len(wf.RollbackData) == 0 {
		return nil, fmt.Errorf("%w: workflow %s", ErrNoRollbackData, workflowID)
	}

	step := &WorkflowStep{
		ID:     "step-" + uuid.NewString(),
		Type:   StepRollback,
		Status: StepPending,
	}
	wf.Steps = append(wf.Steps, step)

	result := &RemediationResult{
		RemediationID: wf.RemediationID,
		ExecutedAt:    time.Now(),
	}

	if _, err := m.runStep(ctx, wf, step); err != nil {
		m.recordStepFailure(wf, step, err)
		result.Success = false
		result.Message = err.Error()
		result.RollbackAvailable = true
		if m.metrics != nil {
			m.metrics.RollbacksExecuted.WithLabelValues("failed").Inc()
		}
		if putErr := m.store.Put(ctx, wf); putErr != nil {
			return nil, putErr
		}
		return result, nil
	}

	wf.Status = WorkflowRolledBack
	wf.RollbackData = nil
	result.Success = true
	result.Message = "remediation rolled back"
	result.RollbackAvailable = false

	m.logger.Info("Workflow rolled back", zap.String("workflow_id", workflowID))
	if m.metrics != nil {
		m.metrics.RollbacksExecuted.WithLabelValues("succeeded").Inc()
	}

	if err := m.store.Put(ctx, wf); err != nil {
		return nil, err
	}
	return result, nil
}

// GetWorkflow returns a deep snapshot of a workflow.
func (m *Manager) GetWorkflow(ctx context.Context, workflowID string) (*Workflow, error) {
	return m.store.Get(ctx, workflowID)
}

// ListWorkflows returns snapshots of all workflows ordered by creation time.
func (m *Manager) ListWorkflows(ctx context.Context) ([]*Workflow, error) {
	return m.store.List(ctx)
}

// ListWorkflowsByStatus returns snapshots of all workflows in a status.
func (m *Manager) ListWorkflowsByStatus(ctx context.Context, status WorkflowStatus) ([]*Workflow, error) {
	return m.store.ListByStatus(ctx, status)
}

// RunScheduler starts a background loop that launches scheduled workflows
// whose time has come and enforces the approval timeout policy. It returns
// immediately; the loop stops when ctx is cancelled.
func (m *Manager) RunScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.startDueWorkflows(ctx)
				if err := m.ExpireStaleApprovals(ctx); err != nil {
					m.logger.Error("Approval timeout sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// ExpireStaleApprovals cancels IN_PROGRESS workflows whose approvals have
// been PENDING longer than the configured timeout. No-op when the timeout
// policy is disabled.
func (m *Manager) ExpireStaleApprovals(ctx context.Context) error {
	if m.approvalTimeout <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	workflows, err := m.store.ListByStatus(ctx, WorkflowInProgress)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-m.approvalTimeout)
	for _, wf := range workflows {
		pending := wf.PendingApprovals()
		if len(pending) == 0 || wf.CreatedAt.After(cutoff) {
			continue
		}

		roles := make([]string, len(pending))
		for i, approval := range pending {
			roles[i] = approval.ApproverRole
		}

		wf.Status = WorkflowCancelled
		wf.appendAudit(AuditApprovalTimeout, actorSystem, map[string]any{
			"timeout":       m.approvalTimeout.String(),
			"pending_roles": roles,
		}, AuditFailure)

		m.logger.Warn("Workflow cancelled, approval window expired",
			zap.String("workflow_id", wf.ID),
			zap.Strings("pending_roles", roles),
		)
		if m.metrics != nil {
			m.metrics.WorkflowsFinished.WithLabelValues(string(WorkflowCancelled)).Inc()
		}

		if err := m.store.Put(ctx, wf); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) startDueWorkflows(ctx context.Context) {
	pending, err := m.store.ListByStatus(ctx, WorkflowPending)
	if err != nil {
		m.logger.Error("Scheduler list failed", zap.Error(err))
		return
	}

	now := time.Now()
	for _, wf := range pending {
		if wf.ScheduledFor == nil || wf.ScheduledFor.After(now) {
			continue
		}
		if err := m.StartWorkflow(ctx, wf.ID); err != nil {
			m.logger.Error("Scheduled workflow start failed",
				zap.String("workflow_id", wf.ID),
				zap.Error(err),
			)
		}
	}
}

// start transitions a workflow to IN_PROGRESS and drives the step loop.
// Caller holds the manager lock and persists the workflow afterwards.
func (m *Manager) start(ctx context.Context, wf *Workflow) {
	now := time.Now()
	wf.Status = WorkflowInProgress
	wf.StartedAt = &now
	wf.appendAudit(AuditWorkflowStarted, actorSystem, nil, AuditSuccess)

	m.runSteps(ctx, wf)
}

// runSteps executes pending steps in order. Steps already in a terminal
// status are skipped, which makes re-entry after an approval idempotent.
// The loop halts on suspension (approvals still pending) or step failure.
func (m *Manager) runSteps(ctx context.Context, wf *Workflow) {
	for _, step := range wf.Steps {
		if step.Status != StepPending {
			continue
		}

		outcome, err := m.runStep(ctx, wf, step)
		if err != nil {
			m.recordStepFailure(wf, step, err)
			wf.Status = WorkflowFailed
			now := time.Now()
			wf.CompletedAt = &now
			if m.metrics != nil {
				m.metrics.WorkflowsFinished.WithLabelValues(string(WorkflowFailed)).Inc()
			}
			return
		}
		if outcome == outcomeSuspended {
			m.logger.Info("Workflow waiting for approvals",
				zap.String("workflow_id", wf.ID),
			)
			return
		}
	}

	m.finalize(wf)
}

// runStep dispatches a single step by type. The StepType set is closed;
// the default branch is unreachable for workflows built by this engine.
func (m *Manager) runStep(ctx context.Context, wf *Workflow, step *WorkflowStep) (stepOutcome, error) {
	now := time.Now()
	step.Status = StepInProgress
	step.StartTime = &now

	var (
		outcome stepOutcome
		err     error
	)
	switch step.Type {
	case StepValidation:
		outcome, err = m.runValidation(wf, step)
	case StepApproval:
		outcome, err = m.runApproval(wf, step)
	case StepExecution:
		outcome, err = m.runExecution(ctx, wf, step)
	case StepVerification:
		outcome, err = m.runVerification(ctx, wf, step)
	case StepRollback:
		outcome, err = m.runRollback(ctx, wf, step)
	default:
		err = fmt.Errorf("unknown step type %q", step.Type)
	}

	if m.metrics != nil && err == nil && outcome != outcomeSuspended {
		m.metrics.StepDuration.WithLabelValues(string(step.Type)).Observe(time.Since(now).Seconds())
		m.metrics.StepsExecuted.WithLabelValues(string(step.Type), string(step.Status)).Inc()
	}
	return outcome, err
}

func (m *Manager) runValidation(wf *Workflow, step *WorkflowStep) (stepOutcome, error) {
	rec := wf.Recommendation

	def, err := m.registry.Resolve(rec.ActionHandlerRef)
	if err != nil {
		return 0, fmt.Errorf("resolving action handler %q: %w", rec.ActionHandlerRef, err)
	}

	vr, err := m.registry.ValidateParameters(rec.ActionHandlerRef, rec.Parameters)
	if err != nil {
		return 0, err
	}
	if !vr.Valid {
		return 0, fmt.Errorf("parameter validation failed for %s: missing %v, invalid %v",
			rec.Action, vr.MissingRequired, vr.InvalidParameters)
	}

	m.completeStep(wf, step, map[string]any{
		"valid":      true,
		"action":     def.Name,
		"risk_level": string(def.RiskLevel),
		"reversible": def.Reversible,
	}, AuditValidationCompleted, nil)
	return outcomeCompleted, nil
}

func (m *Manager) runApproval(wf *Workflow, step *WorkflowStep) (stepOutcome, error) {
	if len(wf.Approvals) == 0 {
		now := time.Now()
		step.Status = StepSkipped
		step.EndTime = &now
		return outcomeSkipped, nil
	}

	for _, approval := range wf.Approvals {
		if approval.Status == ApprovalRejected {
			return 0, fmt.Errorf("approval rejected by %s: %s", approval.ApprovedBy, approval.Comments)
		}
	}

	if pending := wf.PendingApprovals(); len(pending) > 0 {
		// Park the step so the resumed loop picks it up again.
		step.Status = StepPending
		step.StartTime = nil
		return outcomeSuspended, nil
	}

	m.completeStep(wf, step, map[string]any{
		"approvals": len(wf.Approvals),
	}, AuditApprovalsObtained, nil)
	return outcomeCompleted, nil
}

func (m *Manager) runExecution(ctx context.Context, wf *Workflow, step *WorkflowStep) (stepOutcome, error) {
	rec := wf.Recommendation

	def, err := m.registry.Resolve(rec.ActionHandlerRef)
	if err != nil {
		return 0, fmt.Errorf("resolving action handler %q: %w", rec.ActionHandlerRef, err)
	}
	if def.Handler == nil {
		return 0, fmt.Errorf("%w: %s", actions.ErrNoHandler, rec.ActionHandlerRef)
	}

	res, err := def.Handler(ctx, m.invocation(wf))
	if err != nil {
		return 0, fmt.Errorf("action handler %s: %w", rec.ActionHandlerRef, err)
	}
	if !res.Success {
		return 0, fmt.Errorf("action handler %s failed: %s", rec.ActionHandlerRef, res.Message)
	}

	if len(res.RollbackData) > 0 {
		wf.RollbackData = cloneMap(res.RollbackData)
	}

	m.completeStep(wf, step, map[string]any{
		"success":            true,
		"message":            res.Message,
		"rollback_available": len(res.RollbackData) > 0,
	}, AuditRemediationExecuted, map[string]any{
		"action":  rec.Action,
		"message": res.Message,
	})
	return outcomeCompleted, nil
}

func (m *Manager) runVerification(ctx context.Context, wf *Workflow, step *WorkflowStep) (stepOutcome, error) {
	rec := wf.Recommendation

	def, err := m.registry.Resolve(rec.ActionHandlerRef)
	if err != nil {
		return 0, fmt.Errorf("resolving action handler %q: %w", rec.ActionHandlerRef, err)
	}

	result := map[string]any{
		"verified":    true,
		"method":      "recorded",
		"verified_at": time.Now().Format(time.RFC3339),
	}
	if def.VerifyHandler != nil {
		res, err := def.VerifyHandler(ctx, m.invocation(wf))
		if err != nil {
			return 0, fmt.Errorf("verification of %s: %w", rec.Action, err)
		}
		if !res.Success {
			return 0, fmt.Errorf("verification of %s failed: %s", rec.Action, res.Message)
		}
		result["method"] = "handler"
		result["message"] = res.Message
	}

	m.completeStep(wf, step, result, AuditVerificationCompleted, nil)
	return outcomeCompleted, nil
}

func (m *Manager) runRollback(ctx context.Context, wf *Workflow, step *WorkflowStep) (stepOutcome, error) {
	rec := wf.Recommendation

	if len(wf.RollbackData) == 0 {
		return 0, fmt.Errorf("%w: workflow %s", ErrNoRollbackData, wf.ID)
	}

	def, err := m.registry.Resolve(rec.ActionHandlerRef)
	if err != nil {
		return 0, fmt.Errorf("resolving action handler %q: %w", rec.ActionHandlerRef, err)
	}
	if def.RollbackHandler == nil {
		return 0, fmt.Errorf("action %s has no rollback handler", rec.Action)
	}

	inv := m.invocation(wf)
	merged := cloneMap(rec.Parameters)
	if merged == nil {
		merged = make(map[string]any, len(wf.RollbackData))
	}
	for k, v := range wf.RollbackData {
		merged[k] = v
	}
	inv.Parameters = merged

	res, err := def.RollbackHandler(ctx, inv)
	if err != nil {
		return 0, fmt.Errorf("rollback handler %s: %w", rec.ActionHandlerRef, err)
	}
	if !res.Success {
		return 0, fmt.Errorf("rollback handler %s failed: %s", rec.ActionHandlerRef, res.Message)
	}

	m.completeStep(wf, step, map[string]any{
		"success": true,
		"message": res.Message,
	}, AuditRollbackExecuted, map[string]any{
		"action": rec.Action,
	})
	return outcomeCompleted, nil
}

// finalize computes the terminal status once every step has left PENDING.
func (m *Manager) finalize(wf *Workflow) {
	if wf.Status != WorkflowInProgress {
		return
	}

	status := WorkflowCompleted
	for _, step := range wf.Steps {
		if step.Status != StepCompleted && step.Status != StepSkipped {
			status = WorkflowFailed
			break
		}
	}

	now := time.Now()
	wf.Status = status
	wf.CompletedAt = &now

	result := AuditSuccess
	if status != WorkflowCompleted {
		result = AuditFailure
	}
	wf.appendAudit(AuditWorkflowCompleted, actorSystem, map[string]any{
		"status": string(status),
	}, result)

	m.logger.Info("Workflow finished",
		zap.String("workflow_id", wf.ID),
		zap.String("status", string(status)),
	)
	if m.metrics != nil {
		m.metrics.WorkflowsFinished.WithLabelValues(string(status)).Inc()
	}
}

func (m *Manager) completeStep(wf *Workflow, step *WorkflowStep, result map[string]any, auditAction string, auditDetails map[string]any) {
	now := time.Now()
	step.Status = StepCompleted
	step.EndTime = &now
	step.Result = result

	if auditDetails == nil {
		auditDetails = map[string]any{"step": string(step.Type)}
	}
	wf.appendAudit(auditAction, actorSystem, auditDetails, AuditSuccess)
}

// recordStepFailure marks the step FAILED and audits it. The caller decides
// what happens to the workflow status: the execution loop fails the
// workflow, while rollback leaves it COMPLETED so the attempt can retry.
func (m *Manager) recordStepFailure(wf *Workflow, step *WorkflowStep, err error) {
	now := time.Now()
	step.Status = StepFailed
	step.EndTime = &now
	step.Error = err.Error()

	wf.appendAudit(AuditStepFailed, actorSystem, map[string]any{
		"step":  string(step.Type),
		"error": err.Error(),
	}, AuditFailure)

	m.logger.Error("Workflow step failed",
		zap.String("workflow_id", wf.ID),
		zap.String("step", string(step.Type)),
		zap.Error(err),
	)
	if m.metrics != nil {
		m.metrics.StepsExecuted.WithLabelValues(string(step.Type), string(StepFailed)).Inc()
	}
}

func (m *Manager) invocation(wf *Workflow) actions.Invocation {
	return actions.Invocation{
		WorkflowID:    wf.ID,
		RemediationID: wf.RemediationID,
		FindingID:     wf.Recommendation.FindingID,
		Parameters:    cloneMap(wf.Recommendation.Parameters),
	}
}

// requiredApprovals computes the approval slots for a recommendation. Two
// independent rules apply: high-risk or critical-priority remediations need
// a security officer, and policy-altering actions need a compliance officer.
func (m *Manager) requiredApprovals(rec Recommendation) []*WorkflowApproval {
	var approvals []*WorkflowApproval

	var tags []string
	if def, err := m.registry.Resolve(rec.ActionHandlerRef); err == nil && def.RiskLevel == actions.RiskHigh {
		tags = append(tags, "HIGH_RISK_ACTION")
	}
	if rec.Priority == PriorityCritical {
		tags = append(tags, "CRITICAL_PRIORITY")
	}
	if len(tags) > 0 {
		approvals = append(approvals, &WorkflowApproval{
			ID:           "apv-" + uuid.NewString(),
			ApproverRole: RoleSecurityOfficer,
			Status:       ApprovalPending,
			RequiredFor:  tags,
		})
	}

	if m.isPolicyAction(rec) {
		approvals = append(approvals, &WorkflowApproval{
			ID:           "apv-" + uuid.NewString(),
			ApproverRole: RoleComplianceOfficer,
			Status:       ApprovalPending,
			RequiredFor:  []string{"POLICY_CHANGE"},
		})
	}

	return approvals
}

// isPolicyAction reports whether the recommendation alters an access or IAM
// policy. The catalog category decides when the handler resolves; the action
// name is the fallback for handlers registered out of band.
func (m *Manager) isPolicyAction(rec Recommendation) bool {
	if def, err := m.registry.Resolve(rec.ActionHandlerRef); err == nil {
		return def.Category == actions.CategoryPolicy
	}
	return strings.Contains(strings.ToUpper(rec.Action), "POLICY")
}

// buildSteps generates the fixed step sequence. The APPROVAL step exists
// only when at least one approval slot was generated.
func buildSteps(needsApproval bool) []*WorkflowStep {
	types := []StepType{StepValidation}
	if needsApproval {
		types = append(types, StepApproval)
	}
	types = append(types, StepExecution, StepVerification)

	steps := make([]*WorkflowStep, len(types))
	for i, t := range types {
		steps[i] = &WorkflowStep{
			ID:     "step-" + uuid.NewString(),
			Type:   t,
			Status: StepPending,
		}
	}
	return steps
}

func findPendingApproval(wf *Workflow, role string) *WorkflowApproval {
	for _, approval := range wf.Approvals {
		if approval.ApproverRole == role && approval.Status == ApprovalPending {
			return approval
		}
	}
	return nil
}
