package remediation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func storedWorkflow(id string, status WorkflowStatus, createdAt time.Time) *Workflow {
	return &Workflow{
		ID:            id,
		RemediationID: "rec-" + id,
		Status:        status,
		CreatedAt:     createdAt,
		Steps: []*WorkflowStep{
			{ID: "step-1", Type: StepValidation, Status: StepCompleted},
		},
		RollbackData: map[string]any{"previous_state": "open"},
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	wf := storedWorkflow("wf-1", WorkflowPending, time.Now())
	if err := store.Put(ctx, wf); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "wf-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != wf.ID || got.Status != wf.Status {
		t.Errorf("got %s/%s, want %s/%s", got.ID, got.Status, wf.ID, wf.Status)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "wf-missing")
	if !errors.Is(err, ErrWorkflowNotFound) {
		t.Errorf("err = %v, want ErrWorkflowNotFound", err)
	}
}

func TestMemoryStore_PutRejectsEmptyID(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Put(context.Background(), &Workflow{}); err == nil {
		t.Error("Put accepted a workflow without an id")
	}
}

// TestMemoryStore_Isolation verifies the clone-in/clone-out contract: neither
// mutating the stored original nor a retrieved copy affects store state.
func TestMemoryStore_Isolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	wf := storedWorkflow("wf-1", WorkflowPending, time.Now())
	if err := store.Put(ctx, wf); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Mutating the value passed to Put must not leak in.
	wf.Status = WorkflowFailed
	wf.Steps[0].Status = StepFailed
	wf.RollbackData["previous_state"] = "tampered"

	got, _ := store.Get(ctx, "wf-1")
	if got.Status != WorkflowPending {
		t.Error("mutation of put value leaked into store")
	}
	if got.Steps[0].Status != StepCompleted {
		t.Error("mutation of put value's step leaked into store")
	}
	if got.RollbackData["previous_state"] != "open" {
		t.Error("mutation of put value's rollback data leaked into store")
	}

	// Mutating a retrieved copy must not leak back either.
	got.Status = WorkflowCancelled
	again, _ := store.Get(ctx, "wf-1")
	if again.Status != WorkflowPending {
		t.Error("mutation of retrieved copy leaked into store")
	}
}

func TestMemoryStore_ListOrdering(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	for _, wf := range []*Workflow{
		storedWorkflow("wf-c", WorkflowCompleted, base.Add(2*time.Second)),
		storedWorkflow("wf-a", WorkflowPending, base),
		storedWorkflow("wf-b", WorkflowCompleted, base.Add(time.Second)),
	} {
		if err := store.Put(ctx, wf); err != nil {
			t.Fatalf("Put %s: %v", wf.ID, err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	wantOrder := []string{"wf-a", "wf-b", "wf-c"}
	if len(all) != len(wantOrder) {
		t.Fatalf("List returned %d workflows, want %d", len(all), len(wantOrder))
	}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Errorf("List[%d] = %s, want %s", i, all[i].ID, id)
		}
	}

	completed, err := store.ListByStatus(ctx, WorkflowCompleted)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(completed) != 2 || completed[0].ID != "wf-b" || completed[1].ID != "wf-c" {
		t.Errorf("ListByStatus(COMPLETED) = %v, want [wf-b wf-c]", stepIDs(completed))
	}

	none, err := store.ListByStatus(ctx, WorkflowRolledBack)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListByStatus(ROLLED_BACK) = %d workflows, want 0", len(none))
	}
}

func TestMemoryStore_PutReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	wf := storedWorkflow("wf-1", WorkflowPending, time.Now())
	if err := store.Put(ctx, wf); err != nil {
		t.Fatalf("Put: %v", err)
	}

	wf.Status = WorkflowInProgress
	if err := store.Put(ctx, wf); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, _ := store.Get(ctx, "wf-1")
	if got.Status != WorkflowInProgress {
		t.Errorf("status = %s after replace, want IN_PROGRESS", got.Status)
	}

	all, _ := store.List(ctx)
	if len(all) != 1 {
		t.Errorf("List = %d workflows after replace, want 1", len(all))
	}
}
