package remediation

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store persists workflow state. The engine ships an in-memory default and a
// Redis-backed implementation; a durable store can be swapped in without
// touching orchestration logic. Get and the list methods return deep copies.
type Store interface {
	Put(ctx context.Context, wf *Workflow) error
	Get(ctx context.Context, id string) (*Workflow, error)
	List(ctx context.Context) ([]*Workflow, error)
	ListByStatus(ctx context.Context, status WorkflowStatus) ([]*Workflow, error)
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: make(map[string]*Workflow),
	}
}

// Put stores a copy of the workflow, replacing any previous version.
func (s *MemoryStore) Put(_ context.Context, wf *Workflow) error {
	if wf == nil || wf.ID == "" {
		return fmt.Errorf("workflow must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[wf.ID] = wf.Clone()
	return nil
}

// Get returns a copy of the workflow with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, exists := s.workflows[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	return wf.Clone(), nil
}

// List returns copies of all workflows ordered by creation time.
func (s *MemoryStore) List(_ context.Context) ([]*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, wf.Clone())
	}
	sortByCreation(out)
	return out, nil
}

// ListByStatus returns copies of all workflows in the given status.
func (s *MemoryStore) ListByStatus(_ context.Context, status WorkflowStatus) ([]*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Workflow
	for _, wf := range s.workflows {
		if wf.Status == status {
			out = append(out, wf.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(wfs []*Workflow) {
	sort.Slice(wfs, func(i, j int) bool {
		if wfs[i].CreatedAt.Equal(wfs[j].CreatedAt) {
			return wfs[i].ID < wfs[j].ID
		}
		return wfs[i].CreatedAt.Before(wfs[j].CreatedAt)
	})
}
