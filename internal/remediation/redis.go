package remediation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store. Workflows are stored as JSON values
// with per-status index sets so ListByStatus does not scan the keyspace.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a store on top of an existing Redis client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "privacyguard"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) workflowKey(id string) string {
	return fmt.Sprintf("%s:workflow:%s", s.prefix, id)
}

func (s *RedisStore) indexKey() string {
	return fmt.Sprintf("%s:workflows", s.prefix)
}

func (s *RedisStore) statusKey(status WorkflowStatus) string {
	return fmt.Sprintf("%s:workflows:status:%s", s.prefix, status)
}

var allStatuses = []WorkflowStatus{
	WorkflowPending,
	WorkflowInProgress,
	WorkflowCompleted,
	WorkflowFailed,
	WorkflowCancelled,
	WorkflowRolledBack,
}

// Put stores the workflow and updates the status indexes.
func (s *RedisStore) Put(ctx context.Context, wf *Workflow) error {
	if wf == nil || wf.ID == "" {
		return fmt.Errorf("workflow must have an id")
	}

	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("marshaling workflow: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.workflowKey(wf.ID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), wf.ID)
	for _, status := range allStatuses {
		if status == wf.Status {
			pipe.SAdd(ctx, s.statusKey(status), wf.ID)
		} else {
			pipe.SRem(ctx, s.statusKey(status), wf.ID)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing workflow %s: %w", wf.ID, err)
	}
	return nil
}

// Get fetches and decodes a workflow by id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Workflow, error) {
	data, err := s.client.Get(ctx, s.workflowKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching workflow %s: %w", id, err)
	}

	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("decoding workflow %s: %w", id, err)
	}
	return &wf, nil
}

// List returns all workflows ordered by creation time.
func (s *RedisStore) List(ctx context.Context) ([]*Workflow, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("listing workflows: %w", err)
	}
	return s.fetchAll(ctx, ids)
}

// ListByStatus returns all workflows in the given status.
func (s *RedisStore) ListByStatus(ctx context.Context, status WorkflowStatus) ([]*Workflow, error) {
	ids, err := s.client.SMembers(ctx, s.statusKey(status)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing workflows by status %s: %w", status, err)
	}
	return s.fetchAll(ctx, ids)
}

// Ping verifies Redis connectivity for readiness checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) fetchAll(ctx context.Context, ids []string) ([]*Workflow, error) {
	out := make([]*Workflow, 0, len(ids))
	for _, id := range ids {
		wf, err := s.Get(ctx, id)
		if errors.Is(err, ErrWorkflowNotFound) {
			// Index entry outlived its value; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	sortByCreation(out)
	return out, nil
}
