// Package audit records security-relevant and state-changing events in an
// append-only, tenant-partitioned log.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Actions written by the record services.
const (
	ActionCreate           = "create"
	ActionUpdate           = "update"
	ActionTransition       = "transition"
	ActionTransitionDenied = "transition_denied"
	ActionAccessDenied     = "access_denied"
)

// Entry is one audit log row. Entries are never updated or deleted.
type Entry struct {
	ID         uuid.UUID         `json:"id"`
	TenantID   string            `json:"tenant_id"`
	ActorID    string            `json:"actor_id"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Filter narrows a history listing. Empty fields are ignored.
type Filter struct {
	EntityType string
	EntityID   string
	ActorID    string
	Action     string
}

// Repository persists entries. It has no update or delete.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]*Entry, int, error)
}

// Recorder is what record services depend on. Record must not block on
// persistence and must never surface an error to the caller.
type Recorder interface {
	Record(e Entry)
}
