package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is tenant-scoped in the same way as the note repository:
// db.ErrNotFound for absent or foreign rows, db.ErrConflict for a
// conditional write whose expected status no longer holds.
type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Prescription, error)
	List(ctx context.Context, tenantID string, f ListFilter, limit, offset int) ([]*Prescription, int, error)
	Transition(ctx context.Context, tenantID string, id uuid.UUID, from, to Status, at time.Time) (*Prescription, error)
}
