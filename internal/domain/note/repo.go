package note

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository reads and writes notes inside one tenant. Every method takes
// the tenant explicitly; lookups return db.ErrNotFound for rows that are
// absent or belong to another tenant, and conditional writes return
// db.ErrConflict when the expected status no longer holds.
type Repository interface {
	Create(ctx context.Context, n *ClinicalNote) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*ClinicalNote, error)
	List(ctx context.Context, tenantID string, f ListFilter, limit, offset int) ([]*ClinicalNote, int, error)
	// UpdateDraft writes the SOAP fields of n only while the stored note is
	// still a draft authored by n.ProviderID.
	UpdateDraft(ctx context.Context, n *ClinicalNote) (*ClinicalNote, error)
	// Transition moves the note from -> to and stamps the target's timestamp.
	Transition(ctx context.Context, tenantID string, id uuid.UUID, from, to Status, at time.Time) (*ClinicalNote, error)
}
