package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *LiveSession) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*LiveSession, error)
	List(ctx context.Context, tenantID string, f ListFilter, limit, offset int) ([]*LiveSession, int, error)
	Transition(ctx context.Context, tenantID string, id uuid.UUID, from, to Status, at time.Time) (*LiveSession, error)
}
