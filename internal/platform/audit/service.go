package audit

import (
	"context"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
)

// Service exposes the audit history as a tenant-scoped, admin-only read.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) History(ctx context.Context, rc auth.RequestContext, f Filter, limit, offset int) ([]*Entry, int, error) {
	if err := auth.GuardRoute(rc, auth.RoleAdmin); err != nil {
		return nil, 0, err
	}
	entries, total, err := s.repo.List(ctx, rc.TenantID(), f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(err, "list audit history")
	}
	return entries, total, nil
}
