package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/audit"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/db"
)

type Service struct {
	repo  Repository
	audit audit.Recorder
	now   func() time.Time
}

func NewService(repo Repository, rec audit.Recorder) *Service {
	return &Service{
		repo:  repo,
		audit: rec,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, rc auth.RequestContext, in CreateInput) (*LiveSession, error) {
	if err := auth.GuardRoute(rc, auth.RoleProvider); err != nil {
		return nil, err
	}
	if in.PatientID == uuid.Nil {
		return nil, apperr.Invalidf("patient_id is required")
	}
	if in.ScheduledAt.IsZero() {
		return nil, apperr.Invalidf("scheduled_at is required")
	}

	ls := &LiveSession{
		TenantID:    rc.TenantID(),
		PatientID:   in.PatientID,
		ProviderID:  rc.UserID(),
		Status:      StatusScheduled,
		ScheduledAt: in.ScheduledAt.UTC(),
	}
	if err := s.repo.Create(ctx, ls); err != nil {
		return nil, storeErr(err)
	}
	audit.Change(s.audit, rc, audit.ActionCreate, EntityType, ls.ID.String(), ls.PatientID.String())
	return ls, nil
}

func (s *Service) Get(ctx context.Context, rc auth.RequestContext, id uuid.UUID) (*LiveSession, error) {
	if err := auth.GuardRoute(rc, readRoles...); err != nil {
		return nil, err
	}
	if rc.Role() == auth.RoleParent {
		return nil, apperr.NotFoundf(EntityType)
	}
	ls, err := s.fetch(ctx, rc, readRoles, id)
	if err != nil {
		audit.LookupDenied(s.audit, rc, "read", EntityType, id.String(), err)
		return nil, err
	}
	return ls, nil
}

func (s *Service) List(ctx context.Context, rc auth.RequestContext, f ListFilter, limit, offset int) ([]*LiveSession, int, error) {
	if err := auth.GuardRoute(rc, readRoles...); err != nil {
		return nil, 0, err
	}
	if rc.Role() == auth.RoleParent {
		return nil, 0, nil
	}
	if f.Status != "" && !Transitions.Valid(f.Status) {
		return nil, 0, apperr.Invalidf("unknown session status %q", f.Status)
	}
	items, total, err := s.repo.List(ctx, rc.TenantID(), f, limit, offset)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	return items, total, nil
}

// Transition advances a session one step along its chain. Providers drive
// the visit itself and must own the session; archival is an admin action
// and is checked by role only.
func (s *Service) Transition(ctx context.Context, rc auth.RequestContext, id uuid.UUID, target Status) (*LiveSession, error) {
	out, err := s.transition(ctx, rc, id, target)
	if err != nil {
		audit.TransitionDenied(s.audit, rc, EntityType, id.String(), string(target), err)
		return nil, err
	}
	return out, nil
}

func (s *Service) transition(ctx context.Context, rc auth.RequestContext, id uuid.UUID, target Status) (*LiveSession, error) {
	if err := Permissions.Authorize(rc, EntityType, target); err != nil {
		return nil, err
	}
	if !Transitions.Valid(target) {
		return nil, apperr.Invalidf("unknown session status %q", target)
	}

	ls, err := s.fetch(ctx, rc, Permissions.Roles(), id)
	if err != nil {
		return nil, err
	}
	if rc.Role() == auth.RoleProvider && ls.ProviderID != rc.UserID() {
		return nil, apperr.OwnershipViolationf("only the session's provider may move it to %s", target)
	}
	if err := Transitions.Validate(ls.Status, target); err != nil {
		return nil, err
	}

	out, err := s.repo.Transition(ctx, rc.TenantID(), id, ls.Status, target, s.now())
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return nil, s.lostRace(ctx, rc, id, ls.Status, target)
		}
		return nil, storeErr(err)
	}
	audit.Transition(s.audit, rc, EntityType, id.String(), out.PatientID.String(), string(ls.Status), string(out.Status))
	return out, nil
}

func (s *Service) fetch(ctx context.Context, rc auth.RequestContext, allowed []auth.Role, id uuid.UUID) (*LiveSession, error) {
	ls, err := s.repo.GetByID(ctx, rc.TenantID(), id)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := auth.GuardRecord(rc, allowed, EntityType, ls.TenantID); err != nil {
		return nil, err
	}
	return ls, nil
}

// lostRace reports a conditional write that matched nothing, naming the
// status a concurrent writer left behind.
func (s *Service) lostRace(ctx context.Context, rc auth.RequestContext, id uuid.UUID, from, target Status) error {
	if cur, err := s.repo.GetByID(ctx, rc.TenantID(), id); err == nil {
		from = cur.Status
	}
	return apperr.InvalidTransition(EntityType, string(from), string(target))
}

func storeErr(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFoundf(EntityType)
	}
	return apperr.Wrap(err, "live session store failure")
}
