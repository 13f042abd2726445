package prescription

import (
	"context"
	"errors"
	"strings"
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

// Create stores a draft. Incomplete drafts are accepted; completeness is
// only enforced when issuing.
func (s *Service) Create(ctx context.Context, rc auth.RequestContext, in CreateInput) (*Prescription, error) {
	if err := auth.GuardRoute(rc, auth.RoleProvider); err != nil {
		return nil, err
	}
	if in.PatientID == uuid.Nil {
		return nil, apperr.Invalidf("patient_id is required")
	}

	p := &Prescription{
		TenantID:     rc.TenantID(),
		PatientID:    in.PatientID,
		ProviderID:   rc.UserID(),
		Medication:   in.Medication,
		Dosage:       in.Dosage,
		Duration:     in.Duration,
		Instructions: in.Instructions,
		Status:       StatusDraft,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, storeErr(err)
	}
	audit.Change(s.audit, rc, audit.ActionCreate, EntityType, p.ID.String(), p.PatientID.String())
	return p, nil
}

func (s *Service) Get(ctx context.Context, rc auth.RequestContext, id uuid.UUID) (*Prescription, error) {
	if err := auth.GuardRoute(rc, readRoles...); err != nil {
		return nil, err
	}
	if rc.Role() == auth.RoleParent {
		return nil, apperr.NotFoundf(EntityType)
	}
	p, err := s.fetch(ctx, rc, readRoles, id)
	if err != nil {
		audit.LookupDenied(s.audit, rc, "read", EntityType, id.String(), err)
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, rc auth.RequestContext, f ListFilter, limit, offset int) ([]*Prescription, int, error) {
	if err := auth.GuardRoute(rc, readRoles...); err != nil {
		return nil, 0, err
	}
	if rc.Role() == auth.RoleParent {
		return nil, 0, nil
	}
	if f.Status != "" && !Transitions.Valid(f.Status) {
		return nil, 0, apperr.Invalidf("unknown prescription status %q", f.Status)
	}
	items, total, err := s.repo.List(ctx, rc.TenantID(), f, limit, offset)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	return items, total, nil
}

func (s *Service) Transition(ctx context.Context, rc auth.RequestContext, id uuid.UUID, target Status) (*Prescription, error) {
	out, err := s.transition(ctx, rc, id, target)
	if err != nil {
		audit.TransitionDenied(s.audit, rc, EntityType, id.String(), string(target), err)
		return nil, err
	}
	return out, nil
}

func (s *Service) transition(ctx context.Context, rc auth.RequestContext, id uuid.UUID, target Status) (*Prescription, error) {
	if err := Permissions.Authorize(rc, EntityType, target); err != nil {
		return nil, err
	}
	if !Transitions.Valid(target) {
		return nil, apperr.Invalidf("unknown prescription status %q", target)
	}

	p, err := s.fetch(ctx, rc, Permissions.Roles(), id)
	if err != nil {
		return nil, err
	}
	if rc.Role() == auth.RoleProvider && p.ProviderID != rc.UserID() {
		return nil, apperr.OwnershipViolationf("only the prescribing provider may %s this prescription", target)
	}
	if err := Transitions.Validate(p.Status, target); err != nil {
		return nil, err
	}
	if target == StatusIssued {
		if missing := p.MissingFields(); len(missing) > 0 {
			return nil, apperr.PreconditionFailedf("cannot issue prescription without %s", strings.Join(missing, ", "))
		}
	}

	out, err := s.repo.Transition(ctx, rc.TenantID(), id, p.Status, target, s.now())
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return nil, s.lostRace(ctx, rc, id, p.Status, target)
		}
		return nil, storeErr(err)
	}
	audit.Transition(s.audit, rc, EntityType, id.String(), out.PatientID.String(), string(p.Status), string(out.Status))
	return out, nil
}

func (s *Service) fetch(ctx context.Context, rc auth.RequestContext, allowed []auth.Role, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, rc.TenantID(), id)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := auth.GuardRecord(rc, allowed, EntityType, p.TenantID); err != nil {
		return nil, err
	}
	return p, nil
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
	return apperr.Wrap(err, "prescription store failure")
}
