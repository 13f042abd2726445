package note

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

func (s *Service) Create(ctx context.Context, rc auth.RequestContext, in CreateInput) (*ClinicalNote, error) {
	if err := auth.GuardRoute(rc, auth.RoleProvider); err != nil {
		return nil, err
	}
	if in.PatientID == uuid.Nil {
		return nil, apperr.Invalidf("patient_id is required")
	}

	n := &ClinicalNote{
		TenantID:   rc.TenantID(),
		PatientID:  in.PatientID,
		ProviderID: rc.UserID(),
		SessionID:  in.SessionID,
		Subjective: in.Subjective,
		Objective:  in.Objective,
		Assessment: in.Assessment,
		Plan:       in.Plan,
		Status:     StatusDraft,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, storeErr(err)
	}
	audit.Change(s.audit, rc, audit.ActionCreate, EntityType, n.ID.String(), n.PatientID.String())
	return n, nil
}

func (s *Service) Get(ctx context.Context, rc auth.RequestContext, id uuid.UUID) (*ClinicalNote, error) {
	if err := auth.GuardRoute(rc, readRoles...); err != nil {
		return nil, err
	}
	// Parents have no linkage to any patient yet, so nothing is theirs to see.
	if rc.Role() == auth.RoleParent {
		return nil, apperr.NotFoundf(EntityType)
	}
	n, err := s.fetch(ctx, rc, readRoles, id)
	if err != nil {
		audit.LookupDenied(s.audit, rc, "read", EntityType, id.String(), err)
		return nil, err
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, rc auth.RequestContext, f ListFilter, limit, offset int) ([]*ClinicalNote, int, error) {
	if err := auth.GuardRoute(rc, readRoles...); err != nil {
		return nil, 0, err
	}
	if rc.Role() == auth.RoleParent {
		return nil, 0, nil
	}
	if f.Status != "" && !Transitions.Valid(f.Status) {
		return nil, 0, apperr.Invalidf("unknown note status %q", f.Status)
	}
	items, total, err := s.repo.List(ctx, rc.TenantID(), f, limit, offset)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	return items, total, nil
}

// Update edits the SOAP sections of a draft. Only the authoring provider may
// edit, and only until the note is finalized.
func (s *Service) Update(ctx context.Context, rc auth.RequestContext, id uuid.UUID, in UpdateInput) (*ClinicalNote, error) {
	writers := []auth.Role{auth.RoleProvider}
	if err := auth.GuardRoute(rc, writers...); err != nil {
		return nil, err
	}
	n, err := s.fetch(ctx, rc, writers, id)
	if err != nil {
		audit.LookupDenied(s.audit, rc, "update", EntityType, id.String(), err)
		return nil, err
	}
	if n.ProviderID != rc.UserID() {
		return nil, apperr.OwnershipViolationf("only the authoring provider may edit this note")
	}
	if n.Status != StatusDraft {
		return nil, apperr.InvalidStateTransitionf("only draft notes may be edited")
	}

	in.apply(n)
	out, err := s.repo.UpdateDraft(ctx, n)
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return nil, apperr.InvalidStateTransitionf("only draft notes may be edited")
		}
		return nil, storeErr(err)
	}
	audit.Change(s.audit, rc, audit.ActionUpdate, EntityType, out.ID.String(), out.PatientID.String())
	return out, nil
}

// Transition moves a note to target. Authorization denials are audited; the
// audit write never affects the result.
func (s *Service) Transition(ctx context.Context, rc auth.RequestContext, id uuid.UUID, target Status) (*ClinicalNote, error) {
	out, err := s.transition(ctx, rc, id, target)
	if err != nil {
		audit.TransitionDenied(s.audit, rc, EntityType, id.String(), string(target), err)
		return nil, err
	}
	return out, nil
}

func (s *Service) transition(ctx context.Context, rc auth.RequestContext, id uuid.UUID, target Status) (*ClinicalNote, error) {
	if err := Permissions.Authorize(rc, EntityType, target); err != nil {
		return nil, err
	}
	if !Transitions.Valid(target) {
		return nil, apperr.Invalidf("unknown note status %q", target)
	}

	n, err := s.fetch(ctx, rc, Permissions.Roles(), id)
	if err != nil {
		return nil, err
	}
	if rc.Role() == auth.RoleProvider && n.ProviderID != rc.UserID() {
		return nil, apperr.OwnershipViolationf("only the authoring provider may %s this note", target)
	}
	if err := Transitions.Validate(n.Status, target); err != nil {
		return nil, err
	}
	if target == StatusFinalized && !n.HasContent() {
		return nil, apperr.PreconditionFailedf("a note needs content before it can be finalized")
	}

	out, err := s.repo.Transition(ctx, rc.TenantID(), id, n.Status, target, s.now())
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return nil, s.lostRace(ctx, rc, id, n.Status, target)
		}
		return nil, storeErr(err)
	}
	audit.Transition(s.audit, rc, EntityType, id.String(), out.PatientID.String(), string(n.Status), string(out.Status))
	return out, nil
}

// fetch is the tenant-scoped read shared by every by-id operation.
func (s *Service) fetch(ctx context.Context, rc auth.RequestContext, allowed []auth.Role, id uuid.UUID) (*ClinicalNote, error) {
	n, err := s.repo.GetByID(ctx, rc.TenantID(), id)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := auth.GuardRecord(rc, allowed, EntityType, n.TenantID); err != nil {
		return nil, err
	}
	return n, nil
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
	return apperr.Wrap(err, "clinical note store failure")
}
