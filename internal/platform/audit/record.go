package audit

import (
	"errors"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
)

// Change records a create or update made by rc.
func Change(rec Recorder, rc auth.RequestContext, action, entityType, entityID, patientID string) {
	rec.Record(Entry{
		TenantID:   rc.TenantID(),
		ActorID:    rc.UserID(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata: map[string]string{
			"patient_id": patientID,
			"request_id": rc.RequestID(),
		},
	})
}

// Transition records a committed status change.
func Transition(rec Recorder, rc auth.RequestContext, entityType, entityID, patientID, from, to string) {
	rec.Record(Entry{
		TenantID:   rc.TenantID(),
		ActorID:    rc.UserID(),
		Action:     ActionTransition,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata: map[string]string{
			"from":       from,
			"to":         to,
			"patient_id": patientID,
			"role":       string(rc.Role()),
			"request_id": rc.RequestID(),
		},
	})
}

// TransitionDenied records a transition refused for an authorization
// reason. Other failures (illegal pair, unmet precondition, store errors)
// are not denials and are ignored. The entry is written under the caller's
// tenant, so an attempt on another tenant's id stays in the caller's own log.
func TransitionDenied(rec Recorder, rc auth.RequestContext, entityType, entityID, target string, err error) {
	kind, ok := denial(rc, err)
	if !ok {
		return
	}
	rec.Record(Entry{
		TenantID:   rc.TenantID(),
		ActorID:    rc.UserID(),
		Action:     ActionTransitionDenied,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata: map[string]string{
			"to":         target,
			"reason":     kind.String(),
			"role":       string(rc.Role()),
			"request_id": rc.RequestID(),
		},
	})
}

// LookupDenied records a by-id read or edit whose record was not found in
// the caller's tenant. Forbidden and ownership refusals on these paths are
// recorded by the HTTP access middleware instead.
func LookupDenied(rec Recorder, rc auth.RequestContext, operation, entityType, entityID string, err error) {
	kind, ok := denial(rc, err)
	if !ok || kind != apperr.NotFound {
		return
	}
	rec.Record(Entry{
		TenantID:   rc.TenantID(),
		ActorID:    rc.UserID(),
		Action:     ActionAccessDenied,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata: map[string]string{
			"operation":  operation,
			"reason":     kind.String(),
			"role":       string(rc.Role()),
			"request_id": rc.RequestID(),
		},
	})
}

func denial(rc auth.RequestContext, err error) (apperr.Kind, bool) {
	var ae *apperr.Error
	if rc.IsZero() || !errors.As(err, &ae) {
		return apperr.Internal, false
	}
	switch ae.Kind {
	case apperr.Forbidden, apperr.OwnershipViolation, apperr.NotFound:
		return ae.Kind, true
	}
	return apperr.Internal, false
}
