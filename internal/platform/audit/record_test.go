package audit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
)

type sliceRecorder struct{ entries []Entry }

func (s *sliceRecorder) Record(e Entry) { s.entries = append(s.entries, e) }

func TestTransition_Metadata(t *testing.T) {
	rec := &sliceRecorder{}
	rc := auth.NewRequestContext("u1", auth.RoleProvider, "clinic_a", "req-1")
	Transition(rec, rc, "clinical_note", "n1", "p1", "draft", "finalized")

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, ActionTransition, e.Action)
	assert.Equal(t, "clinic_a", e.TenantID)
	assert.Equal(t, "u1", e.ActorID)
	assert.Equal(t, map[string]string{
		"from": "draft", "to": "finalized", "patient_id": "p1", "role": "provider", "request_id": "req-1",
	}, e.Metadata)
}

func TestTransitionDenied_OnlyAuthorizationOutcomes(t *testing.T) {
	rc := auth.NewRequestContext("u1", auth.RoleProvider, "clinic_a", "req-1")
	cases := []struct {
		err  error
		want bool
	}{
		{apperr.Forbiddenf("x"), true},
		{apperr.OwnershipViolationf("x"), true},
		{apperr.NotFoundf("clinical_note"), true},
		{apperr.InvalidTransition("clinical_note", "finalized", "finalized"), false},
		{apperr.PreconditionFailedf("empty"), false},
		{errors.New("boom"), false},
	}
	for _, tc := range cases {
		rec := &sliceRecorder{}
		TransitionDenied(rec, rc, "clinical_note", "n1", "finalized", tc.err)
		assert.Equal(t, tc.want, len(rec.entries) == 1, "%v", tc.err)
	}

	rec := &sliceRecorder{}
	TransitionDenied(rec, auth.RequestContext{}, "clinical_note", "n1", "finalized", apperr.Forbiddenf("x"))
	assert.Empty(t, rec.entries)
}

func TestTransitionDenied_Reason(t *testing.T) {
	rec := &sliceRecorder{}
	rc := auth.NewRequestContext("u2", auth.RoleProvider, "clinic_b", "req-2")
	TransitionDenied(rec, rc, "clinical_note", "n1", "finalized", apperr.NotFoundf("clinical_note"))

	require.Len(t, rec.entries, 1)
	assert.Equal(t, ActionTransitionDenied, rec.entries[0].Action)
	assert.Equal(t, "clinic_b", rec.entries[0].TenantID)
	assert.Equal(t, "not_found", rec.entries[0].Metadata["reason"])
}

func TestLookupDenied_OnlyNotFound(t *testing.T) {
	rc := auth.NewRequestContext("u2", auth.RoleProvider, "clinic_b", "req-3")
	cases := []struct {
		err  error
		want bool
	}{
		{apperr.NotFoundf("clinical_note"), true},
		{apperr.Forbiddenf("x"), false},
		{apperr.OwnershipViolationf("x"), false},
		{errors.New("boom"), false},
	}
	for _, tc := range cases {
		rec := &sliceRecorder{}
		LookupDenied(rec, rc, "read", "clinical_note", "n1", tc.err)
		assert.Equal(t, tc.want, len(rec.entries) == 1, "%v", tc.err)
	}

	rec := &sliceRecorder{}
	LookupDenied(rec, rc, "update", "clinical_note", "n1", apperr.NotFoundf("clinical_note"))
	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, ActionAccessDenied, e.Action)
	assert.Equal(t, "clinic_b", e.TenantID)
	assert.Equal(t, map[string]string{
		"operation": "update", "reason": "not_found", "role": "provider", "request_id": "req-3",
	}, e.Metadata)
}
