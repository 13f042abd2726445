package note

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/statemachine"
)

const EntityType = "clinical_note"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusFinalized Status = "finalized"
	StatusArchived  Status = "archived"
)

// Transitions is the complete clinical note lifecycle. A note is finalized
// once and never changes again.
var Transitions = statemachine.New(EntityType,
	[]Status{StatusDraft, StatusFinalized, StatusArchived},
	map[Status][]Status{
		StatusDraft: {StatusFinalized},
	})

// Permissions lists who may request each target. Finalizing is a clinical
// act reserved to providers.
var Permissions = statemachine.Policy[Status]{
	StatusFinalized: {auth.RoleProvider},
}

var readRoles = []auth.Role{auth.RoleProvider, auth.RoleAdmin, auth.RoleParent}

// ClinicalNote is a SOAP note written by a provider during or after a visit.
type ClinicalNote struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	TenantID    string     `db:"tenant_id" json:"-"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID  string     `db:"provider_id" json:"provider_id"`
	SessionID   *uuid.UUID `db:"session_id" json:"session_id,omitempty"`
	Subjective  string     `db:"subjective" json:"subjective"`
	Objective   string     `db:"objective" json:"objective"`
	Assessment  string     `db:"assessment" json:"assessment"`
	Plan        string     `db:"plan" json:"plan"`
	Status      Status     `db:"status" json:"status"`
	FinalizedAt *time.Time `db:"finalized_at" json:"finalized_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// HasContent reports whether any SOAP section holds non-blank text.
func (n *ClinicalNote) HasContent() bool {
	for _, s := range []string{n.Subjective, n.Objective, n.Assessment, n.Plan} {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

type CreateInput struct {
	PatientID  uuid.UUID  `json:"patient_id"`
	SessionID  *uuid.UUID `json:"session_id,omitempty"`
	Subjective string     `json:"subjective"`
	Objective  string     `json:"objective"`
	Assessment string     `json:"assessment"`
	Plan       string     `json:"plan"`
}

// UpdateInput carries a partial edit. Nil fields are left unchanged.
type UpdateInput struct {
	Subjective *string `json:"subjective,omitempty"`
	Objective  *string `json:"objective,omitempty"`
	Assessment *string `json:"assessment,omitempty"`
	Plan       *string `json:"plan,omitempty"`
}

func (in UpdateInput) apply(n *ClinicalNote) {
	if in.Subjective != nil {
		n.Subjective = *in.Subjective
	}
	if in.Objective != nil {
		n.Objective = *in.Objective
	}
	if in.Assessment != nil {
		n.Assessment = *in.Assessment
	}
	if in.Plan != nil {
		n.Plan = *in.Plan
	}
}

type ListFilter struct {
	PatientID *uuid.UUID
	Status    Status
}
