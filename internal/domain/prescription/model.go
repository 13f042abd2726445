package prescription

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/statemachine"
)

const EntityType = "prescription"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusIssued    Status = "issued"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Transitions only models issuing. Completion and cancellation happen
// outside this service and are terminal here.
var Transitions = statemachine.New(EntityType,
	[]Status{StatusDraft, StatusIssued, StatusCompleted, StatusCancelled},
	map[Status][]Status{
		StatusDraft: {StatusIssued},
	})

var Permissions = statemachine.Policy[Status]{
	StatusIssued: {auth.RoleProvider},
}

var readRoles = []auth.Role{auth.RoleProvider, auth.RoleAdmin, auth.RoleParent}

type Prescription struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TenantID     string     `db:"tenant_id" json:"-"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID   string     `db:"provider_id" json:"provider_id"`
	Medication   string     `db:"medication" json:"medication"`
	Dosage       string     `db:"dosage" json:"dosage"`
	Duration     string     `db:"duration" json:"duration"`
	Instructions string     `db:"instructions" json:"instructions,omitempty"`
	Status       Status     `db:"status" json:"status"`
	IssuedAt     *time.Time `db:"issued_at" json:"issued_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// MissingFields names the required fields that are blank, in a fixed order.
func (p *Prescription) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(p.Medication) == "" {
		missing = append(missing, "medication")
	}
	if strings.TrimSpace(p.Dosage) == "" {
		missing = append(missing, "dosage")
	}
	if strings.TrimSpace(p.Duration) == "" {
		missing = append(missing, "duration")
	}
	return missing
}

type CreateInput struct {
	PatientID    uuid.UUID `json:"patient_id"`
	Medication   string    `json:"medication"`
	Dosage       string    `json:"dosage"`
	Duration     string    `json:"duration"`
	Instructions string    `json:"instructions"`
}

type ListFilter struct {
	PatientID *uuid.UUID
	Status    Status
}
