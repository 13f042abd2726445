package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/auth"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/statemachine"
)

const EntityType = "live_session"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Transitions is a strict chain: no skipping, no way back.
var Transitions = statemachine.New(EntityType,
	[]Status{StatusScheduled, StatusWaiting, StatusActive, StatusCompleted, StatusArchived},
	map[Status][]Status{
		StatusScheduled: {StatusWaiting},
		StatusWaiting:   {StatusActive},
		StatusActive:    {StatusCompleted},
		StatusCompleted: {StatusArchived},
	})

// Permissions: providers run the visit, only an admin archives it.
var Permissions = statemachine.Policy[Status]{
	StatusWaiting:   {auth.RoleProvider},
	StatusActive:    {auth.RoleProvider},
	StatusCompleted: {auth.RoleProvider},
	StatusArchived:  {auth.RoleAdmin},
}

var readRoles = []auth.Role{auth.RoleProvider, auth.RoleAdmin, auth.RoleParent}

// LiveSession is a scheduled telehealth visit between a provider and a
// patient.
type LiveSession struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	TenantID    string     `db:"tenant_id" json:"-"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID  string     `db:"provider_id" json:"provider_id"`
	Status      Status     `db:"status" json:"status"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduled_at"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	ArchivedAt  *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// timestampColumn is the column stamped when a session enters s, if any.
func timestampColumn(s Status) string {
	switch s {
	case StatusActive:
		return "started_at"
	case StatusCompleted:
		return "completed_at"
	case StatusArchived:
		return "archived_at"
	}
	return ""
}

type CreateInput struct {
	PatientID   uuid.UUID `json:"patient_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type ListFilter struct {
	PatientID *uuid.UUID
	Status    Status
}
