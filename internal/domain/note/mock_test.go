package note

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/audit"
	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/db"
)

// mockRepo mirrors the tenant predicate and the conditional writes of the
// Postgres repository.
type mockRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*ClinicalNote
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*ClinicalNote)}
}

func (m *mockRepo) Create(_ context.Context, n *ClinicalNote) error {
	if err := db.RequireTenant(n.TenantID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, tenantID string, id uuid.UUID) (*ClinicalNote, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok || n.TenantID != tenantID {
		return nil, db.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, tenantID string, f ListFilter, limit, offset int) ([]*ClinicalNote, int, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ClinicalNote
	for _, n := range m.items {
		if n.TenantID != tenantID {
			continue
		}
		if f.PatientID != nil && n.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && n.Status != f.Status {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	if end := offset + limit; end < total {
		out = out[:end]
	}
	return out[offset:], total, nil
}

func (m *mockRepo) UpdateDraft(_ context.Context, n *ClinicalNote) (*ClinicalNote, error) {
	if err := db.RequireTenant(n.TenantID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[n.ID]
	if !ok || cur.TenantID != n.TenantID || cur.ProviderID != n.ProviderID || cur.Status != StatusDraft {
		return nil, db.ErrConflict
	}
	cur.Subjective, cur.Objective, cur.Assessment, cur.Plan = n.Subjective, n.Objective, n.Assessment, n.Plan
	cur.UpdatedAt = time.Now()
	cp := *cur
	return &cp, nil
}

func (m *mockRepo) Transition(_ context.Context, tenantID string, id uuid.UUID, from, to Status, at time.Time) (*ClinicalNote, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[id]
	if !ok || cur.TenantID != tenantID || cur.Status != from {
		return nil, db.ErrConflict
	}
	cur.Status = to
	cur.UpdatedAt = at
	if to == StatusFinalized {
		t := at
		cur.FinalizedAt = &t
	}
	cp := *cur
	return &cp, nil
}

// put stores n as-is, bypassing the service.
func (m *mockRepo) put(n *ClinicalNote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.items[n.ID] = &cp
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *captureRecorder) Record(e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *captureRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}
