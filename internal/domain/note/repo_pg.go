package note

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/db"
)

type repoPG struct {
	q db.Querier
}

func NewRepoPG(q db.Querier) Repository {
	return &repoPG{q: q}
}

const noteCols = `id, tenant_id, patient_id, provider_id, session_id, subjective, objective,
	assessment, plan, status, finalized_at, created_at, updated_at`

func scanNote(row pgx.Row) (*ClinicalNote, error) {
	var n ClinicalNote
	err := row.Scan(&n.ID, &n.TenantID, &n.PatientID, &n.ProviderID, &n.SessionID,
		&n.Subjective, &n.Objective, &n.Assessment, &n.Plan, &n.Status,
		&n.FinalizedAt, &n.CreatedAt, &n.UpdatedAt)
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *ClinicalNote) error {
	if err := db.RequireTenant(n.TenantID); err != nil {
		return err
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO clinical_note (id, tenant_id, patient_id, provider_id, session_id,
			subjective, objective, assessment, plan, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		n.ID, n.TenantID, n.PatientID, n.ProviderID, n.SessionID,
		n.Subjective, n.Objective, n.Assessment, n.Plan, n.Status,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert clinical note: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*ClinicalNote, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	n, err := scanNote(r.q.QueryRow(ctx,
		`SELECT `+noteCols+` FROM clinical_note WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("get clinical note: %w", err)
	}
	return n, nil
}

func (r *repoPG) List(ctx context.Context, tenantID string, f ListFilter, limit, offset int) ([]*ClinicalNote, int, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, 0, err
	}
	limit, offset = db.Page(limit, offset)

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where = append(where, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	pred := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM clinical_note WHERE `+pred, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clinical notes: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM clinical_note WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		noteCols, pred, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clinical notes: %w", err)
	}
	defer rows.Close()

	var items []*ClinicalNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan clinical note: %w", err)
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateDraft(ctx context.Context, n *ClinicalNote) (*ClinicalNote, error) {
	if err := db.RequireTenant(n.TenantID); err != nil {
		return nil, err
	}
	out, err := scanNote(r.q.QueryRow(ctx, `
		UPDATE clinical_note
		SET subjective = $4, objective = $5, assessment = $6, plan = $7, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND provider_id = $3 AND status = 'draft'
		RETURNING `+noteCols,
		n.TenantID, n.ID, n.ProviderID, n.Subjective, n.Objective, n.Assessment, n.Plan))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, db.ErrConflict
		}
		return nil, fmt.Errorf("update clinical note: %w", err)
	}
	return out, nil
}

func (r *repoPG) Transition(ctx context.Context, tenantID string, id uuid.UUID, from, to Status, at time.Time) (*ClinicalNote, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	set := "status = $4, updated_at = $5"
	if to == StatusFinalized {
		set += ", finalized_at = $5"
	}
	out, err := scanNote(r.q.QueryRow(ctx, `
		UPDATE clinical_note SET `+set+`
		WHERE tenant_id = $1 AND id = $2 AND status = $3
		RETURNING `+noteCols,
		tenantID, id, from, to, at))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, db.ErrConflict
		}
		return nil, fmt.Errorf("transition clinical note: %w", err)
	}
	return out, nil
}
