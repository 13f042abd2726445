package prescription

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

const rxCols = `id, tenant_id, patient_id, provider_id, medication, dosage, duration,
	instructions, status, issued_at, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.TenantID, &p.PatientID, &p.ProviderID, &p.Medication,
		&p.Dosage, &p.Duration, &p.Instructions, &p.Status, &p.IssuedAt,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	if err := db.RequireTenant(p.TenantID); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO prescription (id, tenant_id, patient_id, provider_id, medication,
			dosage, duration, instructions, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.TenantID, p.PatientID, p.ProviderID, p.Medication,
		p.Dosage, p.Duration, p.Instructions, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Prescription, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	p, err := scanPrescription(r.q.QueryRow(ctx,
		`SELECT `+rxCols+` FROM prescription WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("get prescription: %w", err)
	}
	return p, nil
}

func (r *repoPG) List(ctx context.Context, tenantID string, f ListFilter, limit, offset int) ([]*Prescription, int, error) {
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
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM prescription WHERE `+pred, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count prescriptions: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM prescription WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		rxCols, pred, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list prescriptions: %w", err)
	}
	defer rows.Close()

	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan prescription: %w", err)
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Transition(ctx context.Context, tenantID string, id uuid.UUID, from, to Status, at time.Time) (*Prescription, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	set := "status = $4, updated_at = $5"
	if to == StatusIssued {
		set += ", issued_at = $5"
	}
	p, err := scanPrescription(r.q.QueryRow(ctx, `
		UPDATE prescription SET `+set+`
		WHERE tenant_id = $1 AND id = $2 AND status = $3
		RETURNING `+rxCols,
		tenantID, id, from, to, at))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, db.ErrConflict
		}
		return nil, fmt.Errorf("transition prescription: %w", err)
	}
	return p, nil
}
