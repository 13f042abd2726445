package session

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

const sessionCols = `id, tenant_id, patient_id, provider_id, status, scheduled_at,
	started_at, completed_at, archived_at, created_at, updated_at`

func scanSession(row pgx.Row) (*LiveSession, error) {
	var s LiveSession
	err := row.Scan(&s.ID, &s.TenantID, &s.PatientID, &s.ProviderID, &s.Status,
		&s.ScheduledAt, &s.StartedAt, &s.CompletedAt, &s.ArchivedAt,
		&s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *LiveSession) error {
	if err := db.RequireTenant(s.TenantID); err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO live_session (id, tenant_id, patient_id, provider_id, status, scheduled_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		s.ID, s.TenantID, s.PatientID, s.ProviderID, s.Status, s.ScheduledAt,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert live session: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*LiveSession, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	s, err := scanSession(r.q.QueryRow(ctx,
		`SELECT `+sessionCols+` FROM live_session WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("get live session: %w", err)
	}
	return s, nil
}

func (r *repoPG) List(ctx context.Context, tenantID string, f ListFilter, limit, offset int) ([]*LiveSession, int, error) {
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
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM live_session WHERE `+pred, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count live sessions: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM live_session WHERE %s ORDER BY scheduled_at DESC, id LIMIT $%d OFFSET $%d`,
		sessionCols, pred, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list live sessions: %w", err)
	}
	defer rows.Close()

	var items []*LiveSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan live session: %w", err)
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Transition(ctx context.Context, tenantID string, id uuid.UUID, from, to Status, at time.Time) (*LiveSession, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	set := "status = $4, updated_at = $5"
	if col := timestampColumn(to); col != "" {
		set += ", " + col + " = $5"
	}
	s, err := scanSession(r.q.QueryRow(ctx, `
		UPDATE live_session SET `+set+`
		WHERE tenant_id = $1 AND id = $2 AND status = $3
		RETURNING `+sessionCols,
		tenantID, id, from, to, at))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, db.ErrConflict
		}
		return nil, fmt.Errorf("transition live session: %w", err)
	}
	return s, nil
}
