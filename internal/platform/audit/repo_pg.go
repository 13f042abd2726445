package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/db"
)

type repoPG struct {
	q db.Querier
}

func NewRepoPG(q db.Querier) Repository {
	return &repoPG{q: q}
}

const entryCols = `id, tenant_id, actor_id, action, entity_type, entity_id, recorded_at, metadata`

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	if err := db.RequireTenant(e.TenantID); err != nil {
		return err
	}
	md := e.Metadata
	if md == nil {
		md = map[string]string{}
	}
	meta, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO audit_log (`+entryCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.TenantID, e.ActorID, e.Action, e.EntityType, e.EntityID, e.Timestamp, meta)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, tenantID string, f Filter, limit, offset int) ([]*Entry, int, error) {
	if err := db.RequireTenant(tenantID); err != nil {
		return nil, 0, err
	}
	limit, offset = db.Page(limit, offset)

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("entity_type", f.EntityType)
	add("entity_id", f.EntityID)
	add("actor_id", f.ActorID)
	add("action", f.Action)
	pred := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log WHERE `+pred, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM audit_log WHERE %s ORDER BY recorded_at DESC, id LIMIT $%d OFFSET $%d`,
		entryCols, pred, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &e.Timestamp, &meta); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, 0, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, total, rows.Err()
}
