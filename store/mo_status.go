package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MOStatus is the latest status event recorded for an order.
type MOStatus struct {
	MONumber  string
	Status    string
	SKUName   string
	TargetQty *float64
	UpdatedAt time.Time
}

func (db *DB) UpsertMOStatus(ctx context.Context, s *MOStatus) error {
	var qty any
	if s.TargetQty != nil {
		qty = *s.TargetQty
	}
	_, err := db.ExecContext(ctx, db.Q(`INSERT INTO mo_status (mo_number, status, sku_name, target_qty, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (mo_number) DO UPDATE SET
			status = excluded.status,
			sku_name = excluded.sku_name,
			target_qty = excluded.target_qty,
			updated_at = excluded.updated_at`),
		s.MONumber, s.Status, s.SKUName, qty, formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert mo status %s: %w", s.MONumber, err)
	}
	return nil
}

// ListMOStatusesSince returns statuses updated at or after since, oldest first.
func (db *DB) ListMOStatusesSince(ctx context.Context, since time.Time) ([]*MOStatus, error) {
	rows, err := db.QueryContext(ctx, db.Q(`SELECT mo_number, status, sku_name, target_qty, updated_at
		FROM mo_status WHERE updated_at >= ? ORDER BY updated_at ASC, mo_number ASC`), formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*MOStatus
	for rows.Next() {
		var s MOStatus
		var qty sql.NullFloat64
		var updated string
		if err := rows.Scan(&s.MONumber, &s.Status, &s.SKUName, &qty, &updated); err != nil {
			return nil, err
		}
		if qty.Valid {
			s.TargetQty = &qty.Float64
		}
		s.UpdatedAt = parseTime(updated)
		out = append(out, &s)
	}
	return out, rows.Err()
}
