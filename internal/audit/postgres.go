package audit

import (
	"context"
	"database/sql"
	"encoding/json"

	"daftari.app/internal/ids"
)

var _ Sink = (*PostgresSink)(nil)

// PostgresSink appends entries to the audit_logs table.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Append(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	oldData, err := marshalSnapshot(entry.OldData)
	if err != nil {
		return err
	}
	newData, err := marshalSnapshot(entry.NewData)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into audit_logs(id, store_id, user_id, action, entity_type, entity_id, old_data, new_data, ip_address, created_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		entry.ID, entry.StoreID, entry.UserID, entry.Action, entry.EntityType,
		entry.EntityID, oldData, newData, entry.IPAddress, entry.OccurredAt,
	)
	return err
}

func marshalSnapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
