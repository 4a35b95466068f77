package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/treasury/internal/audit"
)

// RecordAudit appends an audit entry. Inside WithPeriodLock it commits with the mutation.
func (s *Store) RecordAudit(ctx context.Context, e audit.Entry) error {
	oldValues, err := snapshotJSON(e.OldValues)
	if err != nil {
		return err
	}
	newValues, err := snapshotJSON(e.NewValues)
	if err != nil {
		return err
	}
	_, err = s.q(ctx).Exec(ctx, `
		insert into audit_log (id, entity_type, entity_id, action, actor, old_values, new_values, note, destructive, at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, e.ID, e.EntityType, e.EntityID, string(e.Action), e.Actor, oldValues, newValues, e.Note, e.Destructive, e.At)
	return err
}

// AuditTrail returns the entries recorded for an entity, oldest first.
func (s *Store) AuditTrail(ctx context.Context, entityID uuid.UUID) ([]audit.Entry, error) {
	rows, err := s.q(ctx).Query(ctx, `
		select id, entity_type, entity_id, action, actor, old_values, new_values, note, destructive, at
		from audit_log
		where entity_id = $1
		order by at, id
	`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]audit.Entry, 0)
	for rows.Next() {
		var (
			e                  audit.Entry
			oldBytes, newBytes []byte
		)
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.Actor, &oldBytes, &newBytes, &e.Note, &e.Destructive, &e.At); err != nil {
			return nil, err
		}
		if len(oldBytes) > 0 {
			if err := e.OldValues.UnmarshalJSON(oldBytes); err != nil {
				return nil, err
			}
		}
		if len(newBytes) > 0 {
			if err := e.NewValues.UnmarshalJSON(newBytes); err != nil {
				return nil, err
			}
		}
		e.At = e.At.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func snapshotJSON(s audit.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return s.MarshalJSON()
}
