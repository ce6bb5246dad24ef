package pg

import (
	"context"
	"database/sql"

	"finrep.org/internal/audit"
)

var _ audit.Store = (*Store)(nil)

// Append inserts one immutable audit row using the store's own connection.
// Rows written as part of a workflow transaction go through appendAuditTx.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	return appendAudit(ctx, s.db, entry)
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendAudit(ctx context.Context, db execer, entry *audit.Entry) error {
	_, err := db.ExecContext(ctx, `
		insert into audit_log(id, occurred_at, actor_user_id, actor_email, action, entity_type, entity_id, details, client_ip)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.OccurredAt, nullIfEmpty(entry.ActorID), entry.ActorEmail,
		entry.Action, entry.EntityType, entry.EntityID, entry.Details, nullIfEmpty(entry.ClientIP))
	return err
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, occurred_at, actor_user_id, actor_email, action, entity_type, entity_id, details, client_ip
		from audit_log
		order by occurred_at desc, id desc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e        audit.Entry
			actorID  sql.NullString
			clientIP sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OccurredAt, &actorID, &e.ActorEmail, &e.Action,
			&e.EntityType, &e.EntityID, &e.Details, &clientIP); err != nil {
			return nil, err
		}
		e.ActorID = fromNull(actorID)
		e.ClientIP = fromNull(clientIP)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of audit rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `select count(*) from audit_log`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
