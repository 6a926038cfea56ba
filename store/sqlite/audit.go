package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warp/admin-console/generic"
)

// =============================================================================
// AUDIT LOG (generic.AuditLog interface)
// =============================================================================

// AuditLog returns the store as a generic.AuditLog. Store.Append already
// belongs to the transaction ledger, so the audit methods live on a view.
func (s *Store) AuditLog() generic.AuditLog {
	return auditView{s}
}

type auditView struct{ s *Store }

// InTx lets a Dispatcher built on the audit view make its mutations atomic.
func (a auditView) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return a.s.InTx(ctx, fn)
}

func (a auditView) Append(ctx context.Context, entry generic.AuditEntry) error {
	return a.s.AppendAudit(ctx, entry)
}

func (a auditView) Query(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	return a.s.QueryAudit(ctx, filter)
}

// AppendAudit adds an audit entry.
func (s *Store) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	db, release := s.writer(ctx)
	defer release()

	var payload sql.NullString
	if len(e.Payload) > 0 {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode audit payload: %w", err)
		}
		payload = nullString(string(data))
	}

	query := `
		INSERT INTO audit_log
		(id, timestamp, actor_id, action, domain, record_id, from_status, to_status, transition, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		e.ID,
		formatTime(e.Timestamp),
		nullString(string(e.ActorID)),
		e.Action,
		e.Domain,
		nullString(string(e.RecordID)),
		nullString(string(e.From)),
		nullString(string(e.To)),
		nullString(string(e.Transition)),
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns matching entries, newest first.
func (s *Store) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	db, release := s.reader(ctx)
	defer release()

	var (
		where []string
		args  []any
	)
	if f.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, string(*f.ActorID))
	}
	if f.Domain != nil {
		where = append(where, "domain = ?")
		args = append(args, string(*f.Domain))
	}
	if f.RecordID != nil {
		where = append(where, "record_id = ?")
		args = append(args, string(*f.RecordID))
	}
	if len(f.Actions) > 0 {
		placeholders := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			placeholders[i] = "?"
			args = append(args, string(a))
		}
		where = append(where, "action IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.From != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, formatTime(*f.To))
	}

	query := `
		SELECT id, timestamp, actor_id, action, domain, record_id, from_status, to_status, transition, payload_json
		FROM audit_log
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var (
			e                                        generic.AuditEntry
			timestamp                                string
			actor, record, from, to, transition, pay sql.NullString
		)
		if err := rows.Scan(&e.ID, &timestamp, &actor, &e.Action, &e.Domain, &record,
			&from, &to, &transition, &pay); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp = parseTime(timestamp)
		e.ActorID = generic.AdminID(actor.String)
		e.RecordID = generic.RecordID(record.String)
		e.From = generic.Status(from.String)
		e.To = generic.Status(to.String)
		e.Transition = generic.Action(transition.String)
		if pay.Valid && pay.String != "" {
			if err := json.Unmarshal([]byte(pay.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
