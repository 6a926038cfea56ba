package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/admin-console/generic"
	"github.com/warp/admin-console/tickets"
)

// =============================================================================
// TICKET STORE (tickets.Store interface)
// =============================================================================

var _ tickets.Store = (*Store)(nil)

const ticketColumns = `id, number, subject, description, status, priority, name, email, reply, created_at, updated_at`

// SaveTicket inserts or updates a ticket.
func (s *Store) SaveTicket(ctx context.Context, t tickets.Ticket) error {
	db, release := s.writer(ctx)
	defer release()

	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			name = excluded.name,
			email = excluded.email,
			reply = excluded.reply,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		t.ID, t.Number, t.Subject, t.Description, t.Status, t.Priority,
		nullString(t.Name), t.Email, nullString(t.Reply),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save ticket: %w", err)
	}
	return nil
}

// TransitionTicket writes t's status and reply while the stored status is
// still from. Returns generic.ErrStatusChanged otherwise.
func (s *Store) TransitionTicket(ctx context.Context, t tickets.Ticket, from generic.Status) error {
	db, release := s.writer(ctx)
	defer release()

	res, err := db.ExecContext(ctx, `
		UPDATE tickets SET status = ?, reply = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, t.Status, nullString(t.Reply), formatTime(t.UpdatedAt), t.ID, from)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}
	return expectOneRow(res)
}

// GetTicket returns nil, nil when the ticket does not exist.
func (s *Store) GetTicket(ctx context.Context, id generic.RecordID) (*tickets.Ticket, error) {
	db, release := s.reader(ctx)
	defer release()

	list, err := queryTickets(ctx, db, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) ListTickets(ctx context.Context) ([]tickets.Ticket, error) {
	db, release := s.reader(ctx)
	defer release()

	return queryTickets(ctx, db, `SELECT `+ticketColumns+` FROM tickets ORDER BY created_at DESC`)
}

func (s *Store) CountTickets(ctx context.Context) (int, error) {
	db, release := s.reader(ctx)
	defer release()

	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tickets").Scan(&n)
	return n, err
}

func queryTickets(ctx context.Context, db dbtx, query string, args ...any) ([]tickets.Ticket, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var out []tickets.Ticket
	for rows.Next() {
		var (
			t                    tickets.Ticket
			name, reply          sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&t.ID, &t.Number, &t.Subject, &t.Description, &t.Status, &t.Priority,
			&name, &t.Email, &reply, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		t.Name = name.String
		t.Reply = reply.String
		t.CreatedAt = parseTime(createdAt)
		t.UpdatedAt = parseTime(updatedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}
