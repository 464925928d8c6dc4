package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for the audit log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// BatchInsert writes a slice of events to the database in a single multi-row
// INSERT statement. It is a no-op when events is empty.
func (s *Store) BatchInsert(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	const cols = 7 // number of columns per row (excluding server-generated id)
	args := make([]any, 0, len(events)*cols)
	rows := make([]string, 0, len(events))

	for i, e := range events {
		base := i * cols
		rows = append(rows, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args,
			e.UserID,
			nullIfEmpty(e.CompanyID),
			e.Action,
			e.Resource,
			e.Outcome,
			e.Reason,
			e.OccurredAt,
		)
	}

	query := `INSERT INTO audit_events
		(user_id, company_id, action, resource, outcome, reason, occurred_at)
		VALUES ` + strings.Join(rows, ", ")

	_, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("batch inserting audit events: %w", err)
	}

	return nil
}

// ListRecent returns the most recent events, newest first, capped at limit.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, COALESCE(company_id, ''), action, resource, outcome, reason, occurred_at
		 FROM audit_events ORDER BY occurred_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e := &Event{}
		var occurredAt time.Time
		if err := rows.Scan(&e.ID, &e.UserID, &e.CompanyID, &e.Action, &e.Resource, &e.Outcome, &e.Reason, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning audit event row: %w", err)
		}
		e.OccurredAt = occurredAt
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit event rows: %w", err)
	}
	return events, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
