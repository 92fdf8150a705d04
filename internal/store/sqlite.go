package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/ticket-triage/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// CreateTicket inserts a new ticket and returns its assigned ID. The store
// stamps the submission and update timestamps; status starts unresolved.
func (s *SQLiteStore) CreateTicket(ctx context.Context, draft TicketDraft) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (
			id, name, department, category, severity, details,
			submitted_at, submitted_at_local, status, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		strings.TrimSpace(draft.Name),
		strings.TrimSpace(draft.Department),
		strings.TrimSpace(draft.Category),
		draft.Severity,
		truncate(strings.TrimSpace(draft.Details), model.MaxDetailsLen),
		now, draft.SubmittedAtLocal, model.StatusUnresolved, now,
	)
	if err != nil {
		return "", fmt.Errorf("creating ticket: %w", err)
	}

	return id, nil
}

// GetTickets retrieves the full ticket set ordered by submission time
// descending, matching the subscription ordering of the live view.
func (s *SQLiteStore) GetTickets(ctx context.Context) ([]model.Ticket, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM tickets ORDER BY submitted_at DESC, id",
	)
	if err != nil {
		return nil, fmt.Errorf("querying tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

// GetTicketByID retrieves a single ticket. Returns ErrNotFound when no
// ticket has the given ID.
func (s *SQLiteStore) GetTicketByID(ctx context.Context, id string) (*model.Ticket, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT * FROM tickets WHERE id = ?", id)

	t, err := scanTicketRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting ticket %s: %w", id, err)
	}

	return &t, nil
}

// UpdateTicket merges the non-nil fields of update into the stored ticket
// and stamps updated_at.
func (s *SQLiteStore) UpdateTicket(ctx context.Context, id string, update TicketUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
	}
	if update.AgentName != nil {
		sets = append(sets, "agent_name = ?")
		args = append(args, strings.TrimSpace(*update.AgentName))
	}
	if update.Situation != nil {
		sets = append(sets, "situation = ?")
		args = append(args, strings.TrimSpace(*update.Situation))
	}
	if update.Solution != nil {
		sets = append(sets, "solution = ?")
		args = append(args, strings.TrimSpace(*update.Solution))
	}
	if update.ResolvedAt != nil {
		sets = append(sets, "resolved_at = ?")
		args = append(args, update.ResolvedAt.UTC())
	}

	args = append(args, id)
	query := "UPDATE tickets SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating ticket %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating ticket %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Fingerprint returns a cheap change marker for the ticket set.
func (s *SQLiteStore) Fingerprint(ctx context.Context) (Fingerprint, error) {
	var fp Fingerprint
	row := s.db.QueryRowxContext(ctx,
		"SELECT COUNT(*), COALESCE(MAX(updated_at), '') FROM tickets",
	)
	if err := row.Scan(&fp.Count, &fp.LastUpdated); err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprinting tickets: %w", err)
	}
	return fp, nil
}

// GetPref reads a persisted preference value. Missing keys return an
// empty string, not an error.
func (s *SQLiteStore) GetPref(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM prefs WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading pref %s: %w", key, err)
	}
	return value, nil
}

// SetPref writes a persisted preference value.
func (s *SQLiteStore) SetPref(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing pref %s: %w", key, err)
	}
	return nil
}

// scanTicket scans a ticket row from a sqlx.Rows result set.
func scanTicket(rows *sqlx.Rows) (model.Ticket, error) {
	var (
		t           model.Ticket
		submittedAt time.Time
		resolvedAt  sql.NullTime
		updatedAt   time.Time
	)

	err := rows.Scan(
		&t.ID, &t.Name, &t.Department, &t.Category, &t.Severity, &t.Details,
		&submittedAt, &t.SubmittedAtLocal, &t.Status,
		&t.AgentName, &t.Situation, &t.Solution,
		&resolvedAt, &updatedAt,
	)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("scanning ticket row: %w", err)
	}

	t.SubmittedAt = submittedAt
	t.UpdatedAt = updatedAt
	if resolvedAt.Valid {
		resolved := resolvedAt.Time
		t.ResolvedAt = &resolved
	}

	return t, nil
}

// scanTicketRow scans a single ticket row from a sqlx.Row.
func scanTicketRow(row *sqlx.Row) (model.Ticket, error) {
	var (
		t           model.Ticket
		submittedAt time.Time
		resolvedAt  sql.NullTime
		updatedAt   time.Time
	)

	err := row.Scan(
		&t.ID, &t.Name, &t.Department, &t.Category, &t.Severity, &t.Details,
		&submittedAt, &t.SubmittedAtLocal, &t.Status,
		&t.AgentName, &t.Situation, &t.Solution,
		&resolvedAt, &updatedAt,
	)
	if err != nil {
		return model.Ticket{}, err
	}

	t.SubmittedAt = submittedAt
	t.UpdatedAt = updatedAt
	if resolvedAt.Valid {
		resolved := resolvedAt.Time
		t.ResolvedAt = &resolved
	}

	return t, nil
}

// truncate hard-caps s at max characters. Intake already validates the
// cap; this is the last line of defense before the write.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
