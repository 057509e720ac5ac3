// Package sqlite persists the event ledger in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/becomeliminal/strata-go-sdk/core"
	"github.com/becomeliminal/strata-go-sdk/ledger"
)

// Timestamps are stored as fixed-width UTC text so that SQLite's
// lexicographic TEXT comparison matches chronological order. Variable
// precision (RFC3339Nano drops trailing zeros) would sort a
// whole-second timestamp after a later fractional one.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements ledger.EventStore on SQLite. Event ids are monotonic
// ULIDs minted at append time, so `ORDER BY created_at, id` reproduces
// insertion order even when timestamps collide.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New opens or creates the ledger database at the given path.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id         TEXT PRIMARY KEY,
		tenant_id  TEXT NOT NULL,
		ucid       TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL,
		payload    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_tenant ON events(tenant_id, ucid, created_at, id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type, tenant_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append writes one event and returns its assigned id.
func (s *Store) Append(ctx context.Context, e *core.Event) (string, error) {
	if !e.Type.Valid() {
		return "", fmt.Errorf("append: unknown event type %q", e.Type)
	}

	payload, err := core.MarshalPayload(e.Payload)
	if err != nil {
		return "", fmt.Errorf("append: %w", err)
	}

	id := s.newID()
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, tenant_id, ucid, event_type, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, e.TenantID, e.ContextID, string(e.Type), string(payload),
		createdAt.UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	return id, nil
}

// Query returns the tenant's events in creation order.
func (s *Store) Query(ctx context.Context, tenantID, contextID string, q ledger.Query) ([]core.Event, error) {
	where := []string{"tenant_id = ?", "ucid = ?"}
	args := []interface{}{tenantID, contextID}

	if q.Type != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(q.Type))
	}

	query := fmt.Sprintf(
		`SELECT id, tenant_id, ucid, event_type, payload, created_at
		 FROM events WHERE %s
		 ORDER BY created_at ASC, id ASC`, strings.Join(where, " AND "))
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []core.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Delete removes events by id inside one transaction.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete event %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// PendingTenants returns distinct (tenant, context) pairs with at least
// one event of the given type.
func (s *Store) PendingTenants(ctx context.Context, t core.EventType) ([]ledger.TenantContext, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT tenant_id, ucid FROM events WHERE event_type = ? ORDER BY tenant_id, ucid`,
		string(t))
	if err != nil {
		return nil, fmt.Errorf("query pending tenants: %w", err)
	}
	defer rows.Close()

	var out []ledger.TenantContext
	for rows.Next() {
		var tc ledger.TenantContext
		if err := rows.Scan(&tc.TenantID, &tc.ContextID); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (core.Event, error) {
	var e core.Event
	var eventType, payload, createdAt string

	if err := row.Scan(&e.ID, &e.TenantID, &e.ContextID, &eventType, &payload, &createdAt); err != nil {
		return e, err
	}

	e.Type = core.EventType(eventType)
	p, err := core.UnmarshalPayload(e.Type, []byte(payload))
	if err != nil {
		return e, fmt.Errorf("event %s: %w", e.ID, err)
	}
	e.Payload = p
	e.CreatedAt, _ = time.Parse(timeLayout, createdAt)

	return e, nil
}

var _ ledger.EventStore = (*Store)(nil)
