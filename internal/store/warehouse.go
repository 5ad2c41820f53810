// Package store persists counties and warnings in SQLite.
//
// The warehouse is the only writer of warning rows; it implements the
// reconciliation semantics of the sync pipeline: match by the stable feed
// identifier first, fall back to the (title, start) pair, insert otherwise.
// Each upsert runs in a single immediate transaction, so concurrent sync
// runs racing on the same key serialize instead of duplicating rows.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/imgw-warning-proxy/internal/domain"
)

// ErrNotFound is returned when a warning id does not exist.
var ErrNotFound = errors.New("not found")

// timeFormat is the column encoding for timestamps. RFC 3339 in UTC keeps
// lexicographic string comparison equal to chronological order, which the
// active-window SQL relies on.
const timeFormat = time.RFC3339

// Warehouse is a SQLite-backed store for regions and warnings.
// Use ":memory:" as the path for tests.
type Warehouse struct {
	db *sql.DB
	mu sync.Mutex // serializes writes; SQLite allows one writer at a time
}

// Open creates the warehouse, running schema migration on first use.
func Open(dbPath string) (*Warehouse, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps the in-memory database coherent and avoids
	// SQLITE_BUSY between the sync writer and query readers.
	db.SetMaxOpenConns(1)

	w := &Warehouse{db: db}
	if err := w.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return w, nil
}

// Close closes the underlying database.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

func (w *Warehouse) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS regions (
		teryt TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		boundary TEXT NOT NULL, -- GeoJSON MultiPolygon, EPSG:2180 coordinates
		imported_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS warnings (
		id TEXT PRIMARY KEY,
		imgw_id TEXT UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		level TEXT,
		probability INTEGER NOT NULL DEFAULT 0,
		start_at TEXT,
		end_at TEXT,
		published_at TEXT,
		description TEXT,
		comment TEXT NOT NULL DEFAULT '',
		office TEXT NOT NULL DEFAULT '',
		areas TEXT NOT NULL DEFAULT '[]', -- JSON array of TERYT codes
		raw TEXT NOT NULL DEFAULT '{}',
		fetched_at TEXT NOT NULL
	);

	-- Fallback-key matching path.
	CREATE INDEX IF NOT EXISTS idx_warnings_title_start
		ON warnings(title, start_at);

	-- Active-window queries scan by validity bounds.
	CREATE INDEX IF NOT EXISTS idx_warnings_window
		ON warnings(start_at, end_at)
		WHERE start_at IS NOT NULL AND end_at IS NOT NULL;
	`
	_, err := w.db.Exec(schema)
	return err
}

// UpsertWarning reconciles one canonical warning against stored state,
// returning the stored row and whether it was newly created.
//
// Matching order: the stable feed identifier when present, then the
// (title, start) pair. A match overwrites every field in place, preserving
// the row identity. fetched_at is refreshed on every write, even when no
// other field changed, so repeated application of the same record is
// idempotent apart from that stamp.
func (w *Warehouse) UpsertWarning(ctx context.Context, warning domain.Warning) (stored domain.Warning, created bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Warning{}, false, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	rowID, err := w.matchExisting(ctx, tx, warning)
	if err != nil {
		return domain.Warning{}, false, err
	}

	warning.FetchedAt = domain.Now()

	if rowID != "" {
		warning.ID = rowID
		if err = updateWarning(ctx, tx, warning); err != nil {
			return domain.Warning{}, false, err
		}
		return warning, false, tx.Commit()
	}

	if warning.ID == "" {
		warning.ID = uuid.NewString()
	}
	if err = insertWarning(ctx, tx, warning); err != nil {
		return domain.Warning{}, false, err
	}
	return warning, true, tx.Commit()
}

// matchExisting returns the row id of the stored warning this record should
// overwrite, or "" when a new row is needed.
func (w *Warehouse) matchExisting(ctx context.Context, tx *sql.Tx, warning domain.Warning) (string, error) {
	if id := warning.StableID(); id != "" {
		row := tx.QueryRowContext(ctx, `SELECT id FROM warnings WHERE imgw_id = ?`, id)
		return scanMatch(row, "match by imgw_id")
	}

	// Fallback key. NULL start matches rows whose start is also NULL; the
	// oldest row wins so repeated syncs keep converging on the same one.
	row := tx.QueryRowContext(ctx, `
		SELECT id FROM warnings
		WHERE title = ? AND (start_at = ? OR (start_at IS NULL AND ? IS NULL))
		ORDER BY rowid LIMIT 1`,
		warning.Title, nullTime(warning.Start), nullTime(warning.Start))
	return scanMatch(row, "match by title and start")
}

func scanMatch(row *sql.Row, op string) (string, error) {
	var id string
	switch err := row.Scan(&id); {
	case errors.Is(err, sql.ErrNoRows):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

func insertWarning(ctx context.Context, tx *sql.Tx, w domain.Warning) error {
	areas, raw, err := encodePayload(w)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO warnings
			(id, imgw_id, title, level, probability, start_at, end_at,
			 published_at, description, comment, office, areas, raw, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, nullString(w.IMGWID), w.Title, nullString(w.Level), w.Probability,
		nullTime(w.Start), nullTime(w.End), nullTime(w.Published),
		nullString(w.Description), w.Comment, w.Office, areas, raw,
		w.FetchedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert warning: %w", err)
	}
	return nil
}

func updateWarning(ctx context.Context, tx *sql.Tx, w domain.Warning) error {
	areas, raw, err := encodePayload(w)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE warnings SET
			imgw_id = ?, title = ?, level = ?, probability = ?, start_at = ?,
			end_at = ?, published_at = ?, description = ?, comment = ?,
			office = ?, areas = ?, raw = ?, fetched_at = ?
		WHERE id = ?`,
		nullString(w.IMGWID), w.Title, nullString(w.Level), w.Probability,
		nullTime(w.Start), nullTime(w.End), nullTime(w.Published),
		nullString(w.Description), w.Comment, w.Office, areas, raw,
		w.FetchedAt.UTC().Format(timeFormat), w.ID)
	if err != nil {
		return fmt.Errorf("update warning: %w", err)
	}
	return nil
}

// ActiveWarnings returns warnings whose area list contains the TERYT code
// and whose validity window contains asOf, most recent start first. Rows
// without a complete window are excluded. Ties on start fall back to
// insertion order.
func (w *Warehouse) ActiveWarnings(ctx context.Context, teryt string, asOf time.Time) ([]domain.Warning, error) {
	at := asOf.UTC().Format(timeFormat)
	rows, err := w.db.QueryContext(ctx, selectColumns+`
		FROM warnings
		WHERE start_at IS NOT NULL AND end_at IS NOT NULL
		  AND start_at <= ? AND end_at >= ?
		  AND EXISTS (
			SELECT 1 FROM json_each(warnings.areas) WHERE json_each.value = ?
		  )
		ORDER BY start_at DESC, rowid ASC`,
		at, at, teryt)
	if err != nil {
		return nil, fmt.Errorf("query active warnings: %w", err)
	}
	defer rows.Close()
	return collectWarnings(rows)
}

// ListWarnings returns a page of warnings ordered by start descending,
// rows without a start time last.
func (w *Warehouse) ListWarnings(ctx context.Context, limit, offset int) ([]domain.Warning, error) {
	rows, err := w.db.QueryContext(ctx, selectColumns+`
		FROM warnings
		ORDER BY start_at IS NULL, start_at DESC, rowid ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list warnings: %w", err)
	}
	defer rows.Close()
	return collectWarnings(rows)
}

// CountWarnings reports the total number of stored warnings.
func (w *Warehouse) CountWarnings(ctx context.Context) (int, error) {
	var n int
	if err := w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM warnings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count warnings: %w", err)
	}
	return n, nil
}

// GetWarning returns a single warning by its row id.
func (w *Warehouse) GetWarning(ctx context.Context, id string) (domain.Warning, error) {
	row := w.db.QueryRowContext(ctx, selectColumns+` FROM warnings WHERE id = ?`, id)
	warning, err := scanWarning(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Warning{}, ErrNotFound
	}
	if err != nil {
		return domain.Warning{}, fmt.Errorf("get warning: %w", err)
	}
	return warning, nil
}

// StoredRegion is a persisted county boundary: the TERYT code, display name
// and GeoJSON-encoded MultiPolygon in EPSG:2180 coordinates.
type StoredRegion struct {
	Code     string
	Name     string
	Boundary []byte
}

// SaveRegion inserts or replaces a county boundary by TERYT code.
func (w *Warehouse) SaveRegion(ctx context.Context, region StoredRegion) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO regions (teryt, name, boundary, imported_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(teryt) DO UPDATE SET
			name = excluded.name,
			boundary = excluded.boundary,
			imported_at = excluded.imported_at`,
		region.Code, region.Name, string(region.Boundary),
		domain.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("save region %s: %w", region.Code, err)
	}
	return nil
}

// Regions returns all persisted county boundaries in import order.
func (w *Warehouse) Regions(ctx context.Context) ([]StoredRegion, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT teryt, name, boundary FROM regions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	var regions []StoredRegion
	for rows.Next() {
		var r StoredRegion
		var boundary string
		if err := rows.Scan(&r.Code, &r.Name, &boundary); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		r.Boundary = []byte(boundary)
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// RegionName returns the display name for a TERYT code.
func (w *Warehouse) RegionName(ctx context.Context, teryt string) (string, error) {
	var name string
	err := w.db.QueryRowContext(ctx, `SELECT name FROM regions WHERE teryt = ?`, teryt).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("region name: %w", err)
	}
	return name, nil
}

const selectColumns = `
	SELECT id, imgw_id, title, level, probability, start_at, end_at,
	       published_at, description, comment, office, areas, raw, fetched_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func collectWarnings(rows *sql.Rows) ([]domain.Warning, error) {
	var warnings []domain.Warning
	for rows.Next() {
		warning, err := scanWarning(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		warnings = append(warnings, warning)
	}
	return warnings, rows.Err()
}

func scanWarning(row rowScanner) (domain.Warning, error) {
	var (
		w                     domain.Warning
		imgwID, level, desc   sql.NullString
		startAt, endAt, pubAt sql.NullString
		areas, raw, fetchedAt string
	)
	err := row.Scan(&w.ID, &imgwID, &w.Title, &level, &w.Probability,
		&startAt, &endAt, &pubAt, &desc, &w.Comment, &w.Office,
		&areas, &raw, &fetchedAt)
	if err != nil {
		return domain.Warning{}, err
	}

	w.IMGWID = fromNullString(imgwID)
	w.Level = fromNullString(level)
	w.Description = fromNullString(desc)

	if w.Start, err = fromNullTime(startAt); err != nil {
		return domain.Warning{}, err
	}
	if w.End, err = fromNullTime(endAt); err != nil {
		return domain.Warning{}, err
	}
	if w.Published, err = fromNullTime(pubAt); err != nil {
		return domain.Warning{}, err
	}
	if w.FetchedAt, err = time.Parse(timeFormat, fetchedAt); err != nil {
		return domain.Warning{}, fmt.Errorf("fetched_at: %w", err)
	}

	if err := json.Unmarshal([]byte(areas), &w.Areas); err != nil {
		return domain.Warning{}, fmt.Errorf("areas: %w", err)
	}
	w.Raw = json.RawMessage(raw)
	return w, nil
}

func encodePayload(w domain.Warning) (areas, raw string, err error) {
	if w.Areas == nil {
		w.Areas = []string{}
	}
	data, err := json.Marshal(w.Areas)
	if err != nil {
		return "", "", fmt.Errorf("encode areas: %w", err)
	}
	raw = "{}"
	if len(w.Raw) > 0 {
		raw = string(w.Raw)
	}
	return string(data), raw, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func fromNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil, fmt.Errorf("timestamp %q: %w", s.String, err)
	}
	return &t, nil
}
