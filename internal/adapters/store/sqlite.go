package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"
	"github.com/Anindya-Karmaker/openua-bioreactor/internal/ports"
)

const tableName = "sensordata"

// maxBindVars keeps multi-row inserts under SQLite's default bind-variable
// limit of 999.
const maxBindVars = 900

// SQLiteStore persists readings into a single time-ordered table,
// timestamp REAL PRIMARY KEY, one nullable REAL column per channel key and a
// nullable TEXT status column.
type SQLiteStore struct {
	db      *sql.DB
	columns []string
}

// Open creates or opens the database file at path and ensures the table
// carries a column for every key in channelKeys. Existing files are upgraded
// additively: missing channel columns are added, nothing is dropped.
func Open(path string, channelKeys []string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}
	// SQLite supports a single writer; the flusher is the only one.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.migrate(channelKeys); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle without touching the schema. The
// caller supplies the channel column set. Used by tests that inject mock or
// pre-built handles.
func New(db *sql.DB, channelKeys []string) *SQLiteStore {
	cols := make([]string, len(channelKeys))
	copy(cols, channelKeys)
	return &SQLiteStore{db: db, columns: cols}
}

func (s *SQLiteStore) migrate(channelKeys []string) error {
	var ddl strings.Builder
	ddl.WriteString("CREATE TABLE IF NOT EXISTS " + tableName + " (timestamp REAL PRIMARY KEY")
	for _, key := range channelKeys {
		ddl.WriteString(", " + key + " REAL")
	}
	ddl.WriteString(", status TEXT)")
	if _, err := s.db.Exec(ddl.String()); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	existing, err := s.tableColumns()
	if err != nil {
		return err
	}
	have := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		have[name] = struct{}{}
	}
	for _, key := range channelKeys {
		if _, ok := have[key]; ok {
			continue
		}
		if _, err := s.db.Exec("ALTER TABLE " + tableName + " ADD COLUMN " + key + " REAL"); err != nil {
			return fmt.Errorf("add column %q: %w", key, err)
		}
	}

	// Re-read so the column order matches the table, including channels from
	// earlier sessions that the current config no longer names.
	all, err := s.tableColumns()
	if err != nil {
		return err
	}
	cols := make([]string, 0, len(all))
	for _, name := range all {
		if name == "timestamp" || name == "status" {
			continue
		}
		cols = append(cols, name)
	}
	s.columns = cols
	return nil
}

// tableColumns lists the table's column names in declaration order.
func (s *SQLiteStore) tableColumns() ([]string, error) {
	rows, err := s.db.Query("PRAGMA table_info(" + tableName + ")")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &primaryKey); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Columns reports the channel keys the table carries, in column order.
func (s *SQLiteStore) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// InsertBulk writes the batch inside one transaction with INSERT OR IGNORE,
// so rows whose timestamp already exists are silently skipped and a replayed
// snapshot never double-counts. The column set is the union of keys present
// across the whole batch; readings missing a key contribute NULL.
func (s *SQLiteStore) InsertBulk(records []domain.Reading) error {
	if len(records) == 0 {
		return nil
	}

	keys, err := s.batchKeys(records)
	if err != nil {
		return err
	}

	cols := append([]string{"timestamp"}, keys...)
	cols = append(cols, "status")

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}

	rowsPerStmt := maxBindVars / len(cols)
	if rowsPerStmt < 1 {
		rowsPerStmt = 1
	}

	for start := 0; start < len(records); start += rowsPerStmt {
		end := start + rowsPerStmt
		if end > len(records) {
			end = len(records)
		}
		if err := insertChunk(tx, cols, keys, records[start:end]); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// batchKeys returns the union of value keys across the batch, restricted and
// ordered to the table's channel columns. A key with no column is a
// configuration mismatch and fails the whole batch.
func (s *SQLiteStore) batchKeys(records []domain.Reading) ([]string, error) {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Values {
			seen[k] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for _, col := range s.columns {
		if _, ok := seen[col]; ok {
			keys = append(keys, col)
			delete(seen, col)
		}
	}
	if len(seen) > 0 {
		unknown := make([]string, 0, len(seen))
		for k := range seen {
			unknown = append(unknown, k)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("batch carries keys with no table column: %s", strings.Join(unknown, ", "))
	}
	return keys, nil
}

func insertChunk(tx *sql.Tx, cols, keys []string, records []domain.Reading) error {
	var b strings.Builder
	b.WriteString("INSERT OR IGNORE INTO " + tableName + " (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES ")

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"
	args := make([]any, 0, len(records)*len(cols))
	for i, r := range records {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(placeholder)

		args = append(args, r.Timestamp)
		for _, k := range keys {
			if v, ok := r.Values[k]; ok {
				args = append(args, v)
			} else {
				args = append(args, nil)
			}
		}
		if r.Status != "" {
			args = append(args, r.Status)
		} else {
			args = append(args, nil)
		}
	}

	if _, err := tx.Exec(b.String(), args...); err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}
	return nil
}

// QueryRange returns rows with startTS <= timestamp <= endTS, ascending.
func (s *SQLiteStore) QueryRange(startTS, endTS float64) ([]domain.Reading, error) {
	q := s.selectClause() + " WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC"
	rows, err := s.db.Query(q, startTS, endTS)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()
	return s.scanReadings(rows)
}

// QueryAll returns every row, ascending by timestamp.
func (s *SQLiteStore) QueryAll() ([]domain.Reading, error) {
	q := s.selectClause() + " ORDER BY timestamp ASC"
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	defer rows.Close()
	return s.scanReadings(rows)
}

// FirstStarted finds the earliest row tagged STARTED anywhere in the store.
func (s *SQLiteStore) FirstStarted() (float64, bool, error) {
	var ts float64
	err := s.db.QueryRow(
		"SELECT timestamp FROM "+tableName+" WHERE status = ? ORDER BY timestamp ASC LIMIT 1",
		domain.StatusStarted,
	).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("first started: %w", err)
	}
	return ts, true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) selectClause() string {
	cols := append([]string{"timestamp"}, s.columns...)
	cols = append(cols, "status")
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + tableName
}

func (s *SQLiteStore) scanReadings(rows *sql.Rows) ([]domain.Reading, error) {
	var out []domain.Reading
	for rows.Next() {
		var (
			ts     float64
			vals   = make([]sql.NullFloat64, len(s.columns))
			status sql.NullString
		)
		dest := make([]any, 0, len(s.columns)+2)
		dest = append(dest, &ts)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		dest = append(dest, &status)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		r := domain.Reading{Timestamp: ts, Values: make(map[string]float64, len(s.columns))}
		for i, col := range s.columns {
			if vals[i].Valid {
				r.Values[col] = vals[i].Float64
			}
		}
		if status.Valid {
			r.Status = status.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ ports.SampleStore = (*SQLiteStore)(nil)
