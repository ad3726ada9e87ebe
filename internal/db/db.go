package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	stdfs "io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect identifies the SQL flavour behind a Handle.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Handle is an open database together with its dialect. Queries are written
// with ? placeholders and passed through Rebind before execution.
type Handle struct {
	*sql.DB
	Dialect Dialect
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func (h *Handle) Rebind(query string) string {
	if h.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Open opens (or creates) a local SQLite database file and applies pending migrations.
// It uses versioned .sql files under internal/db/migrations/sqlite following the pattern:
//
//	0001_name.up.sql / 0001_name.down.sql
//
// Only new migrations are applied. Use RollbackLast to revert the last applied migration.
func Open(path string) (*Handle, error) {
	if path == "" {
		path = "data.db"
	}
	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY between
	// our own transactions.
	d.SetMaxOpenConns(1)
	// Pragmas for robustness
	// journal_mode may not be supported in some contexts (e.g., in-memory). Ignore errors.
	_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	if _, err := d.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = d.Close()
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = d.Close()
		return nil, err
	}
	h := &Handle{DB: d, Dialect: SQLite}
	if err := applyMigrations(h); err != nil {
		_ = d.Close()
		return nil, err
	}
	return h, nil
}

// OpenPostgres connects to a PostgreSQL server and applies pending migrations
// from internal/db/migrations/postgres.
func OpenPostgres(url string) (*Handle, error) {
	if url == "" {
		return nil, errors.New("postgres connection string is empty")
	}
	d, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	h := &Handle{DB: d, Dialect: Postgres}
	if err := applyMigrations(h); err != nil {
		_ = d.Close()
		return nil, err
	}
	return h, nil
}

// RollbackLast rolls back the most recently applied migration, if its down script exists.
func RollbackLast(h *Handle) error {
	if h == nil || h.DB == nil {
		return errors.New("nil db")
	}
	if err := ensureMigrationsTable(h); err != nil {
		return err
	}
	var version int
	err := h.QueryRow(`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return nil // nothing to rollback
	} else if err != nil {
		return err
	}
	migs, err := loadMigrations(h.Dialect)
	if err != nil {
		return err
	}
	m, ok := migs[version]
	if !ok || m.downFile == "" {
		return fmt.Errorf("no down migration found for version %d", version)
	}
	sqlText, err := migrationsFS.ReadFile(m.downFile)
	if err != nil {
		return err
	}
	text := string(sqlText)
	deleteVersion := h.Rebind(`DELETE FROM schema_migrations WHERE version = ?`)
	if strings.HasPrefix(strings.TrimSpace(text), "-- NO_TX") {
		// Execute as-is without wrapping in a transaction
		if _, err := h.Exec(text); err != nil {
			return err
		}
		if _, err := h.Exec(deleteVersion, version); err != nil {
			return err
		}
		return nil
	}
	tx, err := h.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(text); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(deleteVersion, version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// AppliedVersions lists the migration versions recorded in schema_migrations.
func AppliedVersions(h *Handle) ([]int, error) {
	got, err := appliedVersions(h)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(got))
	for v := range got {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

type migration struct {
	version  int
	name     string
	upFile   string // path inside embedded FS
	downFile string // path inside embedded FS
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.(up|down)\.sql$`)

func loadMigrations(dialect Dialect) (map[int]migration, error) {
	entries := map[int]migration{}
	dir := "migrations/" + dialect.String()
	list, err := stdfs.ReadDir(migrationsFS, dir)
	if err != nil {
		// if directory missing, just return empty set
		return entries, nil
	}
	for _, de := range list {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		m := migFileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		verStr, migName, kind := m[1], m[2], m[3]
		var ver int
		if _, err := fmt.Sscanf(verStr, "%04d", &ver); err != nil {
			continue
		}
		item := entries[ver]
		item.version = ver
		item.name = migName
		p := dir + "/" + name
		if kind == "up" {
			item.upFile = p
		} else {
			item.downFile = p
		}
		entries[ver] = item
	}
	return entries, nil
}

func ensureMigrationsTable(h *Handle) error {
	stmt := `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
    )`
	if h.Dialect == Postgres {
		stmt = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`
	}
	_, err := h.Exec(stmt)
	return err
}

func appliedVersions(h *Handle) (map[int]bool, error) {
	if err := ensureMigrationsTable(h); err != nil {
		return nil, err
	}
	rows, err := h.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	got := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		got[v] = true
	}
	return got, rows.Err()
}

func applyMigrations(h *Handle) error {
	migs, err := loadMigrations(h.Dialect)
	if err != nil {
		return err
	}
	if len(migs) == 0 {
		// nothing to do
		return nil
	}
	applied, err := appliedVersions(h)
	if err != nil {
		return err
	}
	// order versions
	versions := make([]int, 0, len(migs))
	for v := range migs {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	insertVersion := h.Rebind(`INSERT INTO schema_migrations(version) VALUES(?)`)
	for _, v := range versions {
		if applied[v] {
			continue
		}
		m := migs[v]
		if strings.TrimSpace(m.upFile) == "" {
			return fmt.Errorf("missing up migration for version %04d", v)
		}
		sqlText, err := migrationsFS.ReadFile(m.upFile)
		if err != nil {
			return err
		}
		text := string(sqlText)
		if strings.HasPrefix(strings.TrimSpace(text), "-- NO_TX") {
			// Execute as-is without wrapping in a transaction
			if _, err := h.Exec(text); err != nil {
				return fmt.Errorf("migration %04d failed: %w", v, err)
			}
			if _, err := h.Exec(insertVersion, v); err != nil {
				return err
			}
			continue
		}
		tx, err := h.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %04d (%s) failed: %w", v, m.name, err)
		}
		if _, err := tx.Exec(insertVersion, v); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
