// Package store persists compiled repositories in SQLite. Every entity is
// kept as the MOF text that declares it, so loading is a recompilation.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mofc/internal/cim"
	"github.com/gnoswap-labs/mofc/internal/repository"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Kind is the entity kind of a stored row.
type Kind string

const (
	KindQualifier Kind = "qualifier"
	KindClass     Kind = "class"
	KindInstance  Kind = "instance"
)

// Entry is one stored entity.
type Entry struct {
	Namespace string
	Seq       int
	Kind      Kind
	Name      string
	MOF       string
}

// Compiler is the part of the MOF compiler Load needs.
type Compiler interface {
	CompileSource(filename, src, namespace string) error
}

// DB wraps a SQLite database connection.
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// Open opens or creates the database at path. A nil logger disables
// logging.
func Open(path string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &DB{DB: db, logger: logger}, nil
}

// Migrate runs all pending migrations.
func (db *DB) Migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("query migrations: %w", err)
	}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("scan migration: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)

	for _, name := range migrations {
		version := strings.TrimSuffix(name, ".sql")
		if applied[version] {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
		db.logger.Debug("applied migration", zap.String("version", version))
	}
	return nil
}

// Save replaces the stored contents of every namespace in repo. Namespaces
// stored earlier and absent from repo are left untouched.
func (db *DB) Save(ctx context.Context, repo *repository.Repository) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ns := range repo.Namespaces() {
		n, err := saveNamespace(ctx, tx, ns)
		if err != nil {
			return fmt.Errorf("save namespace %s: %w", ns.Name(), err)
		}
		db.logger.Info("saved namespace",
			zap.String("namespace", ns.Name()),
			zap.Int("entities", n))
	}
	return tx.Commit()
}

func saveNamespace(ctx context.Context, tx *sql.Tx, ns *repository.Namespace) (int, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE namespace = ?`, ns.Name()); err != nil {
		return 0, err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO namespaces (name, saved_at) VALUES (?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET saved_at = excluded.saved_at
	`, ns.Name())
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entities (namespace, seq, kind, name, mof) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	entities := ns.Entities()
	for i, e := range entities {
		kind, name := describe(e)
		if _, err := stmt.ExecContext(ctx, ns.Name(), i, kind, name, cim.ToMOF(e)); err != nil {
			return 0, fmt.Errorf("%s %s: %w", kind, name, err)
		}
	}
	return len(entities), nil
}

func describe(e cim.Entity) (Kind, string) {
	switch v := e.(type) {
	case *cim.QualifierDeclaration:
		return KindQualifier, v.Name
	case *cim.Class:
		return KindClass, v.Name
	case *cim.Instance:
		return KindInstance, v.Path.String()
	}
	panic(fmt.Sprintf("store: unknown entity %T", e))
}

// Namespaces returns the stored namespace names in name order.
func (db *DB) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM namespaces ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Entries returns the entities stored for namespace in compile order.
func (db *DB) Entries(ctx context.Context, namespace string) ([]Entry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT namespace, seq, kind, name, mof FROM entities WHERE namespace = ? ORDER BY seq`,
		repository.NormalizeNamespace(namespace))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Namespace, &e.Seq, &e.Kind, &e.Name, &e.MOF); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Load recompiles every stored namespace with c.
func (db *DB) Load(ctx context.Context, c Compiler) error {
	names, err := db.Namespaces(ctx)
	if err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}
	for _, name := range names {
		entries, err := db.Entries(ctx, name)
		if err != nil {
			return fmt.Errorf("read namespace %s: %w", name, err)
		}
		var src strings.Builder
		for _, e := range entries {
			src.WriteString(e.MOF)
			src.WriteByte('\n')
		}
		if err := c.CompileSource("store:"+name, src.String(), name); err != nil {
			return fmt.Errorf("load namespace %s: %w", name, err)
		}
		db.logger.Info("loaded namespace",
			zap.String("namespace", name),
			zap.Int("entities", len(entries)))
	}
	return nil
}
