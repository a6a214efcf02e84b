package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

type sqlDialect string

const (
	dialectPostgres sqlDialect = "postgres"
	dialectSQLite   sqlDialect = "sqlite"
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// SQLStore implements Gateway on a single documents table keyed by
// (collection, id). Postgres keeps the body as JSONB, SQLite as JSON text.
type SQLStore struct {
	db      *sql.DB
	dialect sqlDialect
}

func OpenPostgres(cred *Credentials) (*sql.DB, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return db, nil
}

func OpenSQLite(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// one writer keeps read-merge-write sequences serialized
	db.SetMaxOpenConns(1)
	return db, nil
}

func NewPostgresStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: dialectPostgres}
}

func NewSQLiteStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, dialect: dialectSQLite}
}

// RunMigrations applies the embedded migrations for the store's dialect.
func (s *SQLStore) RunMigrations() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations/"+string(s.dialect))
	if err != nil {
		return fmt.Errorf("could not create migration source: %w", err)
	}

	var driver database.Driver
	switch s.dialect {
	case dialectPostgres:
		driver, err = postgres.WithInstance(s.db, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(s.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, string(s.dialect), driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) GetDocument(ctx context.Context, collection, id string) (*Snapshot, error) {
	if err := checkKey(collection, id); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT data FROM documents WHERE collection = ? AND id = ?`),
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get", err)
	}

	doc, err := decodeJSONDocument(raw)
	if err != nil {
		return nil, err
	}
	return &Snapshot{ID: id, Data: doc}, nil
}

func (s *SQLStore) SetDocument(ctx context.Context, collection, id string, data Document, merge bool) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	normalized, err := normalize(data)
	if err != nil {
		return err
	}

	if merge && s.dialect == dialectSQLite {
		return s.mergeSQLite(ctx, collection, id, normalized)
	}

	body, err := encodeJSONDocument(normalized)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`
	if merge {
		// jsonb || overwrites top-level keys only
		query = `
			INSERT INTO documents (collection, id, data, updated_at)
			VALUES (?, ?, ?::jsonb, CURRENT_TIMESTAMP)
			ON CONFLICT (collection, id) DO UPDATE
			SET data = documents.data || excluded.data, updated_at = CURRENT_TIMESTAMP
		`
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(query), collection, id, string(body)); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (s *SQLStore) mergeSQLite(ctx context.Context, collection, id string, patch Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("set", err)
	}
	defer tx.Rollback()

	var current Document
	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return unavailable("set", err)
	default:
		if current, err = decodeJSONDocument(raw); err != nil {
			return err
		}
	}

	body, err := encodeJSONDocument(mergeDocument(current, patch))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`, collection, id, string(body))
	if err != nil {
		return unavailable("set", err)
	}

	if err := tx.Commit(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (s *SQLStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM documents WHERE collection = ? AND id = ?`),
		collection, id,
	)
	if err != nil {
		return unavailable("delete", err)
	}
	return nil
}

func (s *SQLStore) QueryEquals(ctx context.Context, collection, field string, value any) ([]Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	want, err := queryValue(value)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	if s.dialect == dialectPostgres {
		filter, err := json.Marshal(map[string]any{field: want})
		if err != nil {
			return nil, fmt.Errorf("marshal filter: %w", err)
		}
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, data FROM documents WHERE collection = $1 AND data @> $2::jsonb ORDER BY id`,
			collection, string(filter),
		)
		if err != nil {
			return nil, unavailable("query", err)
		}
	} else {
		// SQLite has no typed JSON equality; filter rows of the collection here
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, data FROM documents WHERE collection = ? ORDER BY id`,
			collection,
		)
		if err != nil {
			return nil, unavailable("query", err)
		}
	}
	defer rows.Close()

	result := make([]Snapshot, 0)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, unavailable("query", err)
		}
		doc, err := decodeJSONDocument(raw)
		if err != nil {
			return nil, err
		}
		if s.dialect == dialectSQLite && !matchesEquals(doc, field, want) {
			continue
		}
		result = append(result, Snapshot{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query", err)
	}
	return result, nil
}

func encodeJSONDocument(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return body, nil
}

func decodeJSONDocument(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}
