package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/opensource-commerce/kestrel/internal/domain"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLSource reads the raw transaction table from a relational database.
// Works with both SQLite and PostgreSQL drivers.
type SQLSource struct {
	db     *sql.DB
	driver string
	table  string
}

// NewSQLSource opens a read-only SQL raw source.
func NewSQLSource(cfg domain.SourceConfig) (*SQLSource, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = "transactions"
	}

	return &SQLSource{db: db, driver: cfg.Driver, table: table}, nil
}

// openSQLite opens a SQLite database connection.
// Uses modernc.org/sqlite for pure Go implementation (no CGO required).
func openSQLite(cfg domain.SourceConfig) (*sql.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = "./kestrel.db"
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return db, nil
}

// openPostgres opens a PostgreSQL database connection.
func openPostgres(cfg domain.SourceConfig) (*sql.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = "host=localhost port=5432 dbname=kestrel sslmode=disable"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}

// GetRawTransactions selects the raw columns as text. Values come back as
// strings regardless of the column types so the cleaner owns all coercion.
func (s *SQLSource) GetRawTransactions(ctx context.Context, limit int) (*domain.RawTable, error) {
	columns := domain.RequiredColumns()

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), s.table)
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw transactions: %w", err)
	}
	defer rows.Close()

	table := &domain.RawTable{Columns: columns}
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan raw transaction row: %w", err)
		}

		record := make([]string, len(columns))
		for i, v := range values {
			if v.Valid {
				record[i] = v.String
			}
		}
		table.Rows = append(table.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raw transactions: %w", err)
	}

	return table, nil
}

// Ping checks database connectivity.
func (s *SQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLSource) Close() error {
	return s.db.Close()
}
