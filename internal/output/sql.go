// internal/output/sql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"github.com/sirupsen/logrus"

	"github.com/valpere/MinwonScrapexter/internal/config"
	"github.com/valpere/MinwonScrapexter/internal/pipeline"
	"github.com/valpere/MinwonScrapexter/pkg/types"
)

// Supported SQL drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

const sqliteParams = "?_busy_timeout=5000&_journal_mode=WAL"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect captures the per-driver SQL differences
type dialect struct {
	driver string
}

func (d dialect) quote(ident string) string {
	if d.driver == DriverMySQL {
		return "`" + ident + "`"
	}
	return `"` + ident + `"`
}

func (d dialect) placeholder(n int) string {
	if d.driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// sqlColumns is the table layout, keyed by hash_id
func sqlColumns() []string {
	cols := []string{"hash_id"}
	for _, f := range types.AllFields() {
		cols = append(cols, f.Key())
	}
	return append(cols, "tier", "completeness", "stored_at")
}

func (d dialect) createTable(table string) string {
	var defs []string
	for i, col := range sqlColumns() {
		typ := "TEXT"
		if i == 0 {
			typ = "VARCHAR(32) PRIMARY KEY"
		}
		defs = append(defs, d.quote(col)+" "+typ)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.quote(table), strings.Join(defs, ", "))
}

func (d dialect) upsert(table string) string {
	cols := sqlColumns()
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = d.quote(col)
		marks[i] = d.placeholder(i + 1)
	}
	values := fmt.Sprintf("%s (%s) VALUES (%s)", d.quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))

	switch d.driver {
	case DriverSQLite:
		return "INSERT OR REPLACE INTO " + values
	case DriverMySQL:
		return "REPLACE INTO " + values
	default:
		sets := make([]string, 0, len(cols)-1)
		for _, col := range quoted[1:] {
			sets = append(sets, col+" = EXCLUDED."+col)
		}
		return "INSERT INTO " + values + " ON CONFLICT (" + quoted[0] + ") DO UPDATE SET " + strings.Join(sets, ", ")
	}
}

// SQLSink upserts records into a relational table keyed by hash_id
type SQLSink struct {
	db      *sql.DB
	dialect dialect
	table   string
	logger  logrus.FieldLogger
	now     func() time.Time
}

// NewSQLSink opens the database and creates the table if needed
func NewSQLSink(ctx context.Context, cfg config.SQLSinkConfig, logger logrus.FieldLogger) (*SQLSink, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("SQL sink DSN is required")
	}
	if !tableNamePattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid SQL table name %q", cfg.Table)
	}

	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += sqliteParams
		}
	case DriverPostgres, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported SQL driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	s := &SQLSink{
		db:      db,
		dialect: dialect{driver: cfg.Driver},
		table:   cfg.Table,
		logger:  logger.WithField("sink", "sql"),
		now:     time.Now,
	}
	if _, err := db.ExecContext(ctx, s.dialect.createTable(s.table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return s, nil
}

// Name identifies the sink in logs and summaries
func (s *SQLSink) Name() string { return "sql:" + s.dialect.driver }

// Write upserts all records in one transaction
func (s *SQLSink) Write(ctx context.Context, records []*types.ServiceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.upsert(s.table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	stored := s.now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		e := pipeline.Enrich(rec)
		args := make([]interface{}, 0, len(types.AllFields())+4)
		args = append(args, e.HashID)
		for _, f := range types.AllFields() {
			args = append(args, rec.Get(f))
		}
		args = append(args, string(e.Tier), strconv.FormatFloat(e.Completeness, 'f', 2, 64), stored)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("failed to store record %q: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"table": s.table, "records": len(records)}).Info("records stored")
	return len(records), nil
}

// Count returns the number of rows in the table
func (s *SQLSink) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.dialect.quote(s.table)).Scan(&n)
	return n, err
}

// Close releases the connection pool
func (s *SQLSink) Close() error {
	return s.db.Close()
}
