package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite" // SQLite driver
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// DB is a connection pool that remembers which SQL dialect it speaks.
type DB struct {
	*sql.DB
	Driver string
}

// New creates a new database connection pool.
func New(driver, dataSourceName string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		return openSQLite(dataSourceName)
	case DriverMySQL:
		return openMySQL(dataSourceName)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func openSQLite(dataSourceName string) (_ *DB, err error) {
	db, err := sql.Open(DriverSQLite, dataSourceName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, db.Close())
		}
	}()

	// A single connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err = db.Ping(); err != nil {
		return nil, err
	}
	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err = db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return &DB{DB: db, Driver: DriverSQLite}, nil
}

func openMySQL(dataSourceName string) (_ *DB, err error) {
	cfg, err := mysql.ParseDSN(dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	// UPDATE reports matched rows, as SQLite does.
	cfg.ClientFoundRows = true

	db, err := sql.Open(DriverMySQL, cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	return &DB{DB: db, Driver: DriverMySQL}, nil
}

// InsertIgnore returns the dialect's INSERT variant that silently skips rows
// violating a unique constraint.
func (db *DB) InsertIgnore() string {
	if db.Driver == DriverMySQL {
		return "INSERT IGNORE"
	}
	return "INSERT OR IGNORE"
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(ctx context.Context, db *DB) error {
	stmts := sqliteSchema
	if db.Driver == DriverMySQL {
		stmts = mysqlSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		about_me TEXT NOT NULL DEFAULT '',
		last_seen DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id TEXT NOT NULL PRIMARY KEY,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		user_id TEXT NOT NULL REFERENCES users(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS followers (
		follower_id TEXT NOT NULL REFERENCES users(id),
		followed_id TEXT NOT NULL REFERENCES users(id),
		PRIMARY KEY (follower_id, followed_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_followers_followed ON followers(followed_id)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id, created_at)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		username VARCHAR(64) NOT NULL UNIQUE,
		email VARCHAR(120) NOT NULL UNIQUE,
		password_hash VARCHAR(128) NOT NULL,
		about_me VARCHAR(140) NOT NULL DEFAULT '',
		last_seen DATETIME(6) NOT NULL,
		created_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		body VARCHAR(140) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		user_id VARCHAR(36) NOT NULL,
		INDEX idx_posts_created_at (created_at),
		INDEX idx_posts_user_id (user_id, created_at),
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS followers (
		follower_id VARCHAR(36) NOT NULL,
		followed_id VARCHAR(36) NOT NULL,
		PRIMARY KEY (follower_id, followed_id),
		INDEX idx_followers_followed (followed_id),
		FOREIGN KEY (follower_id) REFERENCES users(id),
		FOREIGN KEY (followed_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		type VARCHAR(32) NOT NULL,
		message VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_events_user (user_id, created_at),
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
}
