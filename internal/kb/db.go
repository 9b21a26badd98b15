package kb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// DB wraps the SQLite connection holding the persisted knowledge base.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens (or creates) the knowledge base database and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	// Ensure directory exists (skip for in-memory database)
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=30000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := conn.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, path: dbPath}

	if err := initSchema(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// NewTestDB creates an in-memory database for tests.
func NewTestDB() (*DB, error) {
	return NewDB(":memory:")
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Ready verifies the database connection is usable.
func (db *DB) Ready(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database not connected")
	}
	return db.conn.PingContext(ctx)
}

// Conn returns the underlying *sql.DB connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS instructors (
		full_name TEXT PRIMARY KEY,
		nickname TEXT,
		nidn TEXT,
		phone TEXT,
		course TEXT,
		semester INTEGER,
		program TEXT,
		alias_json TEXT,
		loaded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_instructors_course ON instructors(course);

	CREATE TABLE IF NOT EXISTS courses (
		name TEXT PRIMARY KEY,
		code TEXT,
		sks INTEGER,
		semester INTEGER,
		program TEXT,
		prerequisites TEXT,
		description TEXT,
		competencies TEXT,
		alias_json TEXT,
		loaded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_courses_program ON courses(program);

	CREATE TABLE IF NOT EXISTS schedule (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course TEXT NOT NULL,
		code TEXT,
		sks INTEGER,
		day TEXT,
		time TEXT,
		start_hour REAL,
		end_hour REAL,
		room TEXT,
		class TEXT,
		semester INTEGER,
		program TEXT,
		alias_json TEXT,
		loaded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_schedule_course ON schedule(course);
	CREATE INDEX IF NOT EXISTS idx_schedule_day ON schedule(day);

	CREATE TABLE IF NOT EXISTS calendar (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year TEXT,
		semester TEXT,
		activity TEXT,
		start_date TEXT,
		end_date TEXT,
		target TEXT,
		notes TEXT,
		loaded_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS thesis_requirements (
		program TEXT PRIMARY KEY,
		min_sks INTEGER,
		min_semester INTEGER,
		min_gpa REAL,
		required_courses TEXT,
		documents TEXT,
		procedure TEXT,
		loaded_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sks_regulations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		semester TEXT,
		min_gpa REAL,
		max_gpa REAL,
		max_sks INTEGER,
		min_sks INTEGER,
		program TEXT,
		notes TEXT,
		loaded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sks_regulations_program ON sks_regulations(program);

	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT,
		content TEXT NOT NULL,
		category TEXT,
		source TEXT,
		loaded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create knowledge base tables: %w", err)
	}

	return nil
}
