package database

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

var (
	// ErrNotFound is returned when a user, set or selection does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSelectionExists is returned when a user already selected a set.
	ErrSelectionExists = errors.New("selection already exists")
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Prepare(query string) (*sql.Stmt, error)
	QueryRow(query string, args ...any) *sql.Row
}

// InitDB initializes and returns a database connection with the schema loaded.
// Foreign keys are switched on for every connection the pool opens.
func InitDB(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", withForeignKeys(dataSourceName))
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer, and every ":memory:" connection is its
	// own database, so keep the pool at one connection.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err = loadSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("load schema: %w", err)
	}

	return db, nil
}

// withForeignKeys adds the go-sqlite3 connection parameter that runs
// PRAGMA foreign_keys on each new connection.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// loadSchema executes the embedded schema. Every statement is idempotent.
func loadSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// notFound maps sql.ErrNoRows onto ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
