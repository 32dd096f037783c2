// Package db mirrors the session's current collection into an in-memory
// DuckDB database so it can be inspected with SQL.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration.
type Config struct {
	// Extensions are installed and loaded best-effort (e.g. "spatial").
	Extensions []string
}

// Open returns an in-memory DuckDB connection. Nothing is written to disk.
func Open(cfg Config) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	for _, ext := range cfg.Extensions {
		if _, err := conn.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			// Extensions need network on first install; the mirror works without them.
			log.Debug().Err(err).Str("extension", ext).Msg("DuckDB extension unavailable")
		}
	}

	// SQL arrives over HTTP: no file or network access, no settings changes.
	for _, stmt := range []string{
		"SET enable_external_access = false",
		"SET lock_configuration = true",
	} {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("locking duckdb: %w", err)
		}
	}
	return conn, nil
}

// ErrNotReadOnly is returned by CheckReadOnly for statements that may write.
var ErrNotReadOnly = errors.New("only single read-only statements are allowed")

var leadingKeyword = regexp.MustCompile(`^\s*\(*\s*([A-Za-z]+)`)

var readKeywords = []string{"SELECT", "WITH", "FROM", "VALUES", "TABLE", "SHOW", "DESCRIBE", "SUMMARIZE"}

// CheckReadOnly accepts a single statement that starts with a read keyword.
// Callers still run it in a transaction they roll back.
func CheckReadOnly(query string) error {
	q := strings.TrimRight(strings.TrimSpace(query), "; \t\r\n")
	if q == "" || strings.Contains(q, ";") {
		return ErrNotReadOnly
	}
	m := leadingKeyword.FindStringSubmatch(q)
	if m == nil || !slices.Contains(readKeywords, strings.ToUpper(m[1])) {
		return ErrNotReadOnly
	}
	return nil
}
