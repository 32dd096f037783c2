package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-geojson/internal/db"
)

// MaxQueryRows caps the rows returned by /api/v1/query.
const MaxQueryRows = 1000

// DBHandler exposes the DuckDB mirror of the displayed collection.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a new database handler. db may be nil.
func NewDBHandler(db *sql.DB) *DBHandler {
	return &DBHandler{db: db}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("db"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("db"))
}

type TablesBody struct {
	Tables []string `json:"tables" doc:"List of table names"`
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*struct{ Body TablesBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, huma.Error500InternalServerError("Failed to list tables", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	return &struct{ Body TablesBody }{Body: TablesBody{Tables: tables}}, nil
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"SQL query to execute" example:"SELECT kinds, wkt FROM features"`
	}
}

type QueryBody struct {
	Columns   []string         `json:"columns" doc:"Column names"`
	Rows      []map[string]any `json:"rows" doc:"Query results"`
	Count     int              `json:"count" doc:"Number of rows returned"`
	Truncated bool             `json:"truncated" doc:"Whether rows past the limit were dropped"`
}

// Query executes a read-only SQL query against DuckDB. The query runs in a
// transaction that is always rolled back, so the mirror cannot be changed.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*struct{ Body QueryBody }, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	if err := db.CheckReadOnly(input.Body.Query); err != nil {
		return nil, huma.Error403Forbidden(err.Error())
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to start transaction", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get columns", err)
	}

	body := QueryBody{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		if len(body.Rows) == MaxQueryRows {
			body.Truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, huma.Error500InternalServerError("Failed to read row", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		body.Rows = append(body.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	body.Count = len(body.Rows)
	return &struct{ Body QueryBody }{Body: body}, nil
}
