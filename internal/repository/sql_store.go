package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FreePeak/db-query-proxy/internal/logger"
	"github.com/FreePeak/db-query-proxy/pkg/db"
	"github.com/FreePeak/db-query-proxy/pkg/dbtools"
)

// SQLStore implements repositories.Store on top of the shared pool
type SQLStore struct {
	db   db.Database
	perf *dbtools.PerformanceAnalyzer
}

// NewSQLStore creates a store backed by database. Statement timings go to
// perf, or to an analyzer with the default threshold when perf is nil.
func NewSQLStore(database db.Database, perf *dbtools.PerformanceAnalyzer) *SQLStore {
	if perf == nil {
		perf = dbtools.NewPerformanceAnalyzer(0)
	}
	return &SQLStore{db: database, perf: perf}
}

// QueryRows executes stmt and returns every row as a column->value map
func (s *SQLStore) QueryRows(ctx context.Context, stmt dbtools.Statement) ([]map[string]interface{}, error) {
	logger.Debug("query: %s %v", stmt.SQL, stmt.Args)

	var results []map[string]interface{}
	err := s.perf.Track(stmt, func() error {
		var err error
		results, err = s.queryRows(ctx, stmt)
		return err
	})
	return results, err
}

func (s *SQLStore) queryRows(ctx context.Context, stmt dbtools.Statement) ([]map[string]interface{}, error) {
	rows, err := s.db.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error getting columns: %w", err)
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("error getting column types: %w", err)
	}
	isJSON := make([]bool, len(types))
	for i, ct := range types {
		switch strings.ToUpper(ct.DatabaseTypeName()) {
		case "JSON", "JSONB":
			isJSON[i] = true
		}
	}

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		for i := range values {
			values[i] = new(interface{})
		}

		if err := rows.Scan(values...); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = columnValue(*(values[i].(*interface{})), isJSON[i])
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// columnValue converts a scanned value for the response. lib/pq and pgx hand
// back text, numeric and json columns as raw bytes; json and jsonb are
// decoded into nested values, everything else becomes a string.
func columnValue(val interface{}, isJSON bool) interface{} {
	var raw []byte
	switch v := val.(type) {
	case []byte:
		raw = v
	case string:
		if !isJSON {
			return v
		}
		raw = []byte(v)
	default:
		return val
	}

	if isJSON && json.Valid(raw) {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err == nil {
			return decoded
		}
	}
	return string(raw)
}

// Count executes stmt and scans its single integer result
func (s *SQLStore) Count(ctx context.Context, stmt dbtools.Statement) (int64, error) {
	logger.Debug("count: %s %v", stmt.SQL, stmt.Args)

	var n int64
	err := s.perf.Track(stmt, func() error {
		row := s.db.QueryRow(ctx, stmt.SQL, stmt.Args...)
		if row == nil {
			return db.ErrNoDatabase
		}
		return row.Scan(&n)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Exec executes stmt and returns the number of affected rows
func (s *SQLStore) Exec(ctx context.Context, stmt dbtools.Statement) (int64, error) {
	logger.Debug("exec: %s %v", stmt.SQL, stmt.Args)

	var result sql.Result
	err := s.perf.Track(stmt, func() error {
		var err error
		result, err = s.db.Exec(ctx, stmt.SQL, stmt.Args...)
		return err
	})
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// Ping checks the pool
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// SlowQueries returns the statements whose average time exceeds the slow threshold
func (s *SQLStore) SlowQueries() []dbtools.QueryMetrics {
	return s.perf.SlowQueries()
}
