package repositories

import (
	"context"

	"github.com/FreePeak/db-query-proxy/pkg/dbtools"
)

// Store executes built statements against the relational backend
type Store interface {
	// QueryRows runs a statement that returns rows and maps each row by column name
	QueryRows(ctx context.Context, stmt dbtools.Statement) ([]map[string]interface{}, error)

	// Count runs a statement returning a single integer, e.g. SELECT COUNT(*)
	Count(ctx context.Context, stmt dbtools.Statement) (int64, error)

	// Exec runs a statement without rows and returns the number of affected rows
	Exec(ctx context.Context, stmt dbtools.Statement) (int64, error)

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error
}
