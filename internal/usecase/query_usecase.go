package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/FreePeak/db-query-proxy/internal/auth"
	"github.com/FreePeak/db-query-proxy/internal/domain/entities"
	"github.com/FreePeak/db-query-proxy/internal/domain/repositories"
	"github.com/FreePeak/db-query-proxy/internal/logger"
	"github.com/FreePeak/db-query-proxy/pkg/dbtools"
)

// Result is the outcome of one query operation
type Result struct {
	Data interface{}
	// Count is set only when an exact count was requested
	Count *int64
}

// BackendError wraps a failure reported by the database
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

// QueryUseCase executes validated query operations against a store
type QueryUseCase struct {
	store   repositories.Store
	aliases map[string]entities.ColumnAliases
}

// NewQueryUseCase creates a new query use case. Rows returned from a table
// listed in aliases are rekeyed to that table's canonical column names.
func NewQueryUseCase(store repositories.Store, aliases map[string]entities.ColumnAliases) *QueryUseCase {
	return &QueryUseCase{store: store, aliases: aliases}
}

// Execute runs op as a single statement, or as a count and a row query for
// select with an exact count.
func (uc *QueryUseCase) Execute(ctx context.Context, op entities.Operation) (*Result, error) {
	switch q := op.(type) {
	case *entities.SelectQuery:
		return uc.selectRows(ctx, q)
	case *entities.InsertQuery:
		return uc.insertRow(ctx, q)
	case *entities.UpdateQuery:
		return uc.updateRows(ctx, q)
	case *entities.DeleteQuery:
		return uc.deleteRows(ctx, q)
	default:
		return nil, &entities.UnknownActionError{Action: fmt.Sprintf("%T", op)}
	}
}

func (uc *QueryUseCase) selectRows(ctx context.Context, q *entities.SelectQuery) (*Result, error) {
	stmt, err := dbtools.BuildSelect(q)
	if err != nil {
		return nil, err
	}

	var (
		rows  []map[string]interface{}
		count int64
	)

	if q.CountExact {
		countStmt, err := dbtools.BuildCount(q)
		if err != nil {
			return nil, err
		}

		// The two statements are independent round trips; the count may not
		// match the rows under concurrent writers.
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			n, err := uc.store.Count(gctx, countStmt)
			count = n
			return err
		})
		g.Go(func() error {
			r, err := uc.store.QueryRows(gctx, stmt)
			rows = r
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, &BackendError{Err: err}
		}
	} else {
		rows, err = uc.store.QueryRows(ctx, stmt)
		if err != nil {
			return nil, &BackendError{Err: err}
		}
	}

	rows = uc.normalize(q.Table, rows)
	result := &Result{Data: rowsOrEmpty(rows)}
	if q.Single {
		if len(rows) > 0 {
			result.Data = rows[0]
		} else {
			result.Data = nil
		}
	}
	if q.CountExact {
		result.Count = &count
	}
	return result, nil
}

func (uc *QueryUseCase) insertRow(ctx context.Context, q *entities.InsertQuery) (*Result, error) {
	stmt, err := dbtools.BuildInsert(q)
	if err != nil {
		return nil, err
	}

	rows, err := uc.store.QueryRows(ctx, stmt)
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	return &Result{Data: rowsOrEmpty(uc.normalize(q.Table, rows))}, nil
}

func (uc *QueryUseCase) updateRows(ctx context.Context, q *entities.UpdateQuery) (*Result, error) {
	if q.Where.IsEmpty() {
		logger.With(callerFields(ctx, q.Table)).Warn("update on %s has no conditions; every row will be updated", q.Table)
	}

	stmt, err := dbtools.BuildUpdate(q)
	if err != nil {
		return nil, err
	}

	rows, err := uc.store.QueryRows(ctx, stmt)
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	return &Result{Data: rowsOrEmpty(uc.normalize(q.Table, rows))}, nil
}

func (uc *QueryUseCase) deleteRows(ctx context.Context, q *entities.DeleteQuery) (*Result, error) {
	if q.Where.IsEmpty() {
		logger.With(callerFields(ctx, q.Table)).Warn("delete on %s has no conditions; every row will be deleted", q.Table)
	}

	stmt, err := dbtools.BuildDelete(q)
	if err != nil {
		return nil, err
	}

	deleted, err := uc.store.Exec(ctx, stmt)
	if err != nil {
		return nil, &BackendError{Err: err}
	}

	if deleted > 0 {
		return &Result{Data: map[string]int64{"deleted": deleted}}, nil
	}
	return &Result{Data: []map[string]interface{}{}}, nil
}

// Ping checks that the store is reachable
func (uc *QueryUseCase) Ping(ctx context.Context) error {
	return uc.store.Ping(ctx)
}

func (uc *QueryUseCase) normalize(table string, rows []map[string]interface{}) []map[string]interface{} {
	aliases, ok := uc.aliases[table]
	if !ok {
		return rows
	}
	for i, row := range rows {
		rows[i] = aliases.Normalize(row)
	}
	return rows
}

// callerFields names the verified caller of a mutating operation, when known
func callerFields(ctx context.Context, table string) logger.Fields {
	fields := logger.Fields{"table": table}
	if id, ok := auth.IdentityFrom(ctx); ok {
		fields["uid"] = id.UID
	}
	return fields
}

func rowsOrEmpty(rows []map[string]interface{}) []map[string]interface{} {
	if rows == nil {
		return []map[string]interface{}{}
	}
	return rows
}
