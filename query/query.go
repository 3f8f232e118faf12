// Package query evaluates filter expressions over decoded frames with an
// embedded DuckDB database.
//
// The columns referenced by the expression are appended to a scratch table
// together with their row positions, the condition is rendered with the
// expr DuckDB encoder and the matching positions select a derived frame.
// Derived frames keep the parent's foreign handle.
package query

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"

	"github.com/hugr-lab/sits-go/expr"
	"github.com/hugr-lab/sits-go/models"
)

var (
	// ErrUnknownColumn is returned when the expression references a column
	// the frame does not have.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnsupportedColumn is returned for nested or geometry columns.
	ErrUnsupportedColumn = errors.New("column type cannot be filtered")
)

const rowColumn = "__row"

// Open opens an in-memory DuckDB database.
func Open() (*sql.DB, error) {
	return sql.Open("duckdb", "")
}

// Filter returns the rows of f matching e as a derived frame. Only the local
// copy is filtered: the frame keeps the parent's handle, so passing it to a
// runtime call sends every row of the parent.
func Filter(ctx context.Context, db *sql.DB, f *models.Frame, e expr.Expression) (*models.Frame, error) {
	rows, err := Rows(ctx, db, f, e)
	if err != nil {
		return nil, err
	}
	return f.Take(rows)
}

// Rows returns the positions of the rows of f matching e, in ascending order.
func Rows(ctx context.Context, db *sql.DB, f *models.Frame, e expr.Expression) ([]int, error) {
	if e == nil {
		return nil, expr.ErrNoExpression
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	where := expr.NewDuckDBEncoder(nil).Encode(e)
	if where == "" {
		return nil, fmt.Errorf("%w: %s", expr.ErrUnsupportedOperand, e.Render())
	}

	names := expr.Vars(e)
	cols := make([]arrow.Array, len(names))
	defs := []string{quote(rowColumn) + " BIGINT"}
	for i, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		typ := sqlType(col.DataType())
		if typ == "" {
			return nil, fmt.Errorf("%w: %q is %s", ErrUnsupportedColumn, name, col.DataType())
		}
		cols[i] = col
		defs = append(defs, quote(name)+" "+typ)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	table := "sits_filter_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := conn.ExecContext(ctx, "CREATE TABLE "+quote(table)+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return nil, fmt.Errorf("failed to create scratch table: %w", err)
	}
	defer conn.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+quote(table))

	err = conn.Raw(func(dc any) error {
		return appendRows(dc.(driver.Conn), table, cols, int(f.NumRows()))
	})
	if err != nil {
		return nil, err
	}

	q := "SELECT " + quote(rowColumn) + " FROM " + quote(table) + " WHERE " + where + " ORDER BY " + quote(rowColumn)
	res, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", where, err)
	}
	defer res.Close()

	var out []int
	for res.Next() {
		var r int64
		if err := res.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, int(r))
	}
	return out, res.Err()
}

func appendRows(conn driver.Conn, table string, cols []arrow.Array, n int) error {
	a, err := duckdb.NewAppenderFromConn(conn, "", table)
	if err != nil {
		return fmt.Errorf("failed to create appender: %w", err)
	}
	row := make([]driver.Value, len(cols)+1)
	for r := 0; r < n; r++ {
		row[0] = int64(r)
		for i, col := range cols {
			row[i+1] = cell(col, r)
		}
		if err := a.AppendRow(row...); err != nil {
			a.Close()
			return fmt.Errorf("failed to append row %d: %w", r, err)
		}
	}
	return a.Close()
}

func sqlType(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return "BIGINT"
	case arrow.FLOAT32, arrow.FLOAT64:
		return "DOUBLE"
	case arrow.STRING, arrow.LARGE_STRING:
		return "VARCHAR"
	case arrow.BOOL:
		return "BOOLEAN"
	case arrow.DATE32:
		return "DATE"
	case arrow.TIMESTAMP:
		return "TIMESTAMP"
	}
	return ""
}

func cell(col arrow.Array, i int) driver.Value {
	if col.IsNull(i) {
		return nil
	}
	switch c := col.(type) {
	case *array.Int8:
		return int64(c.Value(i))
	case *array.Int16:
		return int64(c.Value(i))
	case *array.Int32:
		return int64(c.Value(i))
	case *array.Int64:
		return c.Value(i)
	case *array.Float32:
		return float64(c.Value(i))
	case *array.Float64:
		return c.Value(i)
	case *array.String:
		return c.Value(i)
	case *array.LargeString:
		return c.Value(i)
	case *array.Boolean:
		return c.Value(i)
	case *array.Date32:
		return c.Value(i).ToTime().UTC()
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return c.Value(i).ToTime(unit).UTC()
	}
	return nil
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
