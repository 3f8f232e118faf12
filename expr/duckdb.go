package expr

import (
	"strconv"
	"strings"
)

// EncoderOptions configures SQL encoding.
type EncoderOptions struct {
	// ColumnMapping maps variable names to column names.
	// Variables not in the map use their own names.
	ColumnMapping map[string]string

	// ColumnExpressions maps variable names to SQL expressions.
	// Takes precedence over ColumnMapping.
	ColumnExpressions map[string]string
}

// DuckDBEncoder renders expressions as DuckDB SQL conditions.
type DuckDBEncoder struct {
	opts *EncoderOptions
}

// NewDuckDBEncoder creates a DuckDB SQL encoder.
// If opts is nil, default options are used.
func NewDuckDBEncoder(opts *EncoderOptions) *DuckDBEncoder {
	if opts == nil {
		opts = &EncoderOptions{}
	}
	return &DuckDBEncoder{opts: opts}
}

// Encode converts an expression to a SQL condition.
// Returns an empty string for invalid trees.
func (e *DuckDBEncoder) Encode(x Expression) string {
	if x == nil || x.Err() != nil {
		return ""
	}
	switch ex := x.(type) {
	case Var:
		return e.encodeVar(ex)
	case Literal:
		return e.encodeLiteral(ex)
	case Binary:
		return e.encodeBinary(ex)
	case Negation:
		return "NOT (" + e.Encode(ex.X) + ")"
	case Membership:
		return e.encodeIn(ex)
	default:
		return ""
	}
}

func (e *DuckDBEncoder) encodeVar(v Var) string {
	if sql, ok := e.opts.ColumnExpressions[v.Name]; ok {
		return sql
	}
	name := v.Name
	if mapped, ok := e.opts.ColumnMapping[name]; ok {
		name = mapped
	}
	return quoteIdentifier(name)
}

func (e *DuckDBEncoder) encodeBinary(b Binary) string {
	left := e.Encode(b.Left)
	right := e.Encode(b.Right)
	if left == "" || right == "" {
		return ""
	}
	var op string
	switch b.Op {
	case OpEq:
		op = " = "
	case OpNeq:
		op = " <> "
	case OpLt, OpLe, OpGt, OpGe:
		op = " " + string(b.Op) + " "
	case OpAnd:
		op = " AND "
	case OpOr:
		op = " OR "
	default:
		return ""
	}
	return "(" + left + op + right + ")"
}

func (e *DuckDBEncoder) encodeIn(m Membership) string {
	left := e.Encode(m.Left)
	if left == "" {
		return ""
	}
	if len(m.Values) == 0 {
		return "FALSE"
	}
	values := make([]string, len(m.Values))
	for i, v := range m.Values {
		values[i] = e.encodeLiteral(v)
	}
	return left + " IN (" + strings.Join(values, ", ") + ")"
}

func (e *DuckDBEncoder) encodeLiteral(l Literal) string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteLiteral(v)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return l.Render()
}

// escapeString escapes single quotes in a string value for SQL.
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// quoteLiteral returns a SQL string literal with proper escaping.
func quoteLiteral(s string) string {
	return "'" + escapeString(s) + "'"
}

// quoteIdentifier returns a quoted identifier if needed.
// DuckDB uses double quotes for identifiers.
func quoteIdentifier(name string) string {
	if needsQuoting(name) {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		letter := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
		if !letter && (i == 0 || c < '0' || c > '9') {
			return true
		}
	}
	switch strings.ToUpper(name) {
	case "SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "NULL", "TRUE", "FALSE",
		"TABLE", "AS", "IN", "IS", "LIKE", "BETWEEN", "CASE", "WHEN", "THEN",
		"ELSE", "END", "ORDER", "BY", "GROUP", "LIMIT", "ON", "JOIN":
		return true
	}
	return false
}
