// Package sqlgate implements the SQL Safety Gate (C2): the AST-based
// defence that stands between any planner- or user-supplied SQL string and
// a real database connection. AST parsing via xwb1989/sqlparser is the
// primary gate; regex classification of SQL is unsound on its own, so the
// forbidden-function text scan below is explicitly a secondary, defence in
// depth layer rather than the thing doing the real work.
package sqlgate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// PolicyConfig bounds what a candidate query is allowed to touch and
// return. An empty AllowedTables is permissive, a local-development
// concession the gate logs loudly when exercised.
type PolicyConfig struct {
	MaxRows            int
	AllowedTables      []string
	AllowedColumns     []string
	ForbiddenFunctions []string
}

// Logger is the minimal event-channel the gate uses to report the
// permissive-allowlist condition. It takes no context, so a
// telemetry.Logger needs a small adapter to satisfy it.
type Logger interface {
	Warn(msg string, keyvals ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Result is the outcome of gating one candidate SQL string.
type Result struct {
	Valid           bool
	SanitizedSQL    string
	EffectiveLimit  int
	ReferencedTables []string
	Errors          []string
}

// Gate evaluates candidate SQL against cfg and returns the sanitized,
// bounded statement, or a non-empty Errors list if the statement is
// unsafe to execute. Gate never returns an error for an unsafe query; it
// reports the rejection in Result.Errors so the caller can fold it into a
// PolicyDecision without raising out of the policy stage.
func Gate(sql string, cfg PolicyConfig, logger Logger) Result {
	if logger == nil {
		logger = noopLogger{}
	}

	if containsMultipleStatements(sql) {
		return Result{Errors: []string{"Multiple statements are not permitted"}}
	}

	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("failed to parse SQL: %v", err)}}
	}

	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return Result{Errors: []string{"only SELECT statements are permitted"}}
	}

	tables := referencedTables(sel)

	var errs []string
	if len(cfg.AllowedTables) > 0 {
		allowed := make(map[string]bool, len(cfg.AllowedTables))
		for _, t := range cfg.AllowedTables {
			allowed[strings.ToLower(t)] = true
		}
		for _, t := range tables {
			if !allowed[strings.ToLower(t)] {
				errs = append(errs, fmt.Sprintf("table %q is not in the allowed table list", t))
			}
		}
	} else {
		logger.Warn("sql safety gate: allowedTables is empty, permitting all tables", "sql", sql)
	}

	for _, fn := range cfg.ForbiddenFunctions {
		if fn == "" {
			continue
		}
		if strings.Contains(strings.ToLower(sql), strings.ToLower(fn)) {
			errs = append(errs, fmt.Sprintf("use of forbidden function %q is not permitted", fn))
		}
	}

	effectiveLimit, sanitized := injectLimit(sel, cfg.MaxRows)

	valid := len(errs) == 0
	return Result{
		Valid:            valid,
		SanitizedSQL:     sanitized,
		EffectiveLimit:   effectiveLimit,
		ReferencedTables: tables,
		Errors:           errs,
	}
}

// containsMultipleStatements reports whether sql, once any trailing
// semicolon is discounted, still contains a statement separator. Vitess's
// splitter is the authoritative way to do this without re-implementing a
// tokenizer.
func containsMultipleStatements(sql string) bool {
	pieces, err := sqlparser.SplitStatementToPieces(sql)
	if err != nil {
		return false
	}
	n := 0
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n > 1
}

// referencedTables walks sel's FROM clause, recursing into derived tables
// and subqueries, and returns a deduplicated, order-preserving list of base
// table names.
func referencedTables(sel *sqlparser.Select) []string {
	seen := make(map[string]bool)
	var ordered []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		ordered = append(ordered, name)
	}

	var walkExprs func(exprs sqlparser.TableExprs)
	walkExprs = func(exprs sqlparser.TableExprs) {
		for _, expr := range exprs {
			switch te := expr.(type) {
			case *sqlparser.AliasedTableExpr:
				switch inner := te.Expr.(type) {
				case sqlparser.TableName:
					add(inner.Name.String())
				case *sqlparser.Subquery:
					if innerSel, ok := inner.Select.(*sqlparser.Select); ok {
						walkExprs(innerSel.From)
					}
				}
			case *sqlparser.JoinTableExpr:
				walkExprs(sqlparser.TableExprs{te.LeftExpr})
				walkExprs(sqlparser.TableExprs{te.RightExpr})
			case *sqlparser.ParenTableExpr:
				walkExprs(te.Exprs)
			}
		}
	}
	walkExprs(sel.From)

	// Subqueries embedded in SELECT list or WHERE clause also reference
	// tables that must be accounted for by the allowlist.
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if sub, ok := node.(*sqlparser.Subquery); ok {
			if innerSel, ok := sub.Select.(*sqlparser.Select); ok {
				walkExprs(innerSel.From)
			}
		}
		return true, nil
	}, sel)

	return ordered
}

// injectLimit enforces step 7 of the gate's LIMIT algorithm: absent ->
// append; literal -> clamp in place; non-literal -> leave the existing
// clause nested and append a new trailing, enforcing LIMIT around the whole
// statement, since the gate cannot evaluate the expression statically and
// therefore cannot safely rewrite it in place.
func injectLimit(sel *sqlparser.Select, maxRows int) (int, string) {
	if sel.Limit == nil {
		sel.Limit = &sqlparser.Limit{Rowcount: sqlparser.NewIntVal([]byte(strconv.Itoa(maxRows)))}
		return maxRows, sqlparser.String(sel)
	}

	literal, ok := sel.Limit.Rowcount.(*sqlparser.SQLVal)
	if !ok || literal.Type != sqlparser.IntVal {
		return maxRows, wrapWithBoundingLimit(sel, maxRows)
	}

	n, err := strconv.Atoi(string(literal.Val))
	if err != nil {
		return maxRows, wrapWithBoundingLimit(sel, maxRows)
	}

	effective := n
	if maxRows < effective {
		effective = maxRows
	}
	sel.Limit.Rowcount = sqlparser.NewIntVal([]byte(strconv.Itoa(effective)))
	return effective, sqlparser.String(sel)
}

// wrapWithBoundingLimit appends a new trailing LIMIT around sel by nesting
// the whole statement as a derived table, leaving sel's own non-literal
// LIMIT clause untouched inside it.
func wrapWithBoundingLimit(sel *sqlparser.Select, maxRows int) string {
	return fmt.Sprintf("select * from (%s) as t limit %d", sqlparser.String(sel), maxRows)
}
