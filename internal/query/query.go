// Package query implements the small filter-term language shared by
// PopulationView.Get queries, observation pop_filters, and the artifact
// store's filter-term DSL: `column op value` terms combined by `and`/`or`.
package query

import (
	"strconv"
	"strings"
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

// Term is one `column op value` predicate.
type Term struct {
	Column string
	Op     Op
	Value  string // literal, quotes already stripped
}

// Expr is a sequence of terms combined left-to-right by boolean connectives.
// Evaluation is left-associative with no operator precedence, matching the
// simple filter grammars in the corpus this is modeled on.
type Expr struct {
	Terms       []Term
	Connectives []string // len(Terms)-1 entries, each "and" or "or"
}

var ops = []Op{OpEq, OpNeq, OpGte, OpLte, OpGt, OpLt}

// Parse parses a filter string. An empty string parses to an Expr that
// always matches everything.
func Parse(s string) Expr {
	s = strings.TrimSpace(s)
	if s == "" {
		return Expr{}
	}
	var terms []Term
	var connectives []string
	for _, chunk := range splitConnectives(s, &connectives) {
		terms = append(terms, parseTerm(chunk))
	}
	return Expr{Terms: terms, Connectives: connectives}
}

func splitConnectives(s string, connectives *[]string) []string {
	lower := strings.ToLower(s)
	var chunks []string
	start := 0
	i := 0
	for i < len(s) {
		if rest := lower[i:]; strings.HasPrefix(rest, " and ") {
			chunks = append(chunks, strings.TrimSpace(s[start:i]))
			*connectives = append(*connectives, "and")
			i += 5
			start = i
			continue
		} else if strings.HasPrefix(rest, " or ") {
			chunks = append(chunks, strings.TrimSpace(s[start:i]))
			*connectives = append(*connectives, "or")
			i += 4
			start = i
			continue
		}
		i++
	}
	chunks = append(chunks, strings.TrimSpace(s[start:]))
	return chunks
}

func parseTerm(s string) Term {
	for _, op := range ops {
		if idx := strings.Index(s, string(op)); idx >= 0 {
			col := strings.TrimSpace(s[:idx])
			val := strings.TrimSpace(s[idx+len(op):])
			val = strings.Trim(val, `"'`)
			return Term{Column: col, Op: op, Value: val}
		}
	}
	return Term{Column: strings.TrimSpace(s)}
}

// ColumnNames returns the set of column names referenced by the expression.
func (e Expr) ColumnNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, t := range e.Terms {
		if t.Column != "" && !seen[t.Column] {
			seen[t.Column] = true
			names = append(names, t.Column)
		}
	}
	return names
}

// DropUnknownColumns returns a copy of e with any term whose column is not
// in known dropped (used by the artifact store's "absent column -> silently
// drop the term" recovery rule). The corresponding connective is also
// dropped so the remaining terms stay coherent.
func (e Expr) DropUnknownColumns(known map[string]bool) Expr {
	var terms []Term
	var connectives []string
	for i, t := range e.Terms {
		if t.Column == "" || known[t.Column] {
			terms = append(terms, t)
			if len(terms) > 1 {
				connectives = append(connectives, e.connectiveBefore(i))
			}
		}
	}
	return Expr{Terms: terms, Connectives: connectives}
}

func (e Expr) connectiveBefore(i int) string {
	if i == 0 || i-1 >= len(e.Connectives) {
		return "and"
	}
	return e.Connectives[i-1]
}

// Row is a callback-provided accessor for one row's column values, used so
// Eval never needs to know about the population table's internal
// representation.
type Row func(column string) (value interface{}, ok bool)

// Eval evaluates the expression against one row.
func (e Expr) Eval(row Row) bool {
	if len(e.Terms) == 0 {
		return true
	}
	result := evalTerm(e.Terms[0], row)
	for i := 1; i < len(e.Terms); i++ {
		next := evalTerm(e.Terms[i], row)
		if e.Connectives[i-1] == "or" {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result
}

func evalTerm(t Term, row Row) bool {
	if t.Op == "" {
		v, ok := row(t.Column)
		if !ok {
			return false
		}
		b, _ := v.(bool)
		return b
	}
	v, ok := row(t.Column)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case string:
		return compareString(val, t.Op, t.Value)
	case bool:
		target := t.Value == "true" || t.Value == "True"
		return compareBool(val, t.Op, target)
	case float64:
		target, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return false
		}
		return compareFloat(val, t.Op, target)
	case int64:
		target, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return false
		}
		return compareFloat(float64(val), t.Op, float64(target))
	case int:
		target, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return false
		}
		return compareFloat(float64(val), t.Op, float64(target))
	default:
		return false
	}
}

func compareString(a string, op Op, b string) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	case OpGt:
		return a > b
	case OpGte:
		return a >= b
	case OpLt:
		return a < b
	case OpLte:
		return a <= b
	}
	return false
}

func compareBool(a bool, op Op, b bool) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	}
	return false
}

func compareFloat(a float64, op Op, b float64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	case OpGt:
		return a > b
	case OpGte:
		return a >= b
	case OpLt:
		return a < b
	case OpLte:
		return a <= b
	}
	return false
}
