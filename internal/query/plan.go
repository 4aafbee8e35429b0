package query

import (
	"fmt"
	"regexp"
	"strings"
)

// identPattern constrains every identifier spliced into SQL text. Values
// never take this path; they are always bound as parameters.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// comparison operators accepted by where clauses.
var allowedOps = map[string]bool{
	"=": true, "!=": true, "<>": true,
	"<": true, "<=": true, ">": true, ">=": true,
	"like": true, "not like": true, "ilike": true,
}

// Plan is the ordered, fully-bound form of a validated verb chain:
// a single read-only SELECT against one table.
type Plan struct {
	Table    string
	Columns  []string
	Distinct bool

	Wheres []Where
	Orders []Order

	Limit  int64 // -1 when unset
	Offset int64 // -1 when unset

	// Terminal determines the result shape: get, first, find, pluck,
	// value, exists, count, sum, avg, min, max.
	Terminal    string
	TerminalCol string
	FindID      any
}

// Where is one predicate. Values are always bound parameters.
type Where struct {
	Conj    string // "AND" or "OR"
	Column  string
	Op      string // comparison, "in", "not in", "null", "not null", "between"
	Values  []any
	Negated bool
}

// Order is one ordering term.
type Order struct {
	Column string
	Desc   bool
}

// PlanError reports a chain that parsed but cannot be bound to a plan.
type PlanError struct {
	Verb string
	Msg  string
}

func (e *PlanError) Error() string {
	if e.Verb != "" {
		return fmt.Sprintf("cannot plan verb %s: %s", e.Verb, e.Msg)
	}
	return fmt.Sprintf("cannot plan query: %s", e.Msg)
}

var terminalVerbs = map[string]bool{
	"get": true, "first": true, "find": true, "pluck": true,
	"value": true, "exists": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
}

// BuildPlan folds parsed calls into a Plan for the given table.
// The chain must end with exactly one terminal verb; a chain without a
// terminal is rejected.
func BuildPlan(table string, calls []Call) (*Plan, error) {
	if !identPattern.MatchString(table) {
		return nil, &PlanError{Msg: "invalid table name: " + table}
	}
	p := &Plan{Table: table, Limit: -1, Offset: -1}

	for _, c := range calls {
		for _, a := range c.Args {
			if ph, ok := a.(Placeholder); ok {
				return nil, &PlanError{Verb: c.Verb, Msg: "unbound placeholder :" + ph.Key}
			}
		}
	}

	for i, c := range calls {
		verb := strings.ToLower(c.Verb)
		if terminalVerbs[verb] {
			if i != len(calls)-1 {
				return nil, &PlanError{Verb: c.Verb, Msg: "terminal verb must end the chain"}
			}
			if err := p.applyTerminal(verb, c.Args); err != nil {
				return nil, err
			}
			return p, nil
		}
		if err := p.applyBuilder(verb, c.Args); err != nil {
			return nil, err
		}
	}
	return nil, &PlanError{Msg: "query must end with a terminal verb (get, first, count, ...)"}
}

func (p *Plan) applyBuilder(verb string, args []any) error {
	switch verb {
	case "where", "orwhere":
		conj := "AND"
		if verb == "orwhere" {
			conj = "OR"
		}
		return p.addComparison(verb, conj, args)

	case "wherein", "wherenotin":
		if len(args) < 2 {
			return &PlanError{Verb: verb, Msg: "expects a column and at least one value"}
		}
		col, err := columnArg(verb, args[0])
		if err != nil {
			return err
		}
		op := "in"
		if verb == "wherenotin" {
			op = "not in"
		}
		p.Wheres = append(p.Wheres, Where{Conj: "AND", Column: col, Op: op, Values: args[1:]})
		return nil

	case "wherenull", "wherenotnull":
		if len(args) != 1 {
			return &PlanError{Verb: verb, Msg: "expects exactly one column"}
		}
		col, err := columnArg(verb, args[0])
		if err != nil {
			return err
		}
		op := "null"
		if verb == "wherenotnull" {
			op = "not null"
		}
		p.Wheres = append(p.Wheres, Where{Conj: "AND", Column: col, Op: op})
		return nil

	case "wherebetween":
		if len(args) != 3 {
			return &PlanError{Verb: verb, Msg: "expects a column and two bounds"}
		}
		col, err := columnArg(verb, args[0])
		if err != nil {
			return err
		}
		p.Wheres = append(p.Wheres, Where{Conj: "AND", Column: col, Op: "between", Values: args[1:]})
		return nil

	case "orderby", "orderbydesc":
		if len(args) < 1 || len(args) > 2 {
			return &PlanError{Verb: verb, Msg: "expects a column and optional direction"}
		}
		col, err := columnArg(verb, args[0])
		if err != nil {
			return err
		}
		desc := verb == "orderbydesc"
		if len(args) == 2 {
			dir, ok := args[1].(string)
			if !ok {
				return &PlanError{Verb: verb, Msg: "direction must be 'asc' or 'desc'"}
			}
			switch strings.ToLower(dir) {
			case "asc":
				desc = false
			case "desc":
				desc = true
			default:
				return &PlanError{Verb: verb, Msg: "direction must be 'asc' or 'desc'"}
			}
		}
		p.Orders = append(p.Orders, Order{Column: col, Desc: desc})
		return nil

	case "latest", "oldest":
		col := "created_at"
		if len(args) == 1 {
			c, err := columnArg(verb, args[0])
			if err != nil {
				return err
			}
			col = c
		} else if len(args) > 1 {
			return &PlanError{Verb: verb, Msg: "expects at most one column"}
		}
		p.Orders = append(p.Orders, Order{Column: col, Desc: verb == "latest"})
		return nil

	case "limit", "take":
		n, err := intArg(verb, args)
		if err != nil {
			return err
		}
		p.Limit = n
		return nil

	case "offset", "skip":
		n, err := intArg(verb, args)
		if err != nil {
			return err
		}
		p.Offset = n
		return nil

	case "select":
		if len(args) == 0 {
			return &PlanError{Verb: verb, Msg: "expects at least one column"}
		}
		for _, a := range args {
			col, err := columnArg(verb, a)
			if err != nil {
				return err
			}
			p.Columns = append(p.Columns, col)
		}
		return nil

	case "distinct":
		if len(args) != 0 {
			return &PlanError{Verb: verb, Msg: "takes no arguments"}
		}
		p.Distinct = true
		return nil

	default:
		return &PlanError{Verb: verb, Msg: "unsupported verb"}
	}
}

func (p *Plan) addComparison(verb, conj string, args []any) error {
	var col string
	var op string
	var val any
	var err error

	switch len(args) {
	case 2:
		col, err = columnArg(verb, args[0])
		op = "="
		val = args[1]
	case 3:
		col, err = columnArg(verb, args[0])
		if err == nil {
			s, ok := args[1].(string)
			if !ok || !allowedOps[strings.ToLower(s)] {
				return &PlanError{Verb: verb, Msg: fmt.Sprintf("unsupported operator: %v", args[1])}
			}
			op = strings.ToLower(s)
		}
		val = args[2]
	default:
		return &PlanError{Verb: verb, Msg: "expects (column, value) or (column, op, value)"}
	}
	if err != nil {
		return err
	}

	p.Wheres = append(p.Wheres, Where{Conj: conj, Column: col, Op: op, Values: []any{val}})
	return nil
}

func (p *Plan) applyTerminal(verb string, args []any) error {
	switch verb {
	case "get", "exists":
		if len(args) != 0 {
			return &PlanError{Verb: verb, Msg: "takes no arguments"}
		}
		p.Terminal = verb

	case "first":
		if len(args) != 0 {
			return &PlanError{Verb: verb, Msg: "takes no arguments"}
		}
		p.Terminal = verb
		p.Limit = 1

	case "count":
		if len(args) != 0 {
			return &PlanError{Verb: verb, Msg: "takes no arguments"}
		}
		p.Terminal = verb

	case "sum", "avg", "min", "max", "pluck", "value":
		if len(args) != 1 {
			return &PlanError{Verb: verb, Msg: "expects exactly one column"}
		}
		col, err := columnArg(verb, args[0])
		if err != nil {
			return err
		}
		p.Terminal = verb
		p.TerminalCol = col
		if verb == "value" {
			p.Limit = 1
		}

	case "find":
		if len(args) != 1 {
			return &PlanError{Verb: verb, Msg: "expects exactly one id"}
		}
		p.Terminal = verb
		p.FindID = args[0]
		p.Limit = 1

	default:
		return &PlanError{Verb: verb, Msg: "unsupported terminal verb"}
	}
	return nil
}

func columnArg(verb string, a any) (string, error) {
	s, ok := a.(string)
	if !ok || !identPattern.MatchString(s) {
		return "", &PlanError{Verb: verb, Msg: fmt.Sprintf("invalid column identifier: %v", a)}
	}
	return s, nil
}

func intArg(verb string, args []any) (int64, error) {
	if len(args) != 1 {
		return 0, &PlanError{Verb: verb, Msg: "expects exactly one integer"}
	}
	n, ok := args[0].(int64)
	if !ok || n < 0 {
		return 0, &PlanError{Verb: verb, Msg: fmt.Sprintf("expects a non-negative integer, got %v", args[0])}
	}
	return n, nil
}

// SQL compiles the plan to a parameterized Postgres SELECT.
// Values are always bound as $n parameters, never interpolated.
func (p *Plan) SQL() (string, []any, error) {
	var params []any
	next := func(v any) string {
		params = append(params, v)
		return fmt.Sprintf("$%d", len(params))
	}

	whereSQL, err := p.compileWheres(next)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")

	switch p.Terminal {
	case "count":
		b.WriteString("count(*)")
	case "sum", "avg", "min", "max":
		fmt.Fprintf(&b, "%s(%s)", p.Terminal, p.TerminalCol)
	case "pluck", "value":
		b.WriteString(p.TerminalCol)
	case "exists":
		inner := "SELECT 1 FROM " + p.Table
		if whereSQL != "" {
			inner += " WHERE " + whereSQL
		}
		return "SELECT EXISTS (" + inner + ")", params, nil
	default: // get, first, find
		if p.Distinct {
			b.WriteString("DISTINCT ")
		}
		if len(p.Columns) == 0 {
			b.WriteString("*")
		} else {
			b.WriteString(strings.Join(p.Columns, ", "))
		}
	}

	b.WriteString(" FROM ")
	b.WriteString(p.Table)

	if p.Terminal == "find" {
		fmt.Fprintf(&b, " WHERE id = %s", next(p.FindID))
	} else if whereSQL != "" {
		b.WriteString(" WHERE ")
		b.WriteString(whereSQL)
	}

	if len(p.Orders) > 0 && !p.aggregate() {
		terms := make([]string, len(p.Orders))
		for i, o := range p.Orders {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms[i] = o.Column + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}

	if p.Limit >= 0 && !p.aggregate() {
		fmt.Fprintf(&b, " LIMIT %d", p.Limit)
	}
	if p.Offset >= 0 && !p.aggregate() {
		fmt.Fprintf(&b, " OFFSET %d", p.Offset)
	}

	return b.String(), params, nil
}

func (p *Plan) aggregate() bool {
	switch p.Terminal {
	case "count", "sum", "avg", "min", "max":
		return true
	}
	return false
}

func (p *Plan) compileWheres(next func(any) string) (string, error) {
	var b strings.Builder
	for i, w := range p.Wheres {
		if i > 0 {
			b.WriteString(" " + w.Conj + " ")
		}
		switch w.Op {
		case "null":
			b.WriteString(w.Column + " IS NULL")
		case "not null":
			b.WriteString(w.Column + " IS NOT NULL")
		case "in", "not in":
			holders := make([]string, len(w.Values))
			for j, v := range w.Values {
				holders[j] = next(v)
			}
			op := "IN"
			if w.Op == "not in" {
				op = "NOT IN"
			}
			fmt.Fprintf(&b, "%s %s (%s)", w.Column, op, strings.Join(holders, ", "))
		case "between":
			if len(w.Values) != 2 {
				return "", &PlanError{Msg: "between expects two bounds"}
			}
			fmt.Fprintf(&b, "%s BETWEEN %s AND %s", w.Column, next(w.Values[0]), next(w.Values[1]))
		default:
			fmt.Fprintf(&b, "%s %s %s", w.Column, strings.ToUpper(w.Op), next(w.Values[0]))
		}
	}
	return b.String(), nil
}
