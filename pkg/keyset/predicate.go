package keyset

import (
	"fmt"
	"reflect"
	"strings"
)

// CursorKind selects which side of a cursor a page lies on.
type CursorKind int

const (
	// After selects records strictly following the cursor in sort order.
	After CursorKind = iota
	// Before selects records strictly preceding the cursor in sort order.
	Before
)

func (k CursorKind) String() string {
	if k == Before {
		return "before"
	}
	return "after"
}

// Op is a comparison operator of a Cmp predicate.
type Op int

const (
	OpEq Op = iota
	OpGt
	OpLt
)

func (o Op) String() string {
	switch o {
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	default:
		return "="
	}
}

// Predicate is a boolean expression over one record. The tree is built once
// per page request and handed to the data source, which may evaluate it in
// process or translate it into its own query language.
//
// Comparisons follow SQL semantics: a Cmp against a record whose column holds
// no value is false. Absence is tested only with IsNull.
type Predicate interface {
	predicate()
	String() string
}

// Or is true when any operand is true.
type Or []Predicate

// And is true when every operand is true.
type And []Predicate

// Cmp compares a column with a non-nil value of the column's base type.
type Cmp struct {
	Column *Column
	Op     Op
	Value  any
}

// IsNull tests whether a column holds no value.
type IsNull struct {
	Column *Column
	Negate bool
}

// Const is a constant truth value.
type Const bool

func (Or) predicate()     {}
func (And) predicate()    {}
func (Cmp) predicate()    {}
func (IsNull) predicate() {}
func (Const) predicate()  {}

func (p Or) String() string  { return joinPredicates(p, " OR ") }
func (p And) String() string { return joinPredicates(p, " AND ") }

func (p Cmp) String() string {
	return fmt.Sprintf("%s %s %v", p.Column.Key(), p.Op, p.Value)
}

func (p IsNull) String() string {
	if p.Negate {
		return p.Column.Key() + " IS NOT NULL"
	}
	return p.Column.Key() + " IS NULL"
}

func (p Const) String() string {
	if p {
		return "TRUE"
	}
	return "FALSE"
}

func joinPredicates(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = "(" + p.String() + ")"
	}
	return strings.Join(parts, sep)
}

// BuildPredicate returns the keyset filter selecting records strictly after
// (or before) the decoded cursor values under spec's composite order:
//
//	c1 R v1
//	OR (c1 = v1 AND c2 R v2)
//	OR (c1 = v1 AND c2 = v2 AND c3 R v3) ...
//
// where R is the strict relation implied by each column's direction and kind.
// Absent values order before every value of the column.
func BuildPredicate(spec *SortSpec, values []Value, kind CursorKind) (Predicate, error) {
	if spec == nil {
		return nil, argumentError("sort specification is required")
	}
	if len(values) != spec.Depth() {
		return nil, mismatchError("%d cursor values for %d sort columns", len(values), spec.Depth())
	}

	var (
		branches Or
		prefix   []Predicate
	)
	err := spec.Walk(func(col *Column) error {
		v := values[col.Position]
		if v.Column != nil && (v.Column.Key() != col.Key() || v.Column.Direction != col.Direction) {
			return mismatchError("cursor value %d belongs to column %q, want %q", col.Position, v.Column.Key(), col.Key())
		}
		if v.Value != nil && reflect.TypeOf(v.Value) != col.Type.Base() {
			return argumentError("cursor value of type %T for %s column %q", v.Value, col.Type.Tag(), col.Name)
		}

		rel := strictRelation(col, v.Value, kind)
		if c, ok := rel.(Const); !ok || bool(c) {
			branches = append(branches, conjunction(append(prefix[:len(prefix):len(prefix)], rel)))
		}
		prefix = append(prefix, equality(col, v.Value))
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch len(branches) {
	case 0:
		return Const(false), nil
	case 1:
		return branches[0], nil
	default:
		return branches, nil
	}
}

// strictRelation is "col comes after v" for After and "col comes before v"
// for Before, in traversal order.
func strictRelation(col *Column, v any, kind CursorKind) Predicate {
	greater := (col.Direction == Ascending) == (kind == After)
	switch {
	case greater && v == nil:
		return IsNull{Column: col, Negate: true}
	case greater:
		return Cmp{Column: col, Op: OpGt, Value: v}
	case v == nil:
		return Const(false)
	case col.Type.Nullable():
		return Or{IsNull{Column: col}, Cmp{Column: col, Op: OpLt, Value: v}}
	default:
		return Cmp{Column: col, Op: OpLt, Value: v}
	}
}

func equality(col *Column, v any) Predicate {
	if v == nil {
		return IsNull{Column: col}
	}
	return Cmp{Column: col, Op: OpEq, Value: v}
}

func conjunction(ps []Predicate) Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	return And(ps)
}

// Eval evaluates p against record in process.
func Eval(p Predicate, record any) (bool, error) {
	rv := reflect.ValueOf(record)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false, argumentError("record is nil")
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return false, argumentError("record is nil")
	}
	return eval(p, rv)
}

func eval(p Predicate, rv reflect.Value) (bool, error) {
	switch p := p.(type) {
	case Const:
		return bool(p), nil
	case Or:
		for _, q := range p {
			ok, err := eval(q, rv)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case And:
		for _, q := range p {
			ok, err := eval(q, rv)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil
	case IsNull:
		x, err := columnValue(p.Column, rv)
		if err != nil {
			return false, err
		}
		return (x == nil) != p.Negate, nil
	case Cmp:
		x, err := columnValue(p.Column, rv)
		if err != nil || x == nil {
			return false, err
		}
		n := p.Column.Type.Compare(x, p.Value)
		switch p.Op {
		case OpGt:
			return n > 0, nil
		case OpLt:
			return n < 0, nil
		default:
			return n == 0, nil
		}
	case nil:
		return true, nil
	}
	return false, argumentError("unsupported predicate %T", p)
}

func columnValue(col *Column, rv reflect.Value) (any, error) {
	if rv.Type() != col.record {
		return nil, argumentError("record of type %s does not match %s", rv.Type(), col.record)
	}
	return col.value(rv), nil
}
