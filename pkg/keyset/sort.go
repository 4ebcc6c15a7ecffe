package keyset

import (
	"reflect"
	"strings"
	"sync"
)

// Direction is the ordering direction of one sort column.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// String returns the cursor tag for the direction.
func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts "asc"/"ascending" and "desc"/"descending" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, argumentError("unknown sort direction %q", s)
}

// SortColumn names a record field and the direction to order it by.
type SortColumn struct {
	Name      string
	Direction Direction
}

// Asc orders by name ascending.
func Asc(name string) SortColumn { return SortColumn{Name: name, Direction: Ascending} }

// Desc orders by name descending.
func Desc(name string) SortColumn { return SortColumn{Name: name, Direction: Descending} }

// Column is one resolved link of a SortSpec chain.
type Column struct {
	SortColumn

	// Position is the zero-based index of the column in its chain.
	Position int
	Type     *ColumnType

	record reflect.Type
	field  []int
	db     string
	bson   string
	next   *Column
}

// Next returns the then-by column, or nil at the end of the chain.
func (c *Column) Next() *Column { return c.next }

// Key is the lowercased column name written into cursors.
func (c *Column) Key() string { return strings.ToLower(c.Name) }

// DBName is the SQL column name: the field's db tag, else its lowercased name.
func (c *Column) DBName() string { return c.db }

// BSONName is the document key: the field's bson tag, else its lowercased name.
func (c *Column) BSONName() string { return c.bson }

// value reads the column from an addressable or plain struct value.
func (c *Column) value(rv reflect.Value) any {
	return c.Type.normalize(rv.FieldByIndex(c.field))
}

// SortSpec is an immutable, validated chain of sort columns bound to one
// record type. It is safe for concurrent use.
type SortSpec struct {
	recordType reflect.Type
	head       *Column
	depth      int
}

// NewSortSpec resolves cols against the fields of T using DefaultRegistry.
func NewSortSpec[T any](cols ...SortColumn) (*SortSpec, error) {
	return NewSortSpecWithRegistry[T](DefaultRegistry, cols...)
}

// NewSortSpecWithRegistry resolves cols against the fields of T.
// T may be a struct or a pointer to a struct.
func NewSortSpecWithRegistry[T any](reg *Registry, cols ...SortColumn) (*SortSpec, error) {
	return newSortSpec(reflect.TypeFor[T](), reg, cols)
}

func newSortSpec(typ reflect.Type, reg *Registry, cols []SortColumn) (*SortSpec, error) {
	if reg == nil {
		return nil, argumentError("registry is required")
	}
	if len(cols) == 0 {
		return nil, argumentError("sort specification needs at least one column")
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, argumentError("record type %s is not a struct", typ)
	}

	fields := fieldsOf(typ)
	spec := &SortSpec{recordType: typ, depth: len(cols)}
	var prev *Column
	for i, sc := range cols {
		if sc.Direction != Ascending && sc.Direction != Descending {
			return nil, argumentError("column %q has invalid direction %d", sc.Name, sc.Direction)
		}
		col, err := fields.resolve(reg, sc)
		if err != nil {
			return nil, err
		}
		col.Position = i
		if prev == nil {
			spec.head = col
		} else {
			prev.next = col
		}
		prev = col
	}
	return spec, nil
}

// Depth returns the number of columns in the chain.
func (s *SortSpec) Depth() int { return s.depth }

// RecordType returns the struct type the sort was resolved against.
func (s *SortSpec) RecordType() reflect.Type { return s.recordType }

// First returns the primary column.
func (s *SortSpec) First() *Column { return s.head }

// ColumnAt returns the column at position i, or nil when out of range.
func (s *SortSpec) ColumnAt(i int) *Column {
	if i < 0 {
		return nil
	}
	c := s.head
	for ; c != nil && i > 0; i-- {
		c = c.next
	}
	return c
}

// Walk calls fn for every column in chain order and stops at the first error.
func (s *SortSpec) Walk(fn func(*Column) error) error {
	for c := s.head; c != nil; c = c.next {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// Columns returns the unresolved columns in chain order.
func (s *SortSpec) Columns() []SortColumn {
	cols := make([]SortColumn, 0, s.depth)
	_ = s.Walk(func(c *Column) error {
		cols = append(cols, c.SortColumn)
		return nil
	})
	return cols
}

// String renders the sort in the form accepted by ParseOrder.
func (s *SortSpec) String() string {
	parts := make([]string, 0, s.depth)
	_ = s.Walk(func(c *Column) error {
		parts = append(parts, c.Key()+" "+c.Direction.String())
		return nil
	})
	return strings.Join(parts, ", ")
}

// Key reads the sort-key values of record in chain order.
func (s *SortSpec) Key(record any) ([]any, error) {
	rv, err := s.recordValue(record)
	if err != nil {
		return nil, err
	}
	key := make([]any, 0, s.depth)
	_ = s.Walk(func(c *Column) error {
		key = append(key, c.value(rv))
		return nil
	})
	return key, nil
}

// CompareKeys orders two keys produced by Key under the composite ordering:
// the first differing column decides, honouring its direction.
func (s *SortSpec) CompareKeys(a, b []any) int {
	i := 0
	for c := s.head; c != nil; c = c.next {
		if n := c.Type.Compare(a[i], b[i]); n != 0 {
			if c.Direction == Descending {
				return -n
			}
			return n
		}
		i++
	}
	return 0
}

func (s *SortSpec) recordValue(record any) (reflect.Value, error) {
	rv := reflect.ValueOf(record)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, argumentError("record is nil")
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return reflect.Value{}, argumentError("record is nil")
	}
	if rv.Type() != s.recordType {
		return reflect.Value{}, argumentError("record of type %s does not match %s", rv.Type(), s.recordType)
	}
	return rv, nil
}

// typeFields indexes the readable fields of a struct type by lowercased name.
type typeFields struct {
	typ    reflect.Type
	byName map[string][]reflect.StructField
}

var fieldCache sync.Map // reflect.Type -> *typeFields

// fieldsOf returns the cached field index for typ. Concurrent first calls may
// both compute it; they produce identical results and either may win.
func fieldsOf(typ reflect.Type) *typeFields {
	if cached, ok := fieldCache.Load(typ); ok {
		return cached.(*typeFields)
	}
	tf := &typeFields{typ: typ, byName: make(map[string][]reflect.StructField)}
	for _, f := range reflect.VisibleFields(typ) {
		if !f.IsExported() || f.Anonymous || throughPointer(typ, f.Index) {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("keyset"); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		key := strings.ToLower(name)
		tf.byName[key] = append(tf.byName[key], f)
	}
	actual, _ := fieldCache.LoadOrStore(typ, tf)
	return actual.(*typeFields)
}

func (tf *typeFields) resolve(reg *Registry, sc SortColumn) (*Column, error) {
	sc.Name = strings.TrimSpace(sc.Name)
	matches := tf.byName[strings.ToLower(sc.Name)]
	switch len(matches) {
	case 0:
		return nil, fmtConfig(ErrUnknownColumn, sc.Name, tf.typ)
	case 1:
	default:
		return nil, fmtConfig(ErrAmbiguousColumn, sc.Name, tf.typ)
	}
	f := matches[0]
	ct, ok := reg.Lookup(f.Type)
	if !ok {
		return nil, fmtConfig(ErrUnsupportedType, sc.Name, f.Type)
	}
	return &Column{
		SortColumn: sc,
		Type:       ct,
		record:     tf.typ,
		field:      f.Index,
		db:         storageName(f, "db"),
		bson:       storageName(f, "bson"),
	}, nil
}

func storageName(f reflect.StructField, key string) string {
	if tag := f.Tag.Get(key); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

// throughPointer reports whether a promoted field is reached via an embedded
// pointer, which may be nil at read time.
func throughPointer(typ reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := typ.Field(i)
		if f.Type.Kind() == reflect.Pointer {
			return true
		}
		typ = f.Type
	}
	return false
}
