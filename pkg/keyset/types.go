package keyset

import (
	"bytes"
	"cmp"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NullToken is the encoded form of an absent value in a nullable column.
const NullToken = "null"

// Char is a single-character column value.
type Char rune

// ColumnType describes how values of one Go type are encoded into cursors,
// decoded back, and ordered. Values handled by a ColumnType are always of the
// base (non-pointer) type; nil stands for "no value" in nullable columns.
type ColumnType struct {
	tag      string
	base     reflect.Type
	nullable bool
	encode   func(any) string
	decode   func(string) (any, error)
	compare  func(a, b any) int
	// check rejects values whose encoding would not decode to the same value.
	check func(any) error
}

// Tag returns the semantic type name, suffixed with "?" for nullable variants.
func (t *ColumnType) Tag() string {
	if t.nullable {
		return t.tag + "?"
	}
	return t.tag
}

// Nullable reports whether the column may hold no value.
func (t *ColumnType) Nullable() bool { return t.nullable }

// Base returns the non-pointer Go type of decoded values.
func (t *ColumnType) Base() reflect.Type { return t.base }

// Encode renders v as a cursor value.
func (t *ColumnType) Encode(v any) (string, error) {
	if v == nil {
		if !t.nullable {
			return "", argumentError("nil value for non-nullable %s column", t.tag)
		}
		return NullToken, nil
	}
	if reflect.TypeOf(v) != t.base {
		return "", argumentError("value of type %T for %s column", v, t.Tag())
	}
	if t.check != nil {
		if err := t.check(v); err != nil {
			return "", argumentError("%s column: %v", t.tag, err)
		}
	}
	return t.encode(v), nil
}

// Decode parses a cursor value. Malformed input yields ErrCursorFormat.
func (t *ColumnType) Decode(s string) (any, error) {
	if t.nullable && s == NullToken {
		return nil, nil
	}
	v, err := t.decode(s)
	if err != nil {
		return nil, formatError("cannot parse %q as %s: %v", s, t.Tag(), err)
	}
	return v, nil
}

// Compare orders two values of this type. Nil sorts before every value.
func (t *ColumnType) Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return t.compare(a, b)
}

// normalize turns a field value into the form Encode and Compare accept.
func (t *ColumnType) normalize(v reflect.Value) any {
	if t.nullable {
		if v.IsNil() {
			return nil
		}
		return v.Elem().Interface()
	}
	return v.Interface()
}

// Registry maps Go types to column types. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[reflect.Type]*ColumnType
}

// NewRegistry returns a registry holding the built-in column types.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[reflect.Type]*ColumnType)}
	registerBuiltins(r)
	return r
}

// DefaultRegistry is used by sort specifications and codecs that are not
// given a registry explicitly.
var DefaultRegistry = NewRegistry()

// Lookup returns the column type registered for typ.
func (r *Registry) Lookup(typ reflect.Type) (*ColumnType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.types[typ]
	return ct, ok
}

// Tags lists the registered type tags.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.types))
	for _, ct := range r.types {
		tags = append(tags, ct.Tag())
	}
	return tags
}

func (r *Registry) add(typ reflect.Type, ct *ColumnType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typ] = ct
}

// Register adds V and its nullable variant *V to the registry. String-kinded
// types get no nullable variant because NullToken is itself a valid string.
// Registering a type that is already present replaces it; do so before any
// SortSpec using the type is built.
func Register[V any](r *Registry, tag string, encode func(V) string, decode func(string) (V, error), compare func(a, b V) int) {
	base := reflect.TypeFor[V]()
	ct := &ColumnType{
		tag:  tag,
		base: base,
		encode: func(v any) string {
			return encode(v.(V))
		},
		decode: func(s string) (any, error) {
			v, err := decode(s)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
		compare: func(a, b any) int {
			return compare(a.(V), b.(V))
		},
	}
	r.add(base, ct)

	if base.Kind() == reflect.String {
		return
	}
	nullable := *ct
	nullable.nullable = true
	r.add(reflect.PointerTo(base), &nullable)
}

// restrict makes Encode reject values of V and *V that check refuses.
func restrict[V any](r *Registry, check func(V) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	base := reflect.TypeFor[V]()
	fn := func(v any) error { return check(v.(V)) }
	for _, typ := range []reflect.Type{base, reflect.PointerTo(base)} {
		if ct, ok := r.types[typ]; ok {
			ct.check = fn
		}
	}
}

func registerBuiltins(r *Registry) {
	Register(r, "char",
		func(v Char) string { return string(rune(v)) },
		func(s string) (Char, error) {
			c, size := utf8.DecodeRuneInString(s)
			// a literal U+FFFD decodes with size 3
			if size != len(s) || (c == utf8.RuneError && size <= 1) {
				return 0, fmt.Errorf("want exactly one character")
			}
			return Char(c), nil
		},
		cmp.Compare[Char])
	restrict(r, func(v Char) error {
		if !utf8.ValidRune(rune(v)) {
			return fmt.Errorf("invalid character %#x", int32(v))
		}
		return nil
	})
	registerInt[int16](r, "int16", 16)
	registerInt[int32](r, "int32", 32)
	registerInt[int64](r, "int64", 64)
	registerInt[int](r, "int", strconv.IntSize)
	registerFloat[float32](r, "float32", 32)
	registerFloat[float64](r, "float64", 64)
	Register(r, "decimal",
		decimal.Decimal.String,
		decimal.NewFromString,
		decimal.Decimal.Cmp)
	Register(r, "bool",
		strconv.FormatBool,
		strconv.ParseBool,
		func(a, b bool) int {
			switch {
			case a == b:
				return 0
			case !a:
				return -1
			default:
				return 1
			}
		})
	Register(r, "string",
		func(v string) string { return v },
		func(s string) (string, error) { return s, nil },
		strings.Compare)
	// RFC 3339 has four-digit years, so times outside 0000-9999 are refused.
	Register(r, "time",
		func(v time.Time) string { return v.Format(time.RFC3339Nano) },
		func(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) },
		time.Time.Compare)
	restrict(r, func(v time.Time) error {
		if y := v.Year(); y < 0 || y > 9999 {
			return fmt.Errorf("year %d cannot be encoded", y)
		}
		return nil
	})
	Register(r, "uuid",
		uuid.UUID.String,
		uuid.Parse,
		func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
}

func registerInt[V ~int16 | ~int32 | ~int64 | ~int](r *Registry, tag string, bits int) {
	Register(r, tag,
		func(v V) string { return strconv.FormatInt(int64(v), 10) },
		func(s string) (V, error) {
			n, err := strconv.ParseInt(s, 10, bits)
			return V(n), err
		},
		cmp.Compare[V])
}

func registerFloat[V ~float32 | ~float64](r *Registry, tag string, bits int) {
	Register(r, tag,
		func(v V) string { return strconv.FormatFloat(float64(v), 'g', -1, bits) },
		func(s string) (V, error) {
			f, err := strconv.ParseFloat(s, bits)
			return V(f), err
		},
		cmp.Compare[V])
}
