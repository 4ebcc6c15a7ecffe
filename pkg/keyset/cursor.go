package keyset

import (
	"strings"
)

// Default cursor delimiters.
const (
	DefaultSegmentDelimiter    = "//"
	DefaultSubsegmentDelimiter = "::"
)

// Value is one decoded cursor segment, aligned with a column of the SortSpec
// the cursor was decoded against.
type Value struct {
	Column *Column
	// Value is of the column type's base type, or nil for "no value".
	Value any
}

// Codec turns records into cursor strings and cursor strings back into key
// values. A Codec is immutable and safe for concurrent use.
//
// A cursor is one segment per sort column, joined by the segment delimiter.
// Each segment is "<direction><sub><column><sub><value>". String values are
// written verbatim, so they must not contain either delimiter; Encode rejects
// such values instead of producing a cursor that cannot be decoded.
type Codec struct {
	segment    string
	subsegment string
	trailing   bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithDelimiters overrides the segment and subsegment delimiters.
func WithDelimiters(segment, subsegment string) Option {
	return func(c *Codec) {
		c.segment = segment
		c.subsegment = subsegment
	}
}

// WithTrailingSegment makes Decode accept, and ignore, one segment beyond the
// sort depth. Hosts that append their own auxiliary segment need this.
func WithTrailingSegment() Option {
	return func(c *Codec) { c.trailing = true }
}

// NewCodec returns a codec using the default delimiters unless overridden.
func NewCodec(opts ...Option) (*Codec, error) {
	c := &Codec{segment: DefaultSegmentDelimiter, subsegment: DefaultSubsegmentDelimiter}
	for _, opt := range opts {
		opt(c)
	}
	switch {
	case c.segment == "" || c.subsegment == "":
		return nil, argumentError("cursor delimiters must not be empty")
	case strings.Contains(c.segment, c.subsegment) || strings.Contains(c.subsegment, c.segment):
		return nil, argumentError("cursor delimiters %q and %q overlap", c.segment, c.subsegment)
	}
	return c, nil
}

var defaultCodec = &Codec{segment: DefaultSegmentDelimiter, subsegment: DefaultSubsegmentDelimiter}

// DefaultCodec returns the codec with default delimiters and strict depth.
func DefaultCodec() *Codec { return defaultCodec }

// AttachCursor encodes the cursor of record under spec with the default codec.
func AttachCursor(record any, spec *SortSpec) (string, error) {
	return defaultCodec.Encode(record, spec)
}

// Encode reads the sort-key fields of record and renders its cursor.
func (c *Codec) Encode(record any, spec *SortSpec) (string, error) {
	if spec == nil {
		return "", argumentError("sort specification is required")
	}
	key, err := spec.Key(record)
	if err != nil {
		return "", err
	}
	return c.encodeKey(spec, key)
}

func (c *Codec) encodeKey(spec *SortSpec, key []any) (string, error) {
	var b strings.Builder
	err := spec.Walk(func(col *Column) error {
		v, err := col.Type.Encode(key[col.Position])
		if err != nil {
			return err
		}
		if !c.splitsBack(v, col.Position == spec.Depth()-1) {
			return argumentError("value of column %q contains a cursor delimiter", col.Name)
		}
		if col.Position > 0 {
			b.WriteString(c.segment)
		}
		b.WriteString(col.Direction.String())
		b.WriteString(c.subsegment)
		b.WriteString(col.Key())
		b.WriteString(c.subsegment)
		b.WriteString(v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// splitsBack reports whether Decode would recover v from between the
// delimiters that surround it. A value that ends with part of the segment
// delimiter is refused even though it does not contain the whole delimiter.
func (c *Codec) splitsBack(v string, last bool) bool {
	if strings.Contains(v, c.subsegment) {
		return false
	}
	framed := c.subsegment + v
	if last {
		return !strings.Contains(framed, c.segment)
	}
	framed += c.segment
	return strings.Index(framed, c.segment) == len(framed)-len(c.segment)
}

// Decode parses cursor against spec. A cursor whose structure disagrees with
// spec (segment count, column names or directions) yields ErrCursorMismatch;
// a cursor that cannot be parsed at all yields ErrCursorFormat.
func (c *Codec) Decode(cursor string, spec *SortSpec) ([]Value, error) {
	if spec == nil {
		return nil, argumentError("sort specification is required")
	}
	if cursor == "" {
		return nil, formatError("empty cursor")
	}

	segments := strings.Split(cursor, c.segment)
	switch n := len(segments); {
	case n == spec.Depth():
	case n == spec.Depth()+1 && c.trailing:
		segments = segments[:spec.Depth()]
	default:
		return nil, mismatchError("cursor has %d segments, sort order has %d columns", n, spec.Depth())
	}

	values := make([]Value, 0, spec.Depth())
	err := spec.Walk(func(col *Column) error {
		parts := strings.Split(segments[col.Position], c.subsegment)
		if len(parts) != 3 {
			return formatError("segment %d has %d parts, want 3", col.Position, len(parts))
		}
		dir, err := parseDirectionTag(parts[0])
		if err != nil {
			return err
		}
		if parts[1] != col.Key() {
			return mismatchError("segment %d is column %q, want %q", col.Position, parts[1], col.Key())
		}
		if dir != col.Direction {
			return mismatchError("column %q is sorted %s in cursor, %s in request", col.Key(), dir, col.Direction)
		}
		v, err := col.Type.Decode(parts[2])
		if err != nil {
			return err
		}
		values = append(values, Value{Column: col, Value: v})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func parseDirectionTag(tag string) (Direction, error) {
	switch tag {
	case "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	}
	return Ascending, formatError("unknown direction tag %q", tag)
}
