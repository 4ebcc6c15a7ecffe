package keyset

import (
	"context"
	"reflect"
	"strings"
)

// Source is an ordered, filterable, limitable sequence of records held by a
// data source. Implementations are immutable builders: every method returns
// a new Source and leaves the receiver untouched. Nothing is read from the
// underlying store until Fetch.
type Source[T any] interface {
	// OrderBy sorts by every column of spec, primary column first.
	OrderBy(spec *SortSpec) Source[T]
	// Where keeps records matching p. Successive calls are combined with AND.
	Where(p Predicate) Source[T]
	// Limit keeps at most n records, preserving order.
	Limit(n int) Source[T]
	// Fetch executes the query and returns the records in order.
	Fetch(ctx context.Context) ([]T, error)
}

// PageRequest describes one page of a keyset traversal.
type PageRequest struct {
	Sort *SortSpec
	// First caps the page size when set. Zero yields an empty page.
	First *int
	// Cursor is the boundary record. Blank means start from the beginning.
	Cursor string
	// Kind is ignored when Cursor is blank.
	Kind CursorKind
	// Codec decodes Cursor. Nil means DefaultCodec.
	Codec *Codec
}

func (r PageRequest) codec() *Codec {
	if r.Codec == nil {
		return defaultCodec
	}
	return r.Codec
}

// HasCursor reports whether the request carries a non-blank cursor.
func (r PageRequest) HasCursor() bool {
	return strings.TrimSpace(r.Cursor) != ""
}

// Slice orders src by spec and keeps at most first records.
func Slice[T any](src Source[T], spec *SortSpec, first *int) (Source[T], error) {
	return Paginate(src, PageRequest{Sort: spec, First: first})
}

// SliceAfter orders src by spec, keeps records strictly after the cursor and
// at most first of them.
func SliceAfter[T any](src Source[T], spec *SortSpec, first *int, after string) (Source[T], error) {
	return Paginate(src, PageRequest{Sort: spec, First: first, Cursor: after, Kind: After})
}

// SliceBefore orders src by spec, keeps records strictly before the cursor and
// at most first of them, counted from the start of the order.
func SliceBefore[T any](src Source[T], spec *SortSpec, first *int, before string) (Source[T], error) {
	return Paginate(src, PageRequest{Sort: spec, First: first, Cursor: before, Kind: Before})
}

// Paginate composes the query for req on top of src. It only builds the query;
// the caller runs it with Fetch.
func Paginate[T any](src Source[T], req PageRequest) (Source[T], error) {
	if src == nil {
		return nil, argumentError("source is required")
	}
	if req.Sort == nil {
		return nil, argumentError("sort specification is required")
	}
	if rt := recordTypeOf[T](); rt != req.Sort.RecordType() {
		return nil, argumentError("sort specification is for %s, source yields %s", req.Sort.RecordType(), rt)
	}
	if req.First != nil && *req.First < 0 {
		return nil, argumentError("first must not be negative, got %d", *req.First)
	}
	if req.Kind != After && req.Kind != Before {
		return nil, argumentError("unknown cursor kind %d", req.Kind)
	}

	out := src.OrderBy(req.Sort)
	if req.HasCursor() {
		values, err := req.codec().Decode(strings.TrimSpace(req.Cursor), req.Sort)
		if err != nil {
			return nil, err
		}
		pred, err := BuildPredicate(req.Sort, values, req.Kind)
		if err != nil {
			return nil, err
		}
		out = out.Where(pred)
	}
	if req.First != nil {
		out = out.Limit(*req.First)
	}
	return out, nil
}

func recordTypeOf[T any]() reflect.Type {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
