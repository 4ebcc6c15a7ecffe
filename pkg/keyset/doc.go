// Package keyset implements cursor-based (keyset) pagination over any ordered
// data source with a caller-chosen, multi-column sort order.
//
// A SortSpec names the columns a record type is ordered by, each with its own
// direction. A Codec turns a record into an opaque cursor carrying the
// record's sort-key values, and turns the cursor back into typed values.
// BuildPredicate converts those values into a filter selecting the records
// strictly after (or before) the cursor under the composite order:
//
//	spec, err := keyset.NewSortSpec[Person](keyset.Asc("Id"), keyset.Asc("Name"), keyset.Asc("DOB"))
//	if err != nil {
//	    return err
//	}
//	first := 10
//	page, err := keyset.SliceAfter(source, spec, &first, afterCursor)
//	if err != nil {
//	    return err
//	}
//	people, err := page.Fetch(ctx)
//
// The predicate is an expression tree rather than a closure so that a Source
// backed by a database can push it down as a WHERE clause.
//
// # Supported column types
//
// Char, int16, int32, int64, int, float32, float64, decimal.Decimal, bool,
// string, time.Time and uuid.UUID, plus a pointer to each of them except
// string for nullable columns. A nil pointer sorts before every value when
// ascending and after every value when descending. More types can be added
// with Register.
//
// # Sharp edges
//
// Cursor values are written verbatim. String columns whose values contain the
// segment or subsegment delimiter cannot be encoded; pick delimiters that the
// data never contains. Cursors are only meaningful for the sort order that
// produced them and decoding under any other order fails with
// ErrCursorMismatch.
package keyset
