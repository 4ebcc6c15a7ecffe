package domain

import (
	"fmt"
	"strings"

	"github.com/rpattn/keyset/pkg/keyset"
)

// PagingLimits bounds the page sizes a client may request.
type PagingLimits struct {
	DefaultFirst int
	MaxFirst     int
}

// PersonPageParams are the client-facing arguments of a people listing, as
// received by the REST and GraphQL endpoints.
type PersonPageParams struct {
	First  *int
	After  string
	Before string
	Order  string
}

// Request validates the params and builds the keyset page request. A missing
// first falls back to the default; after and before are mutually exclusive.
func (p PersonPageParams) Request(limits PagingLimits, codec *keyset.Codec) (keyset.PageRequest, error) {
	after, before := strings.TrimSpace(p.After), strings.TrimSpace(p.Before)
	if after != "" && before != "" {
		return keyset.PageRequest{}, fmt.Errorf("%w: after and before are mutually exclusive", keyset.ErrArgument)
	}

	first := limits.DefaultFirst
	if p.First != nil {
		first = *p.First
	}
	if first < 0 {
		return keyset.PageRequest{}, fmt.Errorf("%w: first must not be negative", keyset.ErrArgument)
	}
	if limits.MaxFirst > 0 && first > limits.MaxFirst {
		return keyset.PageRequest{}, fmt.Errorf("%w: first must not exceed %d", keyset.ErrArgument, limits.MaxFirst)
	}

	sorts, err := ParsePersonSorts(p.Order)
	if err != nil {
		return keyset.PageRequest{}, err
	}
	spec, err := PersonSortSpec(sorts)
	if err != nil {
		return keyset.PageRequest{}, err
	}

	req := keyset.PageRequest{Sort: spec, First: &first, Codec: codec, Cursor: after, Kind: keyset.After}
	if before != "" {
		req.Cursor, req.Kind = before, keyset.Before
	}
	return req, nil
}
