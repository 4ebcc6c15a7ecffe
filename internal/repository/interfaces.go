package repository

import (
	"context"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/pkg/keyset"
)

// PersonRepository defines the interface for reading people
type PersonRepository interface {
	// Page returns one keyset page of people ordered by req.Sort.
	Page(ctx context.Context, req keyset.PageRequest) (*keyset.Connection[domain.Person], error)
	// GetByIDs returns the people with the given ids in id order. Unknown ids
	// are skipped.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Person, error)
}
