package graphql

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/middleware"
	"github.com/rpattn/keyset/internal/personloader"
	"github.com/rpattn/keyset/internal/repository"
	"github.com/rpattn/keyset/pkg/keyset"
)

// Resolver handles GraphQL queries
type Resolver struct {
	people repository.PersonRepository
	limits domain.PagingLimits
	codec  *keyset.Codec
}

// NewResolver creates a new GraphQL resolver
func NewResolver(people repository.PersonRepository, limits domain.PagingLimits, codec *keyset.Codec) *Resolver {
	return &Resolver{people: people, limits: limits, codec: codec}
}

// People returns one keyset page of people
func (r *Resolver) People(ctx context.Context, params domain.PersonPageParams) (*keyset.Connection[domain.Person], error) {
	req, err := params.Request(r.limits, r.codec)
	if err != nil {
		return nil, err
	}
	return r.people.Page(ctx, req)
}

// Person returns a person by ID, or nil when there is none
func (r *Resolver) Person(ctx context.Context, id string) (*domain.Person, error) {
	personID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid person ID %q", keyset.ErrArgument, id)
	}
	return r.loader(ctx).Load(ctx, personID)
}

// Manager resolves a person's manager through the request's dataloader
func (r *Resolver) Manager(ctx context.Context, p *domain.Person) (*domain.Person, error) {
	if p.ManagerID == nil {
		return nil, nil
	}
	return r.loader(ctx).Load(ctx, *p.ManagerID)
}

func (r *Resolver) loader(ctx context.Context) *personloader.PersonLoader {
	if l := middleware.PersonLoaderFromContext(ctx); l != nil {
		return l
	}
	return personloader.NewPersonLoader(r.people)
}
