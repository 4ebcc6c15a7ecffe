package personloader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/repository"
)

// PersonLoader batches person lookups made while resolving one request.
type PersonLoader struct {
	Loader *dataloader.Loader
}

// Key returns the loader key for a person id.
func Key(id int64) dataloader.Key {
	return dataloader.StringKey(strconv.FormatInt(id, 10))
}

func NewPersonLoader(repo repository.PersonRepository) *PersonLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				for j := range results {
					results[j] = &dataloader.Result{Error: fmt.Errorf("invalid person id %q: %w", k.String(), err)}
				}
				return results
			}
			ids[i] = id
		}

		people, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byID := make(map[int64]domain.Person, len(people))
		for _, p := range people {
			byID[p.ID] = p
		}

		// results must line up with keys
		for i, id := range ids {
			if p, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: p}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &PersonLoader{Loader: loader}
}

// Load resolves one person, batching with concurrent calls. A missing person
// yields nil without error.
func (l *PersonLoader) Load(ctx context.Context, id int64) (*domain.Person, error) {
	data, err := l.Loader.Load(ctx, Key(id))()
	if err != nil {
		return nil, err
	}
	p, ok := data.(domain.Person)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// LoadMany resolves several people in one batch. Results line up with ids and
// are cached for later Load calls on the same loader.
func (l *PersonLoader) LoadMany(ctx context.Context, ids []int64) ([]*domain.Person, error) {
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = Key(id)
	}
	data, errs := l.Loader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	people := make([]*domain.Person, len(data))
	for i, d := range data {
		if p, ok := d.(domain.Person); ok {
			people[i] = &p
		}
	}
	return people, nil
}
