package personloader

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/pkg/keyset"
)

type stubRepo struct {
	mu    sync.Mutex
	calls [][]int64
	err   error
}

func (r *stubRepo) Page(ctx context.Context, req keyset.PageRequest) (*keyset.Connection[domain.Person], error) {
	return nil, errors.New("not implemented")
}

func (r *stubRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Person, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]int64(nil), ids...))
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.Person
	for _, id := range ids {
		if id <= 36 {
			out = append(out, domain.Person{ID: id, Name: "p"})
		}
	}
	return out, nil
}

func TestLoadBatchesConcurrentLookups(t *testing.T) {
	repo := &stubRepo{}
	loader := NewPersonLoader(repo)

	thunks := []func() (any, error){
		loader.Loader.Load(context.Background(), Key(3)),
		loader.Loader.Load(context.Background(), Key(1)),
		loader.Loader.Load(context.Background(), Key(77)),
	}
	for i, want := range []any{domain.Person{ID: 3, Name: "p"}, domain.Person{ID: 1, Name: "p"}, nil} {
		got, err := thunks[i]()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	require.Len(t, repo.calls, 1)
	assert.ElementsMatch(t, []int64{3, 1, 77}, repo.calls[0])
}

func TestLoad(t *testing.T) {
	loader := NewPersonLoader(&stubRepo{})

	p, err := loader.Load(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(5), p.ID)

	p, err = loader.Load(context.Background(), 500)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestLoadPropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("database unavailable")
	loader := NewPersonLoader(&stubRepo{err: boom})

	_, err := loader.Load(context.Background(), 5)
	assert.ErrorIs(t, err, boom)
}

func TestLoadManyPrimesCache(t *testing.T) {
	repo := &stubRepo{}
	loader := NewPersonLoader(repo)

	people, err := loader.LoadMany(context.Background(), []int64{2, 90, 4})
	require.NoError(t, err)
	require.Len(t, people, 3)
	assert.Equal(t, int64(2), people[0].ID)
	assert.Nil(t, people[1])
	assert.Equal(t, int64(4), people[2].ID)

	p, err := loader.Load(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.ID)
	assert.Len(t, repo.calls, 1, "second lookup is served from the cache")
}
