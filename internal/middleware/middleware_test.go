package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/pkg/keyset"
)

func TestLoggingMiddleware(t *testing.T) {
	logger, hook := test.NewNullLogger()
	var scoped logrus.FieldLogger
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped = LoggerFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/people?first=2", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	require.NotNil(t, scoped)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "req-42", entry.Data["request_id"])
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "/people", entry.Data["path"])
}

func TestLoggingMiddlewareGeneratesRequestIDs(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestLoggerFromContextFallsBack(t *testing.T) {
	assert.Equal(t, logrus.StandardLogger(), LoggerFromContext(context.Background()))
}

type emptyRepo struct{}

func (emptyRepo) Page(ctx context.Context, req keyset.PageRequest) (*keyset.Connection[domain.Person], error) {
	return nil, errors.New("not implemented")
}

func (emptyRepo) GetByIDs(ctx context.Context, ids []int64) ([]domain.Person, error) {
	return nil, nil
}

func TestDataLoaderMiddlewareScopesLoaderToRequest(t *testing.T) {
	var seen []any
	h := DataLoaderMiddleware(emptyRepo{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, PersonLoaderFromContext(r.Context()))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/graphql", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/graphql", nil))

	require.Len(t, seen, 2)
	assert.NotNil(t, seen[0])
	assert.NotSame(t, seen[0], seen[1])
	assert.Nil(t, PersonLoaderFromContext(context.Background()))
}
