package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/keyset/internal/personloader"
	"github.com/rpattn/keyset/internal/repository"
)

type ctxKey string

const personLoaderKey ctxKey = "personLoader"

// DataLoaderMiddleware attaches a fresh person loader to every request, so
// batching and caching never outlive it.
func DataLoaderMiddleware(repo repository.PersonRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := personloader.NewPersonLoader(repo)
			ctx := WithPersonLoader(r.Context(), loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPersonLoader stores loader in ctx.
func WithPersonLoader(ctx context.Context, loader *personloader.PersonLoader) context.Context {
	return context.WithValue(ctx, personLoaderKey, loader)
}

// PersonLoaderFromContext retrieves the person loader from context
func PersonLoaderFromContext(ctx context.Context) *personloader.PersonLoader {
	if l, ok := ctx.Value(personLoaderKey).(*personloader.PersonLoader); ok {
		return l
	}
	return nil
}
