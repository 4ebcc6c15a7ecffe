package graphql

import (
	"context"
	"errors"

	gql "github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/rpattn/keyset/internal/middleware"
	"github.com/rpattn/keyset/pkg/keyset"
)

// NewHandler creates the GraphQL server for resolver. Queries are accepted
// over GET and POST.
func NewHandler(resolver *Resolver) *handler.Server {
	srv := handler.New(NewExecutableSchema(resolver))
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})
	srv.SetQueryCache(lru.New[*ast.QueryDocument](1000))
	srv.SetErrorPresenter(presentError)

	// Add the resolver logging extension
	srv.Use(&middleware.ResolverLoggerExtension{})
	return srv
}

// presentError gives resolver errors a stable message and an extensions code.
// Parse and validation errors pass through unchanged.
func presentError(ctx context.Context, err error) *gqlerror.Error {
	gerr := gql.DefaultErrorPresenter(ctx, err)
	cause := gerr.Unwrap()
	if cause == nil {
		return gerr
	}
	if gerr.Extensions == nil {
		gerr.Extensions = map[string]any{}
	}

	switch {
	case keyset.IsCursorError(cause):
		class := keyset.CursorErrorClass(cause)
		middleware.LoggerFromContext(ctx).WithFields(logrus.Fields{
			"class": class,
			"path":  gerr.Path.String(),
		}).WithError(cause).Warn("rejected pagination cursor")
		gerr.Message = "invalid pagination cursor"
		gerr.Extensions["code"] = "BAD_CURSOR"
		gerr.Extensions["class"] = class
	case errors.Is(cause, keyset.ErrArgument), errors.Is(cause, keyset.ErrConfiguration):
		gerr.Extensions["code"] = "BAD_USER_INPUT"
	default:
		middleware.LoggerFromContext(ctx).WithField("path", gerr.Path.String()).WithError(cause).Error("resolver failed")
		gerr.Message = "internal error"
		gerr.Extensions["code"] = "INTERNAL"
	}
	return gerr
}
