package middleware

import (
	"context"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/sirupsen/logrus"
)

// ResolverLoggerExtension logs each resolver's duration at Debug and its
// failure at Warn, on the request-scoped logger.
type ResolverLoggerExtension struct{}

var _ graphql.FieldInterceptor = &ResolverLoggerExtension{}

// ExtensionName implements graphql.HandlerExtension
func (r *ResolverLoggerExtension) ExtensionName() string {
	return "ResolverLogger"
}

// Validate implements graphql.HandlerExtension
func (r *ResolverLoggerExtension) Validate(schema graphql.ExecutableSchema) error {
	return nil
}

// InterceptField logs each resolver duration and errors
func (r *ResolverLoggerExtension) InterceptField(ctx context.Context, next graphql.Resolver) (res interface{}, err error) {
	start := time.Now()
	res, err = next(ctx)

	fc := graphql.GetFieldContext(ctx)
	if fc == nil {
		return res, err
	}
	entry := LoggerFromContext(ctx).WithFields(logrus.Fields{
		"field":       fc.Object + "." + fc.Field.Name,
		"path":        fc.Path().String(),
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
	})
	if err != nil {
		entry.WithError(err).Warn("[GRAPHQL] resolver failed")
	} else {
		entry.Debug("[GRAPHQL] resolver")
	}
	return res, err
}
