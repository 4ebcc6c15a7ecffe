package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/99designs/gqlgen/graphql"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

func TestResolverLoggerExtension(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	ctx := context.WithValue(context.Background(), requestLoggerKey, logrus.FieldLogger(logger.WithField("request_id", "r1")))
	ctx = graphql.WithFieldContext(ctx, &graphql.FieldContext{
		Object: "Query",
		Field:  graphql.CollectedField{Field: &ast.Field{Name: "people", Alias: "page"}},
	})

	ext := &ResolverLoggerExtension{}
	assert.Equal(t, "ResolverLogger", ext.ExtensionName())
	require.NoError(t, ext.Validate(nil))

	res, err := ext.InterceptField(ctx, func(context.Context) (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, res)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "Query.people", entry.Data["field"])
	assert.Equal(t, "page", entry.Data["path"])
	assert.Equal(t, "r1", entry.Data["request_id"])

	boom := errors.New("boom")
	_, err = ext.InterceptField(ctx, func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, boom, hook.LastEntry().Data[logrus.ErrorKey])
}

func TestResolverLoggerExtensionOutsideField(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ctx := context.WithValue(context.Background(), requestLoggerKey, logrus.FieldLogger(logger))

	res, err := (&ResolverLoggerExtension{}).InterceptField(ctx, func(context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Empty(t, hook.AllEntries())
}
