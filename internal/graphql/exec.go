package graphql

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	gql "github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/middleware"
	"github.com/rpattn/keyset/internal/personloader"
	"github.com/rpattn/keyset/pkg/keyset"
)

var (
	queryImplementors            = []string{"Query"}
	personConnectionImplementors = []string{"PersonConnection"}
	personEdgeImplementors       = []string{"PersonEdge"}
	pageInfoImplementors         = []string{"PageInfo"}
	personImplementors           = []string{"Person"}
)

type executableSchema struct {
	resolver *Resolver
}

// NewExecutableSchema binds Schema to resolver for gqlgen's handler.
func NewExecutableSchema(resolver *Resolver) gql.ExecutableSchema {
	return &executableSchema{resolver: resolver}
}

func (e *executableSchema) Schema() *ast.Schema {
	return Schema
}

// Complexity has no per-field costs; every field counts as one.
func (e *executableSchema) Complexity(ctx context.Context, typeName, field string, childComplexity int, rawArgs map[string]any) (int, bool) {
	return 0, false
}

func (e *executableSchema) Exec(ctx context.Context) gql.ResponseHandler {
	opCtx := gql.GetOperationContext(ctx)
	if opCtx.Operation.Operation != ast.Query {
		return gql.OneShot(gql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}
	ec := &executionContext{OperationContext: opCtx, resolver: e.resolver}

	first := true
	return func(ctx context.Context) *gql.Response {
		if !first {
			return nil
		}
		first = false

		if middleware.PersonLoaderFromContext(ctx) == nil {
			ctx = middleware.WithPersonLoader(ctx, personloader.NewPersonLoader(e.resolver.people))
		}
		var buf bytes.Buffer
		ec.query(ctx, opCtx.Operation.SelectionSet).MarshalGQL(&buf)
		return &gql.Response{Data: buf.Bytes()}
	}
}

type executionContext struct {
	*gql.OperationContext
	resolver *Resolver
}

// resolve runs fn as the resolver of field through the server's field
// middleware. Errors are recorded on the response at the field's path.
func (ec *executionContext) resolve(ctx context.Context, object string, field gql.CollectedField, args map[string]any, fn gql.Resolver) (context.Context, any, bool) {
	fc := &gql.FieldContext{Object: object, Field: field, Args: args, IsMethod: true, IsResolver: true}
	ctx = gql.WithFieldContext(ctx, fc)

	var res any
	var err error
	if ec.ResolverMiddleware != nil {
		res, err = ec.ResolverMiddleware(ctx, fn)
	} else {
		res, err = fn(ctx)
	}
	if err != nil {
		gql.AddError(ctx, err)
		return ctx, nil, false
	}
	fc.Result = res
	return ctx, res, true
}

func (ec *executionContext) query(ctx context.Context, sel ast.SelectionSet) gql.Marshaler {
	fields := gql.CollectFields(ec.OperationContext, sel, queryImplementors)
	out := gql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = gql.MarshalString("Query")
		case "people":
			out.Values[i] = ec.people(ctx, field)
			if out.Values[i] == gql.Null {
				out.Invalids++
			}
		case "person":
			out.Values[i] = ec.person(ctx, field)
		default:
			panic("unknown field " + strconv.Quote(field.Name))
		}
	}
	if out.Invalids > 0 {
		return gql.Null
	}
	return out
}

func (ec *executionContext) people(ctx context.Context, field gql.CollectedField) gql.Marshaler {
	args := field.ArgumentMap(ec.Variables)
	ctx, res, ok := ec.resolve(ctx, "Query", field, args, func(ctx context.Context) (any, error) {
		first, err := intArg(args["first"])
		if err != nil {
			return nil, fmt.Errorf("%w: first: %v", keyset.ErrArgument, err)
		}
		return ec.resolver.People(ctx, domain.PersonPageParams{
			First:  first,
			After:  stringArg(args["after"]),
			Before: stringArg(args["before"]),
			Order:  stringArg(args["order"]),
		})
	})
	conn, _ := res.(*keyset.Connection[domain.Person])
	if !ok || conn == nil {
		return gql.Null
	}
	return ec.connection(ctx, field.Selections, conn)
}

func (ec *executionContext) person(ctx context.Context, field gql.CollectedField) gql.Marshaler {
	args := field.ArgumentMap(ec.Variables)
	ctx, res, ok := ec.resolve(ctx, "Query", field, args, func(ctx context.Context) (any, error) {
		return ec.resolver.Person(ctx, stringArg(args["id"]))
	})
	p, _ := res.(*domain.Person)
	if !ok || p == nil {
		return gql.Null
	}
	return ec.personObject(ctx, field.Selections, p)
}

func (ec *executionContext) connection(ctx context.Context, sel ast.SelectionSet, conn *keyset.Connection[domain.Person]) gql.Marshaler {
	fields := gql.CollectFields(ec.OperationContext, sel, personConnectionImplementors)
	out := gql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = gql.MarshalString("PersonConnection")
		case "pageInfo":
			out.Values[i] = ec.pageInfo(field.Selections, conn.PageInfo)
		case "edges":
			if ec.selectsManager(field.Selections) {
				ec.prefetchManagers(ctx, conn)
			}
			fctx := gql.WithFieldContext(ctx, &gql.FieldContext{Object: "PersonConnection", Field: field, Result: conn.Edges})
			edges := make(gql.Array, len(conn.Edges))
			for j := range conn.Edges {
				idx := j
				ictx := gql.WithFieldContext(fctx, &gql.FieldContext{Index: &idx, Result: &conn.Edges[j]})
				edges[j] = ec.edge(ictx, field.Selections, &conn.Edges[j])
			}
			out.Values[i] = edges
		}
	}
	return out
}

func (ec *executionContext) pageInfo(sel ast.SelectionSet, info keyset.PageInfo) gql.Marshaler {
	fields := gql.CollectFields(ec.OperationContext, sel, pageInfoImplementors)
	out := gql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = gql.MarshalString("PageInfo")
		case "startCursor":
			out.Values[i] = stringOrNull(info.StartCursor)
		case "endCursor":
			out.Values[i] = stringOrNull(info.EndCursor)
		case "hasNextPage":
			out.Values[i] = gql.MarshalBoolean(info.HasNextPage)
		case "hasPreviousPage":
			out.Values[i] = gql.MarshalBoolean(info.HasPreviousPage)
		}
	}
	return out
}

func (ec *executionContext) edge(ctx context.Context, sel ast.SelectionSet, edge *keyset.Edge[domain.Person]) gql.Marshaler {
	fields := gql.CollectFields(ec.OperationContext, sel, personEdgeImplementors)
	out := gql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = gql.MarshalString("PersonEdge")
		case "cursor":
			out.Values[i] = gql.MarshalString(edge.Cursor)
		case "node":
			nctx := gql.WithFieldContext(ctx, &gql.FieldContext{Object: "PersonEdge", Field: field, Result: &edge.Node})
			out.Values[i] = ec.personObject(nctx, field.Selections, &edge.Node)
		}
	}
	return out
}

func (ec *executionContext) personObject(ctx context.Context, sel ast.SelectionSet, p *domain.Person) gql.Marshaler {
	fields := gql.CollectFields(ec.OperationContext, sel, personImplementors)
	out := gql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = gql.MarshalString("Person")
		case "manager":
			mctx, res, ok := ec.resolve(ctx, "Person", field, nil, func(ctx context.Context) (any, error) {
				return ec.resolver.Manager(ctx, p)
			})
			m, _ := res.(*domain.Person)
			if !ok || m == nil {
				out.Values[i] = gql.Null
				continue
			}
			out.Values[i] = ec.personObject(mctx, field.Selections, m)
		default:
			v, ok := personScalar(p, field.Name)
			if !ok {
				panic("unknown field " + strconv.Quote(field.Name))
			}
			out.Values[i] = v
		}
	}
	return out
}

// selectsManager reports whether edges { node { manager } } is selected.
func (ec *executionContext) selectsManager(edgeSel ast.SelectionSet) bool {
	for _, node := range gql.CollectFields(ec.OperationContext, edgeSel, personEdgeImplementors) {
		if node.Name != "node" {
			continue
		}
		for _, f := range gql.CollectFields(ec.OperationContext, node.Selections, personImplementors) {
			if f.Name == "manager" {
				return true
			}
		}
	}
	return false
}

// prefetchManagers loads every manager on the page in one batch. Failures are
// left for the per-person resolution to report.
func (ec *executionContext) prefetchManagers(ctx context.Context, conn *keyset.Connection[domain.Person]) {
	loader := middleware.PersonLoaderFromContext(ctx)
	if loader == nil {
		return
	}
	var ids []int64
	for _, edge := range conn.Edges {
		if edge.Node.ManagerID != nil {
			ids = append(ids, *edge.Node.ManagerID)
		}
	}
	if len(ids) > 0 {
		_, _ = loader.LoadMany(ctx, ids)
	}
}
