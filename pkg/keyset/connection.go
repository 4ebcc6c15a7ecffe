package keyset

import "context"

// Edge pairs a record with its own cursor.
type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   T      `json:"node"`
}

// PageInfo follows the Relay connection model.
type PageInfo struct {
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
}

// Connection is one fetched page, every record stamped with its cursor.
type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// Nodes returns the records of the page in order.
func (c *Connection[T]) Nodes() []T {
	nodes := make([]T, len(c.Edges))
	for i, e := range c.Edges {
		nodes[i] = e.Node
	}
	return nodes
}

// FetchPage runs req against src and stamps every record with its cursor.
//
// When req.First is set one extra record is fetched to learn whether the
// traversal continues; it is not returned. HasPreviousPage is reported for
// After cursors only, since the cursor record itself precedes the page.
func FetchPage[T any](ctx context.Context, src Source[T], req PageRequest) (*Connection[T], error) {
	wide := req
	if req.First != nil && *req.First >= 0 {
		n := *req.First + 1
		wide.First = &n
	}
	query, err := Paginate(src, wide)
	if err != nil {
		return nil, err
	}
	records, err := query.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	conn := &Connection[T]{Edges: make([]Edge[T], 0, len(records))}
	if req.First != nil && len(records) > *req.First {
		records = records[:*req.First]
		conn.PageInfo.HasNextPage = true
	}
	conn.PageInfo.HasPreviousPage = req.HasCursor() && req.Kind == After

	codec := req.codec()
	for _, rec := range records {
		cursor, err := codec.Encode(rec, req.Sort)
		if err != nil {
			return nil, err
		}
		conn.Edges = append(conn.Edges, Edge[T]{Cursor: cursor, Node: rec})
	}
	if n := len(conn.Edges); n > 0 {
		start, end := conn.Edges[0].Cursor, conn.Edges[n-1].Cursor
		conn.PageInfo.StartCursor = &start
		conn.PageInfo.EndCursor = &end
	}
	return conn, nil
}
