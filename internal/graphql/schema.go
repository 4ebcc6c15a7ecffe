package graphql

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

const schemaSDL = `
scalar Time
scalar Decimal
scalar UUID

type Query {
  "Keyset-paginated people. Pass either after or before, not both."
  people(first: Int, after: String, before: String, order: String): PersonConnection!
  person(id: ID!): Person
}

type PersonConnection {
  edges: [PersonEdge!]!
  pageInfo: PageInfo!
}

type PersonEdge {
  cursor: String!
  node: Person!
}

type PageInfo {
  startCursor: String
  endCursor: String
  hasNextPage: Boolean!
  hasPreviousPage: Boolean!
}

type Person {
  id: ID!
  team: Int!
  name: String!
  dob: Time!
  rank: Int!
  level: Int!
  height: Float!
  rating: Float
  salary: Decimal!
  active: Boolean!
  externalId: UUID!
  updatedAt: Time
  manager: Person
}
`

// Schema is the parsed and validated people schema.
var Schema = gqlparser.MustLoadSchema(&ast.Source{Name: "people.graphqls", Input: schemaSDL})
