package domain

import (
	"fmt"
	"strings"

	"github.com/rpattn/keyset/pkg/keyset"
)

// SortDirection represents ordering direction for sortable fields.
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// PersonSortField enumerates fields that can be sorted when listing people.
type PersonSortField string

const (
	PersonSortFieldID         PersonSortField = "id"
	PersonSortFieldTeam       PersonSortField = "team"
	PersonSortFieldName       PersonSortField = "name"
	PersonSortFieldDOB        PersonSortField = "dob"
	PersonSortFieldRank       PersonSortField = "rank"
	PersonSortFieldLevel      PersonSortField = "level"
	PersonSortFieldHeight     PersonSortField = "height"
	PersonSortFieldRating     PersonSortField = "rating"
	PersonSortFieldSalary     PersonSortField = "salary"
	PersonSortFieldActive     PersonSortField = "active"
	PersonSortFieldManagerID  PersonSortField = "managerid"
	PersonSortFieldExternalID PersonSortField = "externalid"
	PersonSortFieldUpdatedAt  PersonSortField = "updatedat"
)

// DefaultPersonOrder is used when a request names no order. The trailing id
// makes the order total.
const DefaultPersonOrder = "id asc"

// PersonSort captures one ordering preference for people listings.
type PersonSort struct {
	Field     PersonSortField
	Direction SortDirection
}

// PersonSortSpec builds the keyset sort specification for sorts. The id column
// is appended when missing so that every order is total and pages never skip
// or repeat people.
func PersonSortSpec(sorts []PersonSort) (*keyset.SortSpec, error) {
	cols := make([]keyset.SortColumn, 0, len(sorts)+1)
	hasID := false
	for _, s := range sorts {
		dir, err := keyset.ParseDirection(string(s.Direction))
		if s.Direction == "" {
			dir, err = keyset.Ascending, nil
		}
		if err != nil {
			return nil, err
		}
		field := PersonSortField(strings.ToLower(string(s.Field)))
		if field == PersonSortFieldID {
			hasID = true
		}
		cols = append(cols, keyset.SortColumn{Name: string(field), Direction: dir})
	}
	if !hasID {
		cols = append(cols, keyset.Asc(string(PersonSortFieldID)))
	}
	spec, err := keyset.NewSortSpec[Person](cols...)
	if err != nil {
		return nil, fmt.Errorf("person sort: %w", err)
	}
	return spec, nil
}

// ParsePersonSorts parses an order string such as "name asc, dob desc".
func ParsePersonSorts(order string) ([]PersonSort, error) {
	if strings.TrimSpace(order) == "" {
		order = DefaultPersonOrder
	}
	cols, err := keyset.ParseOrder(order)
	if err != nil {
		return nil, err
	}
	sorts := make([]PersonSort, len(cols))
	for i, c := range cols {
		sorts[i] = PersonSort{
			Field:     PersonSortField(strings.ToLower(c.Name)),
			Direction: SortDirection(c.Direction.String()),
		}
	}
	return sorts, nil
}
