package keyset

import "strings"

// ParseOrder parses a comma-separated order string such as
// "id asc, name desc" or "id:asc,name:desc". A column without a direction is
// ascending.
func ParseOrder(order string) ([]SortColumn, error) {
	if strings.TrimSpace(order) == "" {
		return nil, argumentError("empty order")
	}
	var cols []SortColumn
	for _, part := range strings.Split(order, ",") {
		tokens := strings.Fields(strings.Replace(part, ":", " ", 1))
		switch len(tokens) {
		case 1:
			cols = append(cols, Asc(tokens[0]))
		case 2:
			dir, err := ParseDirection(tokens[1])
			if err != nil {
				return nil, err
			}
			cols = append(cols, SortColumn{Name: tokens[0], Direction: dir})
		default:
			return nil, argumentError("malformed order term %q", strings.TrimSpace(part))
		}
	}
	return cols, nil
}

// ParseSortSpec parses order and resolves it against T.
func ParseSortSpec[T any](order string) (*SortSpec, error) {
	cols, err := ParseOrder(order)
	if err != nil {
		return nil, err
	}
	return NewSortSpec[T](cols...)
}
