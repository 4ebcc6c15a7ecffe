package graphql

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	gql "github.com/99designs/gqlgen/graphql"

	"github.com/rpattn/keyset/internal/domain"
)

// Safely dereference optional strings
func stringOrNull(s *string) gql.Marshaler {
	if s != nil {
		return gql.MarshalString(*s)
	}
	return gql.Null
}

// marshalTime keeps the zero time, which gql.MarshalTime turns into null.
func marshalTime(t *time.Time) gql.Marshaler {
	if t == nil {
		return gql.Null
	}
	return gql.MarshalString(t.Format(time.RFC3339Nano))
}

// marshalFloat32 writes the shortest form that reads back as the same float32.
func marshalFloat32(f float32) gql.Marshaler {
	return gql.WriterFunc(func(w io.Writer) {
		_, _ = io.WriteString(w, strconv.FormatFloat(float64(f), 'g', -1, 32))
	})
}

// personScalar marshals a scalar Person field.
func personScalar(p *domain.Person, name string) (gql.Marshaler, bool) {
	switch name {
	case "id":
		return gql.MarshalID(strconv.FormatInt(p.ID, 10)), true
	case "team":
		return gql.MarshalInt64(p.Team), true
	case "name":
		return gql.MarshalString(p.Name), true
	case "dob":
		return marshalTime(&p.DOB), true
	case "rank":
		return gql.MarshalInt(int(p.Rank)), true
	case "level":
		return gql.MarshalInt(int(p.Level)), true
	case "height":
		return marshalFloat32(p.Height), true
	case "rating":
		if p.Rating == nil {
			return gql.Null, true
		}
		return gql.MarshalFloat(*p.Rating), true
	case "salary":
		return gql.MarshalString(p.Salary.String()), true
	case "active":
		return gql.MarshalBoolean(p.Active), true
	case "externalId":
		return gql.MarshalString(p.ExternalID.String()), true
	case "updatedAt":
		return marshalTime(p.UpdatedAt), true
	}
	return nil, false
}

func intArg(v any) (*int, error) {
	var n int
	switch v := v.(type) {
	case nil:
		return nil, nil
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
		if float64(n) != v {
			return nil, fmt.Errorf("%v is not an integer", v)
		}
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, err
		}
		n = int(i)
	default:
		return nil, fmt.Errorf("unexpected %T for an integer", v)
	}
	return &n, nil
}

func stringArg(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
