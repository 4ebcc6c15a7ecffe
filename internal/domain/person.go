package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Person is the record type served by the people directory. Its fields cover
// every sortable column kind: integers of several widths, text, date-time,
// fixed-point and floating-point numbers, booleans, UUIDs and nullable
// variants.
type Person struct {
	ID         int64           `json:"id" db:"id" bson:"_id"`
	Team       int64           `json:"team" db:"team" bson:"team"`
	Name       string          `json:"name" db:"name" bson:"name"`
	DOB        time.Time       `json:"dob" db:"dob" bson:"dob"`
	Rank       int16           `json:"rank" db:"rank" bson:"rank"`
	Level      int32           `json:"level" db:"level" bson:"level"`
	Height     float32         `json:"height" db:"height" bson:"height"`
	Rating     *float64        `json:"rating,omitempty" db:"rating" bson:"rating"`
	Salary     decimal.Decimal `json:"salary" db:"salary" bson:"salary"`
	Active     bool            `json:"active" db:"active" bson:"active"`
	ManagerID  *int64          `json:"managerId,omitempty" db:"manager_id" bson:"manager_id"`
	ExternalID uuid.UUID       `json:"externalId" db:"external_id" bson:"external_id"`
	UpdatedAt  *time.Time      `json:"updatedAt,omitempty" db:"updated_at" bson:"updated_at"`
}
