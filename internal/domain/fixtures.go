package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SamplePeople returns the 36-person directory used for demos and tests:
// teams 1..3 crossed with names A..D, three birth dates per name. Each name's
// dates span three consecutive years starting two years after the previous
// name's, so the last date of one name is the first date of the next.
//
// IDs run 1..36 in team, name, dob order. Every third person has no rating
// and every fourth has no manager.
func SamplePeople() []Person {
	names := []string{"A", "B", "C", "D"}
	people := make([]Person, 0, 36)
	for team := int64(1); team <= 3; team++ {
		for n, name := range names {
			for k := 0; k < 3; k++ {
				seq := len(people) + 1
				p := Person{
					ID:         int64(seq),
					Team:       team,
					Name:       name,
					DOB:        time.Date(1975+2*n+k, time.April, 7, 0, 0, 0, 0, time.UTC),
					Rank:       int16(seq % 5),
					Level:      int32(seq % 7),
					Height:     1.5 + float32(seq%10)/20,
					Salary:     decimal.New(int64(40000+seq*125), -2),
					Active:     seq%2 == 0,
					ExternalID: uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(seq)}),
				}
				if seq%3 != 0 {
					rating := float64(seq%4) + 0.5
					p.Rating = &rating
				}
				if seq%4 != 0 {
					manager := int64(seq%3 + 1)
					p.ManagerID = &manager
				}
				people = append(people, p)
			}
		}
	}
	return people
}
