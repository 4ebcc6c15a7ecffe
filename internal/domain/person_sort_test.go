package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/keyset/pkg/keyset"
)

func TestPersonSortSpecAppendsID(t *testing.T) {
	spec, err := PersonSortSpec([]PersonSort{
		{Field: "Team"},
		{Field: PersonSortFieldDOB, Direction: SortDirectionDesc},
	})
	require.NoError(t, err)
	assert.Equal(t, "team asc, dob desc, id asc", spec.String())

	spec, err = PersonSortSpec([]PersonSort{{Field: PersonSortFieldID, Direction: SortDirectionDesc}, {Field: PersonSortFieldName}})
	require.NoError(t, err)
	assert.Equal(t, "id desc, name asc", spec.String())
}

func TestPersonSortSpecRejectsUnknownInput(t *testing.T) {
	_, err := PersonSortSpec([]PersonSort{{Field: "nickname"}})
	assert.ErrorIs(t, err, keyset.ErrUnknownColumn)
	assert.ErrorIs(t, err, keyset.ErrConfiguration)

	_, err = PersonSortSpec([]PersonSort{{Field: PersonSortFieldName, Direction: "sideways"}})
	assert.ErrorIs(t, err, keyset.ErrArgument)
}

func TestParsePersonSorts(t *testing.T) {
	sorts, err := ParsePersonSorts("")
	require.NoError(t, err)
	assert.Equal(t, []PersonSort{{Field: PersonSortFieldID, Direction: SortDirectionAsc}}, sorts)

	sorts, err = ParsePersonSorts("Rating desc, managerId")
	require.NoError(t, err)
	assert.Equal(t, []PersonSort{
		{Field: PersonSortFieldRating, Direction: SortDirectionDesc},
		{Field: PersonSortFieldManagerID, Direction: SortDirectionAsc},
	}, sorts)

	_, err = ParsePersonSorts("name up down")
	assert.ErrorIs(t, err, keyset.ErrArgument)
}

func TestEveryPersonSortFieldResolves(t *testing.T) {
	fields := []PersonSortField{
		PersonSortFieldID, PersonSortFieldTeam, PersonSortFieldName, PersonSortFieldDOB,
		PersonSortFieldRank, PersonSortFieldLevel, PersonSortFieldHeight, PersonSortFieldRating,
		PersonSortFieldSalary, PersonSortFieldActive, PersonSortFieldManagerID,
		PersonSortFieldExternalID, PersonSortFieldUpdatedAt,
	}
	for _, f := range fields {
		_, err := PersonSortSpec([]PersonSort{{Field: f}})
		assert.NoError(t, err, f)
	}
}

func TestSamplePeople(t *testing.T) {
	people := SamplePeople()
	require.Len(t, people, 36)

	seen := map[int64]bool{}
	for i, p := range people {
		assert.Equal(t, int64(i+1), p.ID)
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
	}

	p := people[20]
	assert.Equal(t, int64(2), p.Team)
	assert.Equal(t, "C", p.Name)
	assert.Equal(t, time.Date(1981, time.April, 7, 0, 0, 0, 0, time.UTC), p.DOB)

	next := people[21]
	assert.Equal(t, "D", next.Name)
	assert.Equal(t, p.DOB, next.DOB)

	assert.Nil(t, people[2].Rating)
	assert.NotNil(t, people[0].Rating)
	assert.Nil(t, people[3].ManagerID)
	assert.NotEqual(t, people[0].ExternalID, people[1].ExternalID)
}
