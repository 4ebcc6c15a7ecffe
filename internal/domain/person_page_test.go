package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/keyset/pkg/keyset"
)

var limits = PagingLimits{DefaultFirst: 10, MaxFirst: 50}

func TestPersonPageParamsDefaults(t *testing.T) {
	req, err := PersonPageParams{}.Request(limits, nil)
	require.NoError(t, err)
	require.NotNil(t, req.First)
	assert.Equal(t, 10, *req.First)
	assert.Equal(t, "id asc", req.Sort.String())
	assert.False(t, req.HasCursor())
	assert.Equal(t, keyset.After, req.Kind)
}

func TestPersonPageParamsCursors(t *testing.T) {
	first := 0
	req, err := PersonPageParams{First: &first, Before: " asc::id::4 ", Order: "name desc"}.Request(limits, keyset.DefaultCodec())
	require.NoError(t, err)
	assert.Equal(t, 0, *req.First)
	assert.Equal(t, keyset.Before, req.Kind)
	assert.Equal(t, "asc::id::4", req.Cursor)
	assert.Equal(t, "name desc, id asc", req.Sort.String())
	assert.NotNil(t, req.Codec)

	req, err = PersonPageParams{After: "asc::id::4"}.Request(limits, nil)
	require.NoError(t, err)
	assert.Equal(t, keyset.After, req.Kind)
}

func TestPersonPageParamsRejectsBadInput(t *testing.T) {
	neg, huge := -1, 51
	for name, p := range map[string]PersonPageParams{
		"both cursors":   {After: "a", Before: "b"},
		"negative first": {First: &neg},
		"first too big":  {First: &huge},
		"bad order":      {Order: "name sideways"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.Request(limits, nil)
			assert.ErrorIs(t, err, keyset.ErrArgument)
		})
	}

	_, err := PersonPageParams{Order: "shoe_size"}.Request(limits, nil)
	assert.ErrorIs(t, err, keyset.ErrUnknownColumn)
}
