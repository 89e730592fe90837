package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterStateJSONKeepsSelection(t *testing.T) {
	rec := &CreditApplication{Age: 30, Sex: "male", Housing: "own", Purpose: "car", CreditAmount: 1000, Duration: 12}

	tests := []struct {
		name   string
		filter FilterState
		want   string
		match  bool
	}{
		{
			name:   "all selected",
			filter: FilterState{},
			want:   `{"purposes":null,"housing":null,"sexes":null}`,
			match:  true,
		},
		{
			name:   "none selected",
			filter: FilterState{Housing: []string{}},
			want:   `{"purposes":null,"housing":[],"sexes":null}`,
			match:  false,
		},
		{
			name:   "zero upper bound",
			filter: FilterState{AmountMax: Bound(0)},
			want:   `{"purposes":null,"housing":null,"sexes":null,"amount_max":0}`,
			match:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.filter)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))

			var back FilterState
			require.NoError(t, json.Unmarshal(raw, &back))
			assert.Equal(t, tt.filter, back)
			assert.Equal(t, tt.match, tt.filter.Match(rec))
			assert.Equal(t, tt.match, back.Match(rec))
		})
	}
}

func TestNormalizeSwapsInvertedRanges(t *testing.T) {
	f := FilterState{AgeMin: Bound(40), AgeMax: Bound(20), AmountMin: Bound(500)}
	f.Normalize()
	assert.Equal(t, 20, *f.AgeMin)
	assert.Equal(t, 40, *f.AgeMax)
	assert.Equal(t, 500, *f.AmountMin)
	assert.Nil(t, f.AmountMax)
}
