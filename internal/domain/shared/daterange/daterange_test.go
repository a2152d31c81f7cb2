package daterange

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndNights(t *testing.T) {
	r, err := Parse("2024-06-01", "2024-06-04")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Nights())
	assert.Len(t, r.Days(), 4)
	assert.Equal(t, "2024-06-01..2024-06-04", r.String())

	_, err = Parse("2024-06-04", "2024-06-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Parse("06/01/2024", "2024-06-04")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestNewTruncatesTimeOfDay(t *testing.T) {
	r, err := New(time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC), time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, r.Start.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, r.Nights())
}

func TestConflicts(t *testing.T) {
	existing := MustParse("2024-06-10", "2024-06-15")

	cases := []struct {
		name      string
		candidate Range
		want      bool
	}{
		{"checkout inside", MustParse("2024-06-08", "2024-06-12"), true},
		{"checkin inside", MustParse("2024-06-12", "2024-06-18"), true},
		{"swallows existing", MustParse("2024-06-05", "2024-06-20"), true},
		{"after", MustParse("2024-06-16", "2024-06-20"), false},
		{"touches end day", MustParse("2024-06-15", "2024-06-17"), true},
		{"touches start day", MustParse("2024-06-07", "2024-06-10"), true},
		{"before", MustParse("2024-06-01", "2024-06-09"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, existing.Conflicts(tc.candidate))
		})
	}
}

func TestJSONUsesCalendarDays(t *testing.T) {
	r := MustParse("2024-06-10", "2024-06-15")
	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-06-10","end":"2024-06-15"}`, string(data))

	var back Range
	require.NoError(t, back.UnmarshalJSON(data))
	assert.True(t, back.Equal(r))
}

func TestJSONRoundTripsZeroRange(t *testing.T) {
	type envelope struct {
		Range Range `json:"range"`
	}
	data, err := json.Marshal(envelope{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"range":null}`, string(data))

	back := envelope{Range: MustParse("2024-06-10", "2024-06-15")}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Range.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"range":{"start":"","end":""}}`), &back))
}
