package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newParser() *Parser {
	return New(FixedClock{T: testNow})
}

func TestParse_AbsoluteLayouts(t *testing.T) {
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	testCases := []string{
		"2024-01-15",
		"2024/01/15",
		"Jan 15, 2024",
		"15 Jan 2024",
	}

	for _, input := range testCases {
		t.Run(input, func(t *testing.T) {
			got, ok := newParser().Parse(input)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestParse_RFC3339(t *testing.T) {
	got, ok := newParser().Parse("2024-01-15T08:30:00Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), got)
}

func TestParse_RelativeOffsets(t *testing.T) {
	testCases := []struct {
		input string
		want  time.Time
	}{
		{"7d", testNow.AddDate(0, 0, -7)},
		{"2w", testNow.AddDate(0, 0, -14)},
		{"3m", testNow.AddDate(0, -3, 0)},
		{"1y", testNow.AddDate(-1, 0, 0)},
		{"0d", testNow},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := newParser().Parse(tc.input)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	testCases := []string{
		"", "   ", "notadate", "7", "d7", "7dd", "-7d", "7 d",
		"2024-13-40", "15/01/2024",
	}

	for _, input := range testCases {
		t.Run(input, func(t *testing.T) {
			_, ok := newParser().Parse(input)
			assert.False(t, ok)
		})
	}
}

func TestParse_TrimsWhitespace(t *testing.T) {
	got, ok := newParser().Parse("  2024-01-15  ")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestValid(t *testing.T) {
	p := newParser()
	assert.True(t, p.Valid("2024-01-15"))
	assert.True(t, p.Valid("7d"))
	assert.False(t, p.Valid("soon"))
}

func TestNew_NilClockDefaultsToSystem(t *testing.T) {
	p := New(nil)
	got, ok := p.Parse("1d")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -1), got, time.Minute)
}
