package dataset

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTimestamps(n int) []time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * 15 * time.Minute)
	}
	return out
}

func TestFrameAddColumnLengthMismatch(t *testing.T) {
	f := NewFrame(testTimestamps(3))
	err := f.AddColumn("close", []float64{1, 2})
	require.Error(t, err)
}

func TestFrameColumnMissing(t *testing.T) {
	f := NewFrame(testTimestamps(2))
	_, err := f.Column("close")
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestFrameDropNaN(t *testing.T) {
	f := NewFrame(testTimestamps(4))
	require.NoError(t, f.AddColumn("a", []float64{1, math.NaN(), 3, 4}))
	require.NoError(t, f.AddColumn("b", []float64{1, 2, math.NaN(), 4}))

	clean := f.DropNaN()
	assert.Equal(t, 2, clean.Len())
	a, _ := clean.Column("a")
	assert.Equal(t, []float64{1, 4}, a)
}

func TestFrameMergeJoinsOnTimestamp(t *testing.T) {
	left := NewFrame(testTimestamps(3))
	require.NoError(t, left.AddColumn("close_btc_jpy", []float64{1, 2, 3}))

	// Right frame misses the middle timestamp.
	ts := testTimestamps(3)
	right := NewFrame([]time.Time{ts[0], ts[2]})
	require.NoError(t, right.AddColumn("close_etc_jpy", []float64{10, 30}))

	require.NoError(t, left.Merge(right))
	merged, err := left.Column("close_etc_jpy")
	require.NoError(t, err)
	assert.Equal(t, 10.0, merged[0])
	assert.True(t, math.IsNaN(merged[1]))
	assert.Equal(t, 30.0, merged[2])
}

func TestShift(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	lagged := Shift(values, 2)
	assert.True(t, math.IsNaN(lagged[0]))
	assert.True(t, math.IsNaN(lagged[1]))
	assert.Equal(t, 1.0, lagged[2])
	assert.Equal(t, 2.0, lagged[3])

	forward := Shift(values, -1)
	assert.Equal(t, 2.0, forward[0])
	assert.True(t, math.IsNaN(forward[3]))
}

func TestFrameJSONRoundTrip(t *testing.T) {
	f := NewFrame(testTimestamps(3))
	require.NoError(t, f.AddColumn("close", []float64{1.5, math.NaN(), 3.25}))
	require.NoError(t, f.AddColumn("volume", []float64{10, 20, 30}))

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var restored Frame
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, f.Columns(), restored.Columns())
	assert.Equal(t, f.Timestamps(), restored.Timestamps())
	closeCol, err := restored.Column("close")
	require.NoError(t, err)
	assert.Equal(t, 1.5, closeCol[0])
	assert.True(t, math.IsNaN(closeCol[1]))
	assert.Equal(t, 3.25, closeCol[2])
}

func TestGenerateSequences(t *testing.T) {
	data := [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
		{4, 40},
	}
	sequences, targets := GenerateSequences(data, 2, 1)
	require.Len(t, sequences, 2)
	require.Len(t, targets, 2)
	assert.Equal(t, [][]float64{{1, 10}, {2, 20}}, sequences[0])
	assert.Equal(t, 30.0, targets[0])
	assert.Equal(t, 40.0, targets[1])
}
