package timeutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, c.Hour())
	assert.Equal(t, 30, c.Minute())
	assert.Equal(t, "09:30", c.String())

	for _, bad := range []string{"25:00", "12:75", "noon", "9:30", "9:5", "09:30xyz", "09-30", "0930", ""} {
		_, err = ParseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestClockJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(MustClock("08:05"))
	require.NoError(t, err)
	assert.Equal(t, `"08:05"`, string(b))

	var c Clock
	require.NoError(t, json.Unmarshal([]byte(`"17:45"`), &c))
	assert.Equal(t, MustClock("17:45"), c)

	assert.Error(t, json.Unmarshal([]byte(`1745`), &c))
}

func TestOverlapsHalfOpen(t *testing.T) {
	nine := MustClock("09:00")
	ten := MustClock("10:00")
	eleven := MustClock("11:00")
	noon := MustClock("12:00")

	assert.True(t, Overlaps(nine, eleven, ten, noon), "partial overlap")
	assert.True(t, Overlaps(nine, noon, ten, eleven), "containment")
	assert.False(t, Overlaps(nine, ten, ten, eleven), "touching endpoints do not overlap")
	assert.False(t, Overlaps(eleven, noon, nine, ten))
}

func TestWeekdayIndexMondayZero(t *testing.T) {
	// 2025-06-02 is a Monday.
	assert.Equal(t, 0, WeekdayIndex(Date(2025, time.June, 2)))
	assert.Equal(t, 6, WeekdayIndex(Date(2025, time.June, 8)))
	assert.Equal(t, "Monday", DayName(0))
	assert.Equal(t, "Sunday", DayName(6))
	assert.Equal(t, "", DayName(7))
}

func TestClockOn(t *testing.T) {
	at := MustClock("14:30").On(Date(2025, time.June, 2))
	assert.Equal(t, time.Date(2025, time.June, 2, 14, 30, 0, 0, time.UTC), at)
}

func TestSlotCapacity(t *testing.T) {
	assert.Equal(t, 14, SlotCapacity(420, 30))
	assert.Equal(t, 0, SlotCapacity(420, 0))
	assert.Equal(t, 2, SlotCapacity(75, 30))
}
