package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/outreach-engine/engine"
)

func TestDay_NextWorkday(t *testing.T) {
	sat := engine.NewDay(2025, time.March, 15)
	sun := engine.NewDay(2025, time.March, 16)
	wed := engine.NewDay(2025, time.March, 12)

	assert.Equal(t, engine.NewDay(2025, time.March, 17), sat.NextWorkday())
	assert.Equal(t, engine.NewDay(2025, time.March, 17), sun.NextWorkday())
	assert.Equal(t, wed, wed.NextWorkday())
}

func TestDay_DaysBetween(t *testing.T) {
	a := engine.NewDay(2025, time.March, 1)
	b := engine.NewDay(2025, time.March, 22)

	assert.Equal(t, 21, engine.DaysBetween(a, b))
	assert.Equal(t, -21, engine.DaysBetween(b, a))
	assert.Equal(t, 0, engine.DaysBetween(a, a))
}

func TestDay_DaysBetweenIgnoresTimeOfDay(t *testing.T) {
	// A contact at 23:59 yesterday is still one day ago.
	late := engine.DayOf(time.Date(2025, time.March, 11, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, 1, engine.DaysBetween(late, engine.NewDay(2025, time.March, 12)))
}

func TestUpcomingWorkdays_SkipsWeekends(t *testing.T) {
	// GIVEN: Starting Thursday March 13
	// WHEN: Asking for the next 7 workdays
	// THEN: Friday, then Mon-Fri of next week, then the following Monday

	days := engine.UpcomingWorkdays(engine.NewDay(2025, time.March, 13), 7)

	require.Len(t, days, 7)
	assert.Equal(t, engine.NewDay(2025, time.March, 14), days[0])
	assert.Equal(t, engine.NewDay(2025, time.March, 17), days[1])
	assert.Equal(t, engine.NewDay(2025, time.March, 21), days[5])
	assert.Equal(t, engine.NewDay(2025, time.March, 24), days[6])
	for _, d := range days {
		assert.True(t, d.IsWorkday(), "%s is a weekend", d)
	}
}

func TestParseDay(t *testing.T) {
	d, err := engine.ParseDay("2025-03-12")
	require.NoError(t, err)
	assert.Equal(t, engine.NewDay(2025, time.March, 12), d)

	_, err = engine.ParseDay("12/03/2025")
	assert.Error(t, err)
}
