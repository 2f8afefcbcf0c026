package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2012-05-25")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2012, Month: time.May, Day: 25}, d)
	assert.Equal(t, "2012-05-25", d.String())

	for _, bad := range []string{"", "2012-5-25", "2011-02-29", "25/05/2012"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrCalendar, bad)
	}
}

func TestNewDate(t *testing.T) {
	_, err := NewDate(2011, time.February, 29)
	assert.ErrorIs(t, err, ErrCalendar)

	d, err := NewDate(2012, time.February, 29)
	require.NoError(t, err)
	assert.True(t, d.IsLeapDay())
}

func TestDate_Before(t *testing.T) {
	a := Date{Year: 2010, Month: time.November, Day: 1}
	b := Date{Year: 2011, Month: time.April, Day: 15}
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.False(t, a.Before(a))
}

func TestDate_WithYear(t *testing.T) {
	d := Date{Year: 2010, Month: time.November, Day: 1}

	got, err := d.WithYear(2020, LeapDayReject)
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2020, Month: time.November, Day: 1}, got)

	_, err = d.WithYear(0, LeapDayReject)
	assert.ErrorIs(t, err, ErrCalendar)
	_, err = d.WithYear(10000, LeapDayReject)
	assert.ErrorIs(t, err, ErrCalendar)
}

func TestDate_WithYearLeapDay(t *testing.T) {
	leap := Date{Year: 2020, Month: time.February, Day: 29}

	_, err := leap.WithYear(2021, LeapDayReject)
	assert.ErrorIs(t, err, ErrCalendar)

	got, err := leap.WithYear(2021, LeapDayClamp)
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2021, Month: time.February, Day: 28}, got)

	got, err = leap.WithYear(2000, LeapDayReject)
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2000, Month: time.February, Day: 29}, got)

	_, err = leap.WithYear(1900, LeapDayReject)
	assert.ErrorIs(t, err, ErrCalendar)
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2012, time.May, 25, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, Date{Year: 2012, Month: time.May, Day: 25}, DateOf(ts))
	assert.Equal(t, time.Date(2012, time.May, 25, 0, 0, 0, 0, time.UTC), DateOf(ts).Time())
}

func TestParseLeapDayPolicy(t *testing.T) {
	p, err := ParseLeapDayPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LeapDayReject, p)

	p, err = ParseLeapDayPolicy("clamp")
	require.NoError(t, err)
	assert.Equal(t, LeapDayClamp, p)
	assert.Equal(t, "clamp", p.String())
	assert.Equal(t, "reject", LeapDayReject.String())

	_, err = ParseLeapDayPolicy("skip")
	assert.Error(t, err)
}
