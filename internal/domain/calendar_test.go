package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func maizeCampaign(t *testing.T, key, start, end string) Campaign {
	t.Helper()
	return Campaign{
		Key: mustDate(t, key),
		Calendar: &CropCalendar{
			StartDate: mustDate(t, start),
			EndDate:   mustDate(t, end),
			Fields: Fields{
				"crop_name":       "maize",
				"variety_name":    "Grain_maize_201",
				"crop_start_type": "sowing",
				"crop_end_type":   "harvest",
				"max_duration":    300,
			},
		},
		Sections: Fields{
			"TimedEvents": []any{
				Fields{
					"event_signal": "apply_npk",
					"events_table": []any{
						Fields{"2011-05-25": Fields{"N_amount": 40.0}},
					},
				},
			},
			"StateEvents": nil,
		},
	}
}

func TestShiftCampaign_CrossesYearBoundary(t *testing.T) {
	c := maizeCampaign(t, "2010-11-01", "2010-11-01", "2011-04-15")

	got, err := ShiftCampaign(c, 2020, LeapDayReject)
	require.NoError(t, err)

	assert.Equal(t, mustDate(t, "2020-11-01"), got.Key)
	assert.Equal(t, mustDate(t, "2020-11-01"), got.Calendar.StartDate)
	assert.Equal(t, mustDate(t, "2021-04-15"), got.Calendar.EndDate)
	assert.Equal(t, 1, got.Calendar.YearOffset())
}

func TestShiftCampaign_WithinOneYear(t *testing.T) {
	c := maizeCampaign(t, "2012-05-01", "2012-05-25", "2012-10-20")

	got, err := ShiftCampaign(c, 2015, LeapDayReject)
	require.NoError(t, err)

	assert.Equal(t, mustDate(t, "2015-05-25"), got.Key)
	assert.Equal(t, mustDate(t, "2015-05-25"), got.Calendar.StartDate)
	assert.Equal(t, mustDate(t, "2015-10-20"), got.Calendar.EndDate)
	assert.Equal(t, 0, got.Calendar.YearOffset())
}

func TestShiftCampaign_PreservesOtherFields(t *testing.T) {
	c := maizeCampaign(t, "2012-05-01", "2012-05-25", "2012-10-20")

	got, err := ShiftCampaign(c, 2015, LeapDayReject)
	require.NoError(t, err)

	if diff := cmp.Diff(c.Calendar.Fields, got.Calendar.Fields); diff != "" {
		t.Fatalf("calendar fields changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(c.Sections, got.Sections); diff != "" {
		t.Fatalf("sections changed (-want +got):\n%s", diff)
	}
}

func TestShiftCampaign_DoesNotMutateInput(t *testing.T) {
	c := maizeCampaign(t, "2012-05-01", "2012-05-25", "2012-10-20")
	before := c.Clone()

	got, err := ShiftCampaign(c, 2015, LeapDayReject)
	require.NoError(t, err)

	// Writes to the result must not reach the input.
	got.Calendar.Fields["crop_name"] = "wheat"
	got.Sections["TimedEvents"].([]any)[0].(Fields)["event_signal"] = "irrigate"

	assert.Equal(t, before.Key, c.Key)
	assert.Equal(t, before.Calendar.StartDate, c.Calendar.StartDate)
	assert.Equal(t, before.Calendar.EndDate, c.Calendar.EndDate)
	if diff := cmp.Diff(before.Calendar.Fields, c.Calendar.Fields); diff != "" {
		t.Fatalf("input calendar mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before.Sections, c.Sections); diff != "" {
		t.Fatalf("input sections mutated (-want +got):\n%s", diff)
	}
}

func TestShiftCampaign_Idempotent(t *testing.T) {
	c := maizeCampaign(t, "2010-11-01", "2010-11-01", "2011-04-15")

	once, err := ShiftCampaign(c, 2020, LeapDayReject)
	require.NoError(t, err)
	twice, err := ShiftCampaign(once, 2020, LeapDayReject)
	require.NoError(t, err)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second shift changed the campaign (-once +twice):\n%s", diff)
	}
}

func TestShiftCampaign_LeapDay(t *testing.T) {
	c := maizeCampaign(t, "2020-02-29", "2020-02-29", "2020-07-01")

	_, err := ShiftCampaign(c, 2021, LeapDayReject)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalendar)

	got, err := ShiftCampaign(c, 2021, LeapDayClamp)
	require.NoError(t, err)
	assert.Equal(t, mustDate(t, "2021-02-28"), got.Calendar.StartDate)
	assert.Equal(t, mustDate(t, "2021-02-28"), got.Key)

	got, err = ShiftCampaign(c, 2024, LeapDayReject)
	require.NoError(t, err)
	assert.Equal(t, mustDate(t, "2024-02-29"), got.Calendar.StartDate)
}

func TestShiftCampaign_LeapDayEndDate(t *testing.T) {
	c := maizeCampaign(t, "2011-10-01", "2011-10-01", "2012-02-29")

	_, err := ShiftCampaign(c, 2021, LeapDayReject)
	assert.ErrorIs(t, err, ErrCalendar)

	got, err := ShiftCampaign(c, 2023, LeapDayReject)
	require.NoError(t, err)
	assert.Equal(t, mustDate(t, "2024-02-29"), got.Calendar.EndDate)
}

func TestShiftCampaign_SchemaErrors(t *testing.T) {
	noCalendar := Campaign{Key: Date{Year: 2012, Month: time.May, Day: 1}}
	_, err := ShiftCampaign(noCalendar, 2015, LeapDayReject)
	assert.ErrorIs(t, err, ErrSchema)

	noStart := maizeCampaign(t, "2012-05-01", "2012-05-25", "2012-10-20")
	noStart.Calendar.StartDate = Date{}
	_, err = ShiftCampaign(noStart, 2015, LeapDayReject)
	assert.ErrorIs(t, err, ErrSchema)

	noEnd := maizeCampaign(t, "2012-05-01", "2012-05-25", "2012-10-20")
	noEnd.Calendar.EndDate = Date{}
	_, err = ShiftCampaign(noEnd, 2015, LeapDayReject)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestShiftCampaign_EndBeforeStart(t *testing.T) {
	c := maizeCampaign(t, "2012-05-01", "2012-10-20", "2012-05-25")
	_, err := ShiftCampaign(c, 2015, LeapDayReject)
	assert.ErrorIs(t, err, ErrCalendar)
}

func TestShiftCampaign_TargetYearOutOfRange(t *testing.T) {
	c := maizeCampaign(t, "2010-11-01", "2010-11-01", "2011-04-15")
	_, err := ShiftCampaign(c, 9999, LeapDayReject)
	assert.ErrorIs(t, err, ErrCalendar)
}

func TestShiftAgromanagement_KeepsCampaignSpacing(t *testing.T) {
	campaigns := []Campaign{
		maizeCampaign(t, "2010-11-01", "2010-11-01", "2011-04-15"),
		maizeCampaign(t, "2011-05-01", "2011-05-20", "2011-10-01"),
		{Key: mustDate(t, "2011-12-01")},
	}

	got, err := ShiftAgromanagement(campaigns, 2020, LeapDayReject)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, mustDate(t, "2020-11-01"), got[0].Calendar.StartDate)
	assert.Equal(t, mustDate(t, "2021-04-15"), got[0].Calendar.EndDate)
	assert.Equal(t, mustDate(t, "2021-05-20"), got[1].Key)
	assert.Equal(t, mustDate(t, "2021-10-01"), got[1].Calendar.EndDate)
	assert.Equal(t, mustDate(t, "2021-12-01"), got[2].Key)
	assert.Nil(t, got[2].Calendar)

	assert.Equal(t, mustDate(t, "2010-11-01"), campaigns[0].Key, "input untouched")
}

func TestShiftAgromanagement_NoCalendar(t *testing.T) {
	_, err := ShiftAgromanagement([]Campaign{{Key: mustDate(t, "2012-01-01")}}, 2015, LeapDayReject)
	assert.ErrorIs(t, err, ErrSchema)

	_, err = ShiftAgromanagement(nil, 2015, LeapDayReject)
	assert.ErrorIs(t, err, ErrSchema)
}
