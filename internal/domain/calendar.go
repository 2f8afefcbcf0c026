package domain

import "fmt"

// Fields is an open set of calendar attributes carried through a shift
// unchanged. Values are nested Fields/maps, slices, or immutable scalars
// (string, bool, numbers, Date, time.Time, nil).
type Fields map[string]any

// Clone returns a deep copy of f that shares no maps or slices with it.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case Fields:
		return tv.Clone()
	case map[string]any:
		return Fields(tv).Clone()
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// CropCalendar is the CropCalendar group of one agromanagement campaign.
// Fields holds every attribute other than the two dates (crop name,
// variety, start/end type, max duration, ...).
type CropCalendar struct {
	StartDate Date
	EndDate   Date
	Fields    Fields
}

// Clone returns a deep copy of c.
func (c *CropCalendar) Clone() *CropCalendar {
	if c == nil {
		return nil
	}
	return &CropCalendar{StartDate: c.StartDate, EndDate: c.EndDate, Fields: c.Fields.Clone()}
}

// YearOffset is the number of calendar years between sowing and harvest:
// 0 for a cycle inside one year, 1 when harvest falls in the following year.
func (c *CropCalendar) YearOffset() int {
	return c.EndDate.Year - c.StartDate.Year
}

// Campaign is one date-keyed entry of an agromanagement schedule. Key is the
// campaign date the schedule indexes it by; Sections holds the sibling groups
// of CropCalendar (TimedEvents, StateEvents, ...). A nil Calendar with nil
// Sections is the empty entry that closes a schedule.
type Campaign struct {
	Key      Date
	Calendar *CropCalendar
	Sections Fields
}

// Clone returns a deep copy of c.
func (c Campaign) Clone() Campaign {
	return Campaign{Key: c.Key, Calendar: c.Calendar.Clone(), Sections: c.Sections.Clone()}
}

// ShiftCampaign moves a campaign to targetYear. The start date takes the
// target year; the end date keeps its year distance from the start, so a
// cycle sown in November still ends the following spring. The returned
// campaign is keyed by the new start date and shares nothing with c.
func ShiftCampaign(c Campaign, targetYear int, policy LeapDayPolicy) (Campaign, error) {
	cal := c.Calendar
	if cal == nil {
		return Campaign{}, fmt.Errorf("%w: campaign %s has no CropCalendar", ErrSchema, c.Key)
	}
	if cal.StartDate.IsZero() {
		return Campaign{}, fmt.Errorf("%w: campaign %s has no crop_start_date", ErrSchema, c.Key)
	}
	if cal.EndDate.IsZero() {
		return Campaign{}, fmt.Errorf("%w: campaign %s has no crop_end_date", ErrSchema, c.Key)
	}
	if cal.EndDate.Before(cal.StartDate) {
		return Campaign{}, fmt.Errorf("%w: crop_end_date %s precedes crop_start_date %s", ErrCalendar, cal.EndDate, cal.StartDate)
	}

	start, err := cal.StartDate.WithYear(targetYear, policy)
	if err != nil {
		return Campaign{}, fmt.Errorf("shift crop_start_date: %w", err)
	}
	end, err := cal.EndDate.WithYear(targetYear+cal.YearOffset(), policy)
	if err != nil {
		return Campaign{}, fmt.Errorf("shift crop_end_date: %w", err)
	}

	out := c.Clone()
	out.Key = start
	out.Calendar.StartDate = start
	out.Calendar.EndDate = end
	return out, nil
}

// ShiftAgromanagement moves a whole schedule so that its first crop starts
// in targetYear. Later campaigns keep their year distance from the first
// one; campaigns without a CropCalendar only have their key moved.
func ShiftAgromanagement(campaigns []Campaign, targetYear int, policy LeapDayPolicy) ([]Campaign, error) {
	anchor := -1
	for i, c := range campaigns {
		if c.Calendar != nil {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return nil, fmt.Errorf("%w: agromanagement has no campaign with a CropCalendar", ErrSchema)
	}
	delta := targetYear - campaigns[anchor].Calendar.StartDate.Year

	out := make([]Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.Calendar == nil {
			key, err := c.Key.WithYear(c.Key.Year+delta, policy)
			if err != nil {
				return nil, fmt.Errorf("shift campaign %s: %w", c.Key, err)
			}
			moved := c.Clone()
			moved.Key = key
			out = append(out, moved)
			continue
		}
		shifted, err := ShiftCampaign(c, c.Calendar.StartDate.Year+delta, policy)
		if err != nil {
			return nil, fmt.Errorf("shift campaign %s: %w", c.Key, err)
		}
		out = append(out, shifted)
	}
	return out, nil
}
