// Package domain models the two inputs a WOFOST crop simulation needs from
// this service: a CABO weather file and an agromanagement schedule moved to
// the simulated year.
//
// # CABO weather files
//
// A CABO file is a commented header followed by one whitespace-separated row
// per day. Header lines start with "*"; the first uncommented line carries
// the site parameters:
//
//	<lat>  <lon>  <elevation>  <angstrom A>  <angstrom B>
//
// Elevation is written with six decimals (50 -> 50.000000). Daily rows use
// the fixed layout
//
//	%7d %2d %4d %6.0f %6.1f %6.1f %6.3f %6.1f %6.1f
//
// for station number (always 1), year, day of year, irradiation (kJ m-2 d-1),
// minimum and maximum temperature (degrees Celsius), early morning vapour
// pressure (kPa), mean 2 m wind speed (m s-1) and precipitation (mm d-1).
// Widths are minimums. The 2-wide year column therefore prints all four
// digits; readers split on whitespace and are not affected.
//
// File names carry the last three digits of the year as an extension:
// weather data for 2012 lives in "<base>.012". The reader appends that
// suffix itself, so callers pass the base name around.
//
// # Agromanagement schedules
//
// An agromanagement schedule is a list of campaigns, each keyed by a date
// and holding a CropCalendar group with crop_start_date and crop_end_date.
// Schedules are authored for one year and shifted to the weather year
// before a run. A shift keeps the number of calendar years between sowing
// and harvest, so winter crops still end in the following year. Every other
// attribute is copied unchanged.
//
// Feb 29 has no counterpart in a non-leap year. The default policy rejects
// such a shift with ErrCalendar; LeapDayClamp moves the date to Feb 28.
package domain
