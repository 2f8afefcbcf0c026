package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// WeatherDaySeries holds one year of daily weather for a single grid cell.
// All slices are parallel: index i of every parameter belongs to DayOfYear[i].
// JSON names follow the variable names of the upstream ERA5 extraction.
type WeatherDaySeries struct {
	DayOfYear      []int     `json:"doy"`
	Irradiation    []float64 `json:"surface_downwelling_shortwave_flux_in_air"` // kJ m-2 d-1
	MinTemperature []float64 `json:"mn2t"`                                      // degrees Celsius
	MaxTemperature []float64 `json:"mx2t"`                                      // degrees Celsius
	VapourPressure []float64 `json:"vapour_pressure"`                           // kPa
	WindSpeed      []float64 `json:"wind_speed"`                                // m s-1
	Precipitation  []float64 `json:"precipitation_flux"`                        // mm d-1
}

// Len returns the number of days in the series.
func (s WeatherDaySeries) Len() int {
	return len(s.DayOfYear)
}

// parameters returns the six weather columns in CABO column order.
func (s WeatherDaySeries) parameters() []struct {
	name   string
	values []float64
} {
	return []struct {
		name   string
		values []float64
	}{
		{"surface_downwelling_shortwave_flux_in_air", s.Irradiation},
		{"mn2t", s.MinTemperature},
		{"mx2t", s.MaxTemperature},
		{"vapour_pressure", s.VapourPressure},
		{"wind_speed", s.WindSpeed},
		{"precipitation_flux", s.Precipitation},
	}
}

// Validate checks that the series is non-empty, that every parameter has one
// finite value per day, and that day-of-year values are strictly ascending
// and fall inside the given year.
func (s WeatherDaySeries) Validate(year int) error {
	n := s.Len()
	if n == 0 {
		return fmt.Errorf("%w: weather series is empty", ErrValidation)
	}

	for _, p := range s.parameters() {
		if len(p.values) != n {
			return fmt.Errorf("%w: %s has %d values, doy has %d", ErrValidation, p.name, len(p.values), n)
		}
		for i, v := range p.values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s is not finite on doy %d", ErrValidation, p.name, s.DayOfYear[i])
			}
		}
	}

	maxDay := DaysInYear(year)
	for i, doy := range s.DayOfYear {
		if doy < 1 || doy > maxDay {
			return fmt.Errorf("%w: doy %d outside 1..%d for year %d", ErrValidation, doy, maxDay, year)
		}
		if i > 0 && doy <= s.DayOfYear[i-1] {
			return fmt.Errorf("%w: doy %d follows %d, days must be strictly ascending", ErrValidation, doy, s.DayOfYear[i-1])
		}
	}
	return nil
}

// StationMetadata describes the grid cell a weather file belongs to.
type StationMetadata struct {
	Year      int
	Latitude  float64
	Longitude float64
	Elevation float64 // metres
	Source    string
	Author    string
}

// NewStationMetadata builds metadata for a grid cell, taking elevation,
// source and author from the encoder options.
func NewStationMetadata(year int, lat, lon float64, opts EncodeOptions) StationMetadata {
	return StationMetadata{
		Year:      year,
		Latitude:  lat,
		Longitude: lon,
		Elevation: opts.Elevation,
		Source:    opts.Source,
		Author:    opts.Author,
	}
}

// Validate checks that the year fits the 4-digit field the file naming
// relies on and that the site values are finite.
func (m StationMetadata) Validate() error {
	if m.Year < 1000 || m.Year > 9999 {
		return fmt.Errorf("%w: year %d is not a 4-digit year", ErrValidation, m.Year)
	}
	for _, v := range [...]float64{m.Latitude, m.Longitude, m.Elevation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: station coordinates and elevation must be finite", ErrValidation)
		}
	}
	return nil
}

// CABOFileName appends the year suffix the CABO weather reader expects:
// the last three digits of the year, e.g. base.012 for 2012. Years that
// share those digits across centuries map to the same name.
func CABOFileName(base string, year int) string {
	return fmt.Sprintf("%s.%03d", base, year%1000)
}

// DefaultFileBase names a weather file after its grid cell, "<lat>_<lon>".
func DefaultFileBase(lat, lon float64) string {
	return formatDecimal(lat) + "_" + formatDecimal(lon)
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if isLeap(year) {
		return 366
	}
	return 365
}

// formatDecimal renders the shortest decimal that round-trips v, always
// with a fractional part (110 -> "110.0").
func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") && !math.IsInf(v, 0) && !math.IsNaN(v) {
		s += ".0"
	}
	return s
}
