package domain

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	caboBanner     = "*---------------------------------------------------------------------------*"
	caboFormatLine = "** WCCFORMAT=2"
	caboCreatedFmt = "2006-01-02 15:04:05.000000"

	// caboRowFormat lays out station number, year, doy, irradiation, tmin,
	// tmax, vapour pressure, wind speed and precipitation. Widths are minimums:
	// the 2-wide year field prints all four digits and shifts later columns.
	caboRowFormat = "%7d %2d %4d %6.0f %6.1f %6.1f %6.3f %6.1f %6.1f \n"

	caboStationNumber = 1
)

// caboColumnDoc is the fixed column legend every CABO weather file carries.
var caboColumnDoc = []string{
	"* Column  Daily value",
	"* 1       station number",
	"* 2       year",
	"* 3       day",
	"* 4       irradiation                   (kJ m-2 d-1)",
	"* 5       minimum temperature           (degrees Celsius)",
	"* 6       maximum temperature           (degrees Celsius)",
	"* 7       early morning vapour pressure (kPa)",
	"* 8       mean wind speed (height: 2 m) (m s-1)",
	"* 9       precipitation                 (mm d-1)",
	"*",
}

// CABOHeaderLines is the number of lines preceding the first daily row,
// including the site-parameters line.
const CABOHeaderLines = 19

// EncodeOptions carries the format constants that are not part of the
// weather data. Elevation, Source and Author seed StationMetadata through
// NewStationMetadata; the calibration pair is written to the site line.
type EncodeOptions struct {
	Elevation    float64
	CalibrationA float64
	CalibrationB float64
	Source       string
	Author       string
}

// DefaultEncodeOptions returns the constants used for ERA5-derived files.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Elevation:    50,
		CalibrationA: -0.18,
		CalibrationB: -0.55,
		Source:       "ERA5",
		Author:       "cabo-etl",
	}
}

// EncodeCABO writes a complete CABO weather document: the commented header,
// the site-parameters line and one row per day. Input is validated before
// anything is written, so a validation failure leaves w untouched.
func EncodeCABO(w io.Writer, meta StationMetadata, series WeatherDaySeries, opts EncodeOptions) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	if err := series.Validate(meta.Year); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	writeCABOHeader(bw, meta, opts)
	for i := range series.DayOfYear {
		fmt.Fprintf(bw, caboRowFormat,
			caboStationNumber, meta.Year, series.DayOfYear[i],
			series.Irradiation[i],
			series.MinTemperature[i],
			series.MaxTemperature[i],
			series.VapourPressure[i],
			series.WindSpeed[i],
			series.Precipitation[i],
		)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: write cabo document: %v", ErrIO, err)
	}
	return nil
}

func writeCABOHeader(w io.Writer, meta StationMetadata, opts EncodeOptions) {
	fmt.Fprintln(w, caboBanner)
	fmt.Fprintf(w, "*Station name: %s %s\n", formatDecimal(meta.Latitude), formatDecimal(meta.Longitude))
	for _, line := range caboColumnDoc {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "* Source: %s\n", meta.Source)
	fmt.Fprintf(w, "* Conversion: nc2cabo, Author: %s\n", meta.Author)
	fmt.Fprintf(w, "* File created: %s\n", clock.Now().Format(caboCreatedFmt))
	fmt.Fprintln(w, caboFormatLine)
	fmt.Fprintln(w, caboBanner)
	fmt.Fprintf(w, "%s  %s  %.6f  %.6f  %.6f \n",
		formatDecimal(meta.Latitude), formatDecimal(meta.Longitude),
		meta.Elevation, opts.CalibrationA, opts.CalibrationB)
}

// isCABOComment reports whether a line belongs to the commented header.
func isCABOComment(line string) bool {
	return strings.HasPrefix(line, "*")
}
