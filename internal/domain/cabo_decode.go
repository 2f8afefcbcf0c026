package domain

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CABODocument is the parsed content of a CABO weather file.
type CABODocument struct {
	Station      StationMetadata
	CalibrationA float64
	CalibrationB float64
	Created      string
	HeaderLines  int
	Series       WeatherDaySeries
}

// DecodeCABO parses a CABO weather document. Data rows are split on
// whitespace, the way the CABO weather reader does, so a widened year field
// does not shift the columns.
func DecodeCABO(r io.Reader) (CABODocument, error) {
	var doc CABODocument
	siteSeen := false
	lineNum := 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNum++
		line := sc.Text()

		if !siteSeen && isCABOComment(line) {
			doc.HeaderLines++
			parseCABOComment(&doc, line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !siteSeen {
			if err := parseCABOSite(&doc, line); err != nil {
				return CABODocument{}, fmt.Errorf("line %d: %w", lineNum, err)
			}
			doc.HeaderLines++
			siteSeen = true
			continue
		}

		if err := parseCABORow(&doc, line); err != nil {
			return CABODocument{}, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	if err := sc.Err(); err != nil {
		return CABODocument{}, fmt.Errorf("%w: read cabo document: %v", ErrIO, err)
	}

	if !siteSeen {
		return CABODocument{}, fmt.Errorf("%w: missing site parameters line", ErrValidation)
	}
	if doc.Series.Len() == 0 {
		return CABODocument{}, fmt.Errorf("%w: no daily rows", ErrValidation)
	}
	return doc, nil
}

func parseCABOComment(doc *CABODocument, line string) {
	switch {
	case strings.HasPrefix(line, "* Source: "):
		doc.Station.Source = strings.TrimPrefix(line, "* Source: ")
	case strings.HasPrefix(line, "* Conversion: nc2cabo, Author: "):
		doc.Station.Author = strings.TrimPrefix(line, "* Conversion: nc2cabo, Author: ")
	case strings.HasPrefix(line, "* File created: "):
		doc.Created = strings.TrimPrefix(line, "* File created: ")
	}
}

func parseCABOSite(doc *CABODocument, line string) error {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return fmt.Errorf("%w: site line has %d fields, want 5", ErrValidation, len(fields))
	}
	values, err := parseFloats(fields)
	if err != nil {
		return err
	}
	doc.Station.Latitude = values[0]
	doc.Station.Longitude = values[1]
	doc.Station.Elevation = values[2]
	doc.CalibrationA = values[3]
	doc.CalibrationB = values[4]
	return nil
}

func parseCABORow(doc *CABODocument, line string) error {
	fields := strings.Fields(line)
	if len(fields) != 9 {
		return fmt.Errorf("%w: daily row has %d fields, want 9", ErrValidation, len(fields))
	}

	year, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("%w: year %q: %v", ErrValidation, fields[1], err)
	}
	doy, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("%w: day %q: %v", ErrValidation, fields[2], err)
	}
	values, err := parseFloats(fields[3:])
	if err != nil {
		return err
	}

	if doc.Series.Len() == 0 {
		doc.Station.Year = year
	} else if year != doc.Station.Year {
		return fmt.Errorf("%w: row year %d differs from %d", ErrValidation, year, doc.Station.Year)
	}

	s := &doc.Series
	s.DayOfYear = append(s.DayOfYear, doy)
	s.Irradiation = append(s.Irradiation, values[0])
	s.MinTemperature = append(s.MinTemperature, values[1])
	s.MaxTemperature = append(s.MaxTemperature, values[2])
	s.VapourPressure = append(s.VapourPressure, values[3])
	s.WindSpeed = append(s.WindSpeed, values[4])
	s.Precipitation = append(s.Precipitation, values[5])
	return nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q: %v", ErrValidation, f, err)
		}
		out[i] = v
	}
	return out, nil
}
