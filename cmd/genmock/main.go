// Command genmock generates deterministic job fixtures for the ETL test
// suites and local runs: one weather job carrying a synthetic year of daily
// weather for a grid cell, and one calendar job carrying a two-campaign
// agromanagement schedule. It writes the CABO file the weather job should
// produce next to the fixtures, using the actual domain encoder with a
// fixed clock so the output is reproducible.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -year 2012 -lat 30.5 -lon 110 \
//	  -out data/mock
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/wofost-input-etl/internal/domain"
	"github.com/couchcryptid/wofost-input-etl/internal/storage"
	"github.com/jonboulle/clockwork"
)

const mockAgromanagement = `Version: 1.0
AgroManagement:
- 2010-10-01:
    CropCalendar:
        crop_name: wheat
        variety_name: Winter_wheat_101
        crop_start_date: 2010-11-01
        crop_start_type: sowing
        crop_end_date: 2011-04-15
        crop_end_type: harvest
        max_duration: 300
    TimedEvents:
    -   event_signal: apply_npk
        name: Nitrogen application table
        events_table:
        - 2011-03-01: {N_amount: 40, P_amount: 0, K_amount: 0}
    StateEvents: null
- 2011-05-01:
    CropCalendar:
        crop_name: maize
        variety_name: Grain_maize_201
        crop_start_date: 2011-05-20
        crop_start_type: sowing
        crop_end_date: 2011-10-01
        crop_end_type: maturity
        max_duration: 200
    TimedEvents: null
    StateEvents: null
- 2011-12-01: null
`

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	year := flag.Int("year", 2012, "weather year")
	lat := flag.Float64("lat", 30.5, "grid cell latitude")
	lon := flag.Float64("lon", 110, "grid cell longitude")
	targetYear := flag.Int("target-year", 2020, "target year of the calendar job")
	outDir := flag.String("out", "", "output directory for fixtures")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Set a fixed clock for a reproducible "File created" header line.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	series := syntheticSeries(*year, *lat)
	base := domain.DefaultFileBase(*lat, *lon)
	weather := domain.Job{
		Type:     domain.JobTypeWeather,
		ID:       "mock-weather-" + base,
		FileBase: base,
		Station:  &domain.StationJob{Year: *year, Latitude: *lat, Longitude: *lon},
		Series:   &series,
	}
	calendar := domain.Job{
		Type:           domain.JobTypeCalendar,
		ID:             fmt.Sprintf("mock-calendar-%d", *targetYear),
		FileBase:       fmt.Sprintf("wheat_maize_%d", *targetYear),
		TargetYear:     *targetYear,
		Agromanagement: mockAgromanagement,
	}

	weatherPath := filepath.Join(*outDir, "weather_job.json")
	if err := writeJSON(weatherPath, weather); err != nil {
		return fmt.Errorf("writing weather job: %w", err)
	}
	log.Printf("wrote weather job: %s (%d days)", weatherPath, series.Len())

	calendarPath := filepath.Join(*outDir, "calendar_job.json")
	if err := writeJSON(calendarPath, calendar); err != nil {
		return fmt.Errorf("writing calendar job: %w", err)
	}
	log.Printf("wrote calendar job: %s", calendarPath)

	opts := domain.DefaultEncodeOptions()
	meta := weather.Station.Metadata(opts)
	caboBase, err := storage.WriteCABOFile(filepath.Join(*outDir, base), meta, series, opts)
	if err != nil {
		return fmt.Errorf("writing expected CABO file: %w", err)
	}
	log.Printf("wrote CABO file: %s", domain.CABOFileName(caboBase, *year))

	printStats(series)
	return nil
}

// syntheticSeries builds a smooth seasonal year for a cell at lat. Values
// are rounded to the precision of their CABO column so fixtures compare
// exactly after a round trip.
func syntheticSeries(year int, lat float64) domain.WeatherDaySeries {
	n := domain.DaysInYear(year)
	s := domain.WeatherDaySeries{
		DayOfYear:      make([]int, n),
		Irradiation:    make([]float64, n),
		MinTemperature: make([]float64, n),
		MaxTemperature: make([]float64, n),
		VapourPressure: make([]float64, n),
		WindSpeed:      make([]float64, n),
		Precipitation:  make([]float64, n),
	}

	// Seasons flip in the southern hemisphere.
	phase := 0.0
	if lat < 0 {
		phase = math.Pi
	}
	amplitude := 1 - math.Abs(lat)/90

	for i := 0; i < n; i++ {
		doy := i + 1
		season := math.Sin(2*math.Pi*float64(doy-80)/float64(n) + phase)
		tmean := 12 + 14*season*amplitude

		s.DayOfYear[i] = doy
		s.Irradiation[i] = math.Round(14000 + 9000*season*amplitude)
		s.MinTemperature[i] = round(tmean-5, 1)
		s.MaxTemperature[i] = round(tmean+5, 1)
		s.VapourPressure[i] = round(0.6108*math.Exp(17.27*(tmean-5)/(tmean-5+237.3)), 3)
		s.WindSpeed[i] = round(2.5+math.Sin(float64(doy)/7), 1)
		if doy%4 == 0 {
			s.Precipitation[i] = round(4+3*math.Cos(float64(doy)/11), 1)
		}
	}
	return s
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(s domain.WeatherDaySeries) {
	minT, maxT, rain := math.Inf(1), math.Inf(-1), 0.0
	for i := range s.DayOfYear {
		minT = math.Min(minT, s.MinTemperature[i])
		maxT = math.Max(maxT, s.MaxTemperature[i])
		rain += s.Precipitation[i]
	}
	fmt.Println()
	fmt.Printf("  days:          %d\n", s.Len())
	fmt.Printf("  tmin / tmax:   %.1f / %.1f degC\n", minT, maxT)
	fmt.Printf("  precipitation: %.1f mm\n", rain)
}
