// Command validate checks a CABO weather file against the weather job it was
// produced from. It verifies the header layout, the site-parameters line,
// the daily rows, and the year suffix of the file name.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -job data/mock/weather_job.json \
//	  -cabo output/30.5_110.0.012
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/wofost-input-etl/internal/config"
	"github.com/couchcryptid/wofost-input-etl/internal/domain"
)

// The site line prints six decimals.
const siteTolerance = 5e-7

// Tolerances are half a unit in the last printed digit of each column.
var tolerances = [6]float64{0.5, 0.05, 0.05, 0.0005, 0.05, 0.05}

var columnNames = [6]string{"irradiation", "tmin", "tmax", "vapour pressure", "wind speed", "precipitation"}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	jobPath := flag.String("job", "", "path to the weather job JSON")
	caboPath := flag.String("cabo", "", "path to the CABO file produced for the job")
	flag.Parse()

	if *jobPath == "" || *caboPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*jobPath, *caboPath); code != 0 {
		os.Exit(code)
	}
}

func run(jobPath, caboPath string) int {
	fmt.Println("=== CABO Weather File Validation ===")
	fmt.Println()

	job, err := loadJob(jobPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load job: %v\n", err)
		return 1
	}

	lines, err := readLines(caboPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read CABO file: %v\n", err)
		return 1
	}

	doc, err := domain.DecodeCABO(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode CABO file: %v\n", err)
		return 1
	}

	// The same CABO_* settings the file was produced with.
	opts, err := config.LoadEncodeOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: encoder settings: %v\n", err)
		return 1
	}

	phases := checkFile(caboPath, lines, doc, job, opts)

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d in job, %d in file\n", job.Series.Len(), doc.Series.Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func checkFile(caboPath string, lines []string, doc domain.CABODocument, job domain.Job, opts domain.EncodeOptions) []*phase {
	meta := job.Station.Metadata(opts)
	return []*phase{
		validateFileName(caboPath, meta.Year),
		validateHeader(lines, meta),
		validateSite(doc, meta, opts),
		validateRows(doc, *job.Series, meta.Year),
	}
}

func loadJob(path string) (domain.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Job{}, err
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return domain.Job{}, err
	}
	if job.Type != domain.JobTypeWeather || job.Station == nil || job.Series == nil {
		return domain.Job{}, fmt.Errorf("%s is not a weather job", path)
	}
	return job, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// ── Phase 1: file name ──

func validateFileName(path string, year int) *phase {
	p := &phase{name: "File name year suffix"}
	fmt.Println("Phase 1: file name...")

	want := fmt.Sprintf(".%03d", year%1000)
	if ext := filepath.Ext(path); ext != want {
		p.errorf("suffix %q, want %q for year %d", ext, want, year)
	}
	return p
}

// ── Phase 2: header layout ──

func validateHeader(lines []string, meta domain.StationMetadata) *phase {
	p := &phase{name: "Header layout"}
	fmt.Println("Phase 2: header layout...")

	if len(lines) < domain.CABOHeaderLines {
		p.errorf("file has %d lines, header alone needs %d", len(lines), domain.CABOHeaderLines)
		return p
	}
	for i := 0; i < domain.CABOHeaderLines-1; i++ {
		if !strings.HasPrefix(lines[i], "*") {
			p.errorf("line %d is not a comment: %q", i+1, lines[i])
		}
	}
	if strings.HasPrefix(lines[domain.CABOHeaderLines-1], "*") {
		p.errorf("line %d should be the site parameters line", domain.CABOHeaderLines)
	}

	banner := "*" + strings.Repeat("-", 75) + "*"
	if lines[0] != banner {
		p.errorf("line 1 is not the banner")
	}
	if lines[domain.CABOHeaderLines-2] != banner {
		p.errorf("line %d is not the banner", domain.CABOHeaderLines-1)
	}

	expect := map[string]string{
		"*Station name: ":                 "",
		"* Source: ":                      meta.Source,
		"* Conversion: nc2cabo, Author: ": meta.Author,
		"** WCCFORMAT=2":                  "",
		"* File created: ":                "",
	}
	for prefix, value := range expect {
		found := false
		for _, line := range lines[:domain.CABOHeaderLines] {
			if strings.HasPrefix(line, prefix) {
				found = true
				if value != "" && strings.TrimPrefix(line, prefix) != value {
					p.errorf("%s%q, want %q", prefix, strings.TrimPrefix(line, prefix), value)
				}
			}
		}
		if !found {
			p.errorf("missing header line %q", prefix)
		}
	}
	return p
}

// ── Phase 3: site parameters ──

func validateSite(doc domain.CABODocument, meta domain.StationMetadata, opts domain.EncodeOptions) *phase {
	p := &phase{name: "Site parameters"}
	fmt.Println("Phase 3: site parameters...")

	if doc.Station.Latitude != meta.Latitude {
		p.errorf("latitude %v, want %v", doc.Station.Latitude, meta.Latitude)
	}
	if doc.Station.Longitude != meta.Longitude {
		p.errorf("longitude %v, want %v", doc.Station.Longitude, meta.Longitude)
	}
	if math.Abs(doc.Station.Elevation-meta.Elevation) > siteTolerance {
		p.errorf("elevation %v, want %v", doc.Station.Elevation, meta.Elevation)
	}
	if math.Abs(doc.CalibrationA-opts.CalibrationA) > siteTolerance {
		p.errorf("calibration A %v, want %v", doc.CalibrationA, opts.CalibrationA)
	}
	if math.Abs(doc.CalibrationB-opts.CalibrationB) > siteTolerance {
		p.errorf("calibration B %v, want %v", doc.CalibrationB, opts.CalibrationB)
	}
	return p
}

// ── Phase 4: daily rows ──

func validateRows(doc domain.CABODocument, want domain.WeatherDaySeries, year int) *phase {
	p := &phase{name: "Daily rows"}
	fmt.Println("Phase 4: daily rows...")

	if doc.Station.Year != year {
		p.errorf("row year %d, want %d", doc.Station.Year, year)
	}
	if doc.Series.Len() != want.Len() {
		p.errorf("%d rows, want %d", doc.Series.Len(), want.Len())
		return p
	}

	for i := range want.DayOfYear {
		if doc.Series.DayOfYear[i] != want.DayOfYear[i] {
			p.errorf("row %d: doy %d, want %d", i+1, doc.Series.DayOfYear[i], want.DayOfYear[i])
			continue
		}
		got := columns(doc.Series, i)
		exp := columns(want, i)
		for c := range got {
			if math.Abs(got[c]-exp[c]) > tolerances[c]+1e-9 {
				p.errorf("doy %d: %s %v, want %v", want.DayOfYear[i], columnNames[c], got[c], exp[c])
			}
		}
	}
	return p
}

func columns(s domain.WeatherDaySeries, i int) [6]float64 {
	return [6]float64{
		s.Irradiation[i],
		s.MinTemperature[i],
		s.MaxTemperature[i],
		s.VapourPressure[i],
		s.WindSpeed[i],
		s.Precipitation[i],
	}
}
