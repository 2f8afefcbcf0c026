// Command cabo prepares WOFOST inputs from the command line.
//
//	cabo encode --job weather_job.json --out-dir output
//	cabo shift --in timer_china_maize.amgt --target-year 2020 --out maize_2020.amgt
//
// Flags fall back to the same environment variables the ETL service reads,
// and a .env file in the working directory is loaded first.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/couchcryptid/wofost-input-etl/internal/agro"
	"github.com/couchcryptid/wofost-input-etl/internal/domain"
	"github.com/couchcryptid/wofost-input-etl/internal/observability"
	"github.com/couchcryptid/wofost-input-etl/internal/storage"
	"github.com/joho/godotenv"
)

type cli struct {
	LogLevel  string `env:"LOG_LEVEL" default:"info" help:"Log level (debug, info, warn, error)."`
	LogFormat string `env:"LOG_FORMAT" default:"text" enum:"json,text" help:"Log format."`

	Encode encodeCmd `cmd:"" help:"Write a CABO weather file from a weather job."`
	Shift  shiftCmd  `cmd:"" help:"Move an agromanagement schedule to another year."`
}

type encodeCmd struct {
	Job          string  `required:"" type:"existingfile" help:"Weather job JSON (station and series)."`
	OutDir       string  `env:"OUTPUT_DIR" default:"." help:"Directory to write the CABO file into."`
	Elevation    float64 `env:"CABO_ELEVATION" default:"50" help:"Station elevation in metres, unless the job sets one."`
	CalibrationA float64 `env:"CABO_CALIBRATION_A" default:"-0.18" help:"Angstrom coefficient A."`
	CalibrationB float64 `env:"CABO_CALIBRATION_B" default:"-0.55" help:"Angstrom coefficient B."`
	Source       string  `env:"CABO_SOURCE" default:"ERA5" help:"Data source named in the header."`
	Author       string  `env:"CABO_AUTHOR" default:"cabo-etl" help:"Author named in the header."`
}

func (c *encodeCmd) options() domain.EncodeOptions {
	return domain.EncodeOptions{
		Elevation:    c.Elevation,
		CalibrationA: c.CalibrationA,
		CalibrationB: c.CalibrationB,
		Source:       c.Source,
		Author:       c.Author,
	}
}

func (c *encodeCmd) Run(logger *slog.Logger, stdout io.Writer) error {
	data, err := os.ReadFile(c.Job)
	if err != nil {
		return err
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrValidation, c.Job, err)
	}
	if job.Station == nil || job.Series == nil {
		return fmt.Errorf("%w: %s needs station and series", domain.ErrValidation, c.Job)
	}

	opts := c.options()
	meta := job.Station.Metadata(opts)
	name := job.FileBase
	if name == "" {
		name = domain.DefaultFileBase(meta.Latitude, meta.Longitude)
	}
	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrIO, c.OutDir, err)
	}

	base, err := storage.WriteCABOFile(filepath.Join(c.OutDir, name), meta, *job.Series, opts)
	if err != nil {
		return err
	}
	logger.Info("cabo file written",
		"path", domain.CABOFileName(base, meta.Year),
		"rows", job.Series.Len(),
	)
	fmt.Fprintln(stdout, base)
	return nil
}

type shiftCmd struct {
	In         string `required:"" type:"existingfile" help:"Agromanagement YAML to read."`
	TargetYear int    `required:"" help:"Year the first crop should start in."`
	Out        string `help:"File to write; stdout when empty."`
	LeapDay    string `env:"LEAP_DAY_POLICY" default:"reject" enum:"reject,clamp" help:"What to do with Feb 29 in a non-leap target year."`
	FirstOnly  bool   `help:"Keep only the first campaign."`
}

func (c *shiftCmd) Run(logger *slog.Logger, stdout io.Writer) error {
	policy, err := domain.ParseLeapDayPolicy(c.LeapDay)
	if err != nil {
		return err
	}

	f, err := os.Open(c.In)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := agro.Decode(f)
	if err != nil {
		return err
	}
	shifted, err := agro.Shift(doc, c.TargetYear, policy, c.FirstOnly)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := agro.Encode(&buf, shifted); err != nil {
		return err
	}
	if c.Out == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	if err := storage.WriteFileAtomic(c.Out, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("agromanagement written", "path", c.Out, "campaigns", len(shifted.Campaigns), "target_year", c.TargetYear)
	return nil
}

func main() {
	// A missing .env file is fine; flags and the environment still apply.
	_ = godotenv.Load()

	var args cli
	ctx := kong.Parse(&args,
		kong.Name("cabo"),
		kong.Description("Prepare CABO weather files and agromanagement schedules for WOFOST."),
		kong.UsageOnError(),
	)

	// Logs go to stderr so shifted YAML can be piped from stdout.
	logger := observability.NewLoggerTo(os.Stderr, args.LogLevel, args.LogFormat)
	ctx.BindTo(os.Stdout, (*io.Writer)(nil))
	if err := ctx.Run(logger); err != nil {
		logger.Error("command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}
