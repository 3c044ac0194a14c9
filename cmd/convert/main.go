// Command convert runs one profiler conversion outside the service and writes
// the resulting grid as JSON. It uses the same domain package as the Kafka
// pipeline, so its output matches what the service publishes for the job.
//
// Usage:
//
//	go run ./cmd/convert \
//	  -instrument lidar \
//	  -input data/rws_20240426.csv \
//	  -scans data/scans.xml \
//	  -sequences data/sequences.csv \
//	  -wind data/wind.csv \
//	  -attr site=SGP -median RWS \
//	  -out grid.json -quicklook rws.png
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wxprofiler-etl/internal/domain"
	"github.com/couchcryptid/wxprofiler-etl/internal/quicklook"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		logger.Error("conversion failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	job           domain.ConversionJob
	asOf          string
	out           string
	quicklookPath string
	quicklookVar  string
	summary       bool
}

func parseFlags(args []string) (options, error) {
	var (
		opts     options
		scanID   string
		median   string
		instName string
	)
	opts.job.Attrs = domain.Attrs{}

	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.StringVar(&instName, "instrument", "", "instrument family: lidar, radiometer or balloon")
	fs.StringVar(&opts.job.Input, "input", "", "primary instrument export")
	fs.StringVar(&opts.job.Scans, "scans", "", "lidar scan descriptor XML")
	fs.StringVar(&scanID, "scan-id", "", "lidar scan to keep when the export holds several")
	fs.StringVar(&opts.job.Sequences, "sequences", "", "lidar sequence schedule")
	fs.StringVar(&opts.job.Wind, "wind", "", "lidar reconstructed wind export")
	fs.StringVar(&opts.job.Processor, "processor", "", "radiometer LV2 processor (default Zenith)")
	fs.StringVar(&median, "median", "", "comma-separated variables to median filter")
	fs.Func("attr", "global attribute key=value (repeatable)", func(s string) error {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return fmt.Errorf("attribute %q is not key=value", s)
		}
		opts.job.Attrs[k] = v
		return nil
	})
	fs.StringVar(&opts.asOf, "as-of", "", "RFC3339 processing time for reproducible output")
	fs.StringVar(&opts.out, "out", "", "output path for the grid JSON (default stdout)")
	fs.StringVar(&opts.quicklookPath, "quicklook", "", "write a heat map PNG of -quicklook-var to this path")
	fs.StringVar(&opts.quicklookVar, "quicklook-var", "", "variable to plot (default: first variable)")
	fs.BoolVar(&opts.summary, "summary", false, "print per-variable statistics to stderr")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.job.Instrument = domain.Instrument(instName)
	if scanID != "" {
		id, err := strconv.Atoi(scanID)
		if err != nil {
			return options{}, fmt.Errorf("invalid -scan-id %q", scanID)
		}
		opts.job.ScanID = &id
	}
	if median != "" {
		for _, name := range strings.Split(median, ",") {
			if name = strings.TrimSpace(name); name != "" {
				opts.job.MedianFilter = append(opts.job.MedianFilter, name)
			}
		}
	}
	if err := opts.job.Validate(); err != nil {
		fs.Usage()
		return options{}, err
	}
	return opts, nil
}

func run(args []string, stdout io.Writer, logger *slog.Logger) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	if opts.asOf != "" {
		asOf, err := time.Parse(time.RFC3339, opts.asOf)
		if err != nil {
			return fmt.Errorf("invalid -as-of: %w", err)
		}
		// Set a fixed clock for reproducible processed_at timestamps.
		domain.SetClock(clockwork.NewFakeClockAt(asOf))
		defer domain.SetClock(nil)
	}

	inputs, err := domain.LoadJobInputs(opts.job)
	if err != nil {
		return err
	}
	digest := inputs.Digest(opts.job)

	grid, err := domain.ConvertJob(opts.job, inputs, time.Time{})
	if err != nil {
		return err
	}
	for _, w := range grid.Warnings {
		logger.Warn("conversion degraded", "warning", w, "input", opts.job.Input)
	}

	data, err := json.MarshalIndent(grid, "", "  ")
	if err != nil {
		return fmt.Errorf("encode grid: %w", err)
	}
	data = append(data, '\n')
	if opts.out == "" {
		if _, err := stdout.Write(data); err != nil {
			return err
		}
	} else if err := writeFile(opts.out, data); err != nil {
		return fmt.Errorf("write grid: %w", err)
	}
	logger.Info("grid written",
		"instrument", opts.job.Instrument,
		"digest", digest,
		"times", max(grid.DimSize(domain.DimTime), 0),
		"ranges", max(grid.DimSize(domain.DimRange), 0),
		"out", opts.out,
	)

	if opts.quicklookPath != "" {
		name := opts.quicklookVar
		if name == "" {
			names := grid.VarNames()
			if len(names) == 0 {
				return errors.New("quicklook: grid has no variables")
			}
			name = names[0]
		}
		if err := quicklook.Render(grid, name, opts.quicklookPath); err != nil {
			return err
		}
		logger.Info("quicklook written", "variable", name, "path", opts.quicklookPath)
	}

	if opts.summary {
		printSummary(os.Stderr, domain.Summarize(grid))
	}
	return nil
}

func printSummary(w io.Writer, summaries []domain.ChannelSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tVALID\tMISSING\tMEAN\tSTD\tMIN\tMAX")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4g\t%.4g\t%.4g\t%.4g\n", s.Name, s.Valid, s.Missing, s.Mean, s.StdDev, s.Min, s.Max)
	}
	tw.Flush()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
