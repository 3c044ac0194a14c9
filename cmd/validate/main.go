// Command validate checks a serialized profile grid for structural integrity
// and, given the job that produced it, verifies the conversion reproduces the
// same grid from the original input files.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -grid grid.json \
//	  -job job.json \
//	  -root /data/profiler
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/couchcryptid/wxprofiler-etl/internal/domain"
)

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
	gridPath := flag.String("grid", "", "path to a serialized grid JSON file")
	jobPath := flag.String("job", "", "optional conversion job JSON that produced the grid")
	root := flag.String("root", ".", "directory relative job paths are resolved against")
	flag.Parse()

	if *gridPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*gridPath, *jobPath, *root, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(gridPath, jobPath, root string, w io.Writer) int {
	fmt.Fprintln(w, "=== Profile Grid Validation ===")
	fmt.Fprintln(w)

	data, err := os.ReadFile(gridPath)
	if err != nil {
		fmt.Fprintf(w, "FATAL: read grid: %v\n", err)
		return 1
	}
	grid, err := domain.DecodeGrid(data)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateStructure(grid),
		validateAxes(grid),
		validateCoverage(grid),
	}
	if jobPath != "" {
		phases = append(phases, validateReproducible(grid, jobPath, root))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Grid: %d dims, %d coords, %d variables, %d warnings\n",
		len(grid.Dims), len(grid.Coords), len(grid.Vars), len(grid.Warnings))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Structure ──
// Checks the attributes every converter stamps on its grid.

func validateStructure(grid *domain.ProfileGrid) *phase {
	p := &phase{name: "Phase 1: Structure"}

	if inst := domain.Instrument(grid.Attrs["instrument"]); !inst.Valid() {
		p.errorf("instrument attribute %q is not a known instrument", inst)
	}
	if _, err := time.Parse(time.RFC3339Nano, grid.Attrs["processed_at"]); err != nil {
		p.errorf("processed_at attribute %q is not RFC3339", grid.Attrs["processed_at"])
	}
	if len(grid.Vars) == 0 {
		p.errorf("grid has no variables")
	}
	for _, d := range grid.Dims {
		if d.Size <= 0 {
			p.errorf("dimension %s has size %d", d.Name, d.Size)
		}
	}
	return p
}

// ── Phase 2: Axes ──
// Time labels must be strictly increasing, and so must numeric Range labels.

func validateAxes(grid *domain.ProfileGrid) *phase {
	p := &phase{name: "Phase 2: Axes"}

	if c := grid.Coord(domain.DimTime); c != nil {
		for i := 1; i < len(c.Times); i++ {
			if !c.Times[i].After(c.Times[i-1]) {
				p.errorf("Time[%d] %s does not follow Time[%d] %s",
					i, c.Times[i].Format(time.RFC3339Nano), i-1, c.Times[i-1].Format(time.RFC3339Nano))
			}
		}
	}
	if c := grid.Coord(domain.DimRange); c != nil && c.Floats != nil {
		for i := 1; i < len(c.Floats); i++ {
			if !(c.Floats[i] > c.Floats[i-1]) {
				p.errorf("Range[%d] %g does not follow Range[%d] %g", i, c.Floats[i], i-1, c.Floats[i-1])
			}
		}
	}
	return p
}

// ── Phase 3: Coverage ──
// Every variable needs at least one valid cell.

func validateCoverage(grid *domain.ProfileGrid) *phase {
	p := &phase{name: "Phase 3: Variable Coverage"}
	for _, s := range domain.Summarize(grid) {
		if s.Valid == 0 {
			p.errorf("variable %s has no valid cells (%d missing)", s.Name, s.Missing)
		}
	}
	return p
}

// ── Phase 4: Reproducibility ──
// Re-runs the job at the grid's processed_at time and diffs the result.

func validateReproducible(grid *domain.ProfileGrid, jobPath, root string) *phase {
	p := &phase{name: "Phase 4: Reproducible Conversion"}

	raw, err := os.ReadFile(jobPath)
	if err != nil {
		p.errorf("read job: %v", err)
		return p
	}
	var job domain.ConversionJob
	if err := json.Unmarshal(raw, &job); err != nil {
		p.errorf("parse job: %v", err)
		return p
	}
	if err := job.Validate(); err != nil {
		p.errorf("%v", err)
		return p
	}
	job = job.Resolve(root)

	inputs, err := domain.LoadJobInputs(job)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	asOf, err := time.Parse(time.RFC3339Nano, grid.Attrs["processed_at"])
	if err != nil {
		p.errorf("grid has no usable processed_at: %v", err)
		return p
	}
	again, err := domain.ConvertJob(job, inputs, asOf)
	if err != nil {
		p.errorf("re-convert: %v", err)
		return p
	}

	if diff := cmp.Diff(grid, again, cmpopts.EquateNaNs(), cmpopts.EquateEmpty()); diff != "" {
		p.errorf("re-converted grid differs (-file +reconverted):\n%s", diff)
	}
	return p
}
