// Command validate runs integrity checks over an observation CSV: row parsing,
// declared calendar columns, band classification, the weekly grid, and the
// area rollup. It exits non-zero when any phase fails.
//
// Usage:
//
//	go run ./cmd/validate -csv data/ndvi_observations.csv [-lower 0.3 -upper 0.55]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/ndvi-aggregation-service/internal/adapter/csvsource"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/domain"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/pipeline"
	"github.com/dustin/go-humanize"
)

const maxReported = 20

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
	csvPath := flag.String("csv", "", "path to the observation CSV")
	lower := flag.Float64("lower", domain.DefaultThresholds.Lower, "lower NDVI threshold")
	upper := flag.Float64("upper", domain.DefaultThresholds.Upper, "upper NDVI threshold")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	th := domain.Thresholds{Lower: *lower, Upper: *upper}
	os.Exit(run(os.Stdout, *csvPath, th))
}

func run(out io.Writer, csvPath string, th domain.Thresholds) int {
	fmt.Fprintln(out, "=== NDVI Data Integrity Validation ===")
	fmt.Fprintln(out)

	if err := th.Validate(); err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	records, err := csvsource.NewFileSource(csvPath, logger).Records(context.Background())
	if err != nil {
		fmt.Fprintf(out, "FATAL: load CSV: %v\n", err)
		return 1
	}

	res := domain.LoadObservations(records)
	prepared, err := pipeline.Prepare(res.Observations, th)
	if err != nil {
		fmt.Fprintf(out, "FATAL: classify: %v\n", err)
		return 1
	}
	weekly, err := domain.AggregateWeekly(prepared, domain.DefaultWindow)
	if err != nil {
		fmt.Fprintf(out, "FATAL: aggregate weekly: %v\n", err)
		return 1
	}
	area, err := domain.AggregateArea(prepared, "all", nil, domain.DefaultWindow)
	if err != nil {
		fmt.Fprintf(out, "FATAL: aggregate area: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateParsing(res),
		validateCalendar(records),
		validateClassification(res.Observations, prepared, th),
		validateWeeklyGrid(prepared, weekly, th),
		validateAreaRollup(weekly, area),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%s errors)\033[0m", humanize.Comma(int64(len(p.errors))))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	pixels := 0
	for _, obs := range res.Observations {
		pixels += len(obs.ValidPixels)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rows: %s read, %s loaded, %s rejected\n",
		humanize.Comma(int64(len(records))), humanize.Comma(int64(len(res.Observations))), humanize.Comma(int64(len(res.Skipped))))
	fmt.Fprintf(out, "Pixels: %s valid samples, %s weekly records, %s area weeks\n",
		humanize.Comma(int64(pixels)), humanize.Comma(int64(len(weekly))), humanize.Comma(int64(len(area))))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxReported {
				fmt.Fprintf(out, "  ... and %s more\n", humanize.Comma(int64(len(p.errors)-maxReported)))
				break
			}
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Row Parsing ──

func validateParsing(res domain.LoadResult) *phase {
	p := &phase{name: "Phase 1: Row Parsing"}
	for _, s := range res.Skipped {
		p.errorf("row %d (%s): %s", s.Row, s.FieldKey, s.Reason)
	}
	return p
}

// ── Phase 2: Declared Calendar ──
// The year and iso_week columns are informational. When present they must
// agree with the ISO week of the acquisition date.

func validateCalendar(records []domain.RawRecord) *phase {
	p := &phase{name: "Phase 2: Declared Calendar"}
	for i, rec := range records {
		obs, err := domain.ParseRawRecord(rec)
		if err != nil {
			continue
		}
		checkDeclared(p, i+1, "year", rec.Year, obs.Year)
		checkDeclared(p, i+1, "iso_week", rec.ISOWeek, obs.ISOWeek)
	}
	return p
}

func checkDeclared(p *phase, row int, column, raw string, derived int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errorf("row %d: %s %q is not an integer", row, column, raw)
		return
	}
	if v != derived {
		p.errorf("row %d: %s=%d, acquisition date gives %d", row, column, v, derived)
	}
}

// ── Phase 3: Classification ──
// Every valid pixel lands in exactly one band and band means respect the
// thresholds.

func validateClassification(raw, prepared []domain.Observation, th domain.Thresholds) *phase {
	p := &phase{name: "Phase 3: Band Classification"}
	for i, obs := range prepared {
		total := 0
		for _, b := range domain.AllBands {
			s := obs.Bands.At(b)
			total += s.PixelCount
			if s.PixelCount == 0 {
				if s.Mean != nil || s.Std != nil {
					p.errorf("%s %s: %s has statistics without pixels", obs.FieldKey, obs.AcquisitionDate.Format("2006-01-02"), b)
				}
				continue
			}
			if s.Mean == nil {
				p.errorf("%s %s: %s has %d pixels but no mean", obs.FieldKey, obs.AcquisitionDate.Format("2006-01-02"), b, s.PixelCount)
				continue
			}
			if !inBand(th, b, *s.Mean) {
				p.errorf("%s %s: %s mean %g outside band", obs.FieldKey, obs.AcquisitionDate.Format("2006-01-02"), b, *s.Mean)
			}
		}
		if want := len(raw[i].ValidPixels); total != want {
			p.errorf("%s %s: bands hold %d pixels, observation has %d", obs.FieldKey, obs.AcquisitionDate.Format("2006-01-02"), total, want)
		}
	}
	return p
}

func inBand(th domain.Thresholds, b domain.Band, v float64) bool {
	switch b {
	case domain.Red:
		return v <= th.Lower
	case domain.Yellow:
		return v > th.Lower && v <= th.Upper
	default:
		return v > th.Upper
	}
}

// ── Phase 4: Weekly Grid ──
// Each field season covers every window week exactly once and the weekly
// pixel totals add up to the classified observations.

type fieldYear struct {
	field string
	year  int
}

func validateWeeklyGrid(prepared []domain.Observation, weekly []domain.WeeklyRecord, th domain.Thresholds) *phase {
	p := &phase{name: "Phase 4: Weekly Grid"}

	want := make(map[fieldYear][3]int)
	for _, obs := range prepared {
		k := fieldYear{obs.FieldKey, obs.Year}
		counts := want[k]
		for _, b := range domain.AllBands {
			counts[b] += obs.Bands.At(b).PixelCount
		}
		want[k] = counts
	}

	got := make(map[fieldYear][3]int)
	weeks := make(map[fieldYear]map[int]int)
	for i, rec := range weekly {
		if i > 0 && rec.WeekStart.Before(weekly[i-1].WeekStart) {
			p.errorf("record %d (%s) is out of week order", i, domain.WeeklyRecordKey(rec))
		}
		k := fieldYear{rec.FieldKey, rec.Year}
		if weeks[k] == nil {
			weeks[k] = make(map[int]int)
		}
		weeks[k][rec.ISOWeek]++

		counts := got[k]
		for _, b := range domain.AllBands {
			agg := rec.Bands.At(b)
			if rec.Filled {
				if agg.WeightedMean != nil || agg.TotalPixelCount != nil {
					p.errorf("%s: gap-filled week carries %s statistics", domain.WeeklyRecordKey(rec), b)
				}
				continue
			}
			if agg.TotalPixelCount != nil {
				counts[b] += *agg.TotalPixelCount
			}
			if agg.WeightedMean != nil && !inBand(th, b, *agg.WeightedMean) {
				p.errorf("%s: %s weighted mean %g outside band", domain.WeeklyRecordKey(rec), b, *agg.WeightedMean)
			}
		}
		got[k] = counts
	}

	window := domain.DefaultWindow
	for k, counts := range want {
		if got[k] != counts {
			p.errorf("%s %d: weekly pixel totals %v, observations %v", k.field, k.year, got[k], counts)
		}
		for _, w := range window.Weeks(k.year) {
			if n := weeks[k][w]; n != 1 {
				p.errorf("%s %d: week %d appears %d times", k.field, k.year, w, n)
			}
		}
	}
	return p
}

// ── Phase 5: Area Rollup ──
// The all-fields area series must account for every observed field week.

func validateAreaRollup(weekly []domain.WeeklyRecord, area []domain.AreaRecord) *phase {
	p := &phase{name: "Phase 5: Area Rollup"}

	type yw struct{ year, week int }
	want := make(map[yw][3]int)
	fields := make(map[yw]int)
	for _, rec := range weekly {
		if rec.Filled {
			continue
		}
		k := yw{rec.Year, rec.ISOWeek}
		counts := want[k]
		for _, b := range domain.AllBands {
			if c := rec.Bands.At(b).TotalPixelCount; c != nil {
				counts[b] += *c
			}
		}
		want[k] = counts
		fields[k]++
	}

	seen := make(map[yw]bool)
	for _, rec := range area {
		k := yw{rec.Year, rec.ISOWeek}
		seen[k] = true
		if rec.Filled {
			if _, ok := want[k]; ok {
				p.errorf("%d-W%02d: area week is gap-filled but fields observed it", rec.Year, rec.ISOWeek)
			}
			continue
		}
		var counts [3]int
		for _, b := range domain.AllBands {
			if c := rec.Bands.At(b).TotalPixelCount; c != nil {
				counts[b] = *c
			}
		}
		if counts != want[k] {
			p.errorf("%d-W%02d: area pixel totals %v, field weeks %v", rec.Year, rec.ISOWeek, counts, want[k])
		}
		if rec.FieldCount != fields[k] {
			p.errorf("%d-W%02d: area counts %d fields, weekly has %d", rec.Year, rec.ISOWeek, rec.FieldCount, fields[k])
		}
	}
	for k := range want {
		if !seen[k] {
			p.errorf("%d-W%02d: observed field week missing from area series", k.year, k.week)
		}
	}
	return p
}
