// Command genmock writes a deterministic synthetic observation CSV and the
// weekly records the service computes from it. The weekly fixture is produced
// by the domain package itself so it matches real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/ndvi_observations.csv \
//	  -weekly-out data/mock/ndvi_weekly_records.json \
//	  -fields 12 -seasons 2023,2024 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/ndvi-aggregation-service/internal/adapter/csvsource"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/domain"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type area struct {
	name, region, country string
}

var areas = []area{
	{"Latina", "Lazio", "Italy"},
	{"Cisterna", "Lazio", "Italy"},
	{"Te Puke", "Bay of Plenty", "New Zealand"},
	{"Katikati", "Bay of Plenty", "New Zealand"},
}

var (
	blocks    = []string{"North_1", "North_2", "South_1", "East_A"}
	varieties = []string{"Hayward", "SunGold", "G3"}
)

type options struct {
	fields  int
	seasons []int
	seed    uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the observation CSV")
	weeklyOut := flag.String("weekly-out", "", "optional output path for the weekly records JSON fixture")
	fields := flag.Int("fields", 12, "number of fields to generate")
	seasons := flag.String("seasons", "2023,2024", "comma-separated ISO years")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	years, err := parseSeasons(*seasons)
	if err != nil {
		return err
	}

	records := generate(options{fields: *fields, seasons: years, seed: *seed})
	if err := writeCSV(*out, records); err != nil {
		return fmt.Errorf("writing observation CSV: %w", err)
	}
	log.Printf("wrote %d observations: %s", len(records), *out)

	if *weeklyOut == "" {
		return nil
	}

	// Fixed clock for reproducible processed_at stamps.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.December, 1, 6, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	weekly, err := weeklyFixture(records)
	if err != nil {
		return err
	}
	if err := writeJSON(*weeklyOut, weekly); err != nil {
		return fmt.Errorf("writing weekly fixture: %w", err)
	}
	log.Printf("wrote %d weekly records: %s", len(weekly), *weeklyOut)
	return nil
}

func parseSeasons(s string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(s, ",") {
		y, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid season %q: %w", part, err)
		}
		years = append(years, y)
	}
	return years, nil
}

// generate builds a season of acquisitions per field. Each field has its own
// vigor, the canopy follows a seasonal curve, and roughly one week in four
// is lost to cloud.
func generate(opts options) []domain.RawRecord {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	var records []domain.RawRecord

	for i := range opts.fields {
		kpin := strconv.Itoa(1000 + i)
		block := blocks[i%len(blocks)]
		a := areas[i%len(areas)]
		vigor := 0.75 + 0.35*rng.Float64()
		hectares := 1 + math.Round(rng.Float64()*80)/10
		variety := varieties[i%len(varieties)]

		for _, year := range opts.seasons {
			for week := domain.DefaultWindow.StartWeek; week <= domain.DefaultWindow.EndWeek; week++ {
				if rng.IntN(4) == 0 {
					continue
				}
				day := domain.WeekStart(year, week).AddDate(0, 0, rng.IntN(7))
				phase := float64(week-domain.DefaultWindow.StartWeek) / float64(domain.DefaultWindow.EndWeek-domain.DefaultWindow.StartWeek)
				center := vigor * (0.2 + 0.55*math.Sin(math.Pi*phase))

				n := 20 + rng.IntN(40)
				pixels := make([]string, n)
				for p := range pixels {
					if rng.IntN(25) == 0 {
						pixels[p] = "null"
						continue
					}
					v := math.Max(0, math.Min(1, center+rng.NormFloat64()*0.12))
					pixels[p] = strconv.FormatFloat(math.Round(v*10000)/10000, 'f', -1, 64)
				}

				records = append(records, domain.RawRecord{
					KPIN:            kpin,
					BlockName:       block,
					OrchardName:     "Orchard " + kpin,
					AcquisitionDate: day.Format("2006-01-02"),
					Year:            strconv.Itoa(year),
					ISOWeek:         strconv.Itoa(week),
					Country:         a.country,
					SupplyArea:      a.name,
					SupplyRegion:    a.region,
					TotalHectares:   strconv.FormatFloat(hectares, 'f', -1, 64),
					Variety:         variety,
					ValidPixels:     "[" + strings.Join(pixels, ",") + "]",
					CloudShadowPct:  strconv.FormatFloat(math.Round(rng.Float64()*400)/10, 'f', -1, 64),
				})
			}
		}
	}
	return records
}

func weeklyFixture(records []domain.RawRecord) ([]domain.WeeklyRecord, error) {
	res := domain.LoadObservations(records)
	if len(res.Skipped) > 0 {
		return nil, fmt.Errorf("generated %d malformed rows, first: %s", len(res.Skipped), res.Skipped[0].Reason)
	}
	obs, err := pipeline.Prepare(res.Observations, domain.DefaultThresholds)
	if err != nil {
		return nil, err
	}
	return domain.AggregateWeekly(obs, domain.DefaultWindow)
}

func writeCSV(path string, records []domain.RawRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := csvsource.Encode(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
