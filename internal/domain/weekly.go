package domain

import (
	"cmp"
	"slices"
	"time"
)

type weeklyKey struct {
	fieldKey string
	yw       yearWeek
}

type weeklyGroup struct {
	key   weeklyKey
	kpin  string
	block string
	bands bandsAccumulator

	orchard  vote[string]
	country  vote[string]
	area     vote[string]
	region   vote[string]
	variety  vote[string]
	hectares vote[float64]

	cloud meanAccumulator
	first time.Time
	n     int
}

func (g *weeklyGroup) add(obs Observation) {
	if g.n == 0 || obs.AcquisitionDate.Before(g.first) {
		g.first = obs.AcquisitionDate
	}
	g.n++
	g.bands.add(obs)
	g.orchard.addNonZero(obs.OrchardName)
	g.country.addNonZero(obs.Country)
	g.area.addNonZero(obs.SupplyArea)
	g.region.addNonZero(obs.SupplyRegion)
	g.variety.addNonZero(obs.Variety)
	if obs.TotalHectares != nil {
		g.hectares.add(*obs.TotalHectares)
	}
	g.cloud.add(obs.CloudShadow)
}

func (g *weeklyGroup) record() WeeklyRecord {
	first := g.first
	rec := WeeklyRecord{
		FieldKey:           g.key.fieldKey,
		KPIN:               g.kpin,
		BlockName:          g.block,
		Year:               g.key.yw.year,
		ISOWeek:            g.key.yw.week,
		WeekStart:          WeekStart(g.key.yw.year, g.key.yw.week),
		Bands:              g.bands.aggregate(),
		OrchardName:        g.orchard.result(),
		Country:            g.country.result(),
		SupplyArea:         g.area.result(),
		SupplyRegion:       g.region.result(),
		Variety:            g.variety.result(),
		FirstAcquisition:   &first,
		MeanCloudShadowPct: g.cloud.mean(),
		ObservationCount:   g.n,
	}
	if h, ok := g.hectares.winner(); ok {
		rec.TotalHectares = &h
	}
	return rec
}

// AggregateWeekly groups observations by (field, ISO year, ISO week) and
// resamples each field onto the season window of every year it appears in.
// Weeks without observations are emitted as filled rows with nil band
// values. Output is ordered by week start, then field key.
func AggregateWeekly(observations []Observation, w Window) ([]WeeklyRecord, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		return []WeeklyRecord{}, nil
	}

	groups := make(map[weeklyKey]*weeklyGroup)
	var order []weeklyKey
	fieldYears := make(map[string]map[int]struct{})
	var fields []string

	for _, obs := range observations {
		key := weeklyKey{fieldKey: obs.FieldKey, yw: yearWeek{obs.Year, obs.ISOWeek}}
		g, ok := groups[key]
		if !ok {
			g = &weeklyGroup{key: key, kpin: obs.KPIN, block: obs.BlockName}
			groups[key] = g
			order = append(order, key)
		}
		g.add(obs)

		years, ok := fieldYears[obs.FieldKey]
		if !ok {
			years = make(map[int]struct{})
			fieldYears[obs.FieldKey] = years
			fields = append(fields, obs.FieldKey)
		}
		years[obs.Year] = struct{}{}
	}

	records := make([]WeeklyRecord, 0, len(order))
	for _, key := range order {
		records = append(records, groups[key].record())
	}

	for _, field := range fields {
		for year := range fieldYears[field] {
			for _, week := range w.Weeks(year) {
				key := weeklyKey{fieldKey: field, yw: yearWeek{year, week}}
				if _, ok := groups[key]; ok {
					continue
				}
				records = append(records, gapWeeklyRecord(field, year, week))
			}
		}
	}

	slices.SortStableFunc(records, compareWeekly)
	return records, nil
}

func gapWeeklyRecord(fieldKey string, year, week int) WeeklyRecord {
	kpin, block := SplitFieldKey(fieldKey)
	return WeeklyRecord{
		FieldKey:  fieldKey,
		KPIN:      kpin,
		BlockName: block,
		Year:      year,
		ISOWeek:   week,
		WeekStart: WeekStart(year, week),
		Filled:    true,
	}
}

func compareWeekly(a, b WeeklyRecord) int {
	if c := a.WeekStart.Compare(b.WeekStart); c != 0 {
		return c
	}
	return cmp.Compare(a.FieldKey, b.FieldKey)
}
