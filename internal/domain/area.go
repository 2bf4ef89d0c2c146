package domain

import (
	"slices"
	"strconv"
	"strings"
)

// CohortPredicate selects the observations an area series is built from.
type CohortPredicate func(Observation) bool

// Cohort is the common comparison set: fields sharing a supply area (or
// region, or country), optionally excluding some fields and restricted to
// some seasons. Empty criteria match everything.
type Cohort struct {
	SupplyArea    string
	SupplyRegion  string
	Country       string
	ExcludeFields []string
	Years         []int
}

// Match reports whether obs belongs to the cohort.
func (c Cohort) Match(obs Observation) bool {
	if c.SupplyArea != "" && obs.SupplyArea != c.SupplyArea {
		return false
	}
	if c.SupplyRegion != "" && obs.SupplyRegion != c.SupplyRegion {
		return false
	}
	if c.Country != "" && obs.Country != c.Country {
		return false
	}
	if slices.Contains(c.ExcludeFields, obs.FieldKey) {
		return false
	}
	if len(c.Years) > 0 && !slices.Contains(c.Years, obs.Year) {
		return false
	}
	return true
}

// Label is a short human-readable cohort name, e.g. "area=Bay of Plenty,exclude=123_A,years=2023".
func (c Cohort) Label() string {
	var parts []string
	if c.SupplyArea != "" {
		parts = append(parts, "area="+c.SupplyArea)
	}
	if c.SupplyRegion != "" {
		parts = append(parts, "region="+c.SupplyRegion)
	}
	if c.Country != "" {
		parts = append(parts, "country="+c.Country)
	}
	if len(c.ExcludeFields) > 0 {
		parts = append(parts, "exclude="+strings.Join(c.ExcludeFields, "|"))
	}
	if len(c.Years) > 0 {
		years := make([]string, len(c.Years))
		for i, y := range c.Years {
			years[i] = strconv.Itoa(y)
		}
		parts = append(parts, "years="+strings.Join(years, "|"))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, ",")
}

type areaGroup struct {
	yw     yearWeek
	bands  bandsAccumulator
	fields map[string]struct{}
	n      int
}

// AggregateArea rolls up every observation matching the cohort into one
// series per (ISO year, ISO week), weighting band means exactly as
// AggregateWeekly does. The series is gap-filled on the window for every
// year present in the cohort. An empty cohort yields an empty slice.
func AggregateArea(observations []Observation, label string, match CohortPredicate, w Window) ([]AreaRecord, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	groups := make(map[yearWeek]*areaGroup)
	var order []yearWeek
	years := make(map[int]struct{})

	for _, obs := range observations {
		if match != nil && !match(obs) {
			continue
		}
		yw := yearWeek{obs.Year, obs.ISOWeek}
		g, ok := groups[yw]
		if !ok {
			g = &areaGroup{yw: yw, fields: make(map[string]struct{})}
			groups[yw] = g
			order = append(order, yw)
		}
		g.n++
		g.fields[obs.FieldKey] = struct{}{}
		g.bands.add(obs)
		years[obs.Year] = struct{}{}
	}

	records := make([]AreaRecord, 0, len(order))
	if len(order) == 0 {
		return records, nil
	}

	for _, yw := range order {
		g := groups[yw]
		records = append(records, AreaRecord{
			Cohort:           label,
			Year:             yw.year,
			ISOWeek:          yw.week,
			WeekStart:        WeekStart(yw.year, yw.week),
			Bands:            g.bands.aggregate(),
			ObservationCount: g.n,
			FieldCount:       len(g.fields),
		})
	}

	for year := range years {
		for _, week := range w.Weeks(year) {
			if _, ok := groups[yearWeek{year, week}]; ok {
				continue
			}
			records = append(records, AreaRecord{
				Cohort:    label,
				Year:      year,
				ISOWeek:   week,
				WeekStart: WeekStart(year, week),
				Filled:    true,
			})
		}
	}

	slices.SortStableFunc(records, func(a, b AreaRecord) int {
		return a.WeekStart.Compare(b.WeekStart)
	})
	return records, nil
}
