package domain

import (
	"cmp"
	"slices"
)

// FieldSummary describes one field for selection widgets.
type FieldSummary struct {
	FieldKey     string `json:"field_key"`
	KPIN         string `json:"kpin"`
	BlockName    string `json:"block_name"`
	OrchardName  string `json:"orchard_name,omitempty"`
	SupplyArea   string `json:"supply_area,omitempty"`
	SupplyRegion string `json:"supply_region,omitempty"`
	Country      string `json:"country,omitempty"`
	Seasons      []int  `json:"seasons"`
	Observations int    `json:"observations"`
}

// AreaSummary describes one supply area for selection widgets.
type AreaSummary struct {
	SupplyArea   string `json:"supply_area"`
	SupplyRegion string `json:"supply_region,omitempty"`
	Country      string `json:"country,omitempty"`
	FieldCount   int    `json:"field_count"`
	Seasons      []int  `json:"seasons"`
}

type fieldTally struct {
	summary FieldSummary
	orchard vote[string]
	area    vote[string]
	region  vote[string]
	country vote[string]
	seasons map[int]struct{}
}

type areaTally struct {
	region  vote[string]
	country vote[string]
	fields  map[string]struct{}
	seasons map[int]struct{}
}

// SummarizeFields indexes the fields present in observations, ordered by
// field key. Categorical attributes are resolved by majority vote.
func SummarizeFields(observations []Observation) []FieldSummary {
	tallies := make(map[string]*fieldTally)
	for _, obs := range observations {
		ft, ok := tallies[obs.FieldKey]
		if !ok {
			ft = &fieldTally{
				summary: FieldSummary{FieldKey: obs.FieldKey, KPIN: obs.KPIN, BlockName: obs.BlockName},
				seasons: make(map[int]struct{}),
			}
			tallies[obs.FieldKey] = ft
		}
		ft.summary.Observations++
		ft.orchard.addNonZero(obs.OrchardName)
		ft.area.addNonZero(obs.SupplyArea)
		ft.region.addNonZero(obs.SupplyRegion)
		ft.country.addNonZero(obs.Country)
		ft.seasons[obs.Year] = struct{}{}
	}

	out := make([]FieldSummary, 0, len(tallies))
	for _, ft := range tallies {
		s := ft.summary
		s.OrchardName = ft.orchard.result()
		s.SupplyArea = ft.area.result()
		s.SupplyRegion = ft.region.result()
		s.Country = ft.country.result()
		s.Seasons = sortedYears(ft.seasons)
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b FieldSummary) int { return cmp.Compare(a.FieldKey, b.FieldKey) })
	return out
}

// SummarizeAreas indexes supply areas, ordered by name. Observations without
// a supply area are ignored.
func SummarizeAreas(observations []Observation) []AreaSummary {
	tallies := make(map[string]*areaTally)
	for _, obs := range observations {
		if obs.SupplyArea == "" {
			continue
		}
		at, ok := tallies[obs.SupplyArea]
		if !ok {
			at = &areaTally{fields: make(map[string]struct{}), seasons: make(map[int]struct{})}
			tallies[obs.SupplyArea] = at
		}
		at.region.addNonZero(obs.SupplyRegion)
		at.country.addNonZero(obs.Country)
		at.fields[obs.FieldKey] = struct{}{}
		at.seasons[obs.Year] = struct{}{}
	}

	out := make([]AreaSummary, 0, len(tallies))
	for name, at := range tallies {
		out = append(out, AreaSummary{
			SupplyArea:   name,
			SupplyRegion: at.region.result(),
			Country:      at.country.result(),
			FieldCount:   len(at.fields),
			Seasons:      sortedYears(at.seasons),
		})
	}
	slices.SortFunc(out, func(a, b AreaSummary) int { return cmp.Compare(a.SupplyArea, b.SupplyArea) })
	return out
}

func sortedYears(set map[int]struct{}) []int {
	years := make([]int, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}
