package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testArea    = "Latina"
	testRegion  = "Lazio"
	testCountry = "Italy"
)

func pixelPayload(t *testing.T, pixels []float64) string {
	t.Helper()
	if pixels == nil {
		pixels = []float64{}
	}
	data, err := json.Marshal(pixels)
	require.NoError(t, err)
	return string(data)
}

func rawRow(t *testing.T, kpin, block, date string, pixels ...float64) RawRecord {
	t.Helper()
	return RawRecord{
		KPIN:            kpin,
		BlockName:       block,
		OrchardName:     kpin + "-Orchard",
		AcquisitionDate: date,
		Country:         testCountry,
		SupplyArea:      testArea,
		SupplyRegion:    testRegion,
		Variety:         "Hayward",
		TotalHectares:   "2.5",
		ValidPixels:     pixelPayload(t, pixels),
	}
}

// prepared runs a row through Loader, Classifier and StatsComputer.
func prepared(t *testing.T, th Thresholds, row RawRecord) Observation {
	t.Helper()
	obs, err := ParseRawRecord(row)
	require.NoError(t, err)
	obs, err = Classify(obs, th)
	require.NoError(t, err)
	return ComputeStats(obs)
}

func observe(t *testing.T, kpin, block, date string, pixels ...float64) Observation {
	t.Helper()
	return prepared(t, DefaultThresholds, rawRow(t, kpin, block, date, pixels...))
}

func recordsFor[T any](records []T, keep func(T) bool) []T {
	var out []T
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
