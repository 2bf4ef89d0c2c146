package domain

import "github.com/montanaflynn/stats"

// ComputeStats fills mean and population standard deviation for every band
// with at least one pixel. Empty bands keep nil mean and std.
//
// Band pixel slices are released afterwards: aggregation works only from
// (mean, count) pairs, so calling ComputeStats again is a no-op.
func ComputeStats(obs Observation) Observation {
	for _, band := range AllBands {
		b := obs.Bands.At(band)
		if len(b.Pixels) == 0 {
			if b.PixelCount == 0 {
				b.Mean, b.Std = nil, nil
			}
			continue
		}
		data := stats.Float64Data(b.Pixels)
		b.PixelCount = len(b.Pixels)
		b.Mean, b.Std = nil, nil
		if mean, err := stats.Mean(data); err == nil {
			b.Mean = &mean
		}
		if std, err := stats.StandardDeviationPopulation(data); err == nil {
			b.Std = &std
		}
		b.Pixels = nil
	}
	return obs
}

// ComputeStatsAll applies ComputeStats to a batch.
func ComputeStatsAll(observations []Observation) []Observation {
	out := make([]Observation, len(observations))
	for i := range observations {
		out[i] = ComputeStats(observations[i])
	}
	return out
}
