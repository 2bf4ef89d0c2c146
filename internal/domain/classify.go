package domain

import "fmt"

// Thresholds splits NDVI values into bands:
//
//	Red:    v <= Lower
//	Yellow: Lower < v <= Upper
//	Green:  v > Upper
type Thresholds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// DefaultThresholds are the dashboard's starting values.
var DefaultThresholds = Thresholds{Lower: 0.3, Upper: 0.55}

// Validate requires both thresholds in [0,1] with Lower <= Upper.
func (t Thresholds) Validate() error {
	if !inUnit(t.Lower) || !inUnit(t.Upper) {
		return fmt.Errorf("%w: thresholds must lie in [0,1], got lower=%g upper=%g", ErrInvalidThreshold, t.Lower, t.Upper)
	}
	if t.Upper < t.Lower {
		return fmt.Errorf("%w: upper %g is below lower %g", ErrInvalidThreshold, t.Upper, t.Lower)
	}
	return nil
}

func inUnit(v float64) bool { return v >= 0 && v <= 1 }

// BandOf returns the band a single value falls into.
func (t Thresholds) BandOf(v float64) Band {
	switch {
	case v > t.Upper:
		return Green
	case v > t.Lower:
		return Yellow
	default:
		return Red
	}
}

// Classify partitions the observation's valid pixels into bands and records
// the per-band counts. The input is not modified.
func Classify(obs Observation, t Thresholds) (Observation, error) {
	if err := t.Validate(); err != nil {
		return Observation{}, err
	}
	return classify(obs, t), nil
}

// ClassifyAll validates once and classifies every observation.
func ClassifyAll(observations []Observation, t Thresholds) ([]Observation, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	out := make([]Observation, len(observations))
	for i := range observations {
		out[i] = classify(observations[i], t)
	}
	return out, nil
}

func classify(obs Observation, t Thresholds) Observation {
	var bands Bands[BandStats]
	for _, v := range obs.ValidPixels {
		b := bands.At(t.BandOf(v))
		b.Pixels = append(b.Pixels, v)
	}
	for _, band := range AllBands {
		b := bands.At(band)
		b.PixelCount = len(b.Pixels)
	}
	obs.Bands = bands
	return obs
}
