package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const dateLayout = "2006-01-02"

var pixelJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// SkippedRow identifies a rejected input row.
type SkippedRow struct {
	Row      int    `json:"row"` // 1-based position in the source, header excluded
	FieldKey string `json:"field_key,omitempty"`
	Reason   string `json:"reason"`
}

// LoadResult is the outcome of loading a batch of raw rows.
type LoadResult struct {
	Observations []Observation
	Skipped      []SkippedRow
}

// LoadObservations parses every row independently. Malformed rows are
// reported in Skipped and never abort the batch.
func LoadObservations(records []RawRecord) LoadResult {
	res := LoadResult{Observations: make([]Observation, 0, len(records))}
	for i, rec := range records {
		obs, err := ParseRawRecord(rec)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedRow{
				Row:      i + 1,
				FieldKey: FieldKey(strings.TrimSpace(rec.KPIN), strings.TrimSpace(rec.BlockName)),
				Reason:   err.Error(),
			})
			continue
		}
		res.Observations = append(res.Observations, obs)
	}
	return res
}

// ParseRawRecord converts one raw row into an Observation. Bands are left
// empty; Classify fills them.
func ParseRawRecord(rec RawRecord) (Observation, error) {
	kpin := strings.TrimSpace(rec.KPIN)
	block := strings.TrimSpace(rec.BlockName)
	if kpin == "" || block == "" {
		return Observation{}, fmt.Errorf("%w: kpin and block_name are required", ErrMalformedRecord)
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(rec.AcquisitionDate))
	if err != nil {
		return Observation{}, fmt.Errorf("%w: acquisition_date %q: %v", ErrMalformedRecord, rec.AcquisitionDate, err)
	}

	pixels, err := parsePixels(rec.ValidPixels)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: valid_pixels: %v", ErrMalformedRecord, err)
	}

	year, week := date.ISOWeek()
	return Observation{
		FieldKey:        FieldKey(kpin, block),
		KPIN:            kpin,
		BlockName:       block,
		AcquisitionDate: date,
		Year:            year,
		ISOWeek:         week,
		OrchardName:     strings.TrimSpace(rec.OrchardName),
		Country:         strings.TrimSpace(rec.Country),
		SupplyArea:      strings.TrimSpace(rec.SupplyArea),
		SupplyRegion:    strings.TrimSpace(rec.SupplyRegion),
		Variety:         strings.TrimSpace(rec.Variety),
		TotalHectares:   parseOptionalFloat(rec.TotalHectares),
		CloudShadow:     parseOptionalFloat(rec.CloudShadowPct),
		ValidPixels:     pixels,
	}, nil
}

// FieldKey builds the composite identifier of a physical block.
func FieldKey(kpin, block string) string {
	return kpin + "_" + block
}

// SplitFieldKey recovers kpin and block name from a field key. Block names
// may themselves contain underscores; only the first one separates.
func SplitFieldKey(key string) (kpin, block string) {
	kpin, block, _ = strings.Cut(key, "_")
	return kpin, block
}

// parsePixels decodes a JSON numeric array. Null entries are absent samples
// and are dropped rather than read as zero. Every sample must be an NDVI
// value in [0,1].
func parsePixels(payload string) ([]float64, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("empty payload")
	}

	var raw []*float64
	if err := pixelJSON.UnmarshalFromString(payload, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("payload is not an array")
	}

	pixels := make([]float64, 0, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || *v < 0 || *v > 1 {
			return nil, fmt.Errorf("sample %d: %g outside [0,1]", i, *v)
		}
		pixels = append(pixels, *v)
	}
	return pixels, nil
}

func parseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
