package domain

import (
	"context"
	"time"
)

// RawRecord is one row of the observation table as it arrives from the source.
// Every column is kept as text; parsing happens in ParseRawRecord so that a
// single bad cell rejects only its own row.
type RawRecord struct {
	KPIN            string `csv:"kpin"     json:"kpin"`
	BlockName       string `csv:"block_name" json:"block_name"`
	OrchardName     string `csv:"orchard_name" json:"orchard_name"`
	AcquisitionDate string `csv:"acquisition_date" json:"acquisition_date"` // YYYY-MM-DD
	Year            string `csv:"year"     json:"year"`
	ISOWeek         string `csv:"iso_week" json:"iso_week"`
	Country         string `csv:"country"  json:"country"`
	SupplyArea      string `csv:"supply_area" json:"supply_area"`
	SupplyRegion    string `csv:"supply_region" json:"supply_region"`
	TotalHectares   string `csv:"total_hectares" json:"total_hectares"`
	Variety         string `csv:"variety"  json:"variety"`
	ValidPixels     string `csv:"valid_pixels" json:"valid_pixels"`         // JSON array, nulls allowed
	CloudShadowPct  string `csv:"cloud_shadow_pct" json:"cloud_shadow_pct"` // optional
}

// Band is one of the three NDVI health classes.
type Band int

const (
	Green Band = iota
	Yellow
	Red
)

// AllBands lists the bands in display order.
var AllBands = [...]Band{Green, Yellow, Red}

func (b Band) String() string {
	switch b {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	default:
		return "unknown"
	}
}

// Bands holds one value per band.
type Bands[T any] struct {
	Green  T `json:"green"`
	Yellow T `json:"yellow"`
	Red    T `json:"red"`
}

// At returns a pointer to the value for band b.
func (s *Bands[T]) At(b Band) *T {
	switch b {
	case Green:
		return &s.Green
	case Yellow:
		return &s.Yellow
	default:
		return &s.Red
	}
}

// BandStats is the per-observation summary of one band. Mean and Std are nil
// when PixelCount is zero.
type BandStats struct {
	Pixels     []float64 `json:"-"`
	PixelCount int       `json:"pixel_count"`
	Mean       *float64  `json:"mean"`
	Std        *float64  `json:"std"`
}

// Observation is one field on one acquisition date.
type Observation struct {
	FieldKey  string `json:"field_key"`
	KPIN      string `json:"kpin"`
	BlockName string `json:"block_name"`

	AcquisitionDate time.Time `json:"acquisition_date"`
	Year            int       `json:"year"` // ISO year
	ISOWeek         int       `json:"iso_week"`

	OrchardName   string   `json:"orchard_name,omitempty"`
	Country       string   `json:"country,omitempty"`
	SupplyArea    string   `json:"supply_area,omitempty"`
	SupplyRegion  string   `json:"supply_region,omitempty"`
	Variety       string   `json:"variety,omitempty"`
	TotalHectares *float64 `json:"total_hectares,omitempty"`
	CloudShadow   *float64 `json:"cloud_shadow_pct,omitempty"`

	ValidPixels []float64 `json:"-"`

	Bands Bands[BandStats] `json:"bands"`
}

// BandAggregate is a band summary over a group of observations. Every field
// is nil on gap-filled rows.
type BandAggregate struct {
	WeightedMean    *float64 `json:"weighted_mean"`
	MeanPixelCount  *float64 `json:"mean_pixel_count"`
	TotalPixelCount *int     `json:"total_pixel_count"`
}

// WeeklyRecord is one field in one ISO week.
type WeeklyRecord struct {
	FieldKey  string    `json:"field_key"`
	KPIN      string    `json:"kpin"`
	BlockName string    `json:"block_name"`
	Year      int       `json:"year"`
	ISOWeek   int       `json:"iso_week"`
	WeekStart time.Time `json:"week_start_date"`

	Bands Bands[BandAggregate] `json:"bands"`

	OrchardName   string   `json:"orchard_name,omitempty"`
	Country       string   `json:"country,omitempty"`
	SupplyArea    string   `json:"supply_area,omitempty"`
	SupplyRegion  string   `json:"supply_region,omitempty"`
	Variety       string   `json:"variety,omitempty"`
	TotalHectares *float64 `json:"total_hectares,omitempty"`

	FirstAcquisition   *time.Time `json:"first_acquisition,omitempty"`
	MeanCloudShadowPct *float64   `json:"mean_cloud_shadow_pct,omitempty"`
	ObservationCount   int        `json:"observation_count"`
	Filled             bool       `json:"filled"`
}

// AreaRecord is a cohort of fields in one ISO week.
type AreaRecord struct {
	Cohort    string    `json:"cohort"`
	Year      int       `json:"year"`
	ISOWeek   int       `json:"iso_week"`
	WeekStart time.Time `json:"week_start_date"`

	Bands Bands[BandAggregate] `json:"bands"`

	ObservationCount int  `json:"observation_count"`
	FieldCount       int  `json:"field_count"`
	Filled           bool `json:"filled"`
}

// OutputEvent is the serialized form destined for the export sink.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// RecordSource yields the raw observation table.
type RecordSource interface {
	Records(ctx context.Context) ([]RawRecord, error)
}
