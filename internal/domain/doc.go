// Package domain turns per-field satellite NDVI pixel samples into weekly
// band statistics for a single field and for a cohort of fields.
//
// # Input
//
// Each row is one block (field) on one acquisition date. A block is
// identified by its owner id (KPIN) and block name; the composite field key
// is "<kpin>_<block>". The pixel payload is a JSON array of NDVI samples:
//
//	[0.61, 0.58, null, 0.72]
//
// Null entries are samples masked out upstream (cloud, shadow, border) and
// are dropped, never read as zero. Dates use YYYY-MM-DD. Rows with an
// unparseable date or payload are rejected individually (see
// [LoadObservations]).
//
// # Bands
//
// Two thresholds lower <= upper split every pixel into exactly one band:
//
//	Red:    v <= lower          low vigor
//	Yellow: lower < v <= upper  medium vigor
//	Green:  v > upper           high vigor
//
// Per band, an observation carries the pixel count, the mean and the
// population standard deviation. Mean and std are nil when the band is
// empty. A band with zero pixels is different from a week with no
// observation, and the nil is carried through every aggregate.
//
// # Weighting
//
// Band means are combined as pixel-count weighted means:
//
//	Σ(mean_i · count_i) / Σ(count_i)
//
// over observations with count_i > 0. This equals the mean of the pooled
// pixels, so splitting one acquisition into two does not change the result.
// The same rule backs both [AggregateWeekly] and [AggregateArea]; the
// dashboard compares the two series week by week.
//
// # Calendar
//
// Weeks are ISO 8601 weeks. The season window (default weeks 14 to 44, about
// April to October) is a fixed grid: every field gets a row for every window
// week of every ISO year it appears in, with nil band values where nothing
// was observed.
package domain
