package domain

// bandAccumulator folds per-observation band stats into a group summary.
// The weighted mean is Σ(mean·count)/Σ(count) over observations that have
// pixels in the band; observations without a mean never enter the sum.
type bandAccumulator struct {
	weightedSum float64
	weight      int
	countSum    int
	n           int
}

func (a *bandAccumulator) add(s BandStats) {
	a.n++
	a.countSum += s.PixelCount
	if s.PixelCount > 0 && s.Mean != nil {
		a.weightedSum += *s.Mean * float64(s.PixelCount)
		a.weight += s.PixelCount
	}
}

func (a *bandAccumulator) aggregate() BandAggregate {
	if a.n == 0 {
		return BandAggregate{}
	}
	meanCount := float64(a.countSum) / float64(a.n)
	total := a.countSum
	agg := BandAggregate{MeanPixelCount: &meanCount, TotalPixelCount: &total}
	if a.weight > 0 {
		m := a.weightedSum / float64(a.weight)
		agg.WeightedMean = &m
	}
	return agg
}

// bandsAccumulator is the three-band form used by both aggregators.
type bandsAccumulator struct {
	bands Bands[bandAccumulator]
}

func (a *bandsAccumulator) add(obs Observation) {
	for _, b := range AllBands {
		a.bands.At(b).add(*obs.Bands.At(b))
	}
}

func (a *bandsAccumulator) aggregate() Bands[BandAggregate] {
	var out Bands[BandAggregate]
	for _, b := range AllBands {
		*out.At(b) = a.bands.At(b).aggregate()
	}
	return out
}

// vote picks the most frequent value. Ties go to the value seen first.
type vote[T comparable] struct {
	order  []T
	counts map[T]int
}

func (v *vote[T]) add(x T) {
	if v.counts == nil {
		v.counts = make(map[T]int)
	}
	if _, seen := v.counts[x]; !seen {
		v.order = append(v.order, x)
	}
	v.counts[x]++
}

func (v *vote[T]) winner() (T, bool) {
	var best T
	bestCount := 0
	for _, x := range v.order {
		if c := v.counts[x]; c > bestCount {
			best, bestCount = x, c
		}
	}
	return best, bestCount > 0
}

func (v *vote[T]) addNonZero(x T) {
	var zero T
	if x != zero {
		v.add(x)
	}
}

func (v *vote[T]) result() T {
	w, _ := v.winner()
	return w
}

// meanAccumulator averages optional values, skipping nil.
type meanAccumulator struct {
	sum float64
	n   int
}

func (m *meanAccumulator) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m *meanAccumulator) mean() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}
