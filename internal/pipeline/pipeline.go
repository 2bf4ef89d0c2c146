package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/ndvi-aggregation-service/internal/domain"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/observability"
)

var (
	ErrNotLoaded    = errors.New("dataset not loaded")
	ErrUnknownField = errors.New("unknown field")
	ErrUnknownArea  = errors.New("unknown supply area")
)

// BatchLoader writes serialized weekly records to the export sink.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Settings is the configuration every aggregation query runs with.
type Settings struct {
	Thresholds domain.Thresholds
	Window     domain.Window
}

// DefaultSettings uses the default thresholds and season window.
var DefaultSettings = Settings{Thresholds: domain.DefaultThresholds, Window: domain.DefaultWindow}

// Validate checks thresholds first so an inverted pair is always reported
// as ErrInvalidThreshold.
func (s Settings) Validate() error {
	if err := s.Thresholds.Validate(); err != nil {
		return err
	}
	return s.Window.Validate()
}

// WeeklyQuery selects one field's weekly series. Empty Years means every season.
type WeeklyQuery struct {
	Settings
	FieldKey string
	Years    []int
}

// AreaQuery selects a cohort series for a supply area.
type AreaQuery struct {
	Settings
	SupplyArea    string
	ExcludeFields []string
	Years         []int
}

// ComparisonQuery pairs a field with its own supply area, the field itself
// excluded, for one season. Year 0 picks the field's latest season.
type ComparisonQuery struct {
	Settings
	FieldKey string
	Year     int
}

// Comparison is a field series and its cohort series on the same week axis.
type Comparison struct {
	Field  domain.FieldSummary   `json:"field"`
	Year   int                   `json:"year"`
	Cohort string                `json:"cohort"`
	Weekly []domain.WeeklyRecord `json:"weekly"`
	Area   []domain.AreaRecord   `json:"area"`
}

// Status describes the loaded dataset, including the rows the Loader rejected.
type Status struct {
	Observations int                 `json:"observations"`
	Fields       int                 `json:"fields"`
	Areas        int                 `json:"areas"`
	RejectedRows int                 `json:"rejected_rows"`
	Rejected     []domain.SkippedRow `json:"rejected"`
}

// dataset is an immutable snapshot of the loaded observations plus the
// classified-output cache that belongs to it.
type dataset struct {
	observations []domain.Observation
	fields       []domain.FieldSummary
	fieldIndex   map[string]int
	areas        []domain.AreaSummary
	areaIndex    map[string]struct{}
	skipped      []domain.SkippedRow
	prepared     *lruCache[domain.Thresholds, []domain.Observation]
}

// Pipeline answers dashboard queries over one loaded dataset.
type Pipeline struct {
	logger    *slog.Logger
	metrics   *observability.Metrics
	defaults  Settings
	cacheSize int
	data      atomic.Pointer[dataset]
}

// New creates a Pipeline. Queries fail with ErrNotLoaded until Load or Use
// installs a dataset.
func New(logger *slog.Logger, metrics *observability.Metrics, defaults Settings, cacheSize int) *Pipeline {
	return &Pipeline{
		logger:    logger,
		metrics:   metrics,
		defaults:  defaults,
		cacheSize: cacheSize,
	}
}

// Prepare runs the Classifier and StatsComputer over a dataset.
func Prepare(observations []domain.Observation, th domain.Thresholds) ([]domain.Observation, error) {
	classified, err := domain.ClassifyAll(observations, th)
	if err != nil {
		return nil, err
	}
	return domain.ComputeStatsAll(classified), nil
}

// Load reads every row from src, rejects malformed rows individually and
// installs the rest as the current dataset.
func (p *Pipeline) Load(ctx context.Context, src domain.RecordSource) (domain.LoadResult, error) {
	records, err := src.Records(ctx)
	if err != nil {
		return domain.LoadResult{}, fmt.Errorf("read records: %w", err)
	}

	res := domain.LoadObservations(records)
	for _, s := range res.Skipped {
		p.logger.Warn("rejected malformed row", "row", s.Row, "field_key", s.FieldKey, "reason", s.Reason)
	}
	p.metrics.RowsLoaded.Add(float64(len(res.Observations)))
	p.metrics.RowsRejected.Add(float64(len(res.Skipped)))

	p.install(res.Observations, res.Skipped)
	p.logger.Info("dataset loaded",
		"rows", len(records),
		"observations", len(res.Observations),
		"rejected", len(res.Skipped),
	)
	return res, nil
}

// Use installs observations as the current dataset and drops cached output.
func (p *Pipeline) Use(observations []domain.Observation) {
	p.install(observations, nil)
}

func (p *Pipeline) install(observations []domain.Observation, skipped []domain.SkippedRow) {
	fields := domain.SummarizeFields(observations)
	fieldIndex := make(map[string]int, len(fields))
	for i, f := range fields {
		fieldIndex[f.FieldKey] = i
	}
	areas := domain.SummarizeAreas(observations)
	areaIndex := make(map[string]struct{}, len(areas))
	for _, a := range areas {
		areaIndex[a.SupplyArea] = struct{}{}
	}

	p.data.Store(&dataset{
		observations: observations,
		fields:       fields,
		fieldIndex:   fieldIndex,
		areas:        areas,
		areaIndex:    areaIndex,
		skipped:      skipped,
		prepared:     newLRUCache[domain.Thresholds, []domain.Observation](p.cacheSize),
	})
	p.metrics.DatasetObservations.Set(float64(len(observations)))
}

// CheckReadiness returns nil once a dataset is installed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.data.Load() == nil {
		return ErrNotLoaded
	}
	return nil
}

// Defaults returns the settings queries start from.
func (p *Pipeline) Defaults() Settings {
	return p.defaults
}

// Status summarizes the current dataset. Before a load everything is zero.
func (p *Pipeline) Status() Status {
	ds := p.data.Load()
	if ds == nil {
		return Status{Rejected: []domain.SkippedRow{}}
	}
	rejected := slices.Clone(ds.skipped)
	if rejected == nil {
		rejected = []domain.SkippedRow{}
	}
	return Status{
		Observations: len(ds.observations),
		Fields:       len(ds.fields),
		Areas:        len(ds.areas),
		RejectedRows: len(rejected),
		Rejected:     rejected,
	}
}

// Fields lists the fields of the current dataset.
func (p *Pipeline) Fields() []domain.FieldSummary {
	ds := p.data.Load()
	if ds == nil {
		return []domain.FieldSummary{}
	}
	return slices.Clone(ds.fields)
}

// Areas lists the supply areas of the current dataset.
func (p *Pipeline) Areas() []domain.AreaSummary {
	ds := p.data.Load()
	if ds == nil {
		return []domain.AreaSummary{}
	}
	return slices.Clone(ds.areas)
}

// Weekly returns one field's weekly series, gap-filled on the season window.
func (p *Pipeline) Weekly(ctx context.Context, q WeeklyQuery) (records []domain.WeeklyRecord, err error) {
	defer p.observe("weekly", time.Now(), &err)

	ds, err := p.begin(ctx, q.Settings)
	if err != nil {
		return nil, err
	}
	if _, ok := ds.fieldIndex[q.FieldKey]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, q.FieldKey)
	}
	return p.weekly(ds, q)
}

// Area returns the weighted cohort series for a supply area.
func (p *Pipeline) Area(ctx context.Context, q AreaQuery) (records []domain.AreaRecord, err error) {
	defer p.observe("area", time.Now(), &err)

	ds, err := p.begin(ctx, q.Settings)
	if err != nil {
		return nil, err
	}
	if _, ok := ds.areaIndex[q.SupplyArea]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArea, q.SupplyArea)
	}
	cohort := domain.Cohort{SupplyArea: q.SupplyArea, ExcludeFields: q.ExcludeFields, Years: q.Years}
	return p.area(ds, q.Settings, cohort)
}

// Comparison returns a field's season next to the rest of its supply area.
func (p *Pipeline) Comparison(ctx context.Context, q ComparisonQuery) (cmp Comparison, err error) {
	defer p.observe("comparison", time.Now(), &err)

	ds, err := p.begin(ctx, q.Settings)
	if err != nil {
		return Comparison{}, err
	}
	i, ok := ds.fieldIndex[q.FieldKey]
	if !ok {
		return Comparison{}, fmt.Errorf("%w: %s", ErrUnknownField, q.FieldKey)
	}
	field := ds.fields[i]

	year := q.Year
	if year == 0 && len(field.Seasons) > 0 {
		year = field.Seasons[len(field.Seasons)-1]
	}

	weekly, err := p.weekly(ds, WeeklyQuery{Settings: q.Settings, FieldKey: q.FieldKey, Years: []int{year}})
	if err != nil {
		return Comparison{}, err
	}

	cohort := domain.Cohort{SupplyArea: field.SupplyArea, ExcludeFields: []string{field.FieldKey}, Years: []int{year}}
	area := []domain.AreaRecord{}
	if field.SupplyArea != "" {
		area, err = p.area(ds, q.Settings, cohort)
		if err != nil {
			return Comparison{}, err
		}
	}

	return Comparison{
		Field:  field,
		Year:   year,
		Cohort: cohort.Label(),
		Weekly: weekly,
		Area:   area,
	}, nil
}

// Export aggregates every field with the default settings and writes the
// weekly records to loader in batches. It returns the number written.
func (p *Pipeline) Export(ctx context.Context, loader BatchLoader, batchSize int) (int, error) {
	ds, err := p.begin(ctx, p.defaults)
	if err != nil {
		return 0, err
	}
	obs, err := p.prepared(ds, p.defaults.Thresholds)
	if err != nil {
		return 0, err
	}
	records, err := domain.AggregateWeekly(obs, p.defaults.Window)
	if err != nil {
		return 0, err
	}
	if batchSize < 1 {
		batchSize = 1
	}

	written := 0
	for chunk := range slices.Chunk(records, batchSize) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		events := make([]domain.OutputEvent, 0, len(chunk))
		for _, rec := range chunk {
			ev, err := domain.SerializeWeeklyRecord(rec)
			if err != nil {
				return written, err
			}
			events = append(events, ev)
		}
		if err := loader.LoadBatch(ctx, events); err != nil {
			return written, fmt.Errorf("load export batch: %w", err)
		}
		written += len(events)
		p.metrics.RecordsExported.Add(float64(len(events)))
		p.logger.Info("export batch written", "batch_size", len(events), "written", written, "total", len(records))
	}
	return written, nil
}

func (p *Pipeline) begin(ctx context.Context, s Settings) (*dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	ds := p.data.Load()
	if ds == nil {
		return nil, ErrNotLoaded
	}
	return ds, nil
}

func (p *Pipeline) weekly(ds *dataset, q WeeklyQuery) ([]domain.WeeklyRecord, error) {
	obs, err := p.prepared(ds, q.Thresholds)
	if err != nil {
		return nil, err
	}
	selected := make([]domain.Observation, 0)
	for _, o := range obs {
		if o.FieldKey != q.FieldKey {
			continue
		}
		if len(q.Years) > 0 && !slices.Contains(q.Years, o.Year) {
			continue
		}
		selected = append(selected, o)
	}
	return domain.AggregateWeekly(selected, q.Window)
}

func (p *Pipeline) area(ds *dataset, s Settings, cohort domain.Cohort) ([]domain.AreaRecord, error) {
	obs, err := p.prepared(ds, s.Thresholds)
	if err != nil {
		return nil, err
	}
	return domain.AggregateArea(obs, cohort.Label(), cohort.Match, s.Window)
}

// prepared returns the classified dataset for a threshold pair, computing
// it on first use.
func (p *Pipeline) prepared(ds *dataset, th domain.Thresholds) ([]domain.Observation, error) {
	if obs, ok := ds.prepared.get(th); ok {
		p.metrics.ClassifyCache.WithLabelValues("hit").Inc()
		return obs, nil
	}
	p.metrics.ClassifyCache.WithLabelValues("miss").Inc()

	obs, err := Prepare(ds.observations, th)
	if err != nil {
		return nil, err
	}
	ds.prepared.put(th, obs)
	p.logger.Debug("classified dataset", "lower", th.Lower, "upper", th.Upper, "observations", len(obs))
	return obs, nil
}

func (p *Pipeline) observe(kind string, start time.Time, err *error) {
	p.metrics.QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	p.metrics.Queries.WithLabelValues(kind, outcome(*err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidThreshold), errors.Is(err, domain.ErrInvalidWindow):
		return "invalid"
	case errors.Is(err, ErrUnknownField), errors.Is(err, ErrUnknownArea):
		return "not_found"
	default:
		return "error"
	}
}
