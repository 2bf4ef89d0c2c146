package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/ndvi-aggregation-service/internal/pipeline"
)

// paramError is a malformed query parameter.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

type queryParams struct {
	settings pipeline.Settings
	years    []int
	exclude  []string
}

// parseParams reads lower, upper, start_week, end_week, year and exclude.
// year and exclude may repeat or hold comma-separated lists. Absent values
// fall back to defaults; range checks are left to the pipeline.
func parseParams(r *http.Request, defaults pipeline.Settings) (queryParams, error) {
	q := r.URL.Query()
	p := queryParams{settings: defaults}

	var err error
	if p.settings.Thresholds.Lower, err = floatParam(q.Get("lower"), "lower", defaults.Thresholds.Lower); err != nil {
		return queryParams{}, err
	}
	if p.settings.Thresholds.Upper, err = floatParam(q.Get("upper"), "upper", defaults.Thresholds.Upper); err != nil {
		return queryParams{}, err
	}
	if p.settings.Window.StartWeek, err = intParam(q.Get("start_week"), "start_week", defaults.Window.StartWeek); err != nil {
		return queryParams{}, err
	}
	if p.settings.Window.EndWeek, err = intParam(q.Get("end_week"), "end_week", defaults.Window.EndWeek); err != nil {
		return queryParams{}, err
	}

	for _, v := range listParam(q["year"]) {
		y, err := strconv.Atoi(v)
		if err != nil {
			return queryParams{}, badRequest("year: %q is not an integer", v)
		}
		p.years = append(p.years, y)
	}
	p.exclude = listParam(q["exclude"])
	return p, nil
}

func floatParam(raw, name string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, badRequest("%s: %q is not a number", name, raw)
	}
	return v, nil
}

func intParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s: %q is not an integer", name, raw)
	}
	return v, nil
}

func listParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
