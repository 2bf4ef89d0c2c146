package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/ndvi-aggregation-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "obs.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_Passes(t *testing.T) {
	path := writeFile(t, `kpin,block_name,acquisition_date,year,iso_week,supply_area,valid_pixels
1,A,2023-05-16,2023,20,Latina,"[0.1,0.4,0.9]"
1,A,2023-05-18,,,Latina,"[0.6,null]"
2,B,2023-06-01,2023,22,Latina,[0.35]
`)

	var out bytes.Buffer
	code := run(&out, path, domain.DefaultThresholds)

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "All validations passed.")
	assert.Contains(t, out.String(), "Rows: 3 read, 3 loaded, 0 rejected")
}

func TestRun_ReportsFailures(t *testing.T) {
	path := writeFile(t, `kpin,block_name,acquisition_date,year,iso_week,valid_pixels
1,A,2023-05-16,2023,21,[0.5]
1,A,bad-date,,,[0.5]
`)

	var out bytes.Buffer
	code := run(&out, path, domain.DefaultThresholds)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "Phase 1: Row Parsing")
	assert.Contains(t, out.String(), "iso_week=21, acquisition date gives 20")
	assert.Contains(t, out.String(), "Validation FAILED.")
}

func TestRun_MissingFile(t *testing.T) {
	var out bytes.Buffer
	code := run(&out, filepath.Join(t.TempDir(), "absent.csv"), domain.DefaultThresholds)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "FATAL: load CSV")
}

func TestInBand(t *testing.T) {
	th := domain.Thresholds{Lower: 0.3, Upper: 0.55}
	assert.True(t, inBand(th, domain.Red, 0.3))
	assert.False(t, inBand(th, domain.Yellow, 0.3))
	assert.True(t, inBand(th, domain.Yellow, 0.55))
	assert.True(t, inBand(th, domain.Green, 0.56))
}
