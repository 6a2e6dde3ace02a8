package config_test

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/image-budget/config"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Validate(config.Default()))
}

func TestDefaultSearchLadder(t *testing.T) {
	s := config.DefaultSearch()
	assert.Equal(t, 3000, s.MaxDimension)
	assert.Equal(t, 500, s.MinDimension)
	assert.Equal(t, 500, s.DimensionStep)
	assert.InDelta(t, 1.0, s.MaxQuality, 1e-9)
	assert.InDelta(t, 0.35, s.MinQuality, 1e-9)
	assert.InDelta(t, 0.1, s.QualityStep, 1e-9)
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 0
	cfg.Backend = "uikit"
	cfg.Search.QualityStep = 0

	err := config.Validate(cfg)
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 3)
}

func TestValidateSearch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.SearchConfig)
		ok     bool
	}{
		{"defaults", func(*config.SearchConfig) {}, true},
		{"zero floor", func(s *config.SearchConfig) { s.MinDimension = 0 }, false},
		{"ceiling below floor", func(s *config.SearchConfig) { s.MaxDimension = 100 }, false},
		{"quality above one", func(s *config.SearchConfig) { s.MaxQuality = 1.5 }, false},
		{"quality floor above ceiling", func(s *config.SearchConfig) { s.MinQuality = 0.9; s.MaxQuality = 0.8 }, false},
		{"single rung", func(s *config.SearchConfig) { s.MaxDimension = 500 }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := config.DefaultSearch()
			tc.mutate(&s)
			err := config.ValidateSearch(s)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateReportStorage(t *testing.T) {
	cfg := config.Default()
	cfg.Report.Storage = config.StorageLocal
	assert.Error(t, config.Validate(cfg))

	cfg.Report.Local.RootDir = t.TempDir()
	assert.NoError(t, config.Validate(cfg))

	cfg.Report.HighFidelity = "heic"
	assert.Error(t, config.Validate(cfg))
}

func TestValidateLogLevel(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "info", cfg.LogLevel)

	cfg.LogLevel = "debug"
	assert.NoError(t, config.Validate(cfg))

	cfg.LogLevel = "loud"
	assert.Error(t, config.Validate(cfg))
}
