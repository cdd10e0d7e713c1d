package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.YMax = math.Inf(1)
	cfg.DrivingSpeed = 0
	cfg.SearchRadius = -1
	cfg.Metric = "chebyshev"
	cfg.Trace = "everything"
	cfg.Fleet = append(cfg.Fleet, FleetConfig{Count: -2})

	err := cfg.Validate()

	assert.ErrorIs(t, err, ErrInputValidation)
	for _, want := range []string{"y_max", "driving_speed", "search_radius", "chebyshev", "everything", "fleet[1]"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestConfig_LayoutSpecificFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"grid needs spacing", func(c *Config) { c.SpotSpacing = 0 }, true},
		{"random ignores spacing", func(c *Config) { c.SpotLayout, c.SpotSpacing, c.SpotCount = LayoutRandom, 0, 10 }, false},
		{"random rejects negative count", func(c *Config) { c.SpotLayout, c.SpotCount = LayoutRandom, -1 }, true},
		{"none needs nothing", func(c *Config) { c.SpotLayout, c.SpotSpacing = LayoutNone, 0 }, false},
		{"empty layout means none", func(c *Config) { c.SpotLayout = "" }, false},
		{"unknown layout", func(c *Config) { c.SpotLayout = "hex" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInputValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ZeroDurationsAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WalkRadius = 0
	cfg.ReservationDuration = 0
	cfg.ReservationArrivalSlack = 0
	assert.NoError(t, cfg.Validate())
}
