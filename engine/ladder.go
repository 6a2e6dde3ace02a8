package engine

import (
	"math"

	"github.com/Skryldev/image-budget/config"
)

// Dimensions returns the longest-side candidates, largest first, down to and
// including MinDimension.  When the step does not land on the floor exactly,
// the floor is appended as the final rung.
func Dimensions(cfg config.SearchConfig) []int {
	var out []int
	for d := cfg.MaxDimension; d >= cfg.MinDimension && d > 0; d -= cfg.DimensionStep {
		out = append(out, d)
		if cfg.DimensionStep <= 0 {
			break
		}
	}
	if n := len(out); n > 0 && out[n-1] > cfg.MinDimension && cfg.MinDimension > 0 {
		out = append(out, cfg.MinDimension)
	}
	return out
}

// Qualities returns the quality candidates, highest first, down to and
// including MinQuality.  Values are rounded to three decimals so repeated
// subtraction cannot drift across the floor.
func Qualities(cfg config.SearchConfig) []float64 {
	var out []float64
	for i := 0; ; i++ {
		q := round3(cfg.MaxQuality - float64(i)*cfg.QualityStep)
		if q < cfg.MinQuality-1e-9 || q <= 0 {
			return out
		}
		out = append(out, q)
		if cfg.QualityStep <= 0 {
			return out
		}
	}
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
