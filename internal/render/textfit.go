package render

import "unicode/utf8"

const (
	MinTextSize = 1.0
	MaxTextSize = 7.5

	// textSizeStep is the resolution the fit search converges to.
	textSizeStep = 0.05
)

// FitTextSize returns the largest size in [MinTextSize, MaxTextSize] at which
// measure(text, size) fits within maxWidth. It binary-searches the size range
// instead of decrementing linearly: each probe costs a layout measurement, so
// the step count must stay bounded regardless of how far the text overshoots.
// If even MinTextSize does not fit, MinTextSize is returned.
func FitTextSize(text string, maxWidth float64, measure func(text string, size float64) float64) float64 {
	if measure(text, MaxTextSize) <= maxWidth {
		return MaxTextSize
	}
	lo, hi := MinTextSize, MaxTextSize
	for hi-lo > textSizeStep {
		mid := (lo + hi) / 2
		if measure(text, mid) <= maxWidth {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// EstimateWidth approximates rendered width as a fixed advance per rune.
// Good enough for snapshot hints; the front end still owns real metrics.
func EstimateWidth(text string, size float64) float64 {
	return float64(utf8.RuneCountInString(text)) * size * 0.6
}
