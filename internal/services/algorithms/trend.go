package algorithms

import "DemandCast/internal/domain/models"

// trendThreshold is the slope, relative to the series mean, that separates a
// stable series from a moving one.
const trendThreshold = 0.02

// CalculateTrend classifies the least squares slope of y over its index.
func CalculateTrend(y []float64) models.Trend {
	if len(y) < 2 {
		return models.TrendStable
	}
	slope, _ := linregress(arange(0, len(y)), y)
	th := mean(y) * trendThreshold
	switch {
	case slope > th:
		return models.TrendIncreasing
	case slope < -th:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}
