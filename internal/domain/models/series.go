package models

import "time"

// SeriesPoint is one aggregated period of a TimeSeries.
type SeriesPoint struct {
	PeriodStart time.Time
	Quantity    float64
	Label       string
	// Exog holds one value per TimeSeries.Factors entry.
	Exog []float64
}

// TimeSeries is a regular, strictly increasing sequence of periods.
type TimeSeries struct {
	Interval Interval
	Factors  []string
	Points   []SeriesPoint
}

func (s TimeSeries) Len() int { return len(s.Points) }

// Quantities returns a fresh copy of the quantity column.
func (s TimeSeries) Quantities() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Quantity
	}
	return out
}

// TrainingData returns the quantity column followed by one column per
// factor in Factors order. It is what a fitted model was trained on.
func (s TimeSeries) TrainingData() []float64 {
	out := s.Quantities()
	for j := range s.Factors {
		for _, p := range s.Points {
			v := 0.0
			if j < len(p.Exog) {
				v = p.Exog[j]
			}
			out = append(out, v)
		}
	}
	return out
}

// Dates returns the period start column.
func (s TimeSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.PeriodStart
	}
	return out
}

// HasExog reports whether the series carries exogenous columns.
func (s TimeSeries) HasExog() bool { return len(s.Factors) > 0 }

// ExogAt returns the exogenous row for point i, or nil when there are none.
func (s TimeSeries) ExogAt(i int) []float64 {
	if !s.HasExog() || i < 0 || i >= len(s.Points) {
		return nil
	}
	return s.Points[i].Exog
}

// LastExog returns the exogenous row of the final point.
func (s TimeSeries) LastExog() []float64 { return s.ExogAt(len(s.Points) - 1) }

// Head returns the first n points as a new series sharing no point slice.
func (s TimeSeries) Head(n int) TimeSeries {
	if n > len(s.Points) {
		n = len(s.Points)
	}
	pts := make([]SeriesPoint, n)
	copy(pts, s.Points[:n])
	return TimeSeries{Interval: s.Interval, Factors: s.Factors, Points: pts}
}

// Tail returns the last n points.
func (s TimeSeries) Tail(n int) []SeriesPoint {
	if n >= len(s.Points) {
		return s.Points
	}
	if n <= 0 {
		return nil
	}
	return s.Points[len(s.Points)-n:]
}

// LastDate returns the start of the final period.
func (s TimeSeries) LastDate() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].PeriodStart
}
