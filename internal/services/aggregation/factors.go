package aggregation

import (
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/pkg/util"
)

// JoinFactors attaches the named external factors to s as exogenous columns.
// Factor observations are averaged per period of the series interval; a
// period without an observation repeats the previous value, starting at 0.
// Names without any observation are dropped.
func JoinFactors(s models.TimeSeries, factors []models.ExternalFactor, names []string) models.TimeSeries {
	if len(names) == 0 || len(factors) == 0 || s.Len() == 0 {
		return s
	}
	iv := string(s.Interval)

	type acc struct {
		sum float64
		n   int
	}
	byName := make(map[string]map[time.Time]*acc, len(names))
	for _, f := range factors {
		p := util.PeriodStart(f.Date, iv)
		m, ok := byName[f.FactorName]
		if !ok {
			m = make(map[time.Time]*acc)
			byName[f.FactorName] = m
		}
		a, ok := m[p]
		if !ok {
			a = &acc{}
			m[p] = a
		}
		a.sum += f.FactorValue
		a.n++
	}

	var used []string
	for _, name := range names {
		if _, ok := byName[name]; ok {
			used = append(used, name)
		}
	}
	if len(used) == 0 {
		return s
	}

	out := models.TimeSeries{Interval: s.Interval, Factors: used, Points: make([]models.SeriesPoint, s.Len())}
	last := make([]float64, len(used))
	for i, p := range s.Points {
		row := make([]float64, len(used))
		for j, name := range used {
			if a, ok := byName[name][p.PeriodStart]; ok {
				last[j] = a.sum / float64(a.n)
			}
			row[j] = last[j]
		}
		p.Exog = row
		out.Points[i] = p
	}
	return out
}
