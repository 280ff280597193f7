// Package aggregation turns dated transactional records into regular period
// series.
package aggregation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/pkg/util"
)

// PairType names a two-dimension combination family.
type PairType string

const (
	ProductCustomer  PairType = "product_customer"
	ProductLocation  PairType = "product_location"
	CustomerLocation PairType = "customer_location"
)

// Pairs lists the pair types in the order two-dimension sweeps prefer them.
func Pairs() []PairType { return []PairType{ProductCustomer, ProductLocation, CustomerLocation} }

// Dimensions returns the two dimensions of the pair.
func (p PairType) Dimensions() (models.Dimension, models.Dimension) {
	switch p {
	case ProductCustomer:
		return models.DimProduct, models.DimCustomer
	case ProductLocation:
		return models.DimProduct, models.DimLocation
	default:
		return models.DimCustomer, models.DimLocation
	}
}

// Group is one series of a grouped aggregation together with the dimension
// values that identify it.
type Group struct {
	Values map[models.Dimension]string
	Series models.TimeSeries
}

// Key joins the group values in the given dimension order with " + ".
func (g Group) Key(dims []models.Dimension) string {
	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		parts = append(parts, g.Values[d])
	}
	return strings.Join(parts, " + ")
}

var errEmpty = models.NewDomainError(models.ErrNoData, "No data available to aggregate")

// Aggregate sums every record into one series bucketed by interval.
func Aggregate(records []models.RawRecord, iv models.Interval) (models.TimeSeries, error) {
	if len(records) == 0 {
		return models.TimeSeries{}, errEmpty
	}
	iv = models.NormalizeInterval(string(iv))
	sums := make(map[time.Time]float64)
	for _, r := range records {
		sums[util.PeriodStart(r.Date, string(iv))] += r.Quantity
	}
	return build(sums, iv), nil
}

// AggregateGrouped returns one series per distinct tuple of dims. With fewer
// than two dimensions it degrades to a single ungrouped series. Groups are
// ordered by their key.
func AggregateGrouped(records []models.RawRecord, iv models.Interval, dims []models.Dimension) ([]Group, error) {
	if len(records) == 0 {
		return nil, errEmpty
	}
	if len(dims) < 2 {
		s, err := Aggregate(records, iv)
		if err != nil {
			return nil, err
		}
		return []Group{{Values: map[models.Dimension]string{}, Series: s}}, nil
	}
	iv = models.NormalizeInterval(string(iv))

	type bucket struct {
		values map[models.Dimension]string
		sums   map[time.Time]float64
	}
	buckets := make(map[string]*bucket)
	for _, r := range records {
		parts := make([]string, len(dims))
		for i, d := range dims {
			parts[i] = r.Value(d)
		}
		key := strings.Join(parts, "\x00")
		b, ok := buckets[key]
		if !ok {
			vals := make(map[models.Dimension]string, len(dims))
			for i, d := range dims {
				vals[d] = parts[i]
			}
			b = &bucket{values: vals, sums: make(map[time.Time]float64)}
			buckets[key] = b
		}
		b.sums[util.PeriodStart(r.Date, string(iv))] += r.Quantity
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		out = append(out, Group{Values: b.values, Series: build(b.sums, iv)})
	}
	return out, nil
}

// AggregateAdvanced groups by product, customer and location.
func AggregateAdvanced(records []models.RawRecord, iv models.Interval) ([]Group, error) {
	return AggregateGrouped(records, iv, []models.Dimension{models.DimProduct, models.DimCustomer, models.DimLocation})
}

// AggregateTwoDimension keeps the records matching the pair (a, b), sums
// across the remaining dimension and buckets by period.
func AggregateTwoDimension(records []models.RawRecord, iv models.Interval, pair PairType, a, b string) (models.TimeSeries, error) {
	da, db := pair.Dimensions()
	var kept []models.RawRecord
	for _, r := range records {
		if r.Value(da) == a && r.Value(db) == b {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return models.TimeSeries{}, models.NewDomainError(models.ErrNoData, fmt.Sprintf("No data found for combination: %s + %s", a, b))
	}
	return Aggregate(kept, iv)
}

// ForecastDates returns horizon period starts following last.
func ForecastDates(last time.Time, iv models.Interval, horizon int) []time.Time {
	out := make([]time.Time, 0, horizon)
	for k := 1; k <= horizon; k++ {
		out = append(out, util.AddInterval(last, string(iv), k))
	}
	return out
}

// Label renders the period label of a period start.
func Label(t time.Time, iv models.Interval) string {
	return util.PeriodLabel(t, string(models.NormalizeInterval(string(iv))))
}

func build(sums map[time.Time]float64, iv models.Interval) models.TimeSeries {
	periods := make([]time.Time, 0, len(sums))
	for p := range sums {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	s := models.TimeSeries{Interval: iv, Points: make([]models.SeriesPoint, len(periods))}
	for i, p := range periods {
		s.Points[i] = models.SeriesPoint{PeriodStart: p, Quantity: sums[p], Label: Label(p, iv)}
	}
	return s
}
