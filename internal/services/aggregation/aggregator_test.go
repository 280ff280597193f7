package aggregation

import (
	"testing"
	"time"

	"DemandCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func rec(date time.Time, q float64, p, c, l string) models.RawRecord {
	return models.RawRecord{Date: date, Quantity: q, Product: p, Customer: c, Location: l}
}

func sampleRecords() []models.RawRecord {
	return []models.RawRecord{
		rec(day(2024, 1, 3), 5, "P1", "C1", "L1"),
		rec(day(2024, 1, 20), 7, "P1", "C2", "L1"),
		rec(day(2024, 2, 11), 4, "P2", "C1", "L2"),
		rec(day(2024, 2, 28), 1, "P1", "C1", "L2"),
		rec(day(2024, 4, 2), 9, "P2", "C2", "L1"),
	}
}

func total(s models.TimeSeries) float64 {
	sum := 0.0
	for _, p := range s.Points {
		sum += p.Quantity
	}
	return sum
}

func TestAggregateMonthly(t *testing.T) {
	s, err := Aggregate(sampleRecords(), models.IntervalMonth)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, day(2024, 1, 1), s.Points[0].PeriodStart)
	assert.Equal(t, 12.0, s.Points[0].Quantity)
	assert.Equal(t, "Jan 2024", s.Points[0].Label)
	assert.Equal(t, 5.0, s.Points[1].Quantity)
	assert.Equal(t, day(2024, 4, 1), s.Points[2].PeriodStart)
	assert.Equal(t, 26.0, total(s))
}

func TestAggregateWeeklyStartsMonday(t *testing.T) {
	s, err := Aggregate([]models.RawRecord{
		rec(day(2024, 1, 3), 1, "P", "C", "L"), // Wednesday
		rec(day(2024, 1, 7), 2, "P", "C", "L"), // Sunday, same week
		rec(day(2024, 1, 8), 4, "P", "C", "L"), // Monday
	}, models.IntervalWeek)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, day(2024, 1, 1), s.Points[0].PeriodStart)
	assert.Equal(t, 3.0, s.Points[0].Quantity)
	assert.Equal(t, "Week of Jan 01, 2024", s.Points[0].Label)
}

func TestAggregateUnknownIntervalIsMonthly(t *testing.T) {
	a, err := Aggregate(sampleRecords(), models.Interval("fortnight"))
	require.NoError(t, err)
	b, err := Aggregate(sampleRecords(), models.IntervalMonth)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate(nil, models.IntervalMonth)
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestAggregateIdempotent(t *testing.T) {
	for _, iv := range []models.Interval{models.IntervalWeek, models.IntervalMonth, models.IntervalYear} {
		first, err := Aggregate(sampleRecords(), iv)
		require.NoError(t, err)
		var again []models.RawRecord
		for _, p := range first.Points {
			again = append(again, rec(p.PeriodStart, p.Quantity, "", "", ""))
		}
		second, err := Aggregate(again, iv)
		require.NoError(t, err)
		assert.Equal(t, first, second, iv)
	}
}

func TestAggregateGroupedPreservesSums(t *testing.T) {
	dims := []models.Dimension{models.DimProduct, models.DimCustomer}
	groups, err := AggregateGrouped(sampleRecords(), models.IntervalMonth, dims)
	require.NoError(t, err)
	require.Len(t, groups, 4)

	sum := 0.0
	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		sum += total(g.Series)
		keys = append(keys, g.Key(dims))
	}
	assert.Equal(t, 26.0, sum)
	assert.Equal(t, []string{"P1 + C1", "P1 + C2", "P2 + C1", "P2 + C2"}, keys)
	assert.Equal(t, 2, groups[0].Series.Len())
}

func TestAggregateGroupedSingleDimension(t *testing.T) {
	groups, err := AggregateGrouped(sampleRecords(), models.IntervalYear, []models.Dimension{models.DimProduct})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Series.Len())
	assert.Equal(t, "2024", groups[0].Series.Points[0].Label)
}

func TestAggregateAdvanced(t *testing.T) {
	groups, err := AggregateAdvanced(sampleRecords(), models.IntervalMonth)
	require.NoError(t, err)
	assert.Len(t, groups, 5)
	assert.Equal(t, "L1", groups[0].Values[models.DimLocation])
}

func TestAggregateTwoDimension(t *testing.T) {
	s, err := AggregateTwoDimension(sampleRecords(), models.IntervalMonth, ProductLocation, "P1", "L1")
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, 12.0, s.Points[0].Quantity)

	_, err = AggregateTwoDimension(sampleRecords(), models.IntervalMonth, CustomerLocation, "C9", "L1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoData)
	assert.Equal(t, "No data found for combination: C9 + L1", err.Error())
}

func TestForecastDates(t *testing.T) {
	got := ForecastDates(day(2024, 1, 31), models.IntervalMonth, 3)
	assert.Equal(t, []time.Time{day(2024, 2, 29), day(2024, 3, 31), day(2024, 4, 30)}, got)

	got = ForecastDates(day(2024, 1, 1), models.IntervalWeek, 2)
	assert.Equal(t, []time.Time{day(2024, 1, 8), day(2024, 1, 15)}, got)

	got = ForecastDates(day(2024, 1, 1), models.IntervalYear, 1)
	assert.Equal(t, []time.Time{day(2025, 1, 1)}, got)
}

func TestJoinFactors(t *testing.T) {
	s, err := Aggregate(sampleRecords(), models.IntervalMonth)
	require.NoError(t, err)

	joined := JoinFactors(s, []models.ExternalFactor{
		{Date: day(2024, 1, 5), FactorName: "price", FactorValue: 2},
		{Date: day(2024, 1, 25), FactorName: "price", FactorValue: 4},
		{Date: day(2024, 4, 9), FactorName: "price", FactorValue: 10},
		{Date: day(2024, 2, 9), FactorName: "promo", FactorValue: 1},
	}, []string{"price", "promo", "missing"})

	assert.Equal(t, []string{"price", "promo"}, joined.Factors)
	assert.Equal(t, []float64{3, 0}, joined.Points[0].Exog)
	assert.Equal(t, []float64{3, 1}, joined.Points[1].Exog)
	assert.Equal(t, []float64{10, 1}, joined.Points[2].Exog)
	assert.Nil(t, s.Points[0].Exog)
}
