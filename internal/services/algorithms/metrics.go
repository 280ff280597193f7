package algorithms

import (
	"fmt"
	"math"

	"DemandCast/internal/domain/models"

	"github.com/shopspring/decimal"
)

// MaxAccuracy caps reported accuracy; a perfect in-sample fit still reads 99.9.
const MaxAccuracy = 99.9

// CalculateMetrics compares actual with predicted pairwise. Accuracy is
// 100 - MAPE where a zero actual is replaced by 1 in the denominator.
func CalculateMetrics(actual, predicted []float64) models.Metrics {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}
	if n == 0 {
		return models.Metrics{}
	}
	var absSum, sqSum, pctSum float64
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		absSum += math.Abs(d)
		sqSum += d * d
		den := actual[i]
		if den == 0 {
			den = 1
		}
		pctSum += math.Abs(d / den)
	}
	mape := pctSum / float64(n) * 100
	acc := math.Min(math.Max(0, 100-mape), MaxAccuracy)
	return models.Metrics{
		Accuracy: acc,
		MAE:      absSum / float64(n),
		RMSE:     math.Sqrt(sqSum / float64(n)),
	}
}

// RoundMetrics rounds accuracy to one decimal and errors to two.
func RoundMetrics(m models.Metrics) models.Metrics {
	return models.Metrics{
		Accuracy: Round(m.Accuracy, 1),
		MAE:      Round(m.MAE, 2),
		RMSE:     Round(m.RMSE, 2),
	}
}

// Round rounds half away from zero at the given number of decimals.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func validMetrics(m models.Metrics) error {
	for _, v := range []float64{m.Accuracy, m.MAE, m.RMSE} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite metric %v", v)
		}
	}
	return nil
}

// TrainingMetrics scores a series too short for a held-out split against
// simple in-sample fits: OLS on the index for linear regression, a quadratic
// for polynomial regression, SES(0.3) for the smoothing pair and the series
// itself for everything else.
func TrainingMetrics(id ID, y []float64) models.Metrics {
	var fitted []float64
	switch id {
	case LinearRegression:
		slope, intercept := linregress(arange(0, len(y)), y)
		fitted = make([]float64, len(y))
		for i := range fitted {
			fitted[i] = slope*float64(i) + intercept
		}
	case PolynomialRegression:
		x := arange(0, len(y))
		coef, err := polyfit(x, y, 2)
		if err != nil {
			return CalculateMetrics(y, y)
		}
		fitted = make([]float64, len(y))
		for i := range fitted {
			fitted[i] = polyval(coef, x[i])
		}
	case ExponentialSmoothing, SES:
		fitted = smoothed(y, 0.3)
	default:
		fitted = y
	}
	return CalculateMetrics(y, fitted)
}
