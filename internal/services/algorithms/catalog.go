// Package algorithms holds the forecasting algorithm library. Every algorithm
// is a pure function of a series and a horizon; none of them touch I/O or
// process-global state.
package algorithms

import (
	"fmt"

	"DemandCast/internal/domain/models"
)

// ID identifies one catalog algorithm.
type ID string

const (
	LinearRegression      ID = "linear_regression"
	PolynomialRegression  ID = "polynomial_regression"
	ExponentialSmoothing  ID = "exponential_smoothing"
	HoltWinters           ID = "holt_winters"
	ARIMA                 ID = "arima"
	RandomForest          ID = "random_forest"
	SeasonalDecomposition ID = "seasonal_decomposition"
	MovingAverage         ID = "moving_average"
	SARIMA                ID = "sarima"
	ProphetLike           ID = "prophet_like"
	LSTMLike              ID = "lstm_like"
	XGBoost               ID = "xgboost"
	SVR                   ID = "svr"
	KNN                   ID = "knn"
	GaussianProcess       ID = "gaussian_process"
	NeuralNetwork         ID = "neural_network"
	ThetaMethod           ID = "theta_method"
	Croston               ID = "croston"
	SES                   ID = "ses"
	DampedTrend           ID = "damped_trend"
	NaiveSeasonal         ID = "naive_seasonal"
	DriftMethod           ID = "drift_method"
	BestFit               ID = "best_fit"
)

// Func is the uniform algorithm contract. The returned forecast has exactly
// horizon non-negative entries; metrics are unrounded.
type Func func(s models.TimeSeries, horizon int) ([]float64, models.Metrics, error)

type entry struct {
	id   ID
	name string
	fn   Func
}

// catalog is ordered; best-fit sweeps and tie breaking follow this order.
var catalog = []entry{
	{LinearRegression, "Linear Regression", linearRegression},
	{PolynomialRegression, "Polynomial Regression", polynomialRegression},
	{ExponentialSmoothing, "Exponential Smoothing", exponentialSmoothing},
	{HoltWinters, "Holt-Winters", holtWinters},
	{ARIMA, "ARIMA (Simple)", arima},
	{RandomForest, "Random Forest", randomForest},
	{SeasonalDecomposition, "Seasonal Decomposition", seasonalDecomposition},
	{MovingAverage, "Moving Average", movingAverage},
	{SARIMA, "SARIMA (Seasonal ARIMA)", sarima},
	{ProphetLike, "Prophet-like Forecasting", prophetLike},
	{LSTMLike, "Simple LSTM-like", lstmLike},
	{XGBoost, "XGBoost Regression", xgboost},
	{SVR, "Support Vector Regression", svr},
	{KNN, "K-Nearest Neighbors", knn},
	{GaussianProcess, "Gaussian Process", gaussianProcess},
	{NeuralNetwork, "Neural Network (MLP)", neuralNetwork},
	{ThetaMethod, "Theta Method", thetaMethod},
	{Croston, "Croston's Method", croston},
	{SES, "Simple Exponential Smoothing", ses},
	{DampedTrend, "Damped Trend Method", dampedTrend},
	{NaiveSeasonal, "Naive Seasonal", naiveSeasonal},
	{DriftMethod, "Drift Method", driftMethod},
	{BestFit, "Best Fit (Auto-Select)", nil},
}

var index = func() map[ID]int {
	m := make(map[ID]int, len(catalog))
	for i, e := range catalog {
		m[e.id] = i
	}
	return m
}()

// Parse validates a raw algorithm id.
func Parse(s string) (ID, error) {
	id := ID(s)
	if _, ok := index[id]; !ok {
		return "", models.NewDomainError(models.ErrUnsupportedAlgorithm, fmt.Sprintf("unsupported algorithm: %s", s))
	}
	return id, nil
}

// Name returns the display name, or the raw id when unknown.
func (id ID) Name() string {
	if i, ok := index[id]; ok {
		return catalog[i].name
	}
	return string(id)
}

// Sweep returns every concrete algorithm in catalog order, best_fit excluded.
func Sweep() []ID {
	out := make([]ID, 0, len(catalog)-1)
	for _, e := range catalog {
		if e.fn != nil {
			out = append(out, e.id)
		}
	}
	return out
}

// Catalog lists every id with its display name, best_fit included.
func Catalog() models.AlgorithmCatalog {
	out := make(models.AlgorithmCatalog, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, models.AlgorithmInfo{ID: string(e.id), Name: e.name})
	}
	return out
}

// Run dispatches one concrete algorithm. best_fit is a selection strategy,
// not an algorithm, and is rejected here.
func Run(id ID, s models.TimeSeries, horizon int) ([]float64, models.Metrics, error) {
	i, ok := index[id]
	if !ok || catalog[i].fn == nil {
		return nil, models.Metrics{}, models.NewDomainError(models.ErrUnsupportedAlgorithm, fmt.Sprintf("unsupported algorithm: %s", id))
	}
	if s.Len() == 0 {
		return nil, models.Metrics{}, models.NewDomainError(models.ErrInsufficientData, "empty series")
	}
	if horizon < 0 {
		horizon = 0
	}
	fc, m, err := catalog[i].fn(s, horizon)
	if err != nil {
		return nil, models.Metrics{}, err
	}
	if len(fc) != horizon {
		return nil, models.Metrics{}, fmt.Errorf("%s: produced %d values for horizon %d", id, len(fc), horizon)
	}
	if !finite(fc) {
		return nil, models.Metrics{}, fmt.Errorf("%s: non-finite forecast", id)
	}
	if err := validMetrics(m); err != nil {
		return nil, models.Metrics{}, fmt.Errorf("%s: %w", id, err)
	}
	return clampAll(fc), m, nil
}
