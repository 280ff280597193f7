package models

// Trend is the qualitative direction of a series.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Metrics summarises fit quality of predicted against actual values.
type Metrics struct {
	Accuracy float64 `json:"accuracy"`
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
}

// DataPoint is one historic or forecast period in API output.
type DataPoint struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
	Period   string  `json:"period"`
}

// AlgorithmResult is the shaped output of a single algorithm run.
type AlgorithmResult struct {
	Algorithm    string      `json:"algorithm"`
	Accuracy     float64     `json:"accuracy"`
	MAE          float64     `json:"mae"`
	RMSE         float64     `json:"rmse"`
	HistoricData []DataPoint `json:"historicData"`
	ForecastData []DataPoint `json:"forecastData"`
	Trend        Trend       `json:"trend"`
}

// Combination maps dimension names to the values a result was computed for.
type Combination map[string]string

// ForecastResult is the answer to a single-series request.
type ForecastResult struct {
	Combination       Combination       `json:"combination,omitempty"`
	SelectedAlgorithm string            `json:"selectedAlgorithm"`
	Accuracy          float64           `json:"accuracy"`
	MAE               float64           `json:"mae"`
	RMSE              float64           `json:"rmse"`
	HistoricData      []DataPoint       `json:"historicData"`
	ForecastData      []DataPoint       `json:"forecastData"`
	Trend             Trend             `json:"trend"`
	AllAlgorithms     []AlgorithmResult `json:"allAlgorithms,omitempty"`
	ConfigHash        string            `json:"configHash,omitempty"`
}

// NewForecastResult shapes an AlgorithmResult as the selected result.
func NewForecastResult(r AlgorithmResult) *ForecastResult {
	return &ForecastResult{
		SelectedAlgorithm: r.Algorithm,
		Accuracy:          r.Accuracy,
		MAE:               r.MAE,
		RMSE:              r.RMSE,
		HistoricData:      r.HistoricData,
		ForecastData:      r.ForecastData,
		Trend:             r.Trend,
	}
}

// CombinationScore names a combination together with its accuracy.
type CombinationScore struct {
	Combination Combination `json:"combination"`
	Accuracy    float64     `json:"accuracy"`
}

// FailedDetail records why one combination could not be forecast.
type FailedDetail struct {
	Combination string `json:"combination"`
	Error       string `json:"error"`
}

// Summary aggregates a multi-combination run over its successes.
type Summary struct {
	AverageAccuracy        float64          `json:"averageAccuracy"`
	BestCombination        CombinationScore `json:"bestCombination"`
	WorstCombination       CombinationScore `json:"worstCombination"`
	SuccessfulCombinations int              `json:"successfulCombinations"`
	FailedCombinations     int              `json:"failedCombinations"`
	FailedDetails          []FailedDetail   `json:"failedDetails"`
}

// MultiForecastResult is the answer to a multi-combination request.
type MultiForecastResult struct {
	Results           []ForecastResult `json:"results"`
	TotalCombinations int              `json:"totalCombinations"`
	Summary           Summary          `json:"summary"`
}

// ForecastOutcome carries whichever result shape a routed request produced.
type ForecastOutcome struct {
	Single *ForecastResult
	Multi  *MultiForecastResult
}

// Payload returns the populated result for serialisation.
func (o ForecastOutcome) Payload() interface{} {
	if o.Multi != nil {
		return o.Multi
	}
	return o.Single
}

// ProgressEvent reports the completion of one combination during a multi run.
type ProgressEvent struct {
	Index       int         `json:"index"`
	Total       int         `json:"total"`
	Key         string      `json:"key"`
	Combination Combination `json:"combination,omitempty"`
	Status      string      `json:"status"`
	Accuracy    float64     `json:"accuracy,omitempty"`
	Error       string      `json:"error,omitempty"`
}

const (
	ProgressOK     = "ok"
	ProgressFailed = "failed"
)

// ResultEvent is the compact record published after each completed request.
type ResultEvent struct {
	ConfigHash        string  `json:"config_hash"`
	Algorithm         string  `json:"algorithm"`
	SelectedAlgorithm string  `json:"selected_algorithm"`
	Accuracy          float64 `json:"accuracy"`
	Combinations      int     `json:"combinations"`
	Failed            int     `json:"failed"`
	Timestamp         int64   `json:"ts"`
}
