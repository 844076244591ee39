package aqi

import "math"

// Trend describes the direction of a value relative to a reference.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// forecastWindow is the number of trailing samples averaged by Predict.
const forecastWindow = 3

// ParameterForecast is the prediction for one monitored parameter.
type ParameterForecast struct {
	Current   *float64 `json:"current"`
	Predicted *float64 `json:"predicted"`
	Trend     *Trend   `json:"trend"`
	Samples   int      `json:"samples"`
}

// Forecast holds predictions for both particulate fractions.
type Forecast struct {
	PM25 ParameterForecast `json:"pm25"`
	PM10 ParameterForecast `json:"pm10"`
}

// Predict returns the mean of the last three samples rounded to one decimal.
// It returns nil when current is unknown or fewer than three samples exist.
func Predict(current *float64, samples []float64) *float64 {
	if current == nil || len(samples) < forecastWindow {
		return nil
	}
	recent := samples[len(samples)-forecastWindow:]
	var sum float64
	for _, v := range recent {
		sum += v
	}
	mean := sum / float64(len(recent))
	predicted := math.Round(mean*10) / 10
	return &predicted
}

// ClassifyTrend compares predicted against current.
func ClassifyTrend(current, predicted *float64) (Trend, bool) {
	if current == nil || predicted == nil {
		return "", false
	}
	switch {
	case *predicted > *current:
		return TrendUp, true
	case *predicted < *current:
		return TrendDown, true
	default:
		return TrendStable, true
	}
}

// Samples extracts one parameter's observed values from history in order.
// Readings where the parameter was not observed are skipped rather than
// counted as zero, so a forecast window can reach back past missing ticks.
func Samples(history []Reading, field func(Reading) *float64) []float64 {
	out := make([]float64, 0, len(history))
	for _, r := range history {
		if v := field(r); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// PM25Of selects the fine fraction of a reading.
func PM25Of(r Reading) *float64 { return r.PM25 }

// PM10Of selects the coarse fraction of a reading.
func PM10Of(r Reading) *float64 { return r.PM10 }

// ForecastParameter runs Predict and ClassifyTrend for one parameter.
func ForecastParameter(current *float64, samples []float64) ParameterForecast {
	pf := ParameterForecast{
		Current:   current,
		Predicted: Predict(current, samples),
		Samples:   len(samples),
	}
	if trend, ok := ClassifyTrend(current, pf.Predicted); ok {
		pf.Trend = &trend
	}
	return pf
}

// BuildForecast derives the short-horizon forecast from a snapshot.
func BuildForecast(s Snapshot) Forecast {
	return Forecast{
		PM25: ForecastParameter(s.CurrentPM25, Samples(s.History, PM25Of)),
		PM10: ForecastParameter(s.CurrentPM10, Samples(s.History, PM10Of)),
	}
}
