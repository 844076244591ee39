package aqi

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/site-aqi-monitor/internal/common"
)

// Exceeds reports whether a tick's raw values cross either alert threshold.
// Missing values count as zero.
func Exceeds(pm25, pm10 *float64) bool {
	return common.ValueOrZero(pm25) > PM25SafeLimit || common.ValueOrZero(pm10) > PM10SafeLimit
}

// alertDue reports whether the throttle window allows an alert at now.
func alertDue(last *time.Time, now time.Time) bool {
	return last == nil || now.Sub(*last) > AlertWindow
}

// NewAlert builds the user-facing notification for raw particulate values.
func NewAlert(now time.Time, pm25, pm10 *float64) Alert {
	return Alert{
		ID:   uuid.NewString(),
		Time: now.UTC(),
		PM25: pm25,
		PM10: pm10,
		Message: fmt.Sprintf("High AQI detected (PM2.5: %s, PM10: %s)",
			common.FormatOrNA(pm25), common.FormatOrNA(pm10)),
	}
}
