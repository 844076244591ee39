package aqi

// Status is a threshold band for a measured value.
type Status string

const (
	StatusSafe     Status = "safe"
	StatusModerate Status = "moderate"
	StatusCritical Status = "critical"
)

// Classify places value against its safe limit: above the limit is critical,
// above half of it is moderate.
func Classify(value *float64, limit float64) (Status, bool) {
	if value == nil {
		return "", false
	}
	switch {
	case *value > limit:
		return StatusCritical, true
	case *value > limit*0.5:
		return StatusModerate, true
	default:
		return StatusSafe, true
	}
}

// Movement compares the current value against the previous tick's value.
func Movement(current, previous *float64) (Trend, bool) {
	if current == nil || previous == nil {
		return "", false
	}
	switch {
	case *current > *previous:
		return TrendUp, true
	case *current < *previous:
		return TrendDown, true
	default:
		return TrendStable, true
	}
}

// Advisory is a mitigation notice for one parameter.
type Advisory struct {
	Parameter string `json:"parameter"`
	Status    Status `json:"status"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}

type advisoryText struct {
	title   string
	message string
}

var pm25Advisories = map[Status]advisoryText{
	StatusCritical: {
		"CRITICAL: PM2.5 Above Safe Limit",
		"Immediate action required: Increase water sprinkling and cover all debris. Limit outdoor activities.",
	},
	StatusModerate: {
		"Moderate PM2.5 Levels",
		"Maintain dust control measures. Monitor levels closely.",
	},
	StatusSafe: {
		"PM2.5 Within Safe Range",
		"Current dust control measures are effective. Continue monitoring.",
	},
}

var pm10Advisories = map[Status]advisoryText{
	StatusCritical: {
		"CRITICAL: PM10 Above Safe Limit",
		"Immediate action required: Increase dust suppression activities. Cover all materials.",
	},
	StatusModerate: {
		"Moderate PM10 Levels",
		"Maintain current mitigation practices. Consider additional dust control.",
	},
	StatusSafe: {
		"PM10 Within Safe Range",
		"Dust control measures are working well. Keep up the good work!",
	},
}

// Advisories returns one advisory per known particulate value, PM2.5 first.
func Advisories(pm25, pm10 *float64) []Advisory {
	out := make([]Advisory, 0, 2)
	if status, ok := Classify(pm25, PM25SafeLimit); ok {
		text := pm25Advisories[status]
		out = append(out, Advisory{Parameter: "pm25", Status: status, Title: text.title, Message: text.message})
	}
	if status, ok := Classify(pm10, PM10SafeLimit); ok {
		text := pm10Advisories[status]
		out = append(out, Advisory{Parameter: "pm10", Status: status, Title: text.title, Message: text.message})
	}
	return out
}
