package assessment

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

func (l RiskLevel) IsValid() bool {
	switch l {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	}
	return false
}

// RiskThresholds buckets a 0-100 score. A score at or above High is high,
// at or above Moderate is moderate, anything lower is low.
type RiskThresholds struct {
	Moderate float64
	High     float64
}

func DefaultThresholds() RiskThresholds {
	return RiskThresholds{Moderate: 40, High: 70}
}

func (t RiskThresholds) Level(score float64) RiskLevel {
	switch {
	case score >= t.High:
		return RiskHigh
	case score >= t.Moderate:
		return RiskModerate
	default:
		return RiskLow
	}
}

func ValidScore(score float64) bool {
	return score >= 0 && score <= 100
}
