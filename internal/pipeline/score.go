package pipeline

import "github.com/linnemanlabs/beacon/internal/incident"

// Additive scoring rules. Each rule is independent and order-insensitive;
// the maximum attainable score is 100.
const (
	pointsKnownNetwork  = 40
	pointsRepeat        = 20
	pointsHighFrequency = 20
	pointsMultiSource   = 20

	// frequencyThreshold is the match count at which the high-frequency
	// rule fires.
	frequencyThreshold = 3
)

// Classification thresholds, evaluated on the summed score.
const (
	urgentThreshold   = 70
	priorityThreshold = 40
)

// Score maps pattern signals to a risk assessment. The breakdown records
// only the rules that fired, and the score is always their sum.
func Score(signals PatternSignals) incident.RiskAssessment {
	score := 0
	breakdown := make(map[string]int)

	if signals.KnownNetwork {
		score += pointsKnownNetwork
		breakdown["known_network"] = pointsKnownNetwork
	}
	if signals.RepeatIndicator {
		score += pointsRepeat
		breakdown["repeat_indicator"] = pointsRepeat
	}
	if signals.Frequency >= frequencyThreshold {
		score += pointsHighFrequency
		breakdown["high_frequency"] = pointsHighFrequency
	}
	if signals.MultiSource {
		score += pointsMultiSource
		breakdown["multi_source"] = pointsMultiSource
	}

	return incident.RiskAssessment{
		Score:          score,
		Classification: classify(score),
		Breakdown:      breakdown,
	}
}

func classify(score int) incident.Classification {
	switch {
	case score >= urgentThreshold:
		return incident.ClassUrgent
	case score >= priorityThreshold:
		return incident.ClassPriority
	default:
		return incident.ClassMonitor
	}
}
