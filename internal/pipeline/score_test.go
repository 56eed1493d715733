package pipeline

import (
	"testing"

	"github.com/linnemanlabs/beacon/internal/incident"
)

func TestScore_Rules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		signals   PatternSignals
		wantScore int
		wantClass incident.Classification
		wantRules []string
	}{
		{
			name:      "no signals",
			signals:   PatternSignals{},
			wantScore: 0,
			wantClass: incident.ClassMonitor,
		},
		{
			name:      "known network only",
			signals:   PatternSignals{KnownNetwork: true},
			wantScore: 40,
			wantClass: incident.ClassPriority,
			wantRules: []string{"known_network"},
		},
		{
			name:      "repeat only",
			signals:   PatternSignals{RepeatIndicator: true, Frequency: 1},
			wantScore: 20,
			wantClass: incident.ClassMonitor,
			wantRules: []string{"repeat_indicator"},
		},
		{
			name:      "repeat below frequency threshold",
			signals:   PatternSignals{RepeatIndicator: true, Frequency: 2},
			wantScore: 20,
			wantClass: incident.ClassMonitor,
			wantRules: []string{"repeat_indicator"},
		},
		{
			name:      "repeat at frequency threshold",
			signals:   PatternSignals{RepeatIndicator: true, Frequency: 3},
			wantScore: 40,
			wantClass: incident.ClassPriority,
			wantRules: []string{"repeat_indicator", "high_frequency"},
		},
		{
			name:      "network plus repeat plus multi-source",
			signals:   PatternSignals{KnownNetwork: true, RepeatIndicator: true, Frequency: 1, MultiSource: true},
			wantScore: 80,
			wantClass: incident.ClassUrgent,
			wantRules: []string{"known_network", "repeat_indicator", "multi_source"},
		},
		{
			name:      "everything",
			signals:   PatternSignals{KnownNetwork: true, RepeatIndicator: true, Frequency: 5, MultiSource: true},
			wantScore: 100,
			wantClass: incident.ClassUrgent,
			wantRules: []string{"known_network", "repeat_indicator", "high_frequency", "multi_source"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			risk := Score(tt.signals)

			if risk.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", risk.Score, tt.wantScore)
			}
			if risk.Classification != tt.wantClass {
				t.Errorf("classification = %q, want %q", risk.Classification, tt.wantClass)
			}
			if len(risk.Breakdown) != len(tt.wantRules) {
				t.Errorf("breakdown = %v, want rules %v", risk.Breakdown, tt.wantRules)
			}
			for _, rule := range tt.wantRules {
				if _, ok := risk.Breakdown[rule]; !ok {
					t.Errorf("breakdown missing rule %q: %v", rule, risk.Breakdown)
				}
			}
		})
	}
}

// The score is always the sum of the breakdown values.
func TestScore_BreakdownSumsToScore(t *testing.T) {
	t.Parallel()

	for _, signals := range []PatternSignals{
		{},
		{KnownNetwork: true},
		{RepeatIndicator: true, Frequency: 4},
		{KnownNetwork: true, RepeatIndicator: true, Frequency: 3, MultiSource: true},
		{MultiSource: true},
	} {
		risk := Score(signals)
		sum := 0
		for _, pts := range risk.Breakdown {
			sum += pts
		}
		if sum != risk.Score {
			t.Errorf("signals %+v: breakdown sum %d != score %d", signals, sum, risk.Score)
		}
	}
}

func TestClassify_Thresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  incident.Classification
	}{
		{0, incident.ClassMonitor},
		{39, incident.ClassMonitor},
		{40, incident.ClassPriority},
		{69, incident.ClassPriority},
		{70, incident.ClassUrgent},
		{100, incident.ClassUrgent},
	}
	for _, tt := range tests {
		if got := classify(tt.score); got != tt.want {
			t.Errorf("classify(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
