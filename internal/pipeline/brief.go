package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/beacon/internal/incident"
)

const (
	// smsMaxLen is the hard SMS length cap. Composition never exceeds it
	// regardless of indicator length.
	smsMaxLen = 160

	// smsIndicatorLen caps the indicator fragment inside the SMS body.
	smsIndicatorLen = 30

	// briefMaxLinkedCases caps the linked-case list in the email body.
	briefMaxLinkedCases = 5
)

// AlertContent is the rendered alert for one pipeline run: a
// length-constrained SMS and a full-text email. Generated once,
// immutable thereafter.
type AlertContent struct {
	SMSText   string `json:"sms_text"`
	Subject   string `json:"subject"`
	EmailBody string `json:"email_body"`
}

// ComposeBrief renders channel-appropriate alert content from the
// incident, its risk assessment, and the derived signals.
func ComposeBrief(inc *incident.Incident, risk incident.RiskAssessment, signals PatternSignals) AlertContent {
	sms := fmt.Sprintf("%s ALERT: %s | Score:%d | Networks:%d",
		risk.Classification, clip(inc.IndicatorValue, smsIndicatorLen), risk.Score, len(signals.NetworkIDs))

	var b strings.Builder
	fmt.Fprintf(&b, "TRAFFICKING ALERT - %s\n\n", risk.Classification)
	fmt.Fprintf(&b, "Indicator: %s\n", inc.IndicatorValue)
	fmt.Fprintf(&b, "Risk Score: %d/100\n", risk.Score)
	fmt.Fprintf(&b, "Classification: %s\n\n", risk.Classification)
	b.WriteString("Pattern Analysis:\n")
	fmt.Fprintf(&b, "- Known Network: %t\n", signals.KnownNetwork)
	fmt.Fprintf(&b, "- Repeat Indicator: %t\n", signals.RepeatIndicator)
	fmt.Fprintf(&b, "- Frequency: %d\n", signals.Frequency)
	fmt.Fprintf(&b, "- Multi-Source: %t\n\n", signals.MultiSource)
	fmt.Fprintf(&b, "Linked Networks: %s\n", strings.Join(signals.NetworkIDs, ", "))
	fmt.Fprintf(&b, "Linked Cases: %s\n\n", strings.Join(headOf(signals.LinkedCaseIDs, briefMaxLinkedCases), ", "))
	b.WriteString("Recommendations:\n")
	for _, r := range recommendations(risk.Classification, signals) {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	fmt.Fprintf(&b, "\nIncident ID: %s\n", inc.ID)
	fmt.Fprintf(&b, "Timestamp: %s\n", inc.CreatedAt.UTC().Format(time.RFC3339))

	return AlertContent{
		SMSText:   clip(sms, smsMaxLen),
		Subject:   fmt.Sprintf("TRAFFICKING ALERT - %s", risk.Classification),
		EmailBody: b.String(),
	}
}

// recommendations is a fixed lookup keyed by classification, with
// additive items appended when network or multi-source signals fired.
func recommendations(class incident.Classification, signals PatternSignals) []string {
	var recs []string
	switch class {
	case incident.ClassUrgent:
		recs = []string{
			"Immediate victim rescue",
			"Suspect apprehension",
			"Coordinate multi-agency response",
		}
	case incident.ClassPriority:
		recs = []string{
			"Begin investigation",
			"Surveillance of suspect",
			"Monitor for escalation",
		}
	default:
		recs = []string{
			"Log for pattern analysis",
			"Monitor for repeat indicators",
		}
	}
	if signals.KnownNetwork {
		recs = append(recs, "Cross-reference with known trafficking network database")
	}
	if signals.MultiSource {
		recs = append(recs, "Verify across all reporting sources")
	}
	return recs
}

// RenderCaseBrief renders the case-brief document served by the brief
// endpoint from the stored incident record alone.
func RenderCaseBrief(inc *incident.Incident) string {
	var b strings.Builder
	b.WriteString("Trafficking Alert Case Brief\n\n")
	fmt.Fprintf(&b, "Incident ID: %s\n", inc.ID)
	fmt.Fprintf(&b, "Status: %s\n", inc.Status)
	fmt.Fprintf(&b, "Indicator Type: %s\n", inc.IndicatorType)
	fmt.Fprintf(&b, "Indicator: %s\n", inc.IndicatorValue)
	fmt.Fprintf(&b, "Source: %s\n", inc.Source)
	fmt.Fprintf(&b, "Created: %s\n\n", inc.CreatedAt.UTC().Format(time.RFC3339))

	b.WriteString("Risk Assessment\n")
	if inc.Risk == nil {
		b.WriteString("Pending analysis.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Score: %d/100\n", inc.Risk.Score)
	fmt.Fprintf(&b, "Classification: %s\n", inc.Risk.Classification)
	if len(inc.Risk.Breakdown) > 0 {
		b.WriteString("Breakdown:\n")
		for _, rule := range []string{"known_network", "repeat_indicator", "high_frequency", "multi_source"} {
			if pts, ok := inc.Risk.Breakdown[rule]; ok {
				fmt.Fprintf(&b, "- %s: %d\n", rule, pts)
			}
		}
	}
	return b.String()
}

// clip hard-truncates s to at most n bytes. It never fails and preserves
// the leading bytes exactly.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func headOf(ss []string, n int) []string {
	if len(ss) <= n {
		return ss
	}
	return ss[:n]
}
