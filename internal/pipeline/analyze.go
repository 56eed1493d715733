package pipeline

import (
	"sort"

	"github.com/linnemanlabs/beacon/internal/incident"
)

// PatternSignals is the derived view of an indicator's history. It is a
// pure function of the historical match set plus the current incident's
// source; it has no identity of its own and is never persisted.
type PatternSignals struct {
	KnownNetwork    bool     `json:"known_network"`
	NetworkIDs      []string `json:"network_ids"`
	RepeatIndicator bool     `json:"repeat_indicator"`
	Frequency       int      `json:"frequency"`
	MultiSource     bool     `json:"multi_source"`
	LinkedCaseIDs   []string `json:"linked_cases"`
}

// ExtractNetworks returns the distinct network ids found across the
// matches, sorted so the result is independent of match order.
func ExtractNetworks(matches []incident.Incident) []string {
	seen := make(map[string]struct{})
	for _, m := range matches {
		if m.NetworkID != "" {
			seen[m.NetworkID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Analyze derives pattern signals from the historical matches for an
// indicator. source is the current incident's origin and is folded into
// the source set before the multi-source check, so a single historical
// match from a different source already counts as multi-source.
func Analyze(source string, matches []incident.Incident) PatternSignals {
	networks := ExtractNetworks(matches)

	sources := map[string]struct{}{source: {}}
	linked := make([]string, 0, len(matches))
	for _, m := range matches {
		sources[m.Source] = struct{}{}
		linked = append(linked, m.ID)
	}

	return PatternSignals{
		KnownNetwork:    len(networks) > 0,
		NetworkIDs:      networks,
		RepeatIndicator: len(matches) > 0,
		Frequency:       len(matches),
		MultiSource:     len(sources) > 1,
		LinkedCaseIDs:   linked,
	}
}
