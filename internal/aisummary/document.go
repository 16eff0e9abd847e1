// Package aisummary generates and serves the per-patient AI health summary:
// a short list of clinically relevant subject/summary pairs derived from the
// patient's full record.
package aisummary

import "encoding/json"

// Entry is one generated summary line.
type Entry struct {
	Subject string `json:"subject"`
	Summary string `json:"summary"`
}

// Summary is the presentation form of a patient's AI summary document.
// EventsAnalyzed is derived from the entry count, never stored.
type Summary struct {
	Summaries      []Entry `json:"summaries"`
	EventsAnalyzed int     `json:"eventsAnalyzed"`
	GeneratedAt    string  `json:"generatedAt,omitempty"`
}

// ParseDocument validates a stored summary document. The document is written
// by an LLM, so nothing about its shape is trusted: anything that is not an
// object with a summaries array degrades to the zero summary. Never an error.
func ParseDocument(raw json.RawMessage) Summary {
	empty := Summary{Summaries: []Entry{}}
	if len(raw) == 0 {
		return empty
	}

	var doc struct {
		Summaries []Entry `json:"summaries"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Summaries == nil {
		return empty
	}

	entries := make([]Entry, 0, len(doc.Summaries))
	for _, e := range doc.Summaries {
		if e.Subject == "" && e.Summary == "" {
			continue
		}
		entries = append(entries, e)
	}

	return Summary{
		Summaries:      entries,
		EventsAnalyzed: len(entries),
	}
}
