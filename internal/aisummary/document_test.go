package aisummary

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDocument(t *testing.T) {
	raw := json.RawMessage(`{"summaries":[
		{"subject":"Afecțiuni cronice","summary":"Diabet zaharat tip 2 sub tratament."},
		{"subject":"Alergii","summary":"Alergie severă la penicilină."}
	]}`)

	summary := ParseDocument(raw)

	assert.Len(t, summary.Summaries, 2)
	assert.Equal(t, 2, summary.EventsAnalyzed, "eventsAnalyzed is derived from the entry count")
	assert.Equal(t, "Afecțiuni cronice", summary.Summaries[0].Subject)
}

func TestParseDocumentMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
	}{
		{"empty", nil},
		{"null", json.RawMessage(`null`)},
		{"not an object", json.RawMessage(`[1,2,3]`)},
		{"missing summaries", json.RawMessage(`{"other":true}`)},
		{"summaries not array", json.RawMessage(`{"summaries":"text"}`)},
		{"truncated", json.RawMessage(`{"summaries":[{"subject":`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := ParseDocument(tt.raw)
			assert.NotNil(t, summary.Summaries)
			assert.Empty(t, summary.Summaries)
			assert.Equal(t, 0, summary.EventsAnalyzed)
		})
	}
}

func TestParseDocumentDropsEmptyEntries(t *testing.T) {
	raw := json.RawMessage(`{"summaries":[
		{"subject":"Atenție","summary":"Control cardiologic restant."},
		{"subject":"","summary":""}
	]}`)

	summary := ParseDocument(raw)
	assert.Len(t, summary.Summaries, 1)
	assert.Equal(t, 1, summary.EventsAnalyzed)
}

func TestParseDocumentIgnoresStoredEventCount(t *testing.T) {
	// A stored eventsAnalyzed field never wins over the derived count.
	raw := json.RawMessage(`{"summaries":[{"subject":"A","summary":"B"}],"eventsAnalyzed":99}`)
	assert.Equal(t, 1, ParseDocument(raw).EventsAnalyzed)
}
