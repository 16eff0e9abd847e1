// Package labresults implements the lab document enrichment pipeline: extract
// text from an uploaded PDF, structure it into individual test results with a
// model, explain each result against the patient's history and persist the
// batch as one lab_results row.
package labresults

import "encoding/json"

// Explanation is the per-result enrichment produced in the explanation phase.
type Explanation struct {
	Meaning string `json:"meaning"`
	Trend   string `json:"trend"`
	Next    string `json:"next"`
}

// TestResult is one structured lab test extracted from a document. IsNormal is
// always definite after structuring; Explanation is never nil after the
// pipeline ran, a failed explanation batch leaves the placeholder.
type TestResult struct {
	TestName       string       `json:"test_name"`
	Result         string       `json:"result"`
	Unit           string       `json:"unit,omitempty"`
	ReferenceRange string       `json:"reference_range,omitempty"`
	IsNormal       bool         `json:"is_normal"`
	Explanation    *Explanation `json:"explanation,omitempty"`
}

// ResultsDocument is the jsonb payload persisted in lab_results.results.
type ResultsDocument struct {
	Results []TestResult `json:"results"`
}

// HistoryEntry is one prior result flattened for trend context.
type HistoryEntry struct {
	TestName   string `json:"test_name"`
	Result     string `json:"result"`
	Unit       string `json:"unit,omitempty"`
	ResultDate string `json:"result_date"`
}

// placeholderExplanation is substituted for any result whose explanation batch
// failed or whose test name the model omitted.
func placeholderExplanation() *Explanation {
	return &Explanation{
		Meaning: "Interpretarea automată nu este disponibilă pentru acest rezultat.",
		Trend:   "Nu există suficiente date pentru o comparație istorică.",
		Next:    "Consultați medicul pentru interpretarea acestui rezultat.",
	}
}

// Encode renders the document as the stored jsonb payload.
func (d ResultsDocument) Encode() (json.RawMessage, error) {
	return json.Marshal(d)
}
