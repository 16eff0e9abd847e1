package aisummary

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/clinic-platform/internal/llm"
	"github.com/medicore/clinic-platform/pkg/logging"
)

type fakeSource struct {
	allergies     []AllergyRecord
	medications   []json.RawMessage
	labResults    []LabRecord
	consultations []ConsultationRecord

	labResultsErr error
}

func (f *fakeSource) Allergies(ctx context.Context, patientID string) ([]AllergyRecord, error) {
	return f.allergies, nil
}

func (f *fakeSource) PrescriptionMedications(ctx context.Context, patientID string) ([]json.RawMessage, error) {
	return f.medications, nil
}

func (f *fakeSource) LabResults(ctx context.Context, patientID string) ([]LabRecord, error) {
	return f.labResults, f.labResultsErr
}

func (f *fakeSource) Consultations(ctx context.Context, patientID string) ([]ConsultationRecord, error) {
	return f.consultations, nil
}

type fakeModel struct {
	response string
	err      error
	prompt   string
}

func (f *fakeModel) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if len(req.Messages) > 0 {
		f.prompt = req.Messages[0].Content
	}
	return llm.Response{Text: f.response}, f.err
}

type fakeWriter struct {
	mu      sync.Mutex
	content map[string]json.RawMessage
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{content: map[string]json.RawMessage{}}
}

func (f *fakeWriter) Upsert(ctx context.Context, patientID string, content json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[patientID] = content
	return nil
}

const modelDocument = `{"summaries":[{"subject":"Afecțiuni cronice","summary":"Diabet zaharat tip 2 sub tratament."}]}`

func TestGenerate(t *testing.T) {
	source := &fakeSource{
		allergies: []AllergyRecord{{Name: "Penicilină", Severity: "severă"}},
		labResults: []LabRecord{{
			TestName:   "analize.pdf",
			Results:    json.RawMessage(`{"results":[]}`),
			ResultDate: time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC),
		}},
	}
	model := &fakeModel{response: modelDocument}
	writer := newFakeWriter()
	gen := NewGenerator(source, model, writer, logging.Default(), time.Minute)

	summary, err := gen.Generate(context.Background(), "patient-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EventsAnalyzed)
	assert.JSONEq(t, modelDocument, string(writer.content["patient-1"]))

	// The prompt embeds the gathered record, omitting empty sections.
	assert.Contains(t, model.prompt, "Penicilină")
	assert.Contains(t, model.prompt, "2025-05-02")
	assert.NotContains(t, model.prompt, "controlConsultations")
}

func TestGenerateStripsCodeFence(t *testing.T) {
	model := &fakeModel{response: "```json\n" + modelDocument + "\n```"}
	writer := newFakeWriter()
	gen := NewGenerator(&fakeSource{}, model, writer, logging.Default(), time.Minute)

	summary, err := gen.Generate(context.Background(), "patient-1")
	require.NoError(t, err)
	assert.Len(t, summary.Summaries, 1)
	assert.True(t, strings.HasPrefix(string(writer.content["patient-1"]), "{"),
		"stored content must be the bare JSON document")
}

func TestGenerateFailsOnSourceError(t *testing.T) {
	source := &fakeSource{labResultsErr: errors.New("db down")}
	gen := NewGenerator(source, &fakeModel{response: modelDocument}, newFakeWriter(), logging.Default(), time.Minute)

	_, err := gen.Generate(context.Background(), "patient-1")
	require.Error(t, err, "a partial record must not produce a summary")
}

func TestGenerateFailsOnUnusableModelOutput(t *testing.T) {
	for _, response := range []string{"", "no json here", `{"summaries":[]}`} {
		writer := newFakeWriter()
		gen := NewGenerator(&fakeSource{}, &fakeModel{response: response}, writer, logging.Default(), time.Minute)

		_, err := gen.Generate(context.Background(), "patient-1")
		require.Error(t, err, "response %q", response)
		assert.Empty(t, writer.content, "nothing may be persisted for %q", response)
	}
}

func TestGenerateRequiresPatientID(t *testing.T) {
	gen := NewGenerator(&fakeSource{}, &fakeModel{}, newFakeWriter(), logging.Default(), time.Minute)
	_, err := gen.Generate(context.Background(), "")
	require.Error(t, err)
}
