package aisummary

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/medicore/clinic-platform/internal/llm"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// AllergyRecord is one allergies row as the generator needs it.
type AllergyRecord struct {
	Name     string
	Severity string
}

// LabRecord is one lab_results row as the generator needs it.
type LabRecord struct {
	TestName   string
	Results    json.RawMessage
	ResultDate time.Time
}

// ConsultationRecord is one control_consultations row as the generator needs it.
type ConsultationRecord struct {
	VisitReason string
	Findings    string
	Diagnosis   string
	Treatment   string
	Notes       string
}

// RecordSource supplies the four record categories the summary is built from.
// Unlike the timeline aggregator, a failed category here fails the generation:
// a summary produced from a partial record would be misleading.
type RecordSource interface {
	Allergies(ctx context.Context, patientID string) ([]AllergyRecord, error)
	PrescriptionMedications(ctx context.Context, patientID string) ([]json.RawMessage, error)
	LabResults(ctx context.Context, patientID string) ([]LabRecord, error)
	Consultations(ctx context.Context, patientID string) ([]ConsultationRecord, error)
}

// SummaryWriter persists the generated document.
type SummaryWriter interface {
	Upsert(ctx context.Context, patientID string, content json.RawMessage) error
}

// Generator regenerates a patient's AI summary from their full record.
type Generator struct {
	source  RecordSource
	model   llm.Client
	writer  SummaryWriter
	logger  *logging.Logger
	timeout time.Duration
}

// NewGenerator builds a summary generator. timeout bounds the model call.
func NewGenerator(source RecordSource, model llm.Client, writer SummaryWriter, logger *logging.Logger, timeout time.Duration) *Generator {
	if source == nil || model == nil || writer == nil {
		panic("aisummary: source, model and writer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{source: source, model: model, writer: writer, logger: logger, timeout: timeout}
}

// Generate gathers the patient's record, asks the model for the summary
// document and upserts it. Returns the validated summary.
func (g *Generator) Generate(ctx context.Context, patientID string) (Summary, error) {
	if patientID == "" {
		return Summary{}, fmt.Errorf("aisummary: patient id is required")
	}

	file, err := g.gather(ctx, patientID)
	if err != nil {
		return Summary{}, err
	}

	prompt, err := buildPrompt(file)
	if err != nil {
		return Summary{}, err
	}

	llmCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.Complete(llmCtx, llm.Request{
		Messages:  []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: prompt}},
		MaxTokens: 1000,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("aisummary: model call failed: %w", err)
	}

	content := llm.SanitizeJSON(resp.Text)
	summary := ParseDocument(json.RawMessage(content))
	if len(summary.Summaries) == 0 {
		return Summary{}, fmt.Errorf("aisummary: model returned no usable summaries")
	}

	if err := g.writer.Upsert(ctx, patientID, json.RawMessage(content)); err != nil {
		return Summary{}, err
	}

	g.logger.Info("ai summary regenerated",
		"patient_id", patientID,
		"summaries", len(summary.Summaries),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return summary, nil
}

// gather runs the four category queries concurrently. Any failure aborts.
func (g *Generator) gather(ctx context.Context, patientID string) (patientFile, error) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		file patientFile
		errs []error
	)

	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		records, err := g.source.Allergies(ctx, patientID)
		if err != nil {
			fail(fmt.Errorf("aisummary: allergies query failed: %w", err))
			return
		}
		for _, r := range records {
			file.Allergies = append(file.Allergies, allergyEntry{Name: r.Name, Severity: r.Severity})
		}
	}()
	go func() {
		defer wg.Done()
		medications, err := g.source.PrescriptionMedications(ctx, patientID)
		if err != nil {
			fail(fmt.Errorf("aisummary: prescriptions query failed: %w", err))
			return
		}
		for _, m := range medications {
			file.Prescriptions = append(file.Prescriptions, prescriptionEntry{Medications: m})
		}
	}()
	go func() {
		defer wg.Done()
		records, err := g.source.LabResults(ctx, patientID)
		if err != nil {
			fail(fmt.Errorf("aisummary: lab results query failed: %w", err))
			return
		}
		for _, r := range records {
			file.LabResults = append(file.LabResults, labResultEntry{
				TestName:   r.TestName,
				Results:    r.Results,
				ResultDate: r.ResultDate.UTC().Format("2006-01-02"),
			})
		}
	}()
	go func() {
		defer wg.Done()
		records, err := g.source.Consultations(ctx, patientID)
		if err != nil {
			fail(fmt.Errorf("aisummary: consultations query failed: %w", err))
			return
		}
		for _, r := range records {
			file.Consultations = append(file.Consultations, consultationEntry{
				VisitReason: r.VisitReason,
				Findings:    r.Findings,
				Diagnosis:   r.Diagnosis,
				Treatment:   r.Treatment,
				Notes:       r.Notes,
			})
		}
	}()
	wg.Wait()

	if len(errs) > 0 {
		return patientFile{}, errs[0]
	}
	return file, nil
}
