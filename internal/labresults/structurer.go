package labresults

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/medicore/clinic-platform/internal/llm"
	"github.com/medicore/clinic-platform/pkg/logging"
)

// Structurer runs the structuring phase: raw document text in, individual
// test results out.
type Structurer struct {
	model   llm.Client
	logger  *logging.Logger
	timeout time.Duration
}

// NewStructurer builds a structurer. timeout bounds the model call.
func NewStructurer(model llm.Client, logger *logging.Logger, timeout time.Duration) *Structurer {
	if model == nil {
		panic("labresults: model cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Structurer{model: model, logger: logger, timeout: timeout}
}

// Structure extracts test results from document text. A model failure or an
// empty result set is fatal: with nothing structured there is nothing to
// persist.
func (s *Structurer) Structure(ctx context.Context, text string) ([]TestResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("labresults: no document text to structure")
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.model.Complete(llmCtx, llm.Request{
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: buildStructuringPrompt(text)}},
		MaxTokens:   4000,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("labresults: structuring call failed: %w", err)
	}

	results := parseStructuredResults(resp.Text, s.logger)
	if len(results) == 0 {
		return nil, fmt.Errorf("labresults: no structured results extracted")
	}

	s.logger.Info("lab results structured",
		"results", len(results),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return results, nil
}

// flexString accepts a JSON string or number; the model emits both.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(trimmed)
	return nil
}

type rawTestResult struct {
	TestName       flexString `json:"test_name"`
	Result         flexString `json:"result"`
	Unit           flexString `json:"unit"`
	ReferenceRange flexString `json:"reference_range"`
	IsNormal       bool       `json:"is_normal"`
}

// parseStructuredResults decodes the model output defensively. A malformed
// document logs and yields an empty list; entries without a test name are
// dropped.
func parseStructuredResults(raw string, logger *logging.Logger) []TestResult {
	content := llm.SanitizeJSON(raw)
	if content == "" {
		logger.Warn("structuring response contained no JSON object")
		return nil
	}

	var doc struct {
		Results []rawTestResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		logger.Warn("structuring response unparseable", "error", err)
		return nil
	}

	out := make([]TestResult, 0, len(doc.Results))
	for _, r := range doc.Results {
		name := strings.TrimSpace(string(r.TestName))
		if name == "" {
			continue
		}
		out = append(out, TestResult{
			TestName:       name,
			Result:         string(r.Result),
			Unit:           string(r.Unit),
			ReferenceRange: string(r.ReferenceRange),
			IsNormal:       r.IsNormal,
		})
	}
	return out
}
