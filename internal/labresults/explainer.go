package labresults

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/medicore/clinic-platform/internal/llm"
	"github.com/medicore/clinic-platform/internal/observability/metrics"
	"github.com/medicore/clinic-platform/pkg/logging"
)

const defaultBatchSize = 10

// Explainer runs the explanation phase: each structured result gets a
// meaning/trend/next triple, generated against the patient's prior results.
type Explainer struct {
	model     llm.Client
	logger    *logging.Logger
	metrics   *metrics.EnrichmentMetrics
	timeout   time.Duration
	batchSize int
}

// NewExplainer builds an explainer. batchSize caps results per model call to
// stay inside response-size limits; timeout bounds each call.
func NewExplainer(model llm.Client, logger *logging.Logger, m *metrics.EnrichmentMetrics, timeout time.Duration, batchSize int) *Explainer {
	if model == nil {
		panic("labresults: model cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Explainer{model: model, logger: logger, metrics: m, timeout: timeout, batchSize: batchSize}
}

// Explain attaches an explanation to every result. Batches are dispatched
// concurrently; a failed batch degrades to placeholders for its results only
// and never aborts siblings. The returned slice always has a non-nil
// explanation on every element.
func (e *Explainer) Explain(ctx context.Context, results []TestResult, history []HistoryEntry) []TestResult {
	if len(results) == 0 {
		return results
	}

	batches := partition(results, e.batchSize)
	merged := make(map[string]*Explanation)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	wg.Add(len(batches))
	for i, batch := range batches {
		go func(index int, batch []TestResult) {
			defer wg.Done()
			explanations, err := e.explainBatch(ctx, batch, history)
			if err != nil {
				e.logger.Warn("explanation batch failed, using placeholders",
					"batch", index, "size", len(batch), "error", err)
				if e.metrics != nil {
					e.metrics.ObserveBatchFailure()
				}
				return
			}
			mu.Lock()
			for name, exp := range explanations {
				merged[normalizeTestName(name)] = exp
			}
			mu.Unlock()
		}(i, batch)
	}
	wg.Wait()

	out := make([]TestResult, len(results))
	for i, r := range results {
		if exp, ok := merged[normalizeTestName(r.TestName)]; ok && exp != nil {
			r.Explanation = exp
		} else {
			r.Explanation = placeholderExplanation()
		}
		out[i] = r
	}
	return out
}

// explainBatch runs one model call for a batch and parses the keyed map.
func (e *Explainer) explainBatch(ctx context.Context, batch []TestResult, history []HistoryEntry) (map[string]*Explanation, error) {
	prompt, err := buildExplanationPrompt(batch, history)
	if err != nil {
		return nil, err
	}

	llmCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.model.Complete(llmCtx, llm.Request{
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: prompt}},
		MaxTokens:   4000,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}

	var explanations map[string]*Explanation
	if err := json.Unmarshal([]byte(llm.SanitizeJSON(resp.Text)), &explanations); err != nil {
		return nil, err
	}
	return explanations, nil
}

func partition(results []TestResult, size int) [][]TestResult {
	var batches [][]TestResult
	for start := 0; start < len(results); start += size {
		end := start + size
		if end > len(results) {
			end = len(results)
		}
		batches = append(batches, results[start:end])
	}
	return batches
}

// normalizeTestName makes the merge tolerant of case and whitespace drift
// between the batch input and the model's echoed keys.
func normalizeTestName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
