package labresults

import (
	"encoding/json"
	"fmt"
)

const structuringPromptTemplate = `
You are a medical assistant specialized in extracting structured data from lab result documents.
Your task is to analyze the following extracted text from a PDF and extract individual lab test results.

Output must be a valid JSON object with a single key "results" containing an array of objects.

---

### REQUIRED OUTPUT FORMAT
{
  "results": [
    {
      "test_name": "string (e.g., Hemoglobin)",
      "result": "string or number (e.g., 14.5)",
      "unit": "string (e.g., g/dL) or null if none",
      "reference_range": "string (e.g., 12.5-16.5 g/dL) or null if none",
      "is_normal": boolean (true if within reference range, false otherwise)
    },
    ...
  ]
}

---

### INSTRUCTIONS
- Extract every test result found in the text.
- Normalize the test names where possible.
- If the result implies a value out of range (marked with *, bold, or described as high/low), set "is_normal" to false.
- Do not invent data.

---

<LAB_RESULTS_TEXT>
%s
</LAB_RESULTS_TEXT>
`

// buildStructuringPrompt renders the extraction prompt for one document's text.
func buildStructuringPrompt(text string) string {
	return fmt.Sprintf(structuringPromptTemplate, text)
}

const explanationPromptTemplate = `
You are a medical assistant that explains lab test results to patients in plain language.
For each result in <CURRENT_RESULTS>, write a short explanation using the patient's
prior results in <HISTORY> for trend context.

Output must be a valid JSON object mapping each test_name to an explanation object.

---

### REQUIRED OUTPUT FORMAT
{
  "Hemoglobin": {
    "meaning": "string, what this result means for the patient",
    "trend": "string, how it compares with the patient's prior results",
    "next": "string, one concrete recommendation"
  },
  ...
}

---

### INSTRUCTIONS
- Include every test_name from <CURRENT_RESULTS> exactly once, spelled identically.
- If <HISTORY> has no prior entry for a test, state that there is no prior data in "trend".
- Keep the language in Romanian (clear, patient-friendly tone).
- Keep each field to one or two sentences.
- Do not invent values that are not present in the data.

---

<CURRENT_RESULTS>
%s
</CURRENT_RESULTS>

<HISTORY>
%s
</HISTORY>
`

// buildExplanationPrompt renders the explanation prompt for one batch of
// results plus the patient's flattened history.
func buildExplanationPrompt(batch []TestResult, history []HistoryEntry) (string, error) {
	current := make([]map[string]any, 0, len(batch))
	for _, r := range batch {
		entry := map[string]any{
			"test_name": r.TestName,
			"result":    r.Result,
			"is_normal": r.IsNormal,
		}
		if r.Unit != "" {
			entry["unit"] = r.Unit
		}
		if r.ReferenceRange != "" {
			entry["reference_range"] = r.ReferenceRange
		}
		current = append(current, entry)
	}

	currentJSON, err := json.Marshal(current)
	if err != nil {
		return "", fmt.Errorf("labresults: encode batch: %w", err)
	}
	if history == nil {
		history = []HistoryEntry{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("labresults: encode history: %w", err)
	}

	return fmt.Sprintf(explanationPromptTemplate, currentJSON, historyJSON), nil
}
