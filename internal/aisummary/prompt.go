package aisummary

import (
	"encoding/json"
	"fmt"
)

// patientFile is the condensed health record handed to the model. Sections
// with no data are omitted entirely so the model sees only what exists.
type patientFile struct {
	Allergies     []allergyEntry      `json:"allergies,omitempty"`
	Prescriptions []prescriptionEntry `json:"prescriptions,omitempty"`
	LabResults    []labResultEntry    `json:"labResults,omitempty"`
	Consultations []consultationEntry `json:"controlConsultations,omitempty"`
}

type allergyEntry struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

type prescriptionEntry struct {
	Medications json.RawMessage `json:"medications"`
}

type labResultEntry struct {
	TestName   string          `json:"testName"`
	Results    json.RawMessage `json:"results"`
	ResultDate string          `json:"resultDate"`
}

type consultationEntry struct {
	VisitReason string `json:"visitReason"`
	Findings    string `json:"findings"`
	Diagnosis   string `json:"diagnosis"`
	Treatment   string `json:"treatment"`
	Notes       string `json:"notes"`
}

const summaryPromptTemplate = `
You are a clinical assistant that analyzes a Romanian citizen's "Dosar Electronic de Sănătate" (Electronic Health Record).
Your task is to generate a concise, professional, and medically relevant summaries for a patients health based on the data provided in <ONLINE_HEALTH_DATA>.

Output must be in JSON format using the structure below.

---

### REQUIRED OUTPUT FORMAT
{
  summaries: [
    {
      subject: string;
      summary: string;
    },
    ....
  ]
}

---

### INSTRUCTIONS
- Use only information explicitly present in the provided health file.
- Do not invent diagnoses or data, infer responsibly and flag uncertainties.
- Prioritize clinical relevance and brevity.
- Keep the language in Romanian (clear, professional tone).
- Focus on aspects that a doctor would want to review before seeing the patient:
  - Active/chronic conditions
  - Recent test abnormalities
  - Allergies and medications
  - Family history and lifestyle factors
  - Overdue tests or follow-ups
  - Any signs of disease progression
- You should create only 3 or less most important summaries about a patients health
- Subject must be a 2-3 word expression that describes the summary
- Summary must be a sentence of a maximum 10 word length.
- You must use the following subjects, if not possible create one similar to them:
  - Key Clinical Conditions
  - Safety-Critical Information
  - Significant Findings & Trends
  - Attention Points

---

<ONLINE_HEALTH_DATA>
%s
</ONLINE_HEALTH_DATA>
`

// buildPrompt renders the summary prompt for one patient file.
func buildPrompt(file patientFile) (string, error) {
	encoded, err := json.Marshal(file)
	if err != nil {
		return "", fmt.Errorf("aisummary: encode patient file: %w", err)
	}
	return fmt.Sprintf(summaryPromptTemplate, encoded), nil
}
