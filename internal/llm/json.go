package llm

import "strings"

// SanitizeJSON prepares a model completion for json.Unmarshal: models routinely
// wrap JSON in markdown code fences or prepend prose before the object.
func SanitizeJSON(raw string) string {
	text := stripCodeFence(raw)
	text = extractJSONObject(text)
	return strings.TrimSpace(text)
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func extractJSONObject(text string) string {
	if strings.HasPrefix(text, "{") {
		return text
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
