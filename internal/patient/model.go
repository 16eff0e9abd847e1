// Package patient provides the patient header data shown above the medical
// timeline: identity, derived age and the active condition summary.
package patient

import (
	"strings"
	"time"
)

const (
	noActiveConditions = "Fără afecțiuni active"
	defaultStatus      = "Stabil"
)

// Data is the patient header block.
type Data struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Age         int    `json:"age"`
	Conditions  string `json:"afectiuni"`
	Status      string `json:"status"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// CalculateAge returns full years elapsed since the birth date, adjusting for
// whether the birthday has passed this year. A zero or future birth date
// yields 0.
func CalculateAge(birthDate time.Time, now time.Time) int {
	if birthDate.IsZero() || birthDate.After(now) {
		return 0
	}
	age := now.Year() - birthDate.Year()
	anniversary := birthDate.AddDate(age, 0, 0)
	if anniversary.After(now) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// joinConditions renders active condition names as a single display string.
func joinConditions(names []string) string {
	filtered := names[:0:0]
	for _, name := range names {
		if strings.TrimSpace(name) != "" {
			filtered = append(filtered, name)
		}
	}
	if len(filtered) == 0 {
		return noActiveConditions
	}
	return strings.Join(filtered, " + ")
}
