package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleTimeline() []Item {
	return []Item{
		{ID: "l-2", Type: TypeLabResult, Date: "20 mar. 2025"},
		{ID: "p-1", Type: TypePrescription, Date: "15 mar. 2025"},
		{ID: "c-1", Type: TypeConsultation, Date: "10 mar. 2025"},
		{ID: "l-1", Type: TypeLabResult, Date: "1 mar. 2025"},
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	items := Filter(sampleTimeline(), TypeLabResult)

	assert.Len(t, items, 2)
	assert.Equal(t, "l-2", items[0].ID)
	assert.Equal(t, "l-1", items[1].ID)
}

func TestFilterInvalidTypeReturnsAll(t *testing.T) {
	full := sampleTimeline()

	assert.Equal(t, full, Filter(full, ""))
	assert.Equal(t, full, Filter(full, ItemType("appointments")))
}

func TestFilterNoMatches(t *testing.T) {
	items := Filter([]Item{{ID: "c-1", Type: TypeConsultation}}, TypePrescription)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCountByTypeIgnoresFilter(t *testing.T) {
	full := sampleTimeline()
	counts := CountByType(full)

	assert.Equal(t, Counts{Consultations: 1, LabResults: 2, Prescriptions: 1}, counts)

	// Counts come from the unfiltered slice so the UI badges stay stable
	// across filter switches.
	filtered := Filter(full, TypeConsultation)
	assert.Len(t, filtered, 1)
	assert.Equal(t, counts, CountByType(full))
}
