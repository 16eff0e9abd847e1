package timeline

// Filter returns the items matching typ, preserving order. The aggregator's
// output is already sorted, so no re-sort is needed. An invalid or empty type
// returns the full timeline.
func Filter(items []Item, typ ItemType) []Item {
	if !typ.Valid() {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Type == typ {
			out = append(out, item)
		}
	}
	return out
}

// CountByType tallies categories over the full, unfiltered timeline, so that
// switching filters never changes the displayed counts.
func CountByType(items []Item) Counts {
	var counts Counts
	for _, item := range items {
		switch item.Type {
		case TypeConsultation:
			counts.Consultations++
		case TypeLabResult:
			counts.LabResults++
		case TypePrescription:
			counts.Prescriptions++
		}
	}
	return counts
}
