package dispatch

import "fmt"

// CorrectionKind classifies a data-quality fix applied by the cleaner.
type CorrectionKind string

const (
	CorrectionNegative       CorrectionKind = "negative"
	CorrectionOutlier        CorrectionKind = "outlier"
	CorrectionInvalidNumeric CorrectionKind = "invalid_numeric"
	CorrectionInvalidCode    CorrectionKind = "invalid_code"
)

// Correction counts the rows of one field that received one kind of fix.
type Correction struct {
	Table string         `json:"table"`
	Field string         `json:"field"`
	Kind  CorrectionKind `json:"kind"`
	Count int            `json:"count"`
}

// CorrectionLog aggregates corrections in first-seen order.
type CorrectionLog struct {
	Entries []Correction `json:"entries"`
}

// Add records one more corrected row.
func (l *CorrectionLog) Add(tableName, field string, kind CorrectionKind) {
	for i := range l.Entries {
		e := &l.Entries[i]
		if e.Table == tableName && e.Field == field && e.Kind == kind {
			e.Count++
			return
		}
	}
	l.Entries = append(l.Entries, Correction{Table: tableName, Field: field, Kind: kind, Count: 1})
}

// Merge folds o into l.
func (l *CorrectionLog) Merge(o CorrectionLog) {
	for _, e := range o.Entries {
		for n := 0; n < e.Count; n++ {
			l.Add(e.Table, e.Field, e.Kind)
		}
	}
}

// Count returns how many rows of field got the given fix, across tables.
func (l CorrectionLog) Count(field string, kind CorrectionKind) int {
	total := 0
	for _, e := range l.Entries {
		if e.Field == field && e.Kind == kind {
			total += e.Count
		}
	}
	return total
}

func (l CorrectionLog) countIn(tableName, field string, kind CorrectionKind) int {
	for _, e := range l.Entries {
		if e.Table == tableName && e.Field == field && e.Kind == kind {
			return e.Count
		}
	}
	return 0
}

// Total is the number of corrections of any kind.
func (l CorrectionLog) Total() int {
	total := 0
	for _, e := range l.Entries {
		total += e.Count
	}
	return total
}

// Describe says what the fix did, e.g. "negative values corrected to 0".
func (e Correction) Describe() string {
	switch e.Kind {
	case CorrectionNegative:
		return "negative values corrected to 0"
	case CorrectionOutlier:
		return "outliers capped"
	case CorrectionInvalidNumeric:
		return "invalid numbers set to 0"
	case CorrectionInvalidCode:
		return "invalid codes replaced"
	}
	return string(e.Kind)
}

// Lines renders one human-readable line per entry.
func (l CorrectionLog) Lines() []string {
	lines := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		lines = append(lines, fmt.Sprintf("%s/%s: %d %s", e.Table, e.Field, e.Count, e.Describe()))
	}
	return lines
}
