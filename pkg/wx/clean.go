package wx

import "strings"

// DropEmptyColumns removes every column that is absent across all rows.
func (t *Table) DropEmptyColumns() {
	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if !c.Empty() {
			kept = append(kept, c)
		}
	}
	t.Columns = kept
}

// DropFlagColumns removes quality-flag columns by name suffix.
func (t *Table) DropFlagColumns(suffix string) {
	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if !strings.HasSuffix(c.Name, suffix) {
			kept = append(kept, c)
		}
	}
	t.Columns = kept
}

// AssignTimeIDs numbers rows 1,2,3,... within each station group, in
// the table's existing row order. The sequence resets at each station
// boundary; it tracks relative ordering within a station's rows, not
// calendar time.
func (t *Table) AssignTimeIDs() {
	counts := make(map[string]int)
	for i, id := range t.StationIDs {
		counts[id]++
		t.TimeIDs[i] = counts[id]
	}
}
