// Package table is the row/column shape exchanged between the dispatch engine
// and the spreadsheet loaders and exporters around it.
package table

import "strings"

var headerReplacer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "", "(", "", ")", "")

// Table is a named grid of string cells with a header row.
type Table struct {
	Name   string     `json:"name"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// New returns an empty table with the given header.
func New(name string, header ...string) Table {
	return Table{Name: name, Header: append([]string(nil), header...)}
}

// NormalizeColumnName folds a header so "Shop Target(HK)" and "shop_target_hk" compare equal.
func NormalizeColumnName(name string) string {
	return headerReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of the first header matching any of names, or -1.
func (t Table) Column(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, n := range names {
		targets[NormalizeColumnName(n)] = struct{}{}
	}
	for i, h := range t.Header {
		if _, ok := targets[NormalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

// Has reports whether the header contains name.
func (t Table) Has(name string) bool {
	return t.Column(name) >= 0
}

// Cell returns the trimmed cell at (row, col); short rows and col < 0 yield "".
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Append adds a row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Clone deep-copies the table so callers can hand it to an independent run.
func (t Table) Clone() Table {
	out := Table{Name: t.Name, Header: append([]string(nil), t.Header...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}
