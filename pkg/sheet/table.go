package sheet

import "errors"

var (
	// ErrNoSheet is returned when a workbook has no worksheet to read.
	ErrNoSheet = errors.New("workbook has no sheet")

	// ErrEmptyTable is returned when a source has no header row.
	ErrEmptyTable = errors.New("table has no header row")

	// ErrUnsupportedFormat is returned by Read for an unknown file extension.
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet type")
)

// Table is a header row followed by data rows. Data rows may be shorter than
// the header; missing trailing cells read as empty.
type Table struct {
	Header []Cell   `json:"header"`
	Rows   [][]Cell `json:"rows"`
}

// NewTable splits a raw 2-D grid into header and data rows.
func NewTable(grid [][]Cell) (*Table, error) {
	if len(grid) == 0 {
		return nil, ErrEmptyTable
	}
	return &Table{Header: grid[0], Rows: grid[1:]}, nil
}

// Width is the header column count.
func (t *Table) Width() int { return len(t.Header) }

// HeaderStrings returns the header labels as strings.
func (t *Table) HeaderStrings() []string {
	labels := make([]string, len(t.Header))
	for i, c := range t.Header {
		labels[i] = c.String()
	}
	return labels
}

// Pad returns row extended with empty cells up to n columns. Rows already at
// least n wide are returned as-is.
func Pad(row []Cell, n int) []Cell {
	if len(row) >= n {
		return row
	}
	out := make([]Cell, n)
	copy(out, row)
	return out
}

// Equal reports whether two cell slices hold the same values in order.
func Equal(a, b []Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
