package clean

import (
	"regexp"
	"strings"

	"github.com/hazyhaar/leadsheet/pkg/sheet"
)

var (
	apercuRe       = regexp.MustCompile(`(?i)Aper(?:ç|Ã§)u`)
	headerPrefixRe = regexp.MustCompile(`(?i)Colonne_1,\s*`)

	// emptyParensRe matches the "()" a stripped zone offset leaves behind.
	emptyParensRe = regexp.MustCompile(`\s*\(\s*\)`)
)

// Options toggles the optional cleaning steps. Encoding and date repair always
// run.
type Options struct {
	RemoveEmpty            bool `yaml:"remove_empty" json:"remove_empty"`
	RemoveDuplicateHeaders bool `yaml:"remove_duplicate_headers" json:"remove_duplicate_headers"`
	RemoveDashes           bool `yaml:"remove_dashes" json:"remove_dashes"`
	RemoveApercu           bool `yaml:"remove_apercu" json:"remove_apercu"`
}

// DefaultOptions mirrors the operator defaults: everything on except dash
// blanking.
func DefaultOptions() Options {
	return Options{
		RemoveEmpty:            true,
		RemoveDuplicateHeaders: true,
		RemoveApercu:           true,
	}
}

// Result is a cleaned table plus counters for reporting.
type Result struct {
	Table        *sheet.Table `json:"table"`
	CellsChanged int          `json:"cells_changed"`
	RowsRemoved  int          `json:"rows_removed"`
}

// Cleaner applies cell repairs across a table and filters useless rows.
type Cleaner struct {
	dates *DateNormalizer
}

// NewCleaner returns a Cleaner using dates for date rewriting. A nil dates
// uses the system clock.
func NewCleaner(dates *DateNormalizer) *Cleaner {
	if dates == nil {
		dates = NewDateNormalizer(nil)
	}
	return &Cleaner{dates: dates}
}

// Clean returns a corrected copy of t. Each data cell goes through encoding
// repair, date normalization, then the optional dash and "Aperçu" steps. Row
// filters run after every cell is corrected and compare against the corrected
// header. Surviving rows are padded to the header width.
func (c *Cleaner) Clean(t *sheet.Table, opts Options) *Result {
	header := make([]sheet.Cell, len(t.Header))
	for i, cell := range t.Header {
		header[i] = c.fixHeader(cell, opts)
	}

	res := &Result{}
	rows := make([][]sheet.Cell, 0, len(t.Rows))
	for _, row := range t.Rows {
		fixed := make([]sheet.Cell, len(row))
		for i, cell := range row {
			fixed[i] = c.fixCell(cell, opts)
			if fixed[i] != cell {
				res.CellsChanged++
			}
		}

		if opts.RemoveEmpty && blankRow(fixed) {
			res.RowsRemoved++
			continue
		}
		fixed = sheet.Pad(fixed, len(header))
		if opts.RemoveDuplicateHeaders && len(header) > 0 && sheet.Equal(fixed[:len(header)], header) {
			res.RowsRemoved++
			continue
		}
		rows = append(rows, fixed)
	}

	res.Table = &sheet.Table{Header: header, Rows: rows}
	return res
}

// FixCell runs the data-cell transforms on a single value.
func (c *Cleaner) FixCell(cell sheet.Cell, opts Options) sheet.Cell {
	return c.fixCell(cell, opts)
}

func (c *Cleaner) fixCell(cell sheet.Cell, opts Options) sheet.Cell {
	if !cell.IsText() {
		return cell
	}
	cell = Repair(cell)
	zoned := tzRe.MatchString(cell.Text)
	cell = c.dates.Normalize(cell)
	if zoned {
		// Header labels keep their "()"; values must stay parseable dates.
		cell.Text = strings.TrimSpace(emptyParensRe.ReplaceAllString(cell.Text, ""))
	}
	if opts.RemoveDashes && strings.TrimSpace(cell.Text) == "--" {
		return sheet.Empty()
	}
	if opts.RemoveApercu {
		cell.Text = apercuRe.ReplaceAllString(cell.Text, "")
	}
	return cell
}

func (c *Cleaner) fixHeader(cell sheet.Cell, opts Options) sheet.Cell {
	if !cell.IsText() {
		return cell
	}
	cell = c.dates.Normalize(Repair(cell))
	if opts.RemoveApercu {
		cell.Text = apercuRe.ReplaceAllString(cell.Text, "")
	}
	cell.Text = headerPrefixRe.ReplaceAllString(cell.Text, "")
	return cell
}

func blankRow(row []sheet.Cell) bool {
	for _, c := range row {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}
