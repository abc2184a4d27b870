// Package sheet holds the raw tabular model handed to the cleaning pipeline:
// cells, rows and a header-first table, plus readers and writers that turn
// workbook and CSV files into that model and back.
package sheet

import (
	"encoding/json"
	"strconv"
)

// Kind tells what a Cell carries.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
)

// Cell is a single scalar value: text, number, or nothing.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
}

// Text returns a text cell.
func Text(s string) Cell { return Cell{Kind: KindText, Text: s} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{Kind: KindNumber, Number: f} }

// Empty returns an absent cell.
func Empty() Cell { return Cell{} }

// IsText reports whether the cell carries text (possibly "").
func (c Cell) IsText() bool { return c.Kind == KindText }

// IsBlank reports whether the cell is absent or holds the empty string.
func (c Cell) IsBlank() bool {
	return c.Kind == KindEmpty || (c.Kind == KindText && c.Text == "")
}

// String renders the cell for lookups and display. Numbers use the shortest
// decimal form, so 75001 stays "75001".
func (c Cell) String() string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON encodes text as a string, numbers as numbers and empty as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindText:
		return json.Marshal(c.Text)
	case KindNumber:
		return json.Marshal(c.Number)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*c = Empty()
	case string:
		*c = Text(x)
	case float64:
		*c = Number(x)
	case bool:
		*c = Text(strconv.FormatBool(x))
	default:
		*c = Text(string(data))
	}
	return nil
}

// Texts converts plain strings into text cells.
func Texts(values ...string) []Cell {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Text(v)
	}
	return cells
}
