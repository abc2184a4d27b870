// Package clean repairs double-encoded text and locale-specific dates in
// spreadsheet cells, then filters rows that carry no data.
package clean

import (
	"strings"

	"github.com/hazyhaar/leadsheet/pkg/sheet"
)

// Corruption markers left behind when UTF-8 bytes were decoded as Latin-1 and
// encoded again.
const (
	markerLead  = "Ã"
	markerStray = "Â"
)

// repairs maps mis-decoded two-byte sequences to the intended character.
// Order matters: every entry must run before the stray-marker removal and the
// catch-all below, which would otherwise eat the lead byte first.
var repairs = []struct{ bad, good string }{
	{"Ã©", "é"},
	{"Ã¨", "è"},
	{"Ã\u00a0", "à"},
	{"Ã ", "à"},
	{"Ã¢", "â"},
	{"Ãª", "ê"},
	{"Ã®", "î"},
	{"Ã´", "ô"},
	{"Ã»", "û"},
	{"Ã§", "ç"},
	{"Ã«", "ë"},
	{"Ã¯", "ï"},
	{"Ã¹", "ù"},
	{"Ã‰", "É"},
	{"Ãˆ", "È"},
	{"ÃŠ", "Ê"},
	{"Ã€", "À"},
	{"Ã‡", "Ç"},
	{"Ã\u201d", "Ô"},
	{"ÃŽ", "Î"},
}

var repairReplacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(repairs)*2)
	for _, r := range repairs {
		pairs = append(pairs, r.bad, r.good)
	}
	return strings.NewReplacer(pairs...)
}()

// RepairString fixes double-encoded accents in s. Text without corruption
// markers is returned unchanged.
func RepairString(s string) string {
	if !strings.Contains(s, markerLead) && !strings.Contains(s, markerStray) {
		return s
	}
	s = repairReplacer.Replace(s)
	s = strings.ReplaceAll(s, markerStray, "")
	return strings.ReplaceAll(s, markerLead, "à")
}

// Repair applies RepairString to text cells. Other cells pass through.
func Repair(c sheet.Cell) sheet.Cell {
	if !c.IsText() {
		return c
	}
	return sheet.Text(RepairString(c.Text))
}
