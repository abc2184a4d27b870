package clean

import (
	"regexp"
	"strings"
	"time"

	"github.com/hazyhaar/leadsheet/pkg/sheet"
)

// DayLayout is the canonical date form produced for every recognized date.
const DayLayout = "02/01/2006"

var (
	todayRe     = regexp.MustCompile(`(?i)\baujourd['’‘ ]?hui\b`)
	yesterdayRe = regexp.MustCompile(`(?i)\bhier\b`)
	tomorrowRe  = regexp.MustCompile(`(?i)\bdemain\b`)

	tzRe        = regexp.MustCompile(`(?i)\b(?:GMT|UTC)\b(?:\s*[+-]\s*\d{1,2}(?::?\d{2})?)?`)
	connectorRe = regexp.MustCompile(`(?i)\s+à\s+`)
	fourDigitRe = regexp.MustCompile(`\d{4}`)
	verboseRe   = regexp.MustCompile(`(?i)(\d{1,2})\s+([\p{L}.]+)\s+(\d{4})(?:\s+(\d{1,2}:\d{2}))?`)
)

// frenchMonths covers full names and the abbreviations spreadsheet tools emit,
// with and without accents and trailing period.
var frenchMonths = map[string]string{
	"janvier": "01", "janv.": "01", "janv": "01", "jan.": "01", "jan": "01",
	"février": "02", "févr.": "02", "févr": "02", "fevrier": "02", "fevr.": "02", "fevr": "02", "fév.": "02", "fev.": "02",
	"mars": "03", "mar.": "03", "mar": "03",
	"avril": "04", "avr.": "04", "avr": "04",
	"mai": "05",
	"juin": "06",
	"juillet": "07", "juil.": "07", "juil": "07",
	"août": "08", "aout": "08", "aoû.": "08", "aou.": "08",
	"septembre": "09", "sept.": "09", "sept": "09", "sep.": "09",
	"octobre": "10", "oct.": "10", "oct": "10",
	"novembre": "11", "nov.": "11", "nov": "11",
	"décembre": "12", "déc.": "12", "déc": "12", "decembre": "12", "dec.": "12", "dec": "12",
}

// DateNormalizer rewrites relative and verbose French dates to DD/MM/YYYY,
// optionally followed by " HH:mm". The clock is injected so that "Aujourd'hui"
// resolves deterministically.
type DateNormalizer struct {
	now func() time.Time
}

// NewDateNormalizer returns a normalizer reading the date from now. A nil now
// uses the system clock.
func NewDateNormalizer(now func() time.Time) *DateNormalizer {
	if now == nil {
		now = time.Now
	}
	return &DateNormalizer{now: now}
}

// Normalize applies NormalizeString to text cells. Other cells pass through.
func (d *DateNormalizer) Normalize(c sheet.Cell) sheet.Cell {
	if !c.IsText() {
		return c
	}
	return sheet.Text(d.NormalizeString(c.Text))
}

// NormalizeString runs the relative-day rewrites, then the verbose-date
// rewrite. Relative tokens go first: they produce a plain DD/MM/YYYY that the
// verbose pass leaves alone.
func (d *DateNormalizer) NormalizeString(s string) string {
	today := d.now()

	s = replaceDay(todayRe, s, today)
	s = replaceDay(yesterdayRe, s, today.AddDate(0, 0, -1))
	s = replaceDay(tomorrowRe, s, today.AddDate(0, 0, 1))

	if !tzRe.MatchString(s) && !fourDigitRe.MatchString(s) {
		return s
	}

	cleaned := tzRe.ReplaceAllString(s, "")
	cleaned = connectorRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if out, ok := verboseDate(cleaned); ok {
		return out
	}
	if cleaned != s {
		return cleaned
	}
	return s
}

func replaceDay(re *regexp.Regexp, s string, day time.Time) string {
	if !re.MatchString(s) {
		return s
	}
	return re.ReplaceAllLiteralString(s, day.Format(DayLayout))
}

// verboseDate rewrites s when its first "<day> <word> <year> [H:MM]" run
// names a known French month. Later runs are never considered.
func verboseDate(s string) (string, bool) {
	m := verboseRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	month, ok := frenchMonths[strings.ToLower(m[2])]
	if !ok {
		return "", false
	}
	day := m[1]
	if len(day) == 1 {
		day = "0" + day
	}
	out := day + "/" + month + "/" + m[3]
	if m[4] != "" {
		out += " " + m[4]
	}
	return out, true
}
