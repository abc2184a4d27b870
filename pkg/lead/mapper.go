package lead

import (
	"regexp"
	"strconv"
	"time"

	"github.com/hazyhaar/leadsheet/pkg/sheet"
)

// Header labels of the CRM export, after cleaning.
const (
	LabelName                = "NOM"
	LabelPostalCode          = "CODE POSTAL"
	LabelPhone               = "NUMÉRO DE TÉLÉPHONE"
	LabelAppointmentAt       = "DATE ET HEURE DU RDV ()"
	LabelStatus              = "STATUT DU LEAD"
	LabelTrainingChoice      = "CHOIX DE FORMATION LEAD"
	LabelLastModifiedAt      = "DATE DE LA DERNIÈRE MODIFICATION ()"
	LabelTrainingType1       = "TYPE DE FORMATION 1"
	LabelAppointmentBookedAt = "DATE DE LA PRISE DE RDV"
	LabelContactNotes        = "CONTACT → NOTES"
	LabelContactOwner        = "PROPRIÉTAIRE DU CONTACT"
	LabelLeadCreatedAt       = "DATE DE CRÉATION ()"
	LabelOwnerAssignedAt     = "DATE D'ATTRIBUTION DU PROPRIÉTAIRE ()"
	LabelEmail               = "E-MAIL"
	LabelAppointmentDate     = "DATE DU RDV"
	LabelSecondAppointmentAt = "DATE ET HEURE DE 2EME RDV ()"
	LabelCPFStartDate1       = "DATE DE DÉBUT CPF 1"
	LabelAttended            = "VENU EN RDV"
)

// Target is the pipeline context stamped on every record of one table.
type Target struct {
	Bucket     string
	SourceFile string
}

// MapRow builds the canonical record for one data row. Cells are looked up by
// header label; when a label repeats, the rightmost column wins.
func MapRow(row, header []sheet.Cell, target Target) CanonicalRecord {
	byLabel := make(map[string]sheet.Cell, len(header))
	for i, h := range header {
		var c sheet.Cell
		if i < len(row) {
			c = row[i]
		}
		byLabel[h.String()] = c
	}

	text := func(label string) *string { return cellString(byLabel[label]) }
	date := func(label string) *string { return ToISODate(byLabel[label]) }

	return CanonicalRecord{
		Name:                text(LabelName),
		PostalCode:          text(LabelPostalCode),
		Phone:               text(LabelPhone),
		AppointmentAt:       date(LabelAppointmentAt),
		Status:              text(LabelStatus),
		TrainingChoice:      text(LabelTrainingChoice),
		LastModifiedAt:      date(LabelLastModifiedAt),
		TrainingType1:       text(LabelTrainingType1),
		AppointmentBookedAt: date(LabelAppointmentBookedAt),
		ContactNotes:        text(LabelContactNotes),
		ContactOwner:        text(LabelContactOwner),
		LeadCreatedAt:       date(LabelLeadCreatedAt),
		OwnerAssignedAt:     date(LabelOwnerAssignedAt),
		Email:               text(LabelEmail),
		AppointmentDate:     date(LabelAppointmentDate),
		SecondAppointmentAt: date(LabelSecondAppointmentAt),
		CPFStartDate1:       date(LabelCPFStartDate1),
		Attended:            text(LabelAttended),
		Bucket:              target.Bucket,
		SourceFile:          target.SourceFile,
	}
}

// MapTable maps every data row of t.
func MapTable(t *sheet.Table, target Target) []CanonicalRecord {
	out := make([]CanonicalRecord, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = MapRow(row, t.Header, target)
	}
	return out
}

func cellString(c sheet.Cell) *string {
	if c.IsBlank() {
		return nil
	}
	return StringPtr(c.String())
}

var dayTimeRe = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})(?:\s+(\d{1,2}):(\d{2}))?$`)

// ToISODate converts "DD/MM/YYYY" or "DD/MM/YYYY H:MM" to "YYYY-MM-DD" or
// "YYYY-MM-DDTHH:MM:00Z". The clock value is carried through as-is, the Z
// suffix does not mean it was converted. Anything else, including impossible
// calendar values, yields nil.
func ToISODate(c sheet.Cell) *string {
	if !c.IsText() {
		return nil
	}
	switch c.Text {
	case "", "--", "undefined", "null":
		return nil
	}

	m := dayTimeRe.FindStringSubmatch(c.Text)
	if m == nil {
		return nil
	}
	day, month, year, hour, minute := m[1], m[2], m[3], m[4], m[5]
	if !validDay(year, month, day) {
		return nil
	}
	if hour == "" {
		return StringPtr(year + "-" + month + "-" + day)
	}

	h, _ := strconv.Atoi(hour)
	mi, _ := strconv.Atoi(minute)
	if h > 23 || mi > 59 {
		return nil
	}
	if len(hour) == 1 {
		hour = "0" + hour
	}
	return StringPtr(year + "-" + month + "-" + day + "T" + hour + ":" + minute + ":00Z")
}

func validDay(year, month, day string) bool {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d && int(t.Month()) == m
}
