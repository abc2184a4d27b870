package lead

import (
	"testing"

	"github.com/hazyhaar/leadsheet/pkg/sheet"
)

func deref(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestToISODate(t *testing.T) {
	tests := []struct {
		input sheet.Cell
		want  string
	}{
		{sheet.Text("22/12/2024 14:30"), "2024-12-22T14:30:00Z"},
		{sheet.Text("22/12/2024 9:05"), "2024-12-22T09:05:00Z"},
		{sheet.Text("22/12/2024"), "2024-12-22"},
		{sheet.Text("29/02/2024"), "2024-02-29"},
		{sheet.Text("--"), "<nil>"},
		{sheet.Text(""), "<nil>"},
		{sheet.Text("undefined"), "<nil>"},
		{sheet.Text("null"), "<nil>"},
		{sheet.Text("2024-12-22"), "<nil>"},
		{sheet.Text("22 décembre 2024"), "<nil>"},
		{sheet.Text("5/3/2023"), "<nil>"},
		{sheet.Text("31/02/2024"), "<nil>"},
		{sheet.Text("12/13/2024"), "<nil>"},
		{sheet.Text("22/12/2024 24:00"), "<nil>"},
		{sheet.Text(" 22/12/2024"), "<nil>"},
		{sheet.Number(45648), "<nil>"},
		{sheet.Empty(), "<nil>"},
	}
	for _, tt := range tests {
		if got := deref(ToISODate(tt.input)); got != tt.want {
			t.Errorf("ToISODate(%+v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMapRow(t *testing.T) {
	header := sheet.Texts(
		LabelName, LabelPostalCode, LabelPhone, LabelAppointmentAt, LabelStatus,
		LabelEmail, LabelAppointmentDate, LabelContactNotes, "COLONNE INCONNUE",
	)
	row := []sheet.Cell{
		sheet.Text("Jean Dupont"),
		sheet.Number(75001),
		sheet.Text("0601020304"),
		sheet.Text("22/12/2024 14:30"),
		sheet.Text("nouveau"),
		sheet.Text(""),
		sheet.Text("pas une date"),
	}

	rec := MapRow(row, header, Target{Bucket: BucketIntake, SourceFile: "export-decembre"})

	checks := []struct {
		field string
		got   *string
		want  string
	}{
		{"nom", rec.Name, "Jean Dupont"},
		{"code_postal", rec.PostalCode, "75001"},
		{"telephone", rec.Phone, "0601020304"},
		{"date_heure_rdv", rec.AppointmentAt, "2024-12-22T14:30:00Z"},
		{"statut_lead", rec.Status, "nouveau"},
		{"email", rec.Email, "<nil>"},
		{"date_rdv", rec.AppointmentDate, "<nil>"},
		{"contact_notes", rec.ContactNotes, "<nil>"},
		{"choix_formation", rec.TrainingChoice, "<nil>"},
		{"date_creation_lead", rec.LeadCreatedAt, "<nil>"},
	}
	for _, c := range checks {
		if got := deref(c.got); got != c.want {
			t.Errorf("%s = %q, want %q", c.field, got, c.want)
		}
	}
	if rec.Bucket != BucketIntake || rec.SourceFile != "export-decembre" {
		t.Errorf("target = %q/%q", rec.Bucket, rec.SourceFile)
	}
}

func TestMapRow_RepeatedLabelRightmostWins(t *testing.T) {
	header := sheet.Texts(LabelName, LabelName)
	rec := MapRow(sheet.Texts("first", "second"), header, Target{})
	if got := deref(rec.Name); got != "second" {
		t.Errorf("nom = %q, want second", got)
	}
}

func TestMapTable(t *testing.T) {
	tbl := &sheet.Table{
		Header: sheet.Texts(LabelName),
		Rows:   [][]sheet.Cell{sheet.Texts("A"), sheet.Texts("B")},
	}
	recs := MapTable(tbl, Target{Bucket: BucketAppointment, SourceFile: "f"})
	if len(recs) != 2 || deref(recs[1].Name) != "B" || recs[0].Bucket != BucketAppointment {
		t.Errorf("records = %+v", recs)
	}
}

func TestColumnsMatchRecord(t *testing.T) {
	if len(Columns) != 20 {
		t.Fatalf("len(Columns) = %d, want 20", len(Columns))
	}
	if Columns[0] != "nom" || Columns[19] != "nom_fichier" {
		t.Errorf("Columns bounds = %q..%q", Columns[0], Columns[19])
	}
}
