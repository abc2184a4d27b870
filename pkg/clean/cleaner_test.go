package clean

import (
	"testing"
	"time"

	"github.com/hazyhaar/leadsheet/pkg/lead"
	"github.com/hazyhaar/leadsheet/pkg/sheet"
)

func testCleaner() *Cleaner {
	return NewCleaner(NewDateNormalizer(fixedClock(time.Date(2024, 12, 22, 8, 0, 0, 0, time.UTC))))
}

func TestClean_RemoveEmpty(t *testing.T) {
	tbl := &sheet.Table{
		Header: sheet.Texts("NOM", "E-MAIL", "VENU EN RDV"),
		Rows: [][]sheet.Cell{
			{sheet.Text("Jean"), sheet.Text("j@x.fr"), sheet.Text("oui")},
			{sheet.Empty(), sheet.Text(""), sheet.Empty()},
			{},
			{sheet.Text("Marie")},
		},
	}

	res := testCleaner().Clean(tbl, Options{RemoveEmpty: true})

	if res.RowsRemoved != 2 {
		t.Errorf("RowsRemoved = %d, want 2", res.RowsRemoved)
	}
	if len(res.Table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Table.Rows))
	}
	for i, row := range res.Table.Rows {
		if len(row) != len(res.Table.Header) {
			t.Errorf("row %d width = %d, want %d", i, len(row), len(res.Table.Header))
		}
	}
}

func TestClean_KeepEmptyWhenDisabled(t *testing.T) {
	tbl := &sheet.Table{
		Header: sheet.Texts("NOM"),
		Rows:   [][]sheet.Cell{{sheet.Empty()}},
	}
	res := testCleaner().Clean(tbl, Options{})
	if len(res.Table.Rows) != 1 || res.RowsRemoved != 0 {
		t.Errorf("rows = %d removed = %d, want 1 and 0", len(res.Table.Rows), res.RowsRemoved)
	}
}

func TestClean_RemoveDuplicateHeaders(t *testing.T) {
	tbl := &sheet.Table{
		Header: sheet.Texts("NOM", "TÃ‰LÃ‰PHONE", "Colonne_1, STATUT"),
		Rows: [][]sheet.Cell{
			sheet.Texts("Jean", "0601020304", "nouveau"),
			sheet.Texts("NOM", "TÃ‰LÃ‰PHONE", "STATUT", "extra"),
			sheet.Texts("NOM", "TÉLÉPHONE", "STATUT"),
		},
	}

	res := testCleaner().Clean(tbl, Options{RemoveDuplicateHeaders: true})

	if got := res.Table.HeaderStrings(); got[1] != "TÉLÉPHONE" || got[2] != "STATUT" {
		t.Errorf("header = %v", got)
	}
	if res.RowsRemoved != 2 {
		t.Errorf("RowsRemoved = %d, want 2", res.RowsRemoved)
	}
	if len(res.Table.Rows) != 1 || res.Table.Rows[0][0] != sheet.Text("Jean") {
		t.Errorf("rows = %+v", res.Table.Rows)
	}
}

func TestClean_CellTransformsAndCounts(t *testing.T) {
	tbl := &sheet.Table{
		Header: sheet.Texts("NOM", "DATE DU RDV", "NOTES", "CODE POSTAL"),
		Rows: [][]sheet.Cell{
			{sheet.Text("FranÃ§ois"), sheet.Text("Demain"), sheet.Text("--"), sheet.Number(94000)},
			{sheet.Text("AperÃ§u Marie"), sheet.Text("5 mars 2023"), sheet.Text(" -- "), sheet.Text("75001")},
		},
	}

	res := testCleaner().Clean(tbl, Options{RemoveDashes: true, RemoveApercu: true})

	want := [][]sheet.Cell{
		{sheet.Text("François"), sheet.Text("23/12/2024"), sheet.Empty(), sheet.Number(94000)},
		{sheet.Text(" Marie"), sheet.Text("05/03/2023"), sheet.Empty(), sheet.Text("75001")},
	}
	for i := range want {
		if !sheet.Equal(res.Table.Rows[i], want[i]) {
			t.Errorf("row %d = %+v, want %+v", i, res.Table.Rows[i], want[i])
		}
	}
	if res.CellsChanged != 6 {
		t.Errorf("CellsChanged = %d, want 6", res.CellsChanged)
	}
}

func TestClean_DashesKeptByDefault(t *testing.T) {
	tbl := &sheet.Table{
		Header: sheet.Texts("NOTES"),
		Rows:   [][]sheet.Cell{sheet.Texts("--")},
	}
	res := testCleaner().Clean(tbl, DefaultOptions())
	if res.Table.Rows[0][0] != sheet.Text("--") {
		t.Errorf("cell = %+v, want --", res.Table.Rows[0][0])
	}
}

func TestClean_HeaderApercu(t *testing.T) {
	tbl := &sheet.Table{Header: sheet.Texts("NOM Aperçu", "APERÇU")}
	res := testCleaner().Clean(tbl, DefaultOptions())
	if got := res.Table.HeaderStrings(); got[0] != "NOM " || got[1] != "" {
		t.Errorf("header = %q", got)
	}
}

func TestClean_ZonedExportHeadersStillMap(t *testing.T) {
	tbl := &sheet.Table{
		Header: sheet.Texts(
			"NOM",
			"DATE DE CRÃ‰ATION (GMT+1)",
			"DATE ET HEURE DU RDV (GMT+1)",
			"DATE DE LA DERNIÃˆRE MODIFICATION (GMT+1)",
		),
		Rows: [][]sheet.Cell{
			sheet.Texts("Jean Dupont", "22/12/2024 GMT+1", "22/12/2024 14:30 (GMT+1)", "23 déc. 2024 à 09:15 (GMT+1)"),
		},
	}

	res := testCleaner().Clean(tbl, DefaultOptions())

	header := res.Table.HeaderStrings()
	wantHeader := []string{"NOM", lead.LabelLeadCreatedAt, lead.LabelAppointmentAt, lead.LabelLastModifiedAt}
	for i, want := range wantHeader {
		if header[i] != want {
			t.Errorf("header[%d] = %q, want %q", i, header[i], want)
		}
	}
	if got := res.Table.Rows[0][2].String(); got != "22/12/2024 14:30" {
		t.Errorf("zoned value = %q, want 22/12/2024 14:30", got)
	}

	recs := lead.MapTable(res.Table, lead.Target{Bucket: lead.BucketIntake, SourceFile: "export"})
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	r := recs[0]
	for name, tc := range map[string]struct {
		got  *string
		want string
	}{
		"date_creation_lead":         {r.LeadCreatedAt, "2024-12-22"},
		"date_heure_rdv":             {r.AppointmentAt, "2024-12-22T14:30:00Z"},
		"date_derniere_modification": {r.LastModifiedAt, "2024-12-23T09:15:00Z"},
	} {
		if tc.got == nil || *tc.got != tc.want {
			t.Errorf("%s = %v, want %q", name, tc.got, tc.want)
		}
	}
}
