// Package lead defines the canonical lead record persisted to the store and
// the mapping from a cleaned spreadsheet row to that record.
package lead

import (
	"strings"
	"time"
)

// Buckets are the pipeline stages a batch of leads can be loaded into.
const (
	BucketIntake        = "Nouveau leads"
	BucketProcessed     = "Leads traité"
	BucketAppointment   = "RDV pris"
	BucketNextDay       = "RDV j+1"
	BucketOtherLocation = "RDV autre centre"
)

// Buckets lists every known bucket in display order.
var Buckets = []string{
	BucketIntake,
	BucketProcessed,
	BucketAppointment,
	BucketNextDay,
	BucketOtherLocation,
}

// StatusFresh marks a lead nobody has acted upon since it was created.
const StatusFresh = "nouveau"

// KnownBucket reports whether b is one of Buckets.
func KnownBucket(b string) bool {
	for _, v := range Buckets {
		if v == b {
			return true
		}
	}
	return false
}

// CanonicalRecord is one spreadsheet row in persisted form. Nil fields are
// stored as NULL. Date fields hold either YYYY-MM-DD or YYYY-MM-DDTHH:MM:00Z.
type CanonicalRecord struct {
	Name                *string `json:"nom" db:"nom"`
	PostalCode          *string `json:"code_postal" db:"code_postal"`
	Phone               *string `json:"telephone" db:"telephone"`
	AppointmentAt       *string `json:"date_heure_rdv" db:"date_heure_rdv"`
	Status              *string `json:"statut_lead" db:"statut_lead"`
	TrainingChoice      *string `json:"choix_formation" db:"choix_formation"`
	LastModifiedAt      *string `json:"date_derniere_modification" db:"date_derniere_modification"`
	TrainingType1       *string `json:"type_formation_1" db:"type_formation_1"`
	AppointmentBookedAt *string `json:"date_prise_rdv" db:"date_prise_rdv"`
	ContactNotes        *string `json:"contact_notes" db:"contact_notes"`
	ContactOwner        *string `json:"proprietaire_contact" db:"proprietaire_contact"`
	LeadCreatedAt       *string `json:"date_creation_lead" db:"date_creation_lead"`
	OwnerAssignedAt     *string `json:"date_attribution_proprietaire" db:"date_attribution_proprietaire"`
	Email               *string `json:"email" db:"email"`
	AppointmentDate     *string `json:"date_rdv" db:"date_rdv"`
	SecondAppointmentAt *string `json:"date_heure_2eme_rdv" db:"date_heure_2eme_rdv"`
	CPFStartDate1       *string `json:"date_debut_cpf_1" db:"date_debut_cpf_1"`
	Attended            *string `json:"venu_en_rdv" db:"venu_en_rdv"`
	Bucket              string  `json:"onglet" db:"onglet"`
	SourceFile          string  `json:"nom_fichier" db:"nom_fichier"`
}

// Columns are the persisted field names in CanonicalRecord order.
var Columns = []string{
	"nom", "code_postal", "telephone", "date_heure_rdv", "statut_lead",
	"choix_formation", "date_derniere_modification", "type_formation_1",
	"date_prise_rdv", "contact_notes", "proprietaire_contact",
	"date_creation_lead", "date_attribution_proprietaire", "email", "date_rdv",
	"date_heure_2eme_rdv", "date_debut_cpf_1", "venu_en_rdv", "onglet",
	"nom_fichier",
}

// NameOrEmpty returns the name with surrounding whitespace removed, or "".
func (r *CanonicalRecord) NameOrEmpty() string {
	if r.Name == nil {
		return ""
	}
	return strings.TrimSpace(*r.Name)
}

// Record is a CanonicalRecord read back from the store.
type Record struct {
	ID              string    `json:"id" db:"id"`
	CreatedAtMillis int64     `json:"-" db:"created_at"`
	CreatedAt       time.Time `json:"created_at" db:"-"`
	CanonicalRecord
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
