// Package registry holds the domain entities of the practitioner
// registry and the status lifecycles they move through during a sync.
package registry

import "time"

// Gender as reported by the directory service, already mapped away
// from the service's numeric codes.
type Gender string

const (
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
	GenderUnknown Gender = ""
)

// Doctor is the root entity, keyed by GLN (the practitioner's unique
// license number). Descriptive fields stay empty until the first
// successful enrichment.
type Doctor struct {
	GLN              string       `db:"gln"`
	LastName         string       `db:"last_name"`
	FirstName        string       `db:"first_name"`
	DiplomaCode      string       `db:"diploma_code"`
	DiplomaFamily    string       `db:"diploma_family"`
	LicenseAuthority string       `db:"license_authority"`
	Gender           Gender       `db:"gender"`
	Status           DoctorStatus `db:"status"`
	LastUpdate       time.Time    `db:"last_update"`
}

// Address is owned by a Doctor and identified by the composite
// (gln, street, zip, city).
type Address struct {
	GLN        string      `db:"gln"`
	Street     string      `db:"street"`
	Zip        string      `db:"zip"`
	City       string      `db:"city"`
	Status     EntryStatus `db:"status"`
	LastUpdate time.Time   `db:"last_update"`
}

// Specialization is owned by a Doctor and identified by the composite
// (gln, speciality code).
type Specialization struct {
	GLN        string      `db:"gln"`
	Speciality string      `db:"speciality"`
	Status     EntryStatus `db:"status"`
	LastUpdate time.Time   `db:"last_update"`
}

// Label is a translated UI label from the directory service, keyed by
// (labelFor, language).
type Label struct {
	LabelFor   string `db:"label_for"`
	Language   string `db:"language"`
	LabelValue string `db:"label_value"`
}

// EnrichmentEquals reports whether the stored doctor matches the given
// fetched values across the six compared descriptive fields.
func (d Doctor) EnrichmentEquals(lastName, firstName, diplomaCode, diplomaFamily, licenseAuthority string, gender Gender) bool {
	return d.LastName == lastName &&
		d.FirstName == firstName &&
		d.DiplomaCode == diplomaCode &&
		d.DiplomaFamily == diplomaFamily &&
		d.LicenseAuthority == licenseAuthority &&
		d.Gender == gender
}
