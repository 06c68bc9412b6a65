package search

import (
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/planadoc/medregsync/models/registry"
)

// The directory service keys parts of its response by fixed numeric
// codes. They are an external contract and must not leak past this
// package.
const (
	genderCodeMale      = "12000"
	genderCodeFemale    = "12001"
	diplomaFamilyCode   = "999999"
	licenseAuthorityKey = "5002"
)

// response is the wire shape of a search result.
type response struct {
	Rows     []responseRow `json:"rows"`
	Settings struct {
		TotalRecords int `json:"totalrecords"`
	} `json:"settings"`
	AdditionalInfo struct {
		Specializations map[string]string `json:"Spezialisierungen"`
		Diplomas        map[string]string `json:"Diplome"`
		Genders         map[string]string `json:"Geschlecht"`
		Licenses        map[string]string `json:"Bewilligungen"`
	} `json:"additionalInfo"`
}

type responseRow struct {
	LastName  string   `json:"LastName"`
	FirstName string   `json:"FirstName"`
	Streets   []string `json:"Strasse"`
	Zips      []string `json:"Plz"`
	Cities    []string `json:"Ort"`
}

// RecordAddress is one practice address of a fetched record.
type RecordAddress struct {
	Street string
	Zip    string
	City   string
}

// Record is one practitioner as reported by the directory service,
// with all service codes already mapped onto domain fields.
type Record struct {
	GLN              string
	LastName         string
	FirstName        string
	Addresses        []RecordAddress
	Specialities     []string
	DiplomaCode      string
	DiplomaFamily    string
	LicenseAuthority string
	Gender           registry.Gender
}

func (r *response) record(gln string) *Record {
	row := r.Rows[0]

	rec := &Record{
		GLN:              gln,
		LastName:         row.LastName,
		FirstName:        row.FirstName,
		DiplomaCode:      diplomaCode(r.AdditionalInfo.Diplomas),
		DiplomaFamily:    r.AdditionalInfo.Diplomas[diplomaFamilyCode],
		LicenseAuthority: r.AdditionalInfo.Licenses[licenseAuthorityKey],
		Gender:           gender(r.AdditionalInfo.Genders),
	}

	// The zip column drives the address count; the street and city
	// columns may run short.
	for i := range row.Zips {
		rec.Addresses = append(rec.Addresses, RecordAddress{
			Street: at(row.Streets, i),
			Zip:    row.Zips[i],
			City:   at(row.Cities, i),
		})
	}

	rec.Specialities = make([]string, 0, len(r.AdditionalInfo.Specializations))
	for code := range r.AdditionalInfo.Specializations {
		rec.Specialities = append(rec.Specialities, code)
	}
	slices.Sort(rec.Specialities)

	return rec
}

func gender(codes map[string]string) registry.Gender {
	if _, ok := codes[genderCodeMale]; ok {
		return registry.GenderMale
	}
	if _, ok := codes[genderCodeFemale]; ok {
		return registry.GenderFemale
	}
	return registry.GenderUnknown
}

// diplomaCode picks the lowest numeric key of the diploma map. The
// family label sits at the sentinel key 999999, above every real
// diploma code, so the sentinel is returned only when it is the sole
// key.
func diplomaCode(diplomas map[string]string) string {
	var (
		best    string
		bestNum int
		found   bool
	)
	for code := range diplomas {
		num, err := strconv.Atoi(code)
		if err != nil {
			continue
		}
		if !found || num < bestNum {
			best, bestNum, found = code, num, true
		}
	}
	return best
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
