package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header is the typed view of the Type-1 record.
type Header struct {
	Version           string
	TransactionType   string
	Date              time.Time
	Priority          int
	DestinationAgency string
	OriginatingAgency string
	ControlNumber     string
	ControlReference  string
	Domain            string
}

// Header projects the Type-1 record.
func (t *Transaction) Header() Header {
	r := t.HeaderRecord()
	if r == nil {
		return Header{}
	}
	h := Header{
		Version:           r.Text(2),
		TransactionType:   strings.TrimSpace(r.Text(4)),
		DestinationAgency: r.Text(7),
		OriginatingAgency: r.Text(8),
		ControlNumber:     r.Text(9),
		ControlReference:  r.Text(10),
		Domain:            r.Text(13),
	}
	if d, err := time.Parse("20060102", strings.TrimSpace(r.Text(5))); err == nil {
		h.Date = d
	}
	if p, err := strconv.Atoi(strings.TrimSpace(r.Text(6))); err == nil {
		h.Priority = p
	}
	return h
}

// Canonical demographic keys used by completeness profiles.
const (
	DemoName   = "name"
	DemoDOB    = "dob"
	DemoSex    = "sex"
	DemoRace   = "race"
	DemoHeight = "height"
	DemoWeight = "weight"
	DemoEyes   = "eyes"
	DemoHair   = "hair"
)

// DemographicFields maps canonical keys to Type-2 field numbers.
var DemographicFields = map[string]int{
	DemoName:       18,
	"pob":          20,
	DemoDOB:        22,
	DemoSex:        24,
	DemoRace:       25,
	DemoHeight:     27,
	DemoWeight:     29,
	DemoEyes:       31,
	DemoHair:       32,
	"reason":       37,
	"date_printed": 38,
	"address":      41,
}

// Demographics is a read-only projection of the first Type-2 record. It is
// derived on demand and never stored.
type Demographics struct {
	Name         string
	PlaceOfBirth string
	DateOfBirth  string
	Sex          string
	Race         string
	Height       string
	Weight       string
	EyeColor     string
	HairColor    string
	Reason       string
	DatePrinted  string
	Address      string
}

// Demographics projects the first descriptive-text record.
func (t *Transaction) Demographics() Demographics {
	recs := t.RecordsOfType(2)
	if len(recs) == 0 {
		return Demographics{}
	}
	r := recs[0]
	text := func(n int) string { return strings.TrimSpace(r.Text(n)) }
	return Demographics{
		Name:         text(18),
		PlaceOfBirth: text(20),
		DateOfBirth:  text(22),
		Sex:          text(24),
		Race:         text(25),
		Height:       text(27),
		Weight:       text(29),
		EyeColor:     text(31),
		HairColor:    text(32),
		Reason:       text(37),
		DatePrinted:  text(38),
		Address:      text(41),
	}
}

// Value returns a field by canonical key.
func (d Demographics) Value(key string) (string, bool) {
	switch key {
	case DemoName:
		return d.Name, true
	case "pob":
		return d.PlaceOfBirth, true
	case DemoDOB:
		return d.DateOfBirth, true
	case DemoSex:
		return d.Sex, true
	case DemoRace:
		return d.Race, true
	case DemoHeight:
		return d.Height, true
	case DemoWeight:
		return d.Weight, true
	case DemoEyes:
		return d.EyeColor, true
	case DemoHair:
		return d.HairColor, true
	case "reason":
		return d.Reason, true
	case "date_printed":
		return d.DatePrinted, true
	case "address":
		return d.Address, true
	default:
		return "", false
	}
}

var (
	sexLabels  = map[string]string{"M": "Male", "F": "Female", "X": "Unknown"}
	raceLabels = map[string]string{
		"A": "Asian", "B": "Black", "I": "American Indian",
		"W": "White", "P": "Pacific Islander", "H": "Hispanic", "U": "Unknown",
	}
	eyeLabels = map[string]string{
		"BLK": "Black", "BLU": "Blue", "BRO": "Brown", "GRY": "Gray",
		"GRN": "Green", "HAZ": "Hazel", "MAR": "Maroon", "PNK": "Pink",
		"MUL": "Multicolored", "XXX": "Unknown",
	}
	hairLabels = map[string]string{
		"BLK": "Black", "BLN": "Blonde", "BRO": "Brown", "GRY": "Gray",
		"RED": "Red", "SDY": "Sandy", "WHI": "White", "BAL": "Bald",
		"XXX": "Unknown",
	}
)

func label(table map[string]string, code string) string {
	if v, ok := table[strings.ToUpper(code)]; ok {
		return v
	}
	return code
}

func (d Demographics) SexLabel() string  { return label(sexLabels, d.Sex) }
func (d Demographics) RaceLabel() string { return label(raceLabels, d.Race) }
func (d Demographics) EyeLabel() string  { return label(eyeLabels, d.EyeColor) }
func (d Demographics) HairLabel() string { return label(hairLabels, d.HairColor) }

// HeightLabel renders the FBI FII height code (e.g. "510") as 5'10".
func (d Demographics) HeightLabel() string {
	h := d.Height
	if len(h) != 3 {
		return h
	}
	inches, err := strconv.Atoi(h[1:])
	if err != nil || h[0] < '0' || h[0] > '9' {
		return h
	}
	return fmt.Sprintf("%c'%d\"", h[0], inches)
}

// WeightLabel appends the pound unit to numeric weights.
func (d Demographics) WeightLabel() string {
	if _, err := strconv.Atoi(d.Weight); err != nil {
		return d.Weight
	}
	return d.Weight + " lbs"
}

// FormatDate renders CCYYMMDD as YYYY-MM-DD, leaving other values untouched.
func FormatDate(raw string) string {
	if len(raw) != 8 {
		return raw
	}
	return raw[:4] + "-" + raw[4:6] + "-" + raw[6:8]
}
