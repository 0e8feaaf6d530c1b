package schema

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/eftview/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Kind is the coercion applied to a field value.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindDate
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDate:
		return "date"
	case KindBinary:
		return "binary"
	default:
		return "text"
	}
}

// DateLayout is the fixed CCYYMMDD pattern of date fields.
const DateLayout = "20060102"

var (
	ErrMissingRequiredField = errors.New("schema: missing required field")
	ErrInvalidFieldValue    = errors.New("schema: invalid field value")
)

type FieldSpec struct {
	Number   int
	Name     string
	Kind     Kind
	Required bool
}

type Schema struct {
	RecordType int
	Name       string
	Fields     []FieldSpec
}

// Spec returns the declaration of a field number.
func (s Schema) Spec(number int) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Number == number {
			return f, true
		}
	}
	return FieldSpec{}, false
}

type ValidationError struct {
	RecordType int
	Field      int
	Reason     string
	Err        error
}

func (e ValidationError) Error() string {
	tag := protocol.Tag{RecordType: e.RecordType, Field: e.Field}
	return fmt.Sprintf("schema: type-%d field %s: %s", e.RecordType, tag, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

var schemas = map[int]Schema{
	protocol.TypeTransaction: {
		RecordType: protocol.TypeTransaction,
		Name:       "transaction information",
		Fields: []FieldSpec{
			{1, "LEN", KindInt, true},
			{2, "VER", KindText, true},
			{3, "CNT", KindText, true},
			{4, "TOT", KindText, true},
			{5, "DAT", KindDate, true},
			{6, "PRY", KindInt, false},
			{7, "DAI", KindText, true},
			{8, "ORI", KindText, true},
			{9, "TCN", KindText, true},
			{10, "TCR", KindText, false},
			{11, "NSR", KindText, false},
			{12, "NTR", KindText, false},
			{13, "DOM", KindText, false},
			{14, "GMT", KindText, false},
		},
	},
	protocol.TypeDescriptive: {
		RecordType: protocol.TypeDescriptive,
		Name:       "user-defined descriptive text",
		Fields: []FieldSpec{
			{1, "LEN", KindInt, true},
			{2, "IDC", KindInt, true},
			{18, "NAM", KindText, false},
			{20, "POB", KindText, false},
			{22, "DOB", KindDate, false},
			{24, "SEX", KindText, false},
			{25, "RAC", KindText, false},
			{27, "HGT", KindText, false},
			{29, "WGT", KindText, false},
			{31, "EYE", KindText, false},
			{32, "HAI", KindText, false},
			{37, "RFP", KindText, false},
			{38, "DPR", KindDate, false},
			{41, "RES", KindText, false},
		},
	},
	protocol.TypeGrayscale: {
		RecordType: protocol.TypeGrayscale,
		Name:       "high-resolution grayscale fingerprint image",
		Fields: []FieldSpec{
			{1, "LEN", KindBinary, true},
			{2, "IDC", KindBinary, true},
			{3, "IMP", KindBinary, true},
			{4, "FGP", KindBinary, true},
			{5, "ISR", KindBinary, true},
			{6, "HLL", KindBinary, true},
			{7, "VLL", KindBinary, true},
			{8, "GCA", KindBinary, true},
			{9, "DATA", KindBinary, true},
		},
	},
	protocol.TypeVariable: {
		RecordType: protocol.TypeVariable,
		Name:       "variable-resolution fingerprint image",
		Fields: []FieldSpec{
			{1, "LEN", KindInt, true},
			{2, "IDC", KindInt, true},
			{3, "IMP", KindInt, false},
			{4, "SRC", KindText, false},
			{5, "FCD", KindDate, false},
			{6, "HLL", KindInt, true},
			{7, "VLL", KindInt, true},
			{8, "SLC", KindInt, false},
			{9, "THPS", KindInt, false},
			{10, "TVPS", KindInt, false},
			{11, "CGA", KindText, true},
			{12, "BPX", KindInt, false},
			{13, "FGP", KindInt, true},
			{999, "DATA", KindBinary, true},
		},
	},
}

// Lookup returns the schema for a record type.
func Lookup(recordType int) (Schema, bool) {
	s, ok := schemas[recordType]
	return s, ok
}

// Validate enforces presence and coercion of required fields for known record
// types. Unknown record types and optional fields are ignored.
func Validate(rec protocol.RawRecord) error {
	log.Debug().Int("record_type", rec.Type).Int("fields", len(rec.Fields)).Msg("schema.Validate")
	s, ok := schemas[rec.Type]
	if !ok {
		return nil
	}
	for _, spec := range s.Fields {
		if !spec.Required {
			continue
		}
		f, found := rec.Field(spec.Number)
		if !found {
			log.Error().Int("record_type", rec.Type).Int("field", spec.Number).Msg("schema.Validate missing field")
			return ValidationError{
				RecordType: rec.Type,
				Field:      spec.Number,
				Reason:     fmt.Sprintf("missing required field %s", spec.Name),
				Err:        ErrMissingRequiredField,
			}
		}
		if err := Coerce(spec, f); err != nil {
			log.Error().Int("record_type", rec.Type).Int("field", spec.Number).Err(err).Msg("schema.Validate coercion failed")
			return ValidationError{
				RecordType: rec.Type,
				Field:      spec.Number,
				Reason:     fmt.Sprintf("%s: %v", spec.Name, err),
				Err:        ErrInvalidFieldValue,
			}
		}
	}
	return nil
}

// Coerce checks that f holds a value of the declared kind.
func Coerce(spec FieldSpec, f protocol.Field) error {
	switch spec.Kind {
	case KindBinary:
		if !f.Binary {
			return fmt.Errorf("expected binary value")
		}
		return nil
	case KindInt:
		_, err := ParseInt(f)
		return err
	case KindDate:
		if f.Binary {
			return fmt.Errorf("expected date, got binary value")
		}
		_, err := ParseDate(f.First())
		return err
	default:
		if f.Binary {
			return fmt.Errorf("expected text, got binary value")
		}
		return nil
	}
}

// ParseInt reads an integer from the first item of a text field or from the
// big-endian bytes of a binary field.
func ParseInt(f protocol.Field) (int, error) {
	if f.Binary {
		switch len(f.Data) {
		case 1:
			return int(f.Data[0]), nil
		case 2:
			return int(binary.BigEndian.Uint16(f.Data)), nil
		case 4:
			return int(binary.BigEndian.Uint32(f.Data)), nil
		default:
			return 0, fmt.Errorf("unsupported binary integer width %d", len(f.Data))
		}
	}
	raw := strings.TrimSpace(f.First())
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("expected integer, got %q", raw)
	}
	return n, nil
}

// ParseDate parses the 8-digit CCYYMMDD date pattern. Impossible calendar
// dates are rejected.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 8 {
		return time.Time{}, fmt.Errorf("expected CCYYMMDD date, got %q", raw)
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected CCYYMMDD date, got %q", raw)
	}
	return d, nil
}
