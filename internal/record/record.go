// Package record holds the typed model of a parsed ANSI/NIST-ITL transaction.
//
// A Transaction is produced once by the parser. The image orchestrator
// attaches rasters to its FingerprintImages; after that it is read-only and
// safe to share between goroutines.
package record

import (
	"errors"
	"fmt"
	"sort"

	"github.com/danmuck/eftview/internal/protocol"
)

// Recoverable problems attached to records as warnings.
var (
	ErrUnknownRecordType      = errors.New("record: unknown record type")
	ErrUnknownFingerPosition  = errors.New("record: unknown finger position")
	ErrUnknownCompressionType = errors.New("record: unknown compression type")
)

type Kind int

const (
	KindGeneric Kind = iota
	KindHeader
	KindDescriptive
	KindGrayscaleImage
	KindVariableImage
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "transaction-header"
	case KindDescriptive:
		return "descriptive-text"
	case KindGrayscaleImage:
		return "grayscale-image"
	case KindVariableImage:
		return "variable-resolution-image"
	default:
		return "generic"
	}
}

// Warning is a recoverable problem found while parsing.
type Warning struct {
	RecordType int
	RecordSet  int
	Tag        protocol.Tag
	Err        error
}

func (w Warning) Error() string {
	if w.Tag != (protocol.Tag{}) {
		return fmt.Sprintf("type-%d #%d field %s: %v", w.RecordType, w.RecordSet, w.Tag, w.Err)
	}
	return fmt.Sprintf("type-%d #%d: %v", w.RecordType, w.RecordSet, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Record is one logical record keyed by (Type, Set).
type Record struct {
	Type     int
	Set      int
	Kind     Kind
	Offset   int
	Length   int
	Fields   map[protocol.Tag]protocol.Field
	Order    []protocol.Tag
	Warnings []Warning
}

// New builds a record from lexed fields, keeping their order of appearance.
func New(raw protocol.RawRecord, set int, kind Kind) *Record {
	r := &Record{
		Type:   raw.Type,
		Set:    set,
		Kind:   kind,
		Offset: raw.Offset,
		Length: raw.Length,
		Fields: make(map[protocol.Tag]protocol.Field, len(raw.Fields)),
		Order:  make([]protocol.Tag, 0, len(raw.Fields)),
	}
	for _, f := range raw.Fields {
		if _, dup := r.Fields[f.Tag]; !dup {
			r.Order = append(r.Order, f.Tag)
		}
		r.Fields[f.Tag] = f
	}
	return r
}

func (r *Record) tag(number int) protocol.Tag {
	return protocol.Tag{RecordType: r.Type, Field: number}
}

// Field returns the field with the given number.
func (r *Record) Field(number int) (protocol.Field, bool) {
	f, ok := r.Fields[r.tag(number)]
	return f, ok
}

// Text returns the full text of a field, or "" when absent.
func (r *Record) Text(number int) string {
	f, ok := r.Field(number)
	if !ok || f.Binary {
		return ""
	}
	return f.Text()
}

// Item returns one item addressed by (field, sub-field, item), 0-based.
func (r *Record) Item(number, sub, item int) (string, bool) {
	f, ok := r.Field(number)
	if !ok {
		return "", false
	}
	return f.Item(sub, item)
}

// Warn attaches a recoverable problem to the record. number 0 means the
// problem concerns the record as a whole.
func (r *Record) Warn(number int, err error) Warning {
	w := Warning{RecordType: r.Type, RecordSet: r.Set, Err: err}
	if number > 0 {
		w.Tag = r.tag(number)
	}
	r.Warnings = append(r.Warnings, w)
	return w
}

// Transaction is the root aggregate. Records keep their byte-stream order;
// the Type-1 record is always first.
type Transaction struct {
	Records  []*Record
	Images   []*FingerprintImage
	Warnings []Warning
}

// HeaderRecord returns the Type-1 record.
func (t *Transaction) HeaderRecord() *Record {
	if len(t.Records) == 0 {
		return nil
	}
	return t.Records[0]
}

// RecordsOfType returns records of type rt in order of appearance.
func (t *Transaction) RecordsOfType(rt int) []*Record {
	var out []*Record
	for _, r := range t.Records {
		if r.Type == rt {
			out = append(out, r)
		}
	}
	return out
}

// Record returns the record addressed by (type, set).
func (t *Transaction) Record(rt, set int) (*Record, bool) {
	for _, r := range t.Records {
		if r.Type == rt && r.Set == set {
			return r, true
		}
	}
	return nil, false
}

// Positions returns the sorted set of known finger positions among images.
func (t *Transaction) Positions() []FingerPosition {
	seen := make(map[FingerPosition]struct{})
	for _, img := range t.Images {
		if img.Position.Known() {
			seen[img.Position] = struct{}{}
		}
	}
	out := make([]FingerPosition, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PositionSet returns the known positions as a set.
func (t *Transaction) PositionSet() map[FingerPosition]bool {
	out := make(map[FingerPosition]bool)
	for _, p := range t.Positions() {
		out[p] = true
	}
	return out
}
