package protocol

import (
	"bytes"
	"fmt"
)

// Separator bytes, highest level first.
const (
	FS byte = 0x1C // record
	GS byte = 0x1D // field
	RS byte = 0x1E // sub-field
	US byte = 0x1F // item
)

// Record types with special framing.
const (
	TypeTransaction = 1
	TypeDescriptive = 2
	TypeGrayscale   = 4
	TypeVariable    = 14
)

// ImageDataField is the field number carrying the binary payload of tagged image records.
const ImageDataField = 999

// Tag addresses one field within a record, e.g. 2.018.
type Tag struct {
	RecordType int
	Field      int
}

func (t Tag) String() string {
	return fmt.Sprintf("%d.%03d", t.RecordType, t.Field)
}

// Subfield is one RS-delimited repetition of a field value.
type Subfield struct {
	Items [][]byte
}

// Field is one raw field. Text fields keep their sub-field/item split, binary
// fields keep their bytes untouched.
type Field struct {
	Tag       Tag
	Binary    bool
	Subfields []Subfield
	Data      []byte
}

// RawRecord is one lexed logical record.
type RawRecord struct {
	Index  int
	Offset int
	Type   int
	Length int
	Binary bool
	Fields []Field
}

// Field returns the field with the given number.
func (r RawRecord) Field(number int) (Field, bool) {
	for _, f := range r.Fields {
		if f.Tag.Field == number {
			return f, true
		}
	}
	return Field{}, false
}

// IsBinaryType reports whether records of type t use fixed binary framing.
func IsBinaryType(t int) bool {
	_, ok := binaryLayouts[t]
	return ok
}

// HasImageData reports whether tagged records of type t end in a binary 999 field.
func HasImageData(t int) bool {
	switch t {
	case 10, 13, 14, 15, 16, 17:
		return true
	default:
		return false
	}
}

// Bytes re-serializes the field value without the tag and trailing separator.
func (f Field) Bytes() []byte {
	if f.Binary {
		out := make([]byte, len(f.Data))
		copy(out, f.Data)
		return out
	}
	var buf bytes.Buffer
	for i, sub := range f.Subfields {
		if i > 0 {
			buf.WriteByte(RS)
		}
		for j, item := range sub.Items {
			if j > 0 {
				buf.WriteByte(US)
			}
			buf.Write(item)
		}
	}
	return buf.Bytes()
}

// Text returns the serialized value as a string.
func (f Field) Text() string {
	return string(f.Bytes())
}

// Item returns the item at the given 0-based sub-field and item coordinates.
func (f Field) Item(sub, item int) (string, bool) {
	if f.Binary || sub < 0 || sub >= len(f.Subfields) {
		return "", false
	}
	items := f.Subfields[sub].Items
	if item < 0 || item >= len(items) {
		return "", false
	}
	return string(items[item]), true
}

// First returns the first item of the first sub-field.
func (f Field) First() string {
	v, _ := f.Item(0, 0)
	return v
}

func splitText(tag Tag, value []byte) Field {
	parts := bytes.Split(value, []byte{RS})
	subs := make([]Subfield, 0, len(parts))
	for _, part := range parts {
		subs = append(subs, Subfield{Items: bytes.Split(part, []byte{US})})
	}
	return Field{Tag: tag, Subfields: subs}
}
