// Package eftbuild assembles ANSI/NIST-ITL byte streams for tests.
package eftbuild

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	fs = 0x1C
	gs = 0x1D
	rs = 0x1E
	us = 0x1F
)

// Field is one tagged field value, already joined with separators.
type Field struct {
	Number int
	Value  []byte
}

func Text(number int, value string) Field {
	return Field{Number: number, Value: []byte(value)}
}

func Bin(number int, data []byte) Field {
	return Field{Number: number, Value: data}
}

// Items joins items with the item separator.
func Items(items ...string) string {
	return strings.Join(items, string(rune(us)))
}

// Subfields joins sub-fields with the sub-field separator.
func Subfields(subs ...string) string {
	return strings.Join(subs, string(rune(rs)))
}

// Type4 is a binary grayscale image record.
type Type4 struct {
	IDC         byte
	Impression  byte
	Positions   [6]byte
	ScanRes     byte
	Width       uint16
	Height      uint16
	Compression byte
	Data        []byte
}

type entry struct {
	recordType int
	idc        int
	raw        []byte
}

type Builder struct {
	header      []Field
	records     []entry
	omitContent bool
}

func New(header ...Field) *Builder {
	return &Builder{header: header}
}

// WithoutContent drops the generated 1.003 content field.
func (b *Builder) WithoutContent() *Builder {
	b.omitContent = true
	return b
}

func (b *Builder) Tagged(recordType, idc int, fields ...Field) *Builder {
	b.records = append(b.records, entry{recordType: recordType, idc: idc, raw: EncodeTagged(recordType, fields...)})
	return b
}

func (b *Builder) Grayscale(img Type4) *Builder {
	b.records = append(b.records, entry{recordType: 4, idc: int(img.IDC), raw: EncodeType4(img)})
	return b
}

// Raw appends pre-encoded bytes declared in the content field as recordType.
func (b *Builder) Raw(recordType, idc int, raw []byte) *Builder {
	b.records = append(b.records, entry{recordType: recordType, idc: idc, raw: raw})
	return b
}

func (b *Builder) Bytes() []byte {
	header := append([]Field(nil), b.header...)
	if !b.omitContent {
		subs := []string{Items("1", strconv.Itoa(len(b.records)))}
		for _, r := range b.records {
			subs = append(subs, Items(strconv.Itoa(r.recordType), fmt.Sprintf("%02d", r.idc)))
		}
		header = append(header, Text(3, Subfields(subs...)))
	}
	var out bytes.Buffer
	out.Write(EncodeTagged(1, header...))
	for _, r := range b.records {
		out.Write(r.raw)
	}
	return out.Bytes()
}

// EncodeTagged encodes a tagged record, computing its 001 length field.
// Fields are written in field-number order.
func EncodeTagged(recordType int, fields ...Field) []byte {
	sorted := append([]Field(nil), fields...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	var rest bytes.Buffer
	for _, f := range sorted {
		rest.WriteByte(gs)
		fmt.Fprintf(&rest, "%d.%03d:", recordType, f.Number)
		rest.Write(f.Value)
	}
	prefix := fmt.Sprintf("%d.001:", recordType)
	base := len(prefix) + rest.Len() + 1
	length := base + 1
	for length != base+len(strconv.Itoa(length)) {
		length = base + len(strconv.Itoa(length))
	}

	var out bytes.Buffer
	out.WriteString(prefix)
	out.WriteString(strconv.Itoa(length))
	out.Write(rest.Bytes())
	out.WriteByte(fs)
	return out.Bytes()
}

func EncodeType4(img Type4) []byte {
	buf := make([]byte, 18+len(img.Data))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(buf)))
	buf[4] = img.IDC
	buf[5] = img.Impression
	copy(buf[6:12], img.Positions[:])
	buf[12] = img.ScanRes
	binary.BigEndian.PutUint16(buf[13:15], img.Width)
	binary.BigEndian.PutUint16(buf[15:17], img.Height)
	buf[17] = img.Compression
	copy(buf[18:], img.Data)
	return buf
}

// Positions builds a Type-4 position table with unused slots set to 255.
func Positions(codes ...byte) [6]byte {
	out := [6]byte{255, 255, 255, 255, 255, 255}
	copy(out[:], codes)
	return out
}

// HeaderFields returns a complete Type-1 field set without the content field.
func HeaderFields() []Field {
	return []Field{
		Text(2, "0502"),
		Text(4, "FAUF"),
		Text(5, "20240102"),
		Text(6, "4"),
		Text(7, "WVIAFIS0Z"),
		Text(8, "ATF000000"),
		Text(9, "TCN20240102001"),
		Text(11, "19.69"),
		Text(12, "19.69"),
	}
}

// Demographics maps Type-2 field numbers to values.
type Demographics map[int]string

func CompleteDemographics() Demographics {
	return Demographics{
		18: "DOE,JOHN QUINCY",
		20: "CA",
		22: "19800115",
		24: "M",
		25: "W",
		27: "510",
		29: "180",
		31: "BRO",
		32: "BLK",
		37: "FIREARMS",
		38: "20240102",
		41: "1 MAIN ST, SPRINGFIELD",
	}
}

// Without returns a copy with the given field numbers removed.
func (d Demographics) Without(numbers ...int) Demographics {
	out := make(Demographics, len(d))
	for k, v := range d {
		out[k] = v
	}
	for _, n := range numbers {
		delete(out, n)
	}
	return out
}

func (d Demographics) fields(idc int) []Field {
	out := []Field{Text(2, fmt.Sprintf("%02d", idc))}
	for n, v := range d {
		out = append(out, Text(n, v))
	}
	return out
}

// Image is a Type-14 record.
type Image struct {
	Position    int
	Compression string
	Width       int
	Height      int
	Depth       int
	Data        []byte
}

func (img Image) fields(idc int) []Field {
	depth := img.Depth
	if depth == 0 {
		depth = 8
	}
	return []Field{
		Text(2, fmt.Sprintf("%02d", idc)),
		Text(3, "1"),
		Text(4, "ATF000000"),
		Text(5, "20240102"),
		Text(6, strconv.Itoa(img.Width)),
		Text(7, strconv.Itoa(img.Height)),
		Text(8, "1"),
		Text(9, "500"),
		Text(10, "500"),
		Text(11, img.Compression),
		Text(12, strconv.Itoa(depth)),
		Text(13, strconv.Itoa(img.Position)),
		Bin(999, img.Data),
	}
}

// Applicant builds a FAUF transaction with one Type-2 record and one Type-14
// record per image.
func Applicant(demo Demographics, images ...Image) []byte {
	b := New(HeaderFields()...)
	b.Tagged(2, 0, demo.fields(0)...)
	for i, img := range images {
		b.Tagged(14, i+1, img.fields(i+1)...)
	}
	return b.Bytes()
}

// RawImages builds uncompressed 2x2 images at each position.
func RawImages(positions ...int) []Image {
	out := make([]Image, 0, len(positions))
	for _, p := range positions {
		out = append(out, Image{
			Position:    p,
			Compression: "NONE",
			Width:       2,
			Height:      2,
			Data:        []byte{byte(p), 0x10, 0x20, 0xFF},
		})
	}
	return out
}

// Range returns the integers lo..hi inclusive.
func Range(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}
