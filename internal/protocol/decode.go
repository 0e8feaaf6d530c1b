package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// binaryLayouts lists the fixed field widths preceding the image blob of
// binary records. The blob is the field numbered len(widths)+1.
var binaryLayouts = map[int][]int{
	3: {4, 1, 1, 6, 1, 2, 2, 1},
	4: {4, 1, 1, 6, 1, 2, 2, 1},
	5: {4, 1, 1, 6, 1, 2, 2, 1},
	6: {4, 1, 1, 6, 1, 2, 2, 1},
	7: {4, 1},
	8: {4, 1, 1, 1, 1, 2, 2},
}

// Lexer splits a transaction buffer into logical records. It is single-pass:
// once Next returns an error, including io.EOF, every later call returns io.EOF.
type Lexer struct {
	buf    []byte
	offset int
	index  int
	types  []int
	done   bool
}

func NewLexer(buf []byte) *Lexer {
	return &Lexer{buf: buf}
}

// Next returns the next record or io.EOF after the last one.
func (l *Lexer) Next() (RawRecord, error) {
	if l.done {
		return RawRecord{}, io.EOF
	}
	rec, err := l.next()
	if err != nil {
		l.done = true
		return RawRecord{}, err
	}
	return rec, nil
}

func (l *Lexer) next() (RawRecord, error) {
	if l.offset >= len(l.buf) {
		if l.index == 0 {
			return RawRecord{}, l.fail(Tag{}, ErrEmptyTransaction)
		}
		if l.types != nil && l.index < len(l.types) {
			return RawRecord{}, l.fail(Tag{}, fmt.Errorf("%w: content field declares %d records, found %d",
				ErrTruncatedRecord, len(l.types), l.index))
		}
		return RawRecord{}, io.EOF
	}
	if l.types != nil && l.index >= len(l.types) {
		return RawRecord{}, l.fail(Tag{}, ErrTrailingData)
	}

	expected := 0
	if l.index > 0 && l.types != nil {
		expected = l.types[l.index]
	}

	var (
		rec RawRecord
		err error
	)
	if IsBinaryType(expected) {
		rec, err = l.readBinary(expected)
	} else {
		rec, err = l.readTagged(expected)
	}
	if err != nil {
		return RawRecord{}, err
	}

	if l.index == 0 {
		if rec.Type != TypeTransaction {
			return RawRecord{}, l.fail(Tag{}, fmt.Errorf("%w: first record is type %d", ErrMalformedHeader, rec.Type))
		}
		types, err := contentTypes(rec)
		if err != nil {
			return RawRecord{}, l.fail(Tag{RecordType: 1, Field: 3}, err)
		}
		l.types = types
	}

	l.offset += rec.Length
	l.index++
	return rec, nil
}

func (l *Lexer) fail(tag Tag, err error) error {
	return &ParseError{Offset: l.offset, RecordIndex: l.index, Tag: tag, Err: err}
}

// readTagged reads one tagged record. LEN counts every byte of the record,
// its trailing FS included.
func (l *Lexer) readTagged(expected int) (RawRecord, error) {
	buf := l.buf[l.offset:]

	tag, valueStart, err := parseTag(buf, 0)
	if err != nil {
		return RawRecord{}, l.fail(Tag{}, fmt.Errorf("%w: %v", ErrMalformedHeader, err))
	}
	if tag.Field != 1 {
		return RawRecord{}, l.fail(tag, fmt.Errorf("%w: record does not start with its length field", ErrMalformedHeader))
	}
	if expected != 0 && tag.RecordType != expected {
		return RawRecord{}, l.fail(tag, fmt.Errorf("%w: content field declares type %d, record is type %d",
			ErrRecordTypeMismatch, expected, tag.RecordType))
	}

	lenEnd := valueStart
	for lenEnd < len(buf) && buf[lenEnd] != GS && buf[lenEnd] != FS {
		lenEnd++
	}
	if lenEnd == len(buf) {
		return RawRecord{}, l.fail(tag, ErrTruncatedRecord)
	}
	declared, err := strconv.Atoi(string(buf[valueStart:lenEnd]))
	if err != nil || declared <= 0 {
		return RawRecord{}, l.fail(tag, fmt.Errorf("%w: invalid length %q", ErrMalformedHeader, buf[valueStart:lenEnd]))
	}
	if declared < lenEnd+1 {
		return RawRecord{}, l.fail(tag, fmt.Errorf("%w: declared %d bytes, header alone spans %d",
			ErrLengthMismatch, declared, lenEnd+1))
	}
	if declared > len(buf) {
		return RawRecord{}, l.fail(tag, fmt.Errorf("%w: declared %d bytes, %d available",
			ErrTruncatedRecord, declared, len(buf)))
	}
	if buf[declared-1] != FS {
		return RawRecord{}, l.fail(tag, fmt.Errorf("%w: declared %d bytes, no record separator at end",
			ErrLengthMismatch, declared))
	}

	fields, err := l.splitFields(tag.RecordType, buf[:declared-1])
	if err != nil {
		return RawRecord{}, err
	}
	return RawRecord{
		Index:  l.index,
		Offset: l.offset,
		Type:   tag.RecordType,
		Length: declared,
		Fields: fields,
	}, nil
}

// splitFields walks the record content (trailing FS excluded). The image data
// field of image records runs to the end of the content regardless of the
// bytes it holds.
func (l *Lexer) splitFields(recordType int, content []byte) ([]Field, error) {
	fields := make([]Field, 0, 16)
	seen := make(map[Tag]bool, 16)
	for pos := 0; pos < len(content); {
		tag, valueStart, err := parseTag(content, pos)
		if err != nil {
			return nil, l.fail(Tag{}, fmt.Errorf("%w at record byte %d: %v", ErrMalformedTag, pos, err))
		}
		if tag.RecordType != recordType {
			return nil, l.fail(tag, fmt.Errorf("%w: field belongs to type %d", ErrRecordTypeMismatch, tag.RecordType))
		}
		if seen[tag] {
			return nil, l.fail(tag, fmt.Errorf("%w at record byte %d", ErrDuplicateField, pos))
		}
		seen[tag] = true

		if tag.Field == ImageDataField && HasImageData(recordType) {
			data := make([]byte, len(content)-valueStart)
			copy(data, content[valueStart:])
			fields = append(fields, Field{Tag: tag, Binary: true, Data: data})
			break
		}

		end := bytes.IndexAny(content[valueStart:], string([]byte{GS, FS}))
		if end < 0 {
			end = len(content)
		} else {
			end += valueStart
			if content[end] == FS {
				return nil, l.fail(tag, fmt.Errorf("%w: record separator at record byte %d before declared end",
					ErrLengthMismatch, end))
			}
		}
		value := make([]byte, end-valueStart)
		copy(value, content[valueStart:end])
		fields = append(fields, splitText(tag, value))
		pos = end + 1
	}
	return fields, nil
}

func (l *Lexer) readBinary(recordType int) (RawRecord, error) {
	buf := l.buf[l.offset:]
	widths := binaryLayouts[recordType]
	headerLen := 0
	for _, w := range widths {
		headerLen += w
	}
	lenTag := Tag{RecordType: recordType, Field: 1}
	if len(buf) < 4 {
		return RawRecord{}, l.fail(lenTag, ErrTruncatedRecord)
	}
	declared := int(binary.BigEndian.Uint32(buf[0:4]))
	if declared < headerLen {
		return RawRecord{}, l.fail(lenTag, fmt.Errorf("%w: declared %d bytes, fixed header needs %d",
			ErrLengthMismatch, declared, headerLen))
	}
	if declared > len(buf) {
		return RawRecord{}, l.fail(lenTag, fmt.Errorf("%w: declared %d bytes, %d available",
			ErrTruncatedRecord, declared, len(buf)))
	}

	fields := make([]Field, 0, len(widths)+1)
	pos := 0
	for i, w := range widths {
		data := make([]byte, w)
		copy(data, buf[pos:pos+w])
		fields = append(fields, Field{Tag: Tag{RecordType: recordType, Field: i + 1}, Binary: true, Data: data})
		pos += w
	}
	blob := make([]byte, declared-pos)
	copy(blob, buf[pos:declared])
	fields = append(fields, Field{Tag: Tag{RecordType: recordType, Field: len(widths) + 1}, Binary: true, Data: blob})

	return RawRecord{
		Index:  l.index,
		Offset: l.offset,
		Type:   recordType,
		Length: declared,
		Binary: true,
		Fields: fields,
	}, nil
}

// parseTag reads "T.F:" starting at pos and returns the tag and the index of
// the first value byte.
func parseTag(buf []byte, pos int) (Tag, int, error) {
	dot := pos
	for dot < len(buf) && buf[dot] != '.' {
		if !isDigit(buf[dot]) {
			return Tag{}, 0, fmt.Errorf("unexpected byte 0x%02x in record type", buf[dot])
		}
		dot++
	}
	if dot == len(buf) || dot == pos {
		return Tag{}, 0, fmt.Errorf("missing record type")
	}
	colon := dot + 1
	for colon < len(buf) && buf[colon] != ':' {
		if !isDigit(buf[colon]) {
			return Tag{}, 0, fmt.Errorf("unexpected byte 0x%02x in field number", buf[colon])
		}
		colon++
	}
	if colon == len(buf) || colon == dot+1 {
		return Tag{}, 0, fmt.Errorf("missing field number")
	}
	if dot-pos > 3 || colon-dot-1 > 9 {
		return Tag{}, 0, fmt.Errorf("tag %q too long", buf[pos:colon])
	}
	recordType, _ := strconv.Atoi(string(buf[pos:dot]))
	field, _ := strconv.Atoi(string(buf[dot+1 : colon]))
	return Tag{RecordType: recordType, Field: field}, colon + 1, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// contentTypes reads the record types declared by the 1.003 content field.
// A missing content field yields nil; the schema layer reports it.
func contentTypes(rec RawRecord) ([]int, error) {
	cnt, ok := rec.Field(3)
	if !ok {
		return nil, nil
	}
	if len(cnt.Subfields) == 0 {
		return nil, fmt.Errorf("%w: empty content field", ErrMalformedHeader)
	}
	types := make([]int, 0, len(cnt.Subfields))
	types = append(types, TypeTransaction)
	for i, sub := range cnt.Subfields[1:] {
		if len(sub.Items) == 0 {
			return nil, fmt.Errorf("%w: content entry %d is empty", ErrMalformedHeader, i+1)
		}
		t, err := strconv.Atoi(string(sub.Items[0]))
		if err != nil || t <= 0 {
			return nil, fmt.Errorf("%w: content entry %d has record type %q", ErrMalformedHeader, i+1, sub.Items[0])
		}
		types = append(types, t)
	}
	if first := cnt.Subfields[0].Items; len(first) > 1 {
		count, err := strconv.Atoi(string(first[1]))
		if err != nil || count != len(types)-1 {
			return nil, fmt.Errorf("%w: content field counts %q records, lists %d",
				ErrMalformedHeader, first[1], len(types)-1)
		}
	}
	return types, nil
}
