package protocol

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/danmuck/eftview/internal/testutil/eftbuild"
)

func lexAll(t *testing.T, buf []byte) ([]RawRecord, error) {
	t.Helper()
	lx := NewLexer(buf)
	var out []RawRecord
	for {
		rec, err := lx.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func TestLexerSplitsTaggedRecords(t *testing.T) {
	buf := eftbuild.Applicant(eftbuild.CompleteDemographics(), eftbuild.RawImages(1, 2)...)
	recs, err := lexAll(t, buf)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("expected 4 records, got %d", len(recs))
	}
	wantTypes := []int{1, 2, 14, 14}
	consumed := 0
	for i, rec := range recs {
		if rec.Type != wantTypes[i] {
			t.Fatalf("record %d: type %d, want %d", i, rec.Type, wantTypes[i])
		}
		if rec.Offset != consumed {
			t.Fatalf("record %d: offset %d, want %d", i, rec.Offset, consumed)
		}
		lenField, ok := rec.Field(1)
		if !ok || lenField.First() == "" {
			t.Fatalf("record %d: missing length field", i)
		}
		consumed += rec.Length
	}
	if consumed != len(buf) {
		t.Fatalf("consumed %d bytes of %d", consumed, len(buf))
	}
}

func TestLexerKeepsSubfieldAndItemStructure(t *testing.T) {
	demo := eftbuild.CompleteDemographics()
	demo[41] = eftbuild.Subfields(eftbuild.Items("1 MAIN ST", "SPRINGFIELD"), eftbuild.Items("PO BOX 9"))
	buf := eftbuild.Applicant(demo)
	recs, err := lexAll(t, buf)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	res, ok := recs[1].Field(41)
	if !ok {
		t.Fatalf("missing 2.041")
	}
	if len(res.Subfields) != 2 || len(res.Subfields[0].Items) != 2 {
		t.Fatalf("unexpected structure: %+v", res.Subfields)
	}
	if v, _ := res.Item(0, 1); v != "SPRINGFIELD" {
		t.Fatalf("item (0,1) = %q", v)
	}
	if v, _ := res.Item(1, 0); v != "PO BOX 9" {
		t.Fatalf("item (1,0) = %q", v)
	}
	if _, ok := res.Item(1, 1); ok {
		t.Fatalf("expected no item at (1,1)")
	}
	if res.Tag.String() != "2.041" {
		t.Fatalf("tag = %s", res.Tag)
	}
}

func TestLexerFieldBytesRoundTrip(t *testing.T) {
	demo := eftbuild.CompleteDemographics()
	demo[41] = eftbuild.Subfields(eftbuild.Items("A", "", "C"), "", eftbuild.Items("D"))
	payload := []byte{0xFF, 0xA0, FS, GS, RS, US, 0x00, FS}
	img := eftbuild.Image{Position: 1, Compression: "WSQ20", Width: 4, Height: 2, Data: payload}
	buf := eftbuild.Applicant(demo, img)

	recs, err := lexAll(t, buf)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	res, _ := recs[1].Field(41)
	if !bytes.Equal(res.Bytes(), []byte(demo[41])) {
		t.Fatalf("2.041 round trip: %q != %q", res.Bytes(), demo[41])
	}
	data, ok := recs[2].Field(ImageDataField)
	if !ok || !data.Binary {
		t.Fatalf("missing binary 14.999")
	}
	if !bytes.Equal(data.Bytes(), payload) {
		t.Fatalf("image data round trip mismatch: %x", data.Bytes())
	}
}

func TestLexerBinaryType4Layout(t *testing.T) {
	img := eftbuild.Type4{
		IDC:         1,
		Impression:  1,
		Positions:   eftbuild.Positions(3),
		ScanRes:     0,
		Width:       2,
		Height:      1,
		Compression: 0,
		Data:        []byte{FS, GS},
	}
	buf := eftbuild.New(eftbuild.HeaderFields()...).Grayscale(img).Bytes()
	recs, err := lexAll(t, buf)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	rec := recs[1]
	if !rec.Binary || rec.Type != 4 || rec.Length != 20 {
		t.Fatalf("unexpected record: type=%d binary=%v len=%d", rec.Type, rec.Binary, rec.Length)
	}
	if len(rec.Fields) != 9 {
		t.Fatalf("expected 9 fields, got %d", len(rec.Fields))
	}
	fgp, _ := rec.Field(4)
	if fgp.Data[0] != 3 || fgp.Data[1] != 255 {
		t.Fatalf("unexpected FGP bytes %x", fgp.Data)
	}
	data, _ := rec.Field(9)
	if !bytes.Equal(data.Data, []byte{FS, GS}) {
		t.Fatalf("unexpected image data %x", data.Data)
	}
}

func TestLexerTruncatedRecord(t *testing.T) {
	buf := eftbuild.Applicant(eftbuild.CompleteDemographics(), eftbuild.RawImages(1)...)
	_, err := lexAll(t, buf[:len(buf)-3])
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Fatalf("expected ErrTruncatedRecord, got %v", err)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.RecordIndex != 2 {
		t.Fatalf("expected record index 2, got %d", perr.RecordIndex)
	}
}

func TestLexerLengthCountsFinalSeparator(t *testing.T) {
	buf := eftbuild.Applicant(eftbuild.CompleteDemographics())
	if _, err := lexAll(t, buf); err != nil {
		t.Fatalf("lex: %v", err)
	}
	_, err := lexAll(t, buf[:len(buf)-1])
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Fatalf("expected ErrTruncatedRecord without the final separator, got %v", err)
	}
}

func TestLexerTruncatedType4(t *testing.T) {
	img := eftbuild.Type4{IDC: 1, Positions: eftbuild.Positions(1), Width: 2, Height: 2, Data: []byte{1, 2, 3, 4}}
	buf := eftbuild.New(eftbuild.HeaderFields()...).Grayscale(img).Bytes()
	_, err := lexAll(t, buf[:len(buf)-1])
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Fatalf("expected ErrTruncatedRecord, got %v", err)
	}
}

func TestLexerMissingRecordsDeclaredByContent(t *testing.T) {
	buf := eftbuild.Applicant(eftbuild.CompleteDemographics(), eftbuild.RawImages(1)...)
	recs, err := lexAll(t, buf)
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	cut := recs[2].Offset
	_, err = lexAll(t, buf[:cut])
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Fatalf("expected ErrTruncatedRecord, got %v", err)
	}
}

func TestLexerLengthMismatch(t *testing.T) {
	rec := eftbuild.EncodeTagged(2, eftbuild.Text(2, "00"), eftbuild.Text(18, "DOE,JOHN"))
	// Declare one byte fewer than the record holds.
	short := bytes.Replace(rec, []byte("2.001:"+strconv.Itoa(len(rec))), []byte("2.001:"+strconv.Itoa(len(rec)-1)), 1)
	buf := eftbuild.New(eftbuild.HeaderFields()...).Raw(2, 0, short).Bytes()
	_, err := lexAll(t, buf)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestLexerRejectsDuplicateFieldTags(t *testing.T) {
	cases := map[string]struct {
		rec []byte
		tag Tag
	}{
		"name": {
			rec: eftbuild.EncodeTagged(2, eftbuild.Text(2, "00"),
				eftbuild.Text(18, "DOE,JOHN"), eftbuild.Text(18, "ROE,JANE")),
			tag: Tag{RecordType: 2, Field: 18},
		},
		"length": {
			rec: eftbuild.EncodeTagged(2, eftbuild.Text(1, "999"), eftbuild.Text(2, "00")),
			tag: Tag{RecordType: 2, Field: 1},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			buf := eftbuild.New(eftbuild.HeaderFields()...).Raw(2, 0, tc.rec).Bytes()
			_, err := lexAll(t, buf)
			if !errors.Is(err, ErrDuplicateField) {
				t.Fatalf("expected ErrDuplicateField, got %v", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Tag != tc.tag || pe.RecordIndex != 1 {
				t.Fatalf("unexpected location %+v", pe)
			}
		})
	}
}

func TestLexerEarlySeparatorIsLengthMismatch(t *testing.T) {
	first := eftbuild.EncodeTagged(2, eftbuild.Text(2, "00"))
	second := eftbuild.EncodeTagged(2, eftbuild.Text(2, "01"))
	// Merge two records under the first record's header by overstating its length.
	merged := append([]byte{}, first...)
	merged = append(merged, second...)
	total := len(merged)
	merged = bytes.Replace(merged, []byte("2.001:"+strconv.Itoa(len(first))), []byte("2.001:"+strconv.Itoa(total)), 1)
	buf := eftbuild.New(eftbuild.HeaderFields()...).Raw(2, 0, merged[:total]).Bytes()
	_, err := lexAll(t, buf)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestLexerFirstRecordMustBeTransactionHeader(t *testing.T) {
	buf := eftbuild.EncodeTagged(2, eftbuild.Text(2, "00"))
	_, err := lexAll(t, buf)
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestLexerRecordTypeMismatch(t *testing.T) {
	rec := eftbuild.EncodeTagged(9, eftbuild.Text(2, "00"))
	buf := eftbuild.New(eftbuild.HeaderFields()...).Raw(2, 0, rec).Bytes()
	_, err := lexAll(t, buf)
	if !errors.Is(err, ErrRecordTypeMismatch) {
		t.Fatalf("expected ErrRecordTypeMismatch, got %v", err)
	}
}

func TestLexerTrailingData(t *testing.T) {
	buf := eftbuild.Applicant(eftbuild.CompleteDemographics())
	buf = append(buf, 'x')
	_, err := lexAll(t, buf)
	if !errors.Is(err, ErrTrailingData) {
		t.Fatalf("expected ErrTrailingData, got %v", err)
	}
}

func TestLexerEmptyAndMalformedInput(t *testing.T) {
	if _, err := lexAll(t, nil); !errors.Is(err, ErrEmptyTransaction) {
		t.Fatalf("expected ErrEmptyTransaction, got %v", err)
	}
	if _, err := lexAll(t, []byte("hello world")); !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
	if _, err := lexAll(t, []byte("1.001:abc\x1c")); !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader for non-numeric length, got %v", err)
	}
}

func TestLexerIsSinglePass(t *testing.T) {
	buf := eftbuild.Applicant(eftbuild.CompleteDemographics())
	lx := NewLexer(buf[:10])
	if _, err := lx.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if _, err := lx.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after failure, got %v", err)
	}
}
