package record

import (
	"errors"
	"testing"

	"github.com/danmuck/eftview/internal/protocol"
)

func TestPositionsAreDistinctSortedAndKnown(t *testing.T) {
	tx := &Transaction{Images: []*FingerprintImage{
		{Position: 14}, {Position: 2}, {Position: 14}, {Position: PositionUnknown, PositionCode: 42},
	}}
	got := tx.Positions()
	if len(got) != 2 || got[0] != 2 || got[1] != 14 {
		t.Fatalf("unexpected positions %v", got)
	}
	if !tx.PositionSet()[14] || tx.PositionSet()[0] {
		t.Fatalf("unexpected position set %v", tx.PositionSet())
	}
}

func TestPositionFromCode(t *testing.T) {
	if p, ok := PositionFromCode(15); !ok || p != PlainThumbs || p.String() != "Plain Thumbs (Both)" {
		t.Fatalf("unexpected position %v %v", p, ok)
	}
	for _, code := range []int{0, 16, -1, 99} {
		if _, ok := PositionFromCode(code); ok {
			t.Fatalf("expected code %d to be rejected", code)
		}
	}
}

func TestCompressionMappings(t *testing.T) {
	if c, ok := CompressionFromLabel("WSQ20"); !ok || c != CompressionWSQ {
		t.Fatalf("WSQ20 -> %v", c)
	}
	if c, ok := CompressionFromLabel("JP2L"); !ok || c != CompressionJPEG2000 {
		t.Fatalf("JP2L -> %v", c)
	}
	if _, ok := CompressionFromLabel("JPEGB"); ok {
		t.Fatalf("expected JPEGB to be unknown")
	}
	if c, ok := CompressionFromCode(1); !ok || c != CompressionWSQ {
		t.Fatalf("code 1 -> %v", c)
	}
	if _, ok := CompressionFromCode(2); ok {
		t.Fatalf("expected code 2 to be unknown")
	}
}

func TestRecordAccessorsAndWarnings(t *testing.T) {
	raw := protocol.RawRecord{Type: 2, Fields: []protocol.Field{{
		Tag: protocol.Tag{RecordType: 2, Field: 41},
		Subfields: []protocol.Subfield{
			{Items: [][]byte{[]byte("1 MAIN ST"), []byte("SPRINGFIELD")}},
		},
	}}}
	r := New(raw, 1, KindDescriptive)
	if v, ok := r.Item(41, 0, 1); !ok || v != "SPRINGFIELD" {
		t.Fatalf("item = %q %v", v, ok)
	}
	if r.Text(18) != "" {
		t.Fatalf("expected empty text for absent field")
	}
	w := r.Warn(41, ErrUnknownFingerPosition)
	if !errors.Is(w, ErrUnknownFingerPosition) || w.Tag.String() != "2.041" {
		t.Fatalf("unexpected warning %v", w)
	}
}

func TestDemographicLabels(t *testing.T) {
	d := Demographics{Sex: "F", Race: "W", Height: "510", Weight: "180", EyeColor: "HAZ", HairColor: "ZZZ"}
	if d.SexLabel() != "Female" || d.RaceLabel() != "White" || d.EyeLabel() != "Hazel" {
		t.Fatalf("unexpected labels %q %q %q", d.SexLabel(), d.RaceLabel(), d.EyeLabel())
	}
	if d.HairLabel() != "ZZZ" {
		t.Fatalf("unknown codes pass through, got %q", d.HairLabel())
	}
	if d.HeightLabel() != `5'10"` || d.WeightLabel() != "180 lbs" {
		t.Fatalf("unexpected height/weight %q %q", d.HeightLabel(), d.WeightLabel())
	}
	if FormatDate("19800115") != "1980-01-15" || FormatDate("1980") != "1980" {
		t.Fatalf("unexpected date formatting")
	}
}

func TestRasterGray(t *testing.T) {
	r := Raster{Width: 2, Height: 2, Depth: 8, Pixels: []byte{0, 1, 2, 3}}
	img, err := r.Gray()
	if err != nil {
		t.Fatalf("gray: %v", err)
	}
	if img.GrayAt(1, 1).Y != 3 {
		t.Fatalf("unexpected pixel %v", img.GrayAt(1, 1))
	}
	if _, err := (Raster{Width: 2, Height: 2, Depth: 1, Pixels: []byte{0, 0}}).Gray(); err == nil {
		t.Fatalf("expected 1-bit raster to be rejected")
	}
}
