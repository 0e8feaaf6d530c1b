package record

import (
	"fmt"
	"image"
)

// FingerPosition is the ANSI/NIST finger position code. 0 means unknown.
type FingerPosition int

const (
	PositionUnknown FingerPosition = 0
	RightThumb      FingerPosition = 1
	LeftLittle      FingerPosition = 10
	PlainRightThumb FingerPosition = 11
	PlainLeftThumb  FingerPosition = 12
	PlainRightFour  FingerPosition = 13
	PlainLeftFour   FingerPosition = 14
	PlainThumbs     FingerPosition = 15
)

var positionNames = map[FingerPosition]string{
	0:  "Unknown",
	1:  "Right Thumb",
	2:  "Right Index",
	3:  "Right Middle",
	4:  "Right Ring",
	5:  "Right Little",
	6:  "Left Thumb",
	7:  "Left Index",
	8:  "Left Middle",
	9:  "Left Ring",
	10: "Left Little",
	11: "Plain Right Thumb",
	12: "Plain Left Thumb",
	13: "Plain Right Four",
	14: "Plain Left Four",
	15: "Plain Thumbs (Both)",
}

// PositionFromCode validates a raw position code.
func PositionFromCode(code int) (FingerPosition, bool) {
	if code < 1 || code > 15 {
		return PositionUnknown, false
	}
	return FingerPosition(code), true
}

func (p FingerPosition) Known() bool {
	return p >= 1 && p <= 15
}

func (p FingerPosition) String() string {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Position %d", int(p))
}

type Compression int

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionWSQ
	CompressionJPEG2000
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionWSQ:
		return "wsq"
	case CompressionJPEG2000:
		return "jpeg2000"
	default:
		return "unknown"
	}
}

// CompressionFromLabel maps a Type-14 compression algorithm label.
func CompressionFromLabel(label string) (Compression, bool) {
	switch label {
	case "NONE":
		return CompressionNone, true
	case "WSQ", "WSQ20":
		return CompressionWSQ, true
	case "JP2", "JP2L":
		return CompressionJPEG2000, true
	default:
		return CompressionUnknown, false
	}
}

// CompressionFromCode maps a Type-4 binary compression code.
func CompressionFromCode(code int) (Compression, bool) {
	switch code {
	case 0:
		return CompressionNone, true
	case 1:
		return CompressionWSQ, true
	case 4, 5:
		return CompressionJPEG2000, true
	default:
		return CompressionUnknown, false
	}
}

// Raster is a decoded, uncompressed pixel buffer. Rows are packed, most
// significant bit first for depths below 8.
type Raster struct {
	Width  int
	Height int
	Depth  int
	Pixels []byte
}

// RowBytes is the packed size of one row.
func (r Raster) RowBytes() int {
	return (r.Width*r.Depth + 7) / 8
}

// Gray wraps an 8-bit raster as an image without copying.
func (r Raster) Gray() (*image.Gray, error) {
	if r.Depth != 8 {
		return nil, fmt.Errorf("record: gray view needs 8-bit raster, have %d-bit", r.Depth)
	}
	if len(r.Pixels) != r.Width*r.Height {
		return nil, fmt.Errorf("record: raster holds %d bytes, want %d", len(r.Pixels), r.Width*r.Height)
	}
	return &image.Gray{
		Pix:    r.Pixels,
		Stride: r.Width,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}, nil
}

// FingerprintImage is derived from an image-bearing record. Payload never
// changes after parsing; Raster and DecodeErr are set once by extraction.
type FingerprintImage struct {
	Record          *Record
	Position        FingerPosition
	PositionCode    int
	Compression     Compression
	CompressionCode string
	Width           int
	Height          int
	Depth           int
	Payload         []byte
	Raster          *Raster
	DecodeErr       error
}

// Decoded reports whether a raster is attached.
func (img *FingerprintImage) Decoded() bool {
	return img.Raster != nil
}
