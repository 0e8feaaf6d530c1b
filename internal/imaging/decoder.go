// Package imaging turns the compressed payloads of a parsed transaction into
// rasters.
//
// Decoding is delegated to Decoder implementations keyed by compression. Each
// image is decoded independently; one failure never affects the others or the
// parsed transaction.
package imaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/eftview/internal/record"
)

var (
	ErrNoDecoder          = errors.New("imaging: no decoder for compression")
	ErrDecoderUnavailable = errors.New("imaging: decoder unavailable")
	ErrDecoderFailed      = errors.New("imaging: decoder failed")
	ErrDecodeTimeout      = errors.New("imaging: decode timed out")
	ErrCorruptPayload     = errors.New("imaging: corrupt payload")
)

// Dimensions are the geometry declared by the image record.
type Dimensions struct {
	Width  int
	Height int
	Depth  int
}

// Decoder turns one payload into a raster. Implementations must not retain or
// modify payload and should return promptly once ctx is done.
type Decoder interface {
	Decode(ctx context.Context, payload []byte, dims Dimensions) (record.Raster, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, payload []byte, dims Dimensions) (record.Raster, error)

func (f DecoderFunc) Decode(ctx context.Context, payload []byte, dims Dimensions) (record.Raster, error) {
	return f(ctx, payload, dims)
}

// DecodeError records why one image could not be decoded.
type DecodeError struct {
	Compression record.Compression
	Position    record.FingerPosition
	RecordSet   int
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s image #%d (%s): %v", e.Compression, e.RecordSet, e.Position, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Uncompressed reinterprets raw payloads using the declared geometry. Rows are
// packed for depths below 8 bits.
type Uncompressed struct{}

func (Uncompressed) Decode(_ context.Context, payload []byte, dims Dimensions) (record.Raster, error) {
	if dims.Width <= 0 || dims.Height <= 0 || dims.Depth <= 0 {
		return record.Raster{}, fmt.Errorf("%w: invalid geometry %dx%dx%d",
			ErrCorruptPayload, dims.Width, dims.Height, dims.Depth)
	}
	r := record.Raster{Width: dims.Width, Height: dims.Height, Depth: dims.Depth}
	want := r.RowBytes() * dims.Height
	if len(payload) != want {
		return record.Raster{}, fmt.Errorf("%w: %d bytes for %dx%d at %d bits, want %d",
			ErrCorruptPayload, len(payload), dims.Width, dims.Height, dims.Depth, want)
	}
	r.Pixels = append([]byte(nil), payload...)
	return r, nil
}
