package imaging

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/eftview/internal/parser"
	"github.com/danmuck/eftview/internal/record"
	"github.com/danmuck/eftview/internal/testutil/eftbuild"
	"github.com/danmuck/eftview/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, images ...eftbuild.Image) *record.Transaction {
	t.Helper()
	tx, err := parser.Parse(eftbuild.Applicant(eftbuild.CompleteDemographics(), images...))
	require.NoError(t, err)
	return tx
}

func wsqImage(position int, data []byte) eftbuild.Image {
	return eftbuild.Image{Position: position, Compression: "WSQ20", Width: 2, Height: 2, Data: data}
}

// fill returns a decoder that produces a raster of one repeated byte.
func fill(value byte) DecoderFunc {
	return func(_ context.Context, _ []byte, dims Dimensions) (record.Raster, error) {
		return record.Raster{
			Width:  dims.Width,
			Height: dims.Height,
			Depth:  8,
			Pixels: bytes.Repeat([]byte{value}, dims.Width*dims.Height),
		}, nil
	}
}

func TestExtractUncompressed(t *testing.T) {
	testlog.Start(t)
	tx := parse(t, eftbuild.RawImages(1, 2, 3)...)

	report := New(Options{}).Extract(context.Background(), tx)
	require.Equal(t, 3, report.Decoded)
	require.Empty(t, report.Failures)
	for _, img := range tx.Images {
		require.True(t, img.Decoded())
		require.NoError(t, img.DecodeErr)
		require.Equal(t, img.Payload, img.Raster.Pixels)
		gray, err := img.Raster.Gray()
		require.NoError(t, err)
		require.Equal(t, uint8(0xFF), gray.GrayAt(1, 1).Y)
	}
}

func TestExtractUncompressedSizeMismatch(t *testing.T) {
	testlog.Start(t)
	img := eftbuild.Image{Position: 1, Compression: "NONE", Width: 3, Height: 3, Data: []byte{1, 2}}
	tx := parse(t, img)

	report := New(Options{}).Extract(context.Background(), tx)
	require.Len(t, report.Failures, 1)
	require.ErrorIs(t, tx.Images[0].DecodeErr, ErrCorruptPayload)
	require.Nil(t, tx.Images[0].Raster)
}

func TestExtractFailureIsIsolated(t *testing.T) {
	testlog.Start(t)
	tx := parse(t,
		wsqImage(1, []byte("good")),
		wsqImage(2, []byte("bad")),
		wsqImage(3, []byte("good")),
	)
	dec := DecoderFunc(func(ctx context.Context, payload []byte, dims Dimensions) (record.Raster, error) {
		if string(payload) == "bad" {
			return record.Raster{}, ErrDecoderFailed
		}
		return fill(7)(ctx, payload, dims)
	})

	report := New(Options{Decoders: map[record.Compression]Decoder{record.CompressionWSQ: dec}}).
		Extract(context.Background(), tx)
	require.Equal(t, 2, report.Decoded)
	require.Len(t, report.Failures, 1)

	failure := report.Failures[0]
	require.Equal(t, record.FingerPosition(2), failure.Position)
	require.Equal(t, record.CompressionWSQ, failure.Compression)
	require.ErrorIs(t, failure, ErrDecoderFailed)

	require.True(t, tx.Images[0].Decoded())
	require.False(t, tx.Images[1].Decoded())
	require.ErrorIs(t, tx.Images[1].DecodeErr, ErrDecoderFailed)
	require.True(t, tx.Images[2].Decoded())
	require.Len(t, tx.Records, 5)
}

func TestExtractIsIdempotent(t *testing.T) {
	testlog.Start(t)
	tx := parse(t, wsqImage(1, []byte("a")), wsqImage(2, []byte("b")))
	var calls atomic.Int32
	dec := DecoderFunc(func(ctx context.Context, payload []byte, dims Dimensions) (record.Raster, error) {
		calls.Add(1)
		return fill(1)(ctx, payload, dims)
	})
	o := New(Options{Decoders: map[record.Compression]Decoder{record.CompressionWSQ: dec}})

	first := o.Extract(context.Background(), tx)
	rasters := []*record.Raster{tx.Images[0].Raster, tx.Images[1].Raster}
	second := o.Extract(context.Background(), tx)

	require.Equal(t, 2, first.Decoded)
	require.Equal(t, 0, second.Decoded)
	require.Equal(t, 2, second.Skipped)
	require.Equal(t, int32(2), calls.Load())
	require.Same(t, rasters[0], tx.Images[0].Raster)
	require.Same(t, rasters[1], tx.Images[1].Raster)
}

func TestExtractRetriesFailedImages(t *testing.T) {
	testlog.Start(t)
	tx := parse(t, wsqImage(1, []byte("a")))
	var fail atomic.Bool
	fail.Store(true)
	dec := DecoderFunc(func(ctx context.Context, payload []byte, dims Dimensions) (record.Raster, error) {
		if fail.Load() {
			return record.Raster{}, ErrDecoderUnavailable
		}
		return fill(2)(ctx, payload, dims)
	})
	o := New(Options{Decoders: map[record.Compression]Decoder{record.CompressionWSQ: dec}})

	o.Extract(context.Background(), tx)
	require.ErrorIs(t, tx.Images[0].DecodeErr, ErrDecoderUnavailable)

	fail.Store(false)
	report := o.Extract(context.Background(), tx)
	require.Equal(t, 1, report.Decoded)
	require.NoError(t, tx.Images[0].DecodeErr)
	require.True(t, tx.Images[0].Decoded())
}

func TestExtractTimeout(t *testing.T) {
	testlog.Start(t)
	tx := parse(t, wsqImage(1, []byte("slow")), eftbuild.RawImages(2)[0])
	release := make(chan struct{})
	defer close(release)
	stubborn := DecoderFunc(func(context.Context, []byte, Dimensions) (record.Raster, error) {
		<-release
		return record.Raster{}, nil
	})
	o := New(Options{
		Decoders: map[record.Compression]Decoder{record.CompressionWSQ: stubborn},
		Timeout:  20 * time.Millisecond,
	})

	start := time.Now()
	report := o.Extract(context.Background(), tx)
	require.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, report.Failures, 1)
	require.ErrorIs(t, tx.Images[0].DecodeErr, ErrDecodeTimeout)
	require.True(t, tx.Images[1].Decoded())
}

func TestExtractPayloadIsNotModified(t *testing.T) {
	testlog.Start(t)
	tx := parse(t, wsqImage(1, []byte{1, 2, 3, 4}))
	vandal := DecoderFunc(func(ctx context.Context, payload []byte, dims Dimensions) (record.Raster, error) {
		for i := range payload {
			payload[i] = 0
		}
		return fill(0)(ctx, payload, dims)
	})
	New(Options{Decoders: map[record.Compression]Decoder{record.CompressionWSQ: vandal}}).
		Extract(context.Background(), tx)
	require.Equal(t, []byte{1, 2, 3, 4}, tx.Images[0].Payload)
}

func TestExtractUnknownCompressionHasNoDecoder(t *testing.T) {
	testlog.Start(t)
	tx := parse(t, eftbuild.Image{Position: 1, Compression: "JPEGB", Width: 1, Height: 1, Data: []byte{0}})
	report := New(Options{}).Extract(context.Background(), tx)
	require.Len(t, report.Failures, 1)
	require.ErrorIs(t, tx.Images[0].DecodeErr, ErrNoDecoder)

	var de *DecodeError
	require.True(t, errors.As(tx.Images[0].DecodeErr, &de))
	require.Equal(t, 1, de.RecordSet)
}

func TestExtractCacheReturnsIdenticalRaster(t *testing.T) {
	testlog.Start(t)
	tx := parse(t, wsqImage(1, []byte("same")), wsqImage(2, []byte("same")), wsqImage(3, []byte("other")))
	var calls atomic.Int32
	dec := DecoderFunc(func(ctx context.Context, payload []byte, dims Dimensions) (record.Raster, error) {
		calls.Add(1)
		return fill(byte(len(payload)))(ctx, payload, dims)
	})
	o := New(Options{
		Decoders:    map[record.Compression]Decoder{record.CompressionWSQ: dec},
		Concurrency: 1,
		Cache:       NewCache(8),
	})

	report := o.Extract(context.Background(), tx)
	require.Equal(t, 3, report.Decoded)
	require.Equal(t, int32(2), calls.Load())
	require.Same(t, tx.Images[0].Raster, tx.Images[1].Raster)
	require.NotSame(t, tx.Images[0].Raster, tx.Images[2].Raster)
}

type countingObserver struct {
	ok, failed atomic.Int32
}

func (c *countingObserver) ObserveDecode(_ string, ok bool, _ time.Duration) {
	if ok {
		c.ok.Add(1)
		return
	}
	c.failed.Add(1)
}

func TestExtractReportsToObserver(t *testing.T) {
	testlog.Start(t)
	tx := parse(t, eftbuild.RawImages(1)[0], eftbuild.Image{Position: 2, Compression: "NONE", Width: 9, Height: 9})
	obs := &countingObserver{}
	New(Options{Observer: obs}).Extract(context.Background(), tx)
	require.Equal(t, int32(1), obs.ok.Load())
	require.Equal(t, int32(1), obs.failed.Load())
}

func TestExtractImageWithoutRecord(t *testing.T) {
	testlog.Start(t)
	tx := &record.Transaction{Images: []*record.FingerprintImage{
		{Position: 1, Compression: record.CompressionNone, Width: 3, Height: 3, Depth: 8, Payload: []byte{1}},
	}}

	report := New(Options{}).Extract(context.Background(), tx)
	require.Len(t, report.Failures, 1)
	require.ErrorIs(t, report.Failures[0], ErrCorruptPayload)
	require.Zero(t, report.Failures[0].RecordSet)
	require.Same(t, report.Failures[0], tx.Images[0].DecodeErr)
}
