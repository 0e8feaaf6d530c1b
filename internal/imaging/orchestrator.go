package imaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/eftview/internal/record"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
)

// Observer receives one call per attempted decode.
type Observer interface {
	ObserveDecode(compression string, ok bool, duration time.Duration)
}

type Options struct {
	// Decoders keyed by compression. Uncompressed payloads use Uncompressed
	// unless overridden.
	Decoders    map[record.Compression]Decoder
	Timeout     time.Duration
	Concurrency int
	Cache       *Cache
	Observer    Observer
}

// DefaultDecoders wires the external WSQ and JPEG 2000 tools.
func DefaultDecoders(scratchDir string) map[record.Compression]Decoder {
	return map[record.Compression]Decoder{
		record.CompressionNone:     Uncompressed{},
		record.CompressionWSQ:      NewWSQDecoder("", scratchDir),
		record.CompressionJPEG2000: NewJPEG2000Decoder("", scratchDir),
	}
}

// Orchestrator decodes every image of a transaction with bounded parallelism.
type Orchestrator struct {
	decoders    map[record.Compression]Decoder
	timeout     time.Duration
	concurrency int
	cache       *Cache
	observer    Observer
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		decoders:    make(map[record.Compression]Decoder, len(opts.Decoders)+1),
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		cache:       opts.Cache,
		observer:    opts.Observer,
	}
	o.decoders[record.CompressionNone] = Uncompressed{}
	for c, d := range opts.Decoders {
		o.decoders[c] = d
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if o.concurrency <= 0 {
		o.concurrency = DefaultConcurrency
	}
	return o
}

// Decoder returns the decoder registered for c.
func (o *Orchestrator) Decoder(c record.Compression) (Decoder, bool) {
	d, ok := o.decoders[c]
	return d, ok
}

// Report summarizes one Extract call. Failures are ordered like tx.Images.
type Report struct {
	Decoded  int
	Skipped  int
	Failures []*DecodeError
}

type outcome struct {
	raster *record.Raster
	err    error
}

// Extract decodes every image lacking a raster. Results are attached to the
// images after all decodes finish; failures are recorded on the image and in
// the report and are never returned.
func (o *Orchestrator) Extract(ctx context.Context, tx *record.Transaction) Report {
	var report Report
	if tx == nil {
		return report
	}
	results := make([]*outcome, len(tx.Images))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, img := range tx.Images {
		if img.Decoded() {
			report.Skipped++
			continue
		}
		i, img := i, img
		g.Go(func() error {
			r, err := o.decode(ctx, img)
			results[i] = &outcome{raster: r, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range results {
		if res == nil {
			continue
		}
		img := tx.Images[i]
		if res.err != nil {
			de := &DecodeError{
				Compression: img.Compression,
				Position:    img.Position,
				Err:         res.err,
			}
			if img.Record != nil {
				de.RecordSet = img.Record.Set
			}
			img.DecodeErr = de
			report.Failures = append(report.Failures, de)
			log.Warn().Err(de).Msg("imaging.Extract decode failed")
			continue
		}
		img.Raster = res.raster
		img.DecodeErr = nil
		report.Decoded++
	}
	log.Debug().
		Int("decoded", report.Decoded).
		Int("failed", len(report.Failures)).
		Int("skipped", report.Skipped).
		Msg("imaging.Extract complete")
	return report
}

func (o *Orchestrator) decode(ctx context.Context, img *record.FingerprintImage) (*record.Raster, error) {
	dec, ok := o.decoders[img.Compression]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%q)", ErrNoDecoder, img.Compression, img.CompressionCode)
	}
	dims := Dimensions{Width: img.Width, Height: img.Height, Depth: img.Depth}

	var key cacheKey
	if o.cache != nil {
		key = keyFor(img.Compression, dims, img.Payload)
		if r, hit := o.cache.lookup(key); hit {
			return r, nil
		}
	}

	start := time.Now()
	r, err := o.run(ctx, dec, img.Payload, dims)
	if o.observer != nil {
		o.observer.ObserveDecode(img.Compression.String(), err == nil, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	if o.cache != nil {
		o.cache.add(key, r)
	}
	return r, nil
}

// run bounds one decode by the timeout even when the decoder ignores its
// context. The decoder sees a private copy of the payload.
func (o *Orchestrator) run(ctx context.Context, dec Decoder, payload []byte, dims Dimensions) (*record.Raster, error) {
	dctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	input := append([]byte(nil), payload...)
	go func() {
		r, err := dec.Decode(dctx, input, dims)
		done <- outcome{raster: &r, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if dctx.Err() != nil && !errors.Is(res.err, ErrDecodeTimeout) {
				return nil, fmt.Errorf("%w: %w", ErrDecodeTimeout, res.err)
			}
			return nil, res.err
		}
		return res.raster, nil
	case <-dctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrDecodeTimeout, dctx.Err())
	}
}
