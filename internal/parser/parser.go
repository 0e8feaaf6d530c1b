// Package parser turns a lexed ANSI/NIST-ITL byte stream into a typed
// record.Transaction.
//
// Record types dispatch through a table of builders. Adding a record type is
// one entry in that table plus, optionally, a schema in protocol/schema.
package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/eftview/internal/protocol"
	"github.com/danmuck/eftview/internal/protocol/schema"
	"github.com/danmuck/eftview/internal/record"
	"github.com/rs/zerolog/log"
)

// unusedPosition fills empty slots of the binary finger position table.
const unusedPosition = 255

// builder turns one validated raw record into a typed record. It may attach a
// fingerprint image to the transaction under construction.
type builder func(b *build, raw protocol.RawRecord, set int) (*record.Record, error)

var builders = map[int]builder{
	protocol.TypeTransaction: buildHeader,
	protocol.TypeDescriptive: buildDescriptive,
	protocol.TypeGrayscale:   buildGrayscale,
	protocol.TypeVariable:    buildVariable,
}

type build struct {
	tx   *record.Transaction
	sets map[int]int
}

// Parse reads a complete transaction. Structural and schema failures are
// fatal and return no transaction; recoverable problems become warnings on
// the affected record and on the transaction.
func Parse(raw []byte) (*record.Transaction, error) {
	log.Debug().Int("bytes", len(raw)).Msg("parser.Parse")
	b := &build{
		tx:   &record.Transaction{},
		sets: make(map[int]int),
	}
	lx := protocol.NewLexer(raw)
	for {
		rec, err := lx.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error().Err(err).Msg("parser.Parse lex failed")
			return nil, err
		}
		if err := b.add(rec); err != nil {
			log.Error().Err(err).Int("record_index", rec.Index).Int("offset", rec.Offset).Msg("parser.Parse record rejected")
			return nil, err
		}
	}
	log.Debug().
		Int("records", len(b.tx.Records)).
		Int("images", len(b.tx.Images)).
		Int("warnings", len(b.tx.Warnings)).
		Msg("parser.Parse complete")
	return b.tx, nil
}

func (b *build) add(raw protocol.RawRecord) error {
	if raw.Type == protocol.TypeTransaction && len(b.tx.Records) > 0 {
		return fail(raw, protocol.Tag{}, fmt.Errorf("%w: second type-1 record", protocol.ErrMalformedHeader))
	}
	if err := schema.Validate(raw); err != nil {
		var ve schema.ValidationError
		tag := protocol.Tag{}
		if errors.As(err, &ve) {
			tag = protocol.Tag{RecordType: ve.RecordType, Field: ve.Field}
		}
		return fail(raw, tag, err)
	}

	b.sets[raw.Type]++
	set := b.sets[raw.Type]

	fn, known := builders[raw.Type]
	if !known {
		fn = buildGeneric
	}
	rec, err := fn(b, raw, set)
	if err != nil {
		return err
	}
	b.tx.Records = append(b.tx.Records, rec)
	b.tx.Warnings = append(b.tx.Warnings, rec.Warnings...)
	for _, w := range rec.Warnings {
		log.Warn().Err(w).Msg("parser.Parse warning")
	}
	return nil
}

func fail(raw protocol.RawRecord, tag protocol.Tag, err error) error {
	return &protocol.ParseError{Offset: raw.Offset, RecordIndex: raw.Index, Tag: tag, Err: err}
}

func buildGeneric(_ *build, raw protocol.RawRecord, set int) (*record.Record, error) {
	rec := record.New(raw, set, record.KindGeneric)
	rec.Warn(0, fmt.Errorf("%w: %d", record.ErrUnknownRecordType, raw.Type))
	return rec, nil
}

func buildHeader(_ *build, raw protocol.RawRecord, set int) (*record.Record, error) {
	return record.New(raw, set, record.KindHeader), nil
}

func buildDescriptive(_ *build, raw protocol.RawRecord, set int) (*record.Record, error) {
	return record.New(raw, set, record.KindDescriptive), nil
}

// buildGrayscale handles the binary Type-4 layout. The first used slot of
// the six-byte position table is the image's position.
func buildGrayscale(b *build, raw protocol.RawRecord, set int) (*record.Record, error) {
	rec := record.New(raw, set, record.KindGrayscaleImage)
	img := &record.FingerprintImage{Record: rec, Depth: 8}

	fgp, _ := rec.Field(4)
	img.PositionCode = unusedPosition
	for _, code := range fgp.Data {
		if code != unusedPosition {
			img.PositionCode = int(code)
			break
		}
	}
	setPosition(rec, img, 4)

	gca, _ := rec.Field(8)
	code, err := schema.ParseInt(gca)
	if err != nil {
		return nil, fail(raw, gca.Tag, fmt.Errorf("%w: %v", schema.ErrInvalidFieldValue, err))
	}
	img.CompressionCode = fmt.Sprintf("%d", code)
	if c, ok := record.CompressionFromCode(code); ok {
		img.Compression = c
	} else {
		rec.Warn(8, fmt.Errorf("%w: code %d", record.ErrUnknownCompressionType, code))
	}

	if img.Width, err = intField(raw, rec, 6); err != nil {
		return nil, err
	}
	if img.Height, err = intField(raw, rec, 7); err != nil {
		return nil, err
	}
	data, _ := rec.Field(9)
	img.Payload = data.Data
	b.tx.Images = append(b.tx.Images, img)
	return rec, nil
}

// buildVariable handles tagged Type-14 records.
func buildVariable(b *build, raw protocol.RawRecord, set int) (*record.Record, error) {
	rec := record.New(raw, set, record.KindVariableImage)
	img := &record.FingerprintImage{Record: rec, Depth: 8}

	var err error
	if img.PositionCode, err = intField(raw, rec, 13); err != nil {
		return nil, err
	}
	setPosition(rec, img, 13)

	img.CompressionCode = strings.TrimSpace(rec.Text(11))
	if c, ok := record.CompressionFromLabel(strings.ToUpper(img.CompressionCode)); ok {
		img.Compression = c
	} else {
		rec.Warn(11, fmt.Errorf("%w: %q", record.ErrUnknownCompressionType, img.CompressionCode))
	}

	if img.Width, err = intField(raw, rec, 6); err != nil {
		return nil, err
	}
	if img.Height, err = intField(raw, rec, 7); err != nil {
		return nil, err
	}
	if f, ok := rec.Field(12); ok {
		depth, err := schema.ParseInt(f)
		if err != nil || depth <= 0 {
			rec.Warn(12, fmt.Errorf("%w: bits per pixel %q", schema.ErrInvalidFieldValue, f.Text()))
		} else {
			img.Depth = depth
		}
	}
	data, _ := rec.Field(protocol.ImageDataField)
	img.Payload = data.Data
	b.tx.Images = append(b.tx.Images, img)
	return rec, nil
}

func setPosition(rec *record.Record, img *record.FingerprintImage, number int) {
	if p, ok := record.PositionFromCode(img.PositionCode); ok {
		img.Position = p
		return
	}
	img.Position = record.PositionUnknown
	rec.Warn(number, fmt.Errorf("%w: code %d", record.ErrUnknownFingerPosition, img.PositionCode))
}

func intField(raw protocol.RawRecord, rec *record.Record, number int) (int, error) {
	f, ok := rec.Field(number)
	if !ok {
		return 0, fail(raw, protocol.Tag{RecordType: raw.Type, Field: number}, schema.ErrMissingRequiredField)
	}
	n, err := schema.ParseInt(f)
	if err != nil {
		return 0, fail(raw, f.Tag, fmt.Errorf("%w: %v", schema.ErrInvalidFieldValue, err))
	}
	return n, nil
}
