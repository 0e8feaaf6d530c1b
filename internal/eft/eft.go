// Package eft is the consumer-facing entry point: parse a transaction, decode
// its images, certify it and project its demographics.
package eft

import (
	"context"
	"sync"

	"github.com/danmuck/eftview/internal/imaging"
	"github.com/danmuck/eftview/internal/observability"
	"github.com/danmuck/eftview/internal/parser"
	"github.com/danmuck/eftview/internal/record"
	"github.com/danmuck/eftview/internal/validation"
	"github.com/rs/zerolog/log"
)

var (
	defaultOnce         sync.Once
	defaultOrchestrator *imaging.Orchestrator
)

func orchestrator() *imaging.Orchestrator {
	defaultOnce.Do(func() {
		defaultOrchestrator = imaging.New(imaging.Options{Decoders: imaging.DefaultDecoders("")})
	})
	return defaultOrchestrator
}

// Parse reads a transaction. No partial transaction is returned on error.
func Parse(raw []byte) (*record.Transaction, error) {
	return parser.Parse(raw)
}

// ExtractImages decodes every image in place with the default decoders and
// returns tx. Per-image failures are left on the images.
func ExtractImages(ctx context.Context, tx *record.Transaction) *record.Transaction {
	orchestrator().Extract(ctx, tx)
	return tx
}

// Validate certifies tx against the built-in FAUF profile.
func Validate(tx *record.Transaction) validation.Result {
	return validation.Validate(validation.FAUF(), tx)
}

func Demographics(tx *record.Transaction) record.Demographics {
	return tx.Demographics()
}

// Service bundles an orchestrator and a profile for repeated inspections.
type Service struct {
	orchestrator *imaging.Orchestrator
	profile      validation.Profile
}

// NewService builds a service. A nil orchestrator uses the default decoders.
func NewService(o *imaging.Orchestrator, p validation.Profile) *Service {
	if o == nil {
		o = orchestrator()
	}
	return &Service{orchestrator: o, profile: p}
}

func (s *Service) Profile() validation.Profile {
	return s.profile
}

func (s *Service) Orchestrator() *imaging.Orchestrator {
	return s.orchestrator
}

// Inspection is the outcome of one pipeline run.
type Inspection struct {
	Transaction  *record.Transaction
	Extraction   imaging.Report
	Validation   validation.Result
	Demographics record.Demographics
}

// Inspect runs parse, optional extraction and validation. Only parse errors
// are returned.
func (s *Service) Inspect(ctx context.Context, raw []byte, decode bool) (Inspection, error) {
	tx, err := parser.Parse(raw)
	observability.RecordParse(err == nil)
	if err != nil {
		return Inspection{}, err
	}

	var in Inspection
	in.Transaction = tx
	if decode {
		in.Extraction = s.orchestrator.Extract(ctx, tx)
	}
	in.Validation = validation.Validate(s.profile, tx)
	in.Demographics = tx.Demographics()
	observability.RecordValidation(in.Validation.Profile, string(in.Validation.Verdict))

	log.Info().
		Int("records", len(tx.Records)).
		Int("images", len(tx.Images)).
		Int("decoded", in.Extraction.Decoded).
		Int("decode_failures", len(in.Extraction.Failures)).
		Str("profile", in.Validation.Profile).
		Str("verdict", string(in.Validation.Verdict)).
		Msg("eft.Inspect")
	return in, nil
}
