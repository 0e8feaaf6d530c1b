package eft

import (
	"context"
	"errors"
	"testing"

	"github.com/danmuck/eftview/internal/imaging"
	"github.com/danmuck/eftview/internal/protocol"
	"github.com/danmuck/eftview/internal/testutil/eftbuild"
	"github.com/danmuck/eftview/internal/testutil/testlog"
	"github.com/danmuck/eftview/internal/validation"
)

func TestFacadePipeline(t *testing.T) {
	testlog.Start(t)
	raw := eftbuild.Applicant(eftbuild.CompleteDemographics(), eftbuild.RawImages(13, 14, 15)...)

	tx, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := ExtractImages(context.Background(), tx); got != tx {
		t.Fatalf("extract must enrich the same transaction")
	}
	for _, img := range tx.Images {
		if !img.Decoded() {
			t.Fatalf("expected raw image at %v to decode: %v", img.Position, img.DecodeErr)
		}
	}
	if res := Validate(tx); res.Verdict != validation.VerdictValid {
		t.Fatalf("expected VALID, got %+v", res)
	}
	if d := Demographics(tx); d.HairColor != "BLK" {
		t.Fatalf("unexpected demographics %+v", d)
	}
}

func TestServiceInspect(t *testing.T) {
	testlog.Start(t)
	svc := NewService(imaging.New(imaging.Options{}), validation.FAUF())
	raw := eftbuild.Applicant(eftbuild.CompleteDemographics().Without(31), eftbuild.RawImages(eftbuild.Range(1, 10)...)...)

	in, err := svc.Inspect(context.Background(), raw, true)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if in.Extraction.Decoded != 10 {
		t.Fatalf("expected 10 decoded images, got %+v", in.Extraction)
	}
	if in.Validation.Verdict != validation.VerdictIncomplete || len(in.Validation.FailedChecks) != 1 {
		t.Fatalf("expected one failure, got %+v", in.Validation)
	}
	if in.Demographics.EyeColor != "" {
		t.Fatalf("expected eye color absent")
	}

	if _, err := svc.Inspect(context.Background(), raw[:10], false); !errors.Is(err, protocol.ErrTruncatedRecord) {
		t.Fatalf("expected truncated record, got %v", err)
	}
}

func TestServiceInspectWithoutDecode(t *testing.T) {
	testlog.Start(t)
	svc := NewService(nil, validation.FAUF())
	in, err := svc.Inspect(context.Background(), eftbuild.Applicant(eftbuild.CompleteDemographics(), eftbuild.RawImages(1)...), false)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if in.Transaction.Images[0].Decoded() || in.Extraction.Decoded != 0 {
		t.Fatalf("images must stay undecoded")
	}
}
