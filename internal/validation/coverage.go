package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/eftview/internal/record"
)

// PositionOption is one acceptable set of finger positions.
type PositionOption struct {
	Name        string
	Description string
	Positions   []record.FingerPosition
}

func cloneOptions(in []PositionOption) []PositionOption {
	if in == nil {
		return nil
	}
	out := make([]PositionOption, len(in))
	for i, o := range in {
		out[i] = o
		out[i].Positions = append([]record.FingerPosition(nil), o.Positions...)
	}
	return out
}

// CoverageReport describes how the present positions relate to the options.
// Option is the first satisfied option, or the nearest one when none is.
type CoverageReport struct {
	Option    string
	Satisfied bool
	Present   []record.FingerPosition
	Missing   []record.FingerPosition
	Extra     []record.FingerPosition
}

// PresentPositions collects the known positions of images that declare a
// compression type. Decode success is irrelevant.
func PresentPositions(tx *record.Transaction) map[record.FingerPosition]bool {
	present := make(map[record.FingerPosition]bool)
	for _, img := range tx.Images {
		if img.Position.Known() && img.CompressionCode != "" {
			present[img.Position] = true
		}
	}
	return present
}

// Coverage evaluates options in order. The first satisfied option wins;
// otherwise the option with the fewest missing positions is reported, the
// earlier one on ties.
func Coverage(options []PositionOption, tx *record.Transaction) CoverageReport {
	present := PresentPositions(tx)
	report := CoverageReport{Present: sortedPositions(present)}

	best := -1
	var bestMissing []record.FingerPosition
	for i, opt := range options {
		var missing []record.FingerPosition
		for _, p := range opt.Positions {
			if !present[p] {
				missing = append(missing, p)
			}
		}
		if len(missing) == 0 {
			best, bestMissing = i, nil
			report.Satisfied = true
			break
		}
		if best < 0 || len(missing) < len(bestMissing) {
			best, bestMissing = i, missing
		}
	}
	if best >= 0 {
		report.Option = options[best].Name
		report.Missing = bestMissing
	}

	required := make(map[record.FingerPosition]bool)
	for _, opt := range options {
		for _, p := range opt.Positions {
			required[p] = true
		}
	}
	for _, p := range report.Present {
		if !required[p] {
			report.Extra = append(report.Extra, p)
		}
	}
	return report
}

// FingerCoverage passes when any option is fully present.
func FingerCoverage(name string, options []PositionOption) Check {
	options = cloneOptions(options)
	return Check{
		Name: name,
		Evaluate: func(tx *record.Transaction) (bool, string) {
			report := Coverage(options, tx)
			if report.Satisfied {
				return true, ""
			}
			if report.Option == "" {
				return false, "no fingerprint options defined"
			}
			return false, fmt.Sprintf("closest to %s: missing %d fingerprint(s): %s",
				report.Option, len(report.Missing), describePositions(report.Missing))
		},
	}
}

func describePositions(ps []record.FingerPosition) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("%s (%d)", p, int(p))
	}
	return strings.Join(parts, ", ")
}

func sortedPositions(set map[record.FingerPosition]bool) []record.FingerPosition {
	out := make([]record.FingerPosition, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
