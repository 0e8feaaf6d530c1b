// Package validation certifies a parsed transaction against a completeness
// profile.
//
// A Profile is an immutable rule set passed to Validate. Validate is pure: it
// reads the transaction, never mutates it and performs no I/O.
package validation

import (
	"github.com/danmuck/eftview/internal/record"
)

type Verdict string

const (
	VerdictValid      Verdict = "VALID"
	VerdictIncomplete Verdict = "INCOMPLETE"
)

// Check is one named rule. Evaluate must not modify the transaction.
type Check struct {
	Name     string
	Evaluate func(tx *record.Transaction) (ok bool, reason string)
}

// Failure is one violated check.
type Failure struct {
	Check  string `json:"check"`
	Reason string `json:"reason"`
}

// Profile is a named, ordered rule set. Its zero value has no checks and
// validates everything.
type Profile struct {
	name        string
	description string
	checks      []Check
	options     []PositionOption
}

// NewProfile copies its inputs, so later changes by the caller do not leak in.
// options feed the coverage report and may be nil.
func NewProfile(name, description string, options []PositionOption, checks ...Check) Profile {
	return Profile{
		name:        name,
		description: description,
		checks:      append([]Check(nil), checks...),
		options:     cloneOptions(options),
	}
}

func (p Profile) Name() string        { return p.name }
func (p Profile) Description() string { return p.description }

// Checks returns the rules in evaluation order.
func (p Profile) Checks() []Check {
	return append([]Check(nil), p.checks...)
}

// Options returns the finger position options reported on.
func (p Profile) Options() []PositionOption {
	return cloneOptions(p.options)
}

type Result struct {
	Profile      string
	Verdict      Verdict
	FailedChecks []Failure
	Coverage     CoverageReport
}

// Valid reports whether every check passed.
func (r Result) Valid() bool {
	return r.Verdict == VerdictValid
}

// Validate evaluates every check of p in order. It never short-circuits, so
// the result lists every deficiency.
func Validate(p Profile, tx *record.Transaction) Result {
	res := Result{Profile: p.name, Verdict: VerdictValid}
	if tx == nil {
		tx = &record.Transaction{}
	}
	for _, c := range p.checks {
		if ok, reason := c.Evaluate(tx); !ok {
			res.FailedChecks = append(res.FailedChecks, Failure{Check: c.Name, Reason: reason})
		}
	}
	if len(res.FailedChecks) > 0 {
		res.Verdict = VerdictIncomplete
	}
	if len(p.options) > 0 {
		res.Coverage = Coverage(p.options, tx)
	}
	return res
}
