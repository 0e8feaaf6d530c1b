package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/eftview/internal/record"
)

// FingerCoverageCheck names the coverage check of built profiles.
const FingerCoverageCheck = "finger_coverage"

var ErrInvalidProfile = errors.New("validation: invalid profile")

// OptionDefinition is the data form of a PositionOption.
type OptionDefinition struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Positions   []int  `toml:"positions"`
}

// ProfileDefinition is the data form of a profile, as loaded from TOML.
type ProfileDefinition struct {
	Name                 string             `toml:"name"`
	Description          string             `toml:"description"`
	FingerprintOptions   []OptionDefinition `toml:"fingerprint_options"`
	RequiredDemographics []string           `toml:"required_demographics"`
}

// Build checks the definition and turns it into a Profile: one coverage
// check when options are defined, then one presence check per demographic.
func (d ProfileDefinition) Build() (Profile, error) {
	if strings.TrimSpace(d.Name) == "" {
		return Profile{}, fmt.Errorf("%w: missing name", ErrInvalidProfile)
	}
	options := make([]PositionOption, 0, len(d.FingerprintOptions))
	for i, od := range d.FingerprintOptions {
		if strings.TrimSpace(od.Name) == "" {
			return Profile{}, fmt.Errorf("%w: fingerprint option %d missing name", ErrInvalidProfile, i)
		}
		if len(od.Positions) == 0 {
			return Profile{}, fmt.Errorf("%w: fingerprint option %q has no positions", ErrInvalidProfile, od.Name)
		}
		opt := PositionOption{Name: od.Name, Description: od.Description}
		for _, code := range od.Positions {
			p, ok := record.PositionFromCode(code)
			if !ok {
				return Profile{}, fmt.Errorf("%w: fingerprint option %q has position %d", ErrInvalidProfile, od.Name, code)
			}
			opt.Positions = append(opt.Positions, p)
		}
		options = append(options, opt)
	}

	var checks []Check
	if len(options) > 0 {
		checks = append(checks, FingerCoverage(FingerCoverageCheck, options))
	}
	var probe record.Demographics
	for _, key := range d.RequiredDemographics {
		if _, ok := probe.Value(key); !ok {
			return Profile{}, fmt.Errorf("%w: unknown demographic %q", ErrInvalidProfile, key)
		}
		checks = append(checks, DemographicPresence(key))
	}
	if len(options) == 0 {
		options = nil
	}
	return NewProfile(d.Name, d.Description, options, checks...), nil
}

// FAUFDefinition is the built-in Applicant Fingerprint profile as data.
func FAUFDefinition() ProfileDefinition {
	return ProfileDefinition{
		Name:        "FAUF",
		Description: "FBI Applicant Fingerprint (ATF eForm)",
		FingerprintOptions: []OptionDefinition{
			{
				Name:        "Complete FD-258 (Rolled + Slaps)",
				Description: "All 10 rolled prints plus 3 flat impressions",
				Positions:   []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 13, 14, 15},
			},
			{
				Name:        "Rolled Prints Only",
				Description: "All 10 individual rolled fingerprints",
				Positions:   []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			},
			{
				Name:        "Flat/Slap Impressions Only",
				Description: "Plain impressions (4-finger slaps + thumbs)",
				Positions:   []int{13, 14, 15},
			},
		},
		RequiredDemographics: []string{
			record.DemoName, record.DemoDOB, record.DemoSex, record.DemoRace,
			record.DemoHeight, record.DemoWeight, record.DemoEyes, record.DemoHair,
		},
	}
}

// FAUF returns the built-in Applicant Fingerprint profile.
func FAUF() Profile {
	p, err := FAUFDefinition().Build()
	if err != nil {
		panic(err)
	}
	return p
}
