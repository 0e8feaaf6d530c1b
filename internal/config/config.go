package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/eftview/internal/record"
	"github.com/danmuck/eftview/internal/validation"
	"github.com/pelletier/go-toml/v2"
)

// LoadProfileDefinition reads a completeness profile from a TOML file.
func LoadProfileDefinition(path string) (validation.ProfileDefinition, error) {
	var def validation.ProfileDefinition
	if err := loadToml(path, &def); err != nil {
		return validation.ProfileDefinition{}, err
	}
	def.Name = strings.TrimSpace(def.Name)
	if err := ValidateProfileDefinition(def); err != nil {
		return validation.ProfileDefinition{}, fmt.Errorf("profile %s invalid: %w", path, err)
	}
	return def, nil
}

// LoadProfile reads and builds a profile. An empty path yields the built-in
// FAUF profile.
func LoadProfile(path string) (validation.Profile, error) {
	if strings.TrimSpace(path) == "" {
		return validation.FAUF(), nil
	}
	def, err := LoadProfileDefinition(path)
	if err != nil {
		return validation.Profile{}, err
	}
	return def.Build()
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateProfileDefinition(def validation.ProfileDefinition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("profile missing name")
	}
	if len(def.FingerprintOptions) == 0 && len(def.RequiredDemographics) == 0 {
		return fmt.Errorf("profile %q defines no checks", def.Name)
	}
	seen := make(map[string]bool)
	for i, opt := range def.FingerprintOptions {
		if err := ValidateOption(opt); err != nil {
			return fmt.Errorf("fingerprint_options[%d] invalid: %w", i, err)
		}
		if seen[opt.Name] {
			return fmt.Errorf("fingerprint_options[%d] duplicates %q", i, opt.Name)
		}
		seen[opt.Name] = true
	}
	for i, key := range def.RequiredDemographics {
		if _, ok := record.DemographicFields[key]; !ok {
			return fmt.Errorf("required_demographics[%d] unknown key %q", i, key)
		}
	}
	return nil
}

func ValidateOption(opt validation.OptionDefinition) error {
	if strings.TrimSpace(opt.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(opt.Positions) == 0 {
		return fmt.Errorf("positions are required")
	}
	for _, code := range opt.Positions {
		if _, ok := record.PositionFromCode(code); !ok {
			return fmt.Errorf("position %d out of range 1-15", code)
		}
	}
	return nil
}
