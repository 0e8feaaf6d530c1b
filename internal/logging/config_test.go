package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevelAliases(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":       zerolog.DebugLevel,
		" WARNING ":   zerolog.WarnLevel,
		"diagnostics": zerolog.TraceLevel,
		"off":         zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) = %v, %v; want %v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}

func TestEnvOverridesApply(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "true")
	t.Setenv(EnvLogFormat, "yaml")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || cfg.Timestamp || !cfg.NoColor || cfg.Format != FormatConsole {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv(EnvLogFormat, " JSON ")
	applyEnvOverrides(&cfg)
	if cfg.Format != FormatJSON {
		t.Fatalf("expected json format, got %+v", cfg)
	}
}

func TestCLIProfileIsQuiet(t *testing.T) {
	cfg := defaultConfig(ProfileCLI)
	if cfg.Level != zerolog.WarnLevel || cfg.Timestamp {
		t.Fatalf("unexpected cli config: %+v", cfg)
	}
}

func TestApplyJSONFormat(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	apply(Config{Level: zerolog.InfoLevel, Format: FormatJSON}, &buf)
	log.Info().Str("record", "2.018").Msg("parsed")
	if !strings.Contains(buf.String(), `"record":"2.018"`) {
		t.Fatalf("expected json output, got %q", buf.String())
	}
}
