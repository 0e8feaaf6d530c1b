package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/eftview/internal/imaging"
	"github.com/danmuck/eftview/internal/observability"
	"github.com/danmuck/eftview/internal/record"
	"github.com/danmuck/eftview/internal/server"
)

type serviceConfig struct {
	Addr              string
	CorsOrigins       []string
	MaxUploadBytes    int64
	DecodeTimeout     time.Duration
	DecodeConcurrency int
	CacheEntries      uint
	ScratchDir        string
	ProfilePath       string
	WSQCommand        string
	JPEG2000Command   string
	APIToken          string
	TLSCertFile       string
	TLSKeyFile        string
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		Addr:              ":8000",
		CorsOrigins:       []string{"http://localhost:5173"},
		MaxUploadBytes:    server.DefaultMaxUploadBytes,
		DecodeTimeout:     imaging.DefaultTimeout,
		DecodeConcurrency: imaging.DefaultConcurrency,
		CacheEntries:      256,
		WSQCommand:        "dwsq",
		JPEG2000Command:   "opj_decompress",
	}
}

type fileConfig struct {
	Addr              string        `toml:"addr"`
	CorsOrigins       []string      `toml:"cors_origins"`
	MaxUploadMB       int64         `toml:"max_upload_mb"`
	DecodeTimeout     string        `toml:"decode_timeout"`
	DecodeConcurrency int           `toml:"decode_concurrency"`
	CacheEntries      int           `toml:"cache_entries"`
	ScratchDir        string        `toml:"scratch_dir"`
	Profile           string        `toml:"profile"`
	APIToken          string        `toml:"api_token"`
	TLSCert           string        `toml:"tls_cert"`
	TLSKey            string        `toml:"tls_key"`
	Decoders          decoderConfig `toml:"decoders"`
}

type decoderConfig struct {
	WSQ      string `toml:"wsq"`
	JPEG2000 string `toml:"jpeg2000"`
}

func loadServiceConfig(path string) (serviceConfig, error) {
	cfg := defaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serviceConfig{}, fmt.Errorf("load eftview config: %w", err)
	}

	if meta.IsDefined("addr") {
		if addr := strings.TrimSpace(raw.Addr); addr != "" {
			cfg.Addr = addr
		}
	}

	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}

	if meta.IsDefined("max_upload_mb") {
		if raw.MaxUploadMB <= 0 {
			return serviceConfig{}, fmt.Errorf("max_upload_mb must be positive, got %d", raw.MaxUploadMB)
		}
		cfg.MaxUploadBytes = raw.MaxUploadMB << 20
	}

	if meta.IsDefined("decode_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DecodeTimeout))
		if err != nil {
			return serviceConfig{}, fmt.Errorf("parse decode_timeout: %w", err)
		}
		if d <= 0 {
			return serviceConfig{}, fmt.Errorf("decode_timeout must be positive, got %s", d)
		}
		cfg.DecodeTimeout = d
	}

	if meta.IsDefined("decode_concurrency") {
		if raw.DecodeConcurrency <= 0 {
			return serviceConfig{}, fmt.Errorf("decode_concurrency must be positive, got %d", raw.DecodeConcurrency)
		}
		cfg.DecodeConcurrency = raw.DecodeConcurrency
	}

	if meta.IsDefined("cache_entries") {
		if raw.CacheEntries < 0 {
			return serviceConfig{}, fmt.Errorf("cache_entries must not be negative, got %d", raw.CacheEntries)
		}
		cfg.CacheEntries = uint(raw.CacheEntries)
	}

	if meta.IsDefined("scratch_dir") {
		cfg.ScratchDir = strings.TrimSpace(raw.ScratchDir)
	}

	if meta.IsDefined("profile") {
		cfg.ProfilePath = strings.TrimSpace(raw.Profile)
	}

	if meta.IsDefined("api_token") {
		cfg.APIToken = strings.TrimSpace(raw.APIToken)
	}

	if meta.IsDefined("tls_cert") || meta.IsDefined("tls_key") {
		cfg.TLSCertFile = strings.TrimSpace(raw.TLSCert)
		cfg.TLSKeyFile = strings.TrimSpace(raw.TLSKey)
		if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
			return serviceConfig{}, fmt.Errorf("tls_cert and tls_key must be set together")
		}
	}

	if meta.IsDefined("decoders", "wsq") {
		if cmd := strings.TrimSpace(raw.Decoders.WSQ); cmd != "" {
			cfg.WSQCommand = cmd
		}
	}

	if meta.IsDefined("decoders", "jpeg2000") {
		if cmd := strings.TrimSpace(raw.Decoders.JPEG2000); cmd != "" {
			cfg.JPEG2000Command = cmd
		}
	}

	return cfg, nil
}

func (c serviceConfig) orchestrator() *imaging.Orchestrator {
	opts := imaging.Options{
		Decoders: map[record.Compression]imaging.Decoder{
			record.CompressionWSQ:      imaging.NewWSQDecoder(c.WSQCommand, c.ScratchDir),
			record.CompressionJPEG2000: imaging.NewJPEG2000Decoder(c.JPEG2000Command, c.ScratchDir),
		},
		Timeout:     c.DecodeTimeout,
		Concurrency: c.DecodeConcurrency,
		Observer:    observability.DecodeMetrics{},
	}
	if c.CacheEntries > 0 {
		opts.Cache = imaging.NewCache(c.CacheEntries)
	}
	return imaging.New(opts)
}

func (c serviceConfig) server() server.Config {
	return server.Config{
		Addr:           c.Addr,
		CorsOrigins:    c.CorsOrigins,
		MaxUploadBytes: c.MaxUploadBytes,
		APIToken:       c.APIToken,
		TLSCertFile:    c.TLSCertFile,
		TLSKeyFile:     c.TLSKeyFile,
	}
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
