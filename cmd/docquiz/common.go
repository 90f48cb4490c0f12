package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/doctree"
	"github.com/dgallion1/docquiz/internal/parser"
)

// loadConfig reads .env and the environment. Provider credentials are only
// checked when validate is set.
func loadConfig(validate bool) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return cfg, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

// cliLogger writes human-readable logs to stderr so stdout stays clean.
func cliLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func readDocument(path string) (doctree.Document, error) {
	format, err := parser.FormatFromFilename(path)
	if err != nil {
		return doctree.Document{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return doctree.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return doctree.Document{Raw: raw, Format: format, Title: doctree.TitleFromFilename(path)}, nil
}
