package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.LogFormat != "" && !cfg.Server.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: text, json", cfg.Server.LogFormat))
	}

	// Corpus
	sources := 0
	for _, src := range []string{cfg.Corpus.Path, cfg.Corpus.PostgresDSN, cfg.Corpus.SQLitePath} {
		if src != "" {
			sources++
		}
	}
	switch {
	case sources == 0:
		errs = append(errs, errors.New("corpus: one of path, postgres_dsn or sqlite_path is required"))
	case sources > 1:
		errs = append(errs, errors.New("corpus: path, postgres_dsn and sqlite_path are mutually exclusive"))
	}
	if cfg.Corpus.ImportPath != "" && cfg.Corpus.PostgresDSN == "" && cfg.Corpus.SQLitePath == "" {
		errs = append(errs, errors.New("corpus.import_path requires corpus.postgres_dsn or corpus.sqlite_path"))
	}

	// Matching
	if cfg.Matching.MinScore < 0 || cfg.Matching.MinScore > 1 {
		errs = append(errs, fmt.Errorf("matching.min_score %.2f is out of range [0, 1]", cfg.Matching.MinScore))
	}
	if cfg.Matching.Limit < 0 {
		errs = append(errs, fmt.Errorf("matching.limit %d must not be negative", cfg.Matching.Limit))
	}
	if cfg.Matching.Tier != "" && !cfg.Matching.Tier.IsValid() {
		errs = append(errs, fmt.Errorf("matching.tier %q is invalid; valid values: permissive, relaxed, balanced, strict, critical", cfg.Matching.Tier))
	}

	// Providers
	if cfg.Providers.LLM.Name == "" {
		if len(cfg.Providers.LLMFallbacks) > 0 {
			errs = append(errs, errors.New("providers.llm_fallbacks requires providers.llm"))
		} else {
			slog.Warn("providers.llm is not configured; generative fallback is disabled")
		}
	} else {
		errs = append(errs, validateProviderEntry("providers.llm", cfg.Providers.LLM)...)
	}
	for i, fb := range cfg.Providers.LLMFallbacks {
		prefix := fmt.Sprintf("providers.llm_fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		errs = append(errs, validateProviderEntry(prefix, fb)...)
	}

	return errors.Join(errs...)
}

func validateProviderEntry(prefix string, e ProviderEntry) []error {
	var errs []error
	if strings.TrimSpace(e.Model) == "" {
		errs = append(errs, fmt.Errorf("%s.model is required", prefix))
	}
	validateProviderName("llm", e.Name)
	return errs
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
