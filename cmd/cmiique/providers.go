package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/cmiique/internal/app"
	"github.com/MrWong99/cmiique/internal/config"
	"github.com/MrWong99/cmiique/internal/observe"
	"github.com/MrWong99/cmiique/internal/resilience"
	"github.com/MrWong99/cmiique/pkg/provider/llm"
	"github.com/MrWong99/cmiique/pkg/provider/llm/anyllm"
	"github.com/MrWong99/cmiique/pkg/provider/llm/openai"
)

// registerBuiltinProviders wires all built-in LLM factories into reg. Each
// factory receives a config.ProviderEntry and constructs the provider from
// the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// openai uses the official SDK, which supports JSON mode.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// The remaining backends go through any-llm-go and share the same
	// pattern: optional APIKey + optional BaseURL. Ollama and the llama.cpp
	// servers are local and usually only need BaseURL.
	for _, providerName := range anyllm.Backends() {
		if providerName == "openai" {
			continue
		}
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	for _, name := range reg.LLMNames() {
		slog.Debug("registered provider", "kind", "llm", "name", name)
	}
}

// buildProviders instantiates the configured LLM and its fallbacks. They are
// wrapped in a [resilience.LLMFallback] so each gets a circuit breaker whose
// transitions and failures are recorded in m.
func buildProviders(cfg *config.Config, reg *config.Registry, m *observe.Metrics) (*app.Providers, error) {
	ps := &app.Providers{}

	primary := cfg.Providers.LLM
	if primary.Name == "" {
		return ps, nil
	}
	p, err := reg.CreateLLM(primary)
	if err != nil {
		if errors.Is(err, config.ErrProviderNotRegistered) {
			return nil, fmt.Errorf("llm provider %q is not supported; known: %v", primary.Name, reg.LLMNames())
		}
		return nil, fmt.Errorf("create llm provider %q: %w", primary.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", primary.Name, "model", primary.Model)

	fb := resilience.NewLLMFallback(p, primary.Name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("llm circuit breaker state changed", "provider", name, "from", from, "to", to)
				m.RecordCircuitTransition(context.Background(), name, to.String())
			},
		},
		OnError: func(name string, err error) {
			slog.Warn("llm provider failed", "provider", name, "err", err)
			m.RecordProviderError(context.Background(), name)
		},
	})

	for i, entry := range cfg.Providers.LLMFallbacks {
		fp, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm fallback %d (%q): %w", i, entry.Name, err)
		}
		fb.AddFallback(fallbackName(entry), fp)
		slog.Info("provider created", "kind", "llm-fallback", "name", entry.Name, "model", entry.Model)
	}

	ps.LLM = fb
	return ps, nil
}

// fallbackName labels a fallback entry for breakers and metrics. Entries
// sharing a backend name are told apart by model.
func fallbackName(e config.ProviderEntry) string {
	return e.Name + "/" + e.Model
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optDuration parses a duration string such as "30s" from provider Options.
// Invalid or missing values yield 0.
func optDuration(opts map[string]any, key string) time.Duration {
	d, err := time.ParseDuration(optString(opts, key))
	if err != nil {
		return 0
	}
	return d
}
