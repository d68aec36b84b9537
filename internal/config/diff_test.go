package config_test

import (
	"testing"

	"github.com/MrWong99/cmiique/internal/config"
	"github.com/MrWong99/cmiique/internal/policy"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Corpus:   config.CorpusConfig{Path: "corpus.yaml"},
		Matching: config.MatchingConfig{MinScore: 0.6, Limit: 5, Tier: policy.Balanced},
		Providers: config.ProvidersConfig{
			LLM: config.ProviderEntry{Name: "openai", Model: "gpt-4o-mini"},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	d := config.Diff(baseConfig(), baseConfig())
	if !d.Empty() {
		t.Errorf("expected empty diff, got %+v", d)
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		check  func(config.ConfigDiff) bool
	}{
		{"log level", func(c *config.Config) { c.Server.LogLevel = config.LogDebug },
			func(d config.ConfigDiff) bool { return d.LogLevelChanged && d.NewLogLevel == config.LogDebug && !d.RestartRequired }},
		{"corpus path", func(c *config.Config) { c.Corpus.Path = "other.yaml" },
			func(d config.ConfigDiff) bool { return d.CorpusChanged && !d.MatchingChanged }},
		{"polysemy path", func(c *config.Config) { c.Polysemy.Path = "words.yaml" },
			func(d config.ConfigDiff) bool { return d.PolysemyChanged && !d.CorpusChanged }},
		{"tier", func(c *config.Config) { c.Matching.Tier = policy.Critical },
			func(d config.ConfigDiff) bool { return d.MatchingChanged && !d.RestartRequired }},
		{"listen addr", func(c *config.Config) { c.Server.ListenAddr = ":9090" },
			func(d config.ConfigDiff) bool { return d.RestartRequired }},
		{"provider model", func(c *config.Config) { c.Providers.LLM.Model = "gpt-4o" },
			func(d config.ConfigDiff) bool { return d.RestartRequired && !d.MatchingChanged }},
		{"allowed origins", func(c *config.Config) { c.Server.AllowedOrigins = []string{"*.example.org"} },
			func(d config.ConfigDiff) bool { return d.RestartRequired }},
		{"provider options", func(c *config.Config) { c.Providers.LLM.Options = map[string]any{"org": "x"} },
			func(d config.ConfigDiff) bool { return d.RestartRequired }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			next := baseConfig()
			tc.mutate(next)
			if d := config.Diff(baseConfig(), next); !tc.check(d) {
				t.Errorf("unexpected diff %+v", d)
			}
		})
	}
}

func TestKeepRestartFields(t *testing.T) {
	t.Parallel()

	running := baseConfig()
	next := baseConfig()
	next.Server.ListenAddr = ":9090"
	next.Server.AllowedOrigins = []string{"app.example.org"}
	next.Providers.LLM.Model = "gpt-4o"
	next.Matching.Tier = policy.Strict

	if d := config.Diff(running, next); !d.RestartRequired {
		t.Fatalf("diff before = %+v, want RestartRequired", d)
	}
	config.KeepRestartFields(next, running)

	if next.Server.ListenAddr != ":8080" || next.Providers.LLM.Model != "gpt-4o-mini" || next.Server.AllowedOrigins != nil {
		t.Errorf("restart fields not kept: %+v", next)
	}
	if next.Matching.Tier != policy.Strict {
		t.Error("hot-reloadable field was overwritten")
	}
	if d := config.Diff(running, next); d.RestartRequired || !d.MatchingChanged {
		t.Errorf("diff after = %+v", d)
	}
}
