package mcpserver_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/cmiique/internal/corpus/corpustest"
	"github.com/MrWong99/cmiique/internal/mcpserver"
	"github.com/MrWong99/cmiique/internal/observe"
	"github.com/MrWong99/cmiique/internal/translate"
)

func connect(t *testing.T) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	tr, err := translate.New(corpustest.Index(), translate.WithMetrics(m))
	if err != nil {
		t.Fatalf("translate.New: %v", err)
	}

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ss, err := mcpserver.New(tr, "test").Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server Connect: %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect: %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

// call invokes a tool and decodes its text content into out.
func call(t *testing.T, cs *mcpsdk.ClientSession, name string, args map[string]any, out any) *mcpsdk.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError || out == nil {
		return res
	}
	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	if err := json.Unmarshal([]byte(sb.String()), out); err != nil {
		t.Fatalf("decode %s result %q: %v", name, sb.String(), err)
	}
	return res
}

func TestTools_Listed(t *testing.T) {
	t.Parallel()
	cs := connect(t)

	names := map[string]bool{}
	for tool, err := range cs.Tools(context.Background(), nil) {
		if err != nil {
			t.Fatalf("Tools: %v", err)
		}
		names[tool.Name] = true
	}
	for _, want := range []string{"translate", "suggest", "detect_sense"} {
		if !names[want] {
			t.Errorf("tool %q not listed", want)
		}
	}
}

func TestTranslateTool(t *testing.T) {
	t.Parallel()
	cs := connect(t)

	var res translate.Result
	call(t, cs, "translate", map[string]any{"text": "Gracias", "from": "es", "to": "seri"}, &res)
	if res.Text != "Tahejöc" || res.Source != translate.SourceCorpus {
		t.Errorf("got %q from %q", res.Text, res.Source)
	}

	r := call(t, cs, "translate", map[string]any{"text": "Gracias", "from": "es", "to": "es"}, nil)
	if !r.IsError {
		t.Error("same-language request should be a tool error")
	}
	r = call(t, cs, "translate", map[string]any{"text": "Gracias", "from": "es", "to": "seri", "tier": "bogus"}, nil)
	if !r.IsError {
		t.Error("unknown tier should be a tool error")
	}
}

func TestSuggestTool(t *testing.T) {
	t.Parallel()
	cs := connect(t)

	var out mcpserver.SuggestOutput
	call(t, cs, "suggest", map[string]any{"text": "Hola", "from": "es", "to": "en", "min_score": 0.1, "limit": 2}, &out)
	if len(out.Suggestions) != 2 || out.Suggestions[0].TargetText != "Hello" {
		t.Errorf("suggestions = %+v", out.Suggestions)
	}

	out = mcpserver.SuggestOutput{}
	call(t, cs, "suggest", map[string]any{"text": "zzz", "from": "es", "to": "en"}, &out)
	if out.Suggestions == nil || len(out.Suggestions) != 0 {
		t.Errorf("suggestions = %#v, want empty", out.Suggestions)
	}
}

func TestDetectSenseTool(t *testing.T) {
	t.Parallel()
	cs := connect(t)

	var out mcpserver.DetectSenseOutput
	call(t, cs, "detect_sense", map[string]any{"word": "Hant", "context": "the village is over there", "target": "en"}, &out)
	if !out.Known || out.Sense != "location" || out.Translation != "Place" {
		t.Errorf("got %+v", out)
	}

	out = mcpserver.DetectSenseOutput{}
	call(t, cs, "detect_sense", map[string]any{"word": "Xepe", "target": "es"}, &out)
	if out.Known || out.Sense != "" {
		t.Errorf("unknown word: got %+v", out)
	}

	if r := call(t, cs, "detect_sense", map[string]any{"word": "Hant", "target": "fr"}, nil); !r.IsError {
		t.Error("unsupported target should be a tool error")
	}
}
