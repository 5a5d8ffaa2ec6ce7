package llm

import (
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptManager_RendersEmbeddedPrompts(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	data := promptData{
		Files:   []promptFile{{Path: "main.go", Language: "Go", Diff: "    1 +package main\n"}},
		Omitted: []string{"big.sql"},
	}

	for _, provider := range []ModelProvider{DefaultProvider, "gemini", "ollama"} {
		t.Run(string(provider), func(t *testing.T) {
			out, err := pm.Render(CodeReviewPrompt, provider, data)
			require.NoError(t, err)
			assert.Contains(t, out, "### File: main.go (Go)")
			assert.Contains(t, out, "    1 +package main")
			assert.Contains(t, out, "- big.sql")
			assert.True(t, strings.Contains(out, "best_practice"))
		})
	}
}

func TestPromptManager_Load(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid", "key: greet\nvariants:\n  default: \"hello {{.Name}}\"\n", false},
		{"missing key", "variants:\n  default: hi\n", true},
		{"no variants", "key: greet\n", true},
		{"bad template", "key: greet\nvariants:\n  default: \"{{.Name\"\n", true},
		{"bad yaml", "key: [unterminated", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := &PromptManager{prompts: make(map[PromptKey]map[ModelProvider]*template.Template)}
			err := pm.load([]byte(tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			out, err := pm.Render("greet", "anything", map[string]string{"Name": "reviewer"})
			require.NoError(t, err)
			assert.Equal(t, "hello reviewer", out)
		})
	}
}

func TestPromptManager_UnknownKey(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	_, err = pm.Render("missing", DefaultProvider, nil)
	assert.Error(t, err)
}
