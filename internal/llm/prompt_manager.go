package llm

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.yaml
var promptFiles embed.FS

type ModelProvider string
type PromptKey string

const (
	DefaultProvider  ModelProvider = "default"
	CodeReviewPrompt PromptKey     = "code_review"
)

// promptDefinition is the on-disk form of a prompt: one key with a template
// per provider.
type promptDefinition struct {
	Key         PromptKey                `yaml:"key"`
	Description string                   `yaml:"description"`
	Variants    map[ModelProvider]string `yaml:"variants"`
}

type PromptManager struct {
	prompts map[PromptKey]map[ModelProvider]*template.Template
}

func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		prompts: make(map[PromptKey]map[ModelProvider]*template.Template),
	}

	files, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := promptFiles.ReadFile(path.Join("prompts", file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded prompt file %s: %w", file.Name(), err)
		}
		if err := pm.load(content); err != nil {
			return nil, fmt.Errorf("failed to register prompt from file %s: %w", file.Name(), err)
		}
	}

	return pm, nil
}

func (pm *PromptManager) load(content []byte) error {
	var def promptDefinition
	if err := yaml.Unmarshal(content, &def); err != nil {
		return fmt.Errorf("could not decode prompt definition: %w", err)
	}
	if def.Key == "" {
		return fmt.Errorf("prompt definition has no key")
	}
	if len(def.Variants) == 0 {
		return fmt.Errorf("prompt %s has no variants", def.Key)
	}
	for provider, body := range def.Variants {
		if err := pm.register(def.Key, provider, body); err != nil {
			return fmt.Errorf("variant %s: %w", provider, err)
		}
	}
	return nil
}

func (pm *PromptManager) register(key PromptKey, provider ModelProvider, content string) error {
	tmpl, err := template.New(string(key) + "_" + string(provider)).Option("missingkey=error").Parse(content)
	if err != nil {
		return fmt.Errorf("could not parse template: %w", err)
	}

	if _, ok := pm.prompts[key]; !ok {
		pm.prompts[key] = make(map[ModelProvider]*template.Template)
	}

	pm.prompts[key][provider] = tmpl
	return nil
}

func (pm *PromptManager) Get(key PromptKey, provider ModelProvider) (*template.Template, error) {
	taskPrompts, ok := pm.prompts[key]
	if !ok {
		return nil, fmt.Errorf("no prompts found for key '%s'", key)
	}

	if tmpl, ok := taskPrompts[provider]; ok {
		return tmpl, nil
	}
	if tmpl, ok := taskPrompts[DefaultProvider]; ok {
		return tmpl, nil
	}

	return nil, fmt.Errorf("no template found for key '%s' and provider '%s', and no default was available", key, provider)
}

func (pm *PromptManager) Render(key PromptKey, provider ModelProvider, data any) (string, error) {
	tmpl, err := pm.Get(key, provider)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	return buf.String(), nil
}
