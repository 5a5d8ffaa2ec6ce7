// Package llm implements the review analyzer on top of a language model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/goframe/llms"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/gitutil"
)

// Generator produces a completion for a prompt.
type Generator func(ctx context.Context, prompt string) (string, error)

// ModelGenerator adapts a goframe model to a Generator.
func ModelGenerator(model llms.Model) Generator {
	return func(ctx context.Context, prompt string) (string, error) {
		return model.Call(ctx, prompt)
	}
}

// AnalyzerConfig tunes an Analyzer.
type AnalyzerConfig struct {
	Provider ModelProvider
	Timeout  time.Duration
	// MaxDiffBytes caps the annotated diff placed in the prompt. Files that do
	// not fit are listed by name only.
	MaxDiffBytes int
}

type promptFile struct {
	Path     string
	Language string
	Diff     string
}

type promptData struct {
	Files   []promptFile
	Omitted []string
}

// Analyzer implements core.ReviewAnalyzer.
type Analyzer struct {
	generate Generator
	prompts  *PromptManager
	cfg      AnalyzerConfig
	logger   *slog.Logger
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(generate Generator, prompts *PromptManager, cfg AnalyzerConfig, logger *slog.Logger) *Analyzer {
	return &Analyzer{generate: generate, prompts: prompts, cfg: cfg, logger: logger}
}

// Analyze renders the diff into the review prompt, calls the model with a
// hard timeout and parses the answer.
func (a *Analyzer) Analyze(ctx context.Context, files []core.ChangedFile) (*core.ReviewResult, error) {
	data := a.promptData(files)
	if len(data.Files) == 0 {
		return nil, &core.AnalysisError{
			Kind: core.AnalysisTooLarge,
			Err:  fmt.Errorf("no changed file fits the %d byte prompt budget (%d omitted)", a.cfg.MaxDiffBytes, len(data.Omitted)),
		}
	}
	if len(data.Omitted) > 0 {
		a.logger.Warn("diff exceeds prompt budget, omitting files", "omitted", len(data.Omitted), "max_bytes", a.cfg.MaxDiffBytes)
	}

	prompt, err := a.prompts.Render(CodeReviewPrompt, a.cfg.Provider, data)
	if err != nil {
		return nil, &core.AnalysisError{Kind: core.AnalysisModel, Err: fmt.Errorf("failed to render prompt: %w", err)}
	}

	start := time.Now()
	raw, err := a.generateWithTimeout(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &core.AnalysisError{Kind: core.AnalysisTimeout, Err: err}
		}
		return nil, &core.AnalysisError{Kind: core.AnalysisModel, Err: err}
	}
	a.logger.Info("model answered", "files", len(data.Files), "prompt_bytes", len(prompt), "duration", time.Since(start))

	review, err := parseReview(raw)
	if err != nil {
		a.logger.Warn("model returned an unusable review", "error", err, "response_bytes", len(raw))
		return nil, err
	}
	return review, nil
}

func (a *Analyzer) promptData(files []core.ChangedFile) promptData {
	var data promptData
	used := 0
	for _, f := range files {
		diff := gitutil.AnnotatePatch(f.Patch)
		if a.cfg.MaxDiffBytes > 0 && used+len(diff) > a.cfg.MaxDiffBytes {
			data.Omitted = append(data.Omitted, f.Path)
			continue
		}
		used += len(diff)
		data.Files = append(data.Files, promptFile{Path: f.Path, Language: languageFor(f.Path), Diff: diff})
	}
	return data
}

// generateWithTimeout wraps generation with a hard timeout so that a model
// ignoring cancellation cannot hold the worker.
func (a *Analyzer) generateWithTimeout(ctx context.Context, prompt string) (string, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	type result struct {
		resp string
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := a.generate(ctx, prompt)
		resultCh <- result{resp, err}
	}()

	select {
	case res := <-resultCh:
		return res.resp, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
