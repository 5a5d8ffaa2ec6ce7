package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sevigo/review-broker/internal/core"
)

var errNoJSONObject = errors.New("response contains no JSON object")

// parseReview extracts the review object from the model output. It tolerates
// markdown fences and chatter around the object, but the object itself must
// match the review schema exactly.
func parseReview(raw string) (*core.ReviewResult, error) {
	body, err := extractJSONObject(stripCodeFence(raw))
	if err != nil {
		return nil, parseError(err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	var review core.ReviewResult
	if err := dec.Decode(&review); err != nil {
		return nil, parseError(fmt.Errorf("failed to decode review: %w", err))
	}

	for i := range review.Files {
		for j := range review.Files[i].Issues {
			issue := &review.Files[i].Issues[j]
			issue.Type = normalizeIssueType(issue.Type)
		}
	}
	if err := review.Validate(); err != nil {
		return nil, parseError(fmt.Errorf("invalid review: %w", err))
	}

	review.Normalize()
	return &review, nil
}

func parseError(err error) error {
	return &core.AnalysisError{Kind: core.AnalysisParse, Err: err}
}

// normalizeIssueType folds "Best Practice" and similar spellings onto the
// canonical type names.
func normalizeIssueType(t core.IssueType) core.IssueType {
	s := strings.ToLower(strings.TrimSpace(string(t)))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return core.IssueType(s)
}

// stripCodeFence removes a ```json or ``` wrapper that some models add around
// their output.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	idx := strings.Index(trimmed, "\n")
	if idx < 0 {
		return s
	}
	inner := trimmed[idx+1:]
	if lastFence := strings.LastIndex(inner, "```"); lastFence >= 0 {
		inner = inner[:lastFence]
	}
	return strings.TrimSpace(inner)
}

// extractJSONObject returns the outermost {...} span of s.
func extractJSONObject(s string) ([]byte, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, errNoJSONObject
	}
	return []byte(s[start : end+1]), nil
}
