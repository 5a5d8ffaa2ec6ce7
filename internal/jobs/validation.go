package jobs

import (
	"log/slog"
	"strings"

	"github.com/sevigo/review-broker/internal/core"
)

// ValidateReviewAgainstDiff keeps only file reviews for files that are part
// of the diff. Issues on lines outside the new side of the diff are kept as
// file-level findings with line 0. The summary is recomputed.
func ValidateReviewAgainstDiff(logger *slog.Logger, review *core.ReviewResult, validLineMaps map[string]map[int]struct{}) *core.ReviewResult {
	if len(validLineMaps) == 0 {
		logger.Warn("Valid files map is empty, skipping review validation")
		review.Normalize()
		return review
	}

	out := &core.ReviewResult{Summary: review.Summary}
	for _, fr := range review.Files {
		cleanPath := strings.TrimPrefix(fr.FilePath, "./")
		lines, exists := validLineMaps[cleanPath]
		if !exists {
			logger.Warn("Dropping review of file not in PR",
				"original", fr.FilePath,
				"normalized", cleanPath,
				"issues", len(fr.Issues),
			)
			continue
		}

		issues := make([]core.Issue, 0, len(fr.Issues))
		for _, issue := range fr.Issues {
			if issue.Line > 0 {
				if _, onDiff := lines[issue.Line]; !onDiff {
					logger.Debug("Moving issue to file-level finding (off-diff line)",
						"file", cleanPath,
						"line", issue.Line,
					)
					issue.Line = 0
				}
			}
			issues = append(issues, issue)
		}
		out.Files = append(out.Files, core.FileReview{FilePath: cleanPath, Issues: issues})
	}

	out.Normalize()
	return out
}
