package core

import "fmt"

// IssueType is the category of a single review finding.
type IssueType string

const (
	IssueStyle        IssueType = "style"
	IssueBug          IssueType = "bug"
	IssuePerformance  IssueType = "performance"
	IssueBestPractice IssueType = "best_practice"
	IssueSecurity     IssueType = "security"
	IssueOther        IssueType = "other"
)

// Valid reports whether t is one of the accepted categories.
func (t IssueType) Valid() bool {
	switch t {
	case IssueStyle, IssueBug, IssuePerformance, IssueBestPractice, IssueSecurity, IssueOther:
		return true
	default:
		return false
	}
}

// Critical reports whether issues of this type count towards critical_issues.
func (t IssueType) Critical() bool {
	return t == IssueBug || t == IssueSecurity
}

// Issue is a single finding on a specific line.
type Issue struct {
	Type        IssueType `json:"type"`
	Line        int       `json:"line"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion"`
}

// FileReview groups the findings for one file.
type FileReview struct {
	FilePath string  `json:"file_path"`
	Issues   []Issue `json:"issues"`
}

// Summary is the high-level outcome of a review.
type Summary struct {
	TotalFilesReviewed int    `json:"total_files_reviewed"`
	TotalIssuesFound   int    `json:"total_issues_found"`
	CriticalIssues     int    `json:"critical_issues"`
	Overview           string `json:"overview"`
}

// ReviewResult is the structured payload produced by the analyzer.
type ReviewResult struct {
	Files   []FileReview `json:"files"`
	Summary Summary      `json:"summary"`
}

// Validate checks the payload against the review schema.
func (r *ReviewResult) Validate() error {
	if r == nil {
		return fmt.Errorf("review is empty")
	}
	for i, f := range r.Files {
		if f.FilePath == "" {
			return fmt.Errorf("files[%d]: file_path is required", i)
		}
		for j, issue := range f.Issues {
			if !issue.Type.Valid() {
				return fmt.Errorf("files[%d].issues[%d]: unknown type %q", i, j, issue.Type)
			}
			if issue.Line < 0 {
				return fmt.Errorf("files[%d].issues[%d]: line must not be negative, got %d", i, j, issue.Line)
			}
			if issue.Description == "" {
				return fmt.Errorf("files[%d].issues[%d]: description is required", i, j)
			}
		}
	}
	return nil
}

// Normalize recomputes the summary counters from the file list so that the
// totals always agree with the findings, and replaces nil slices with empty
// ones so the payload serializes as lists.
func (r *ReviewResult) Normalize() {
	if r.Files == nil {
		r.Files = []FileReview{}
	}
	total, critical := 0, 0
	for i := range r.Files {
		if r.Files[i].Issues == nil {
			r.Files[i].Issues = []Issue{}
		}
		for _, issue := range r.Files[i].Issues {
			total++
			if issue.Type.Critical() {
				critical++
			}
		}
	}
	r.Summary.TotalFilesReviewed = len(r.Files)
	r.Summary.TotalIssuesFound = total
	r.Summary.CriticalIssues = critical
}
