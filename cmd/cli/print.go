package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/results"
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	infoColor    = color.New(color.FgWhite)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func truncateSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func printTask(task *core.Task) {
	boldColor.Printf("Task %s\n", task.ID)
	dimColor.Printf("   Repository: %s #%d\n", task.Repository, task.PRNumber)
	if task.Revision != "" {
		dimColor.Printf("   Revision:   %s\n", truncateSHA(task.Revision))
	}
	dimColor.Printf("   Updated:    %s\n", task.UpdatedAt.Format(time.RFC822))

	status := results.PublicStatus(task.Status)
	switch task.Status {
	case core.StatusSuccess:
		successColor.Printf("   Status:     %s\n", status)
		if task.SourceTaskID != "" {
			dimColor.Printf("   Reused from task %s\n", task.SourceTaskID)
		}
	case core.StatusFailure:
		errorColor.Printf("   Status:     %s\n", status)
		errorColor.Printf("   Error:      %s\n", task.Error)
	default:
		warnColor.Printf("   Status:     %s\n", status)
	}
}

func printReview(review *core.ReviewResult) {
	if review == nil {
		return
	}
	separator := strings.Repeat("=", 60)
	thinSeparator := strings.Repeat("-", 60)

	fmt.Println()
	titleColor.Println(separator)
	titleColor.Println("REVIEW SUMMARY")
	titleColor.Println(separator)
	fmt.Println()
	infoColor.Println(review.Summary.Overview)
	dimColor.Printf("Files reviewed: %d, issues: %d, critical: %d\n",
		review.Summary.TotalFilesReviewed,
		review.Summary.TotalIssuesFound,
		review.Summary.CriticalIssues,
	)

	if review.Summary.TotalIssuesFound == 0 {
		fmt.Println()
		successColor.Println("No issues found!")
		return
	}

	for _, file := range review.Files {
		if len(file.Issues) == 0 {
			continue
		}
		fmt.Println()
		warnColor.Println(thinSeparator)
		boldColor.Printf("%s (%d)\n", file.FilePath, len(file.Issues))
		warnColor.Println(thinSeparator)

		for _, issue := range file.Issues {
			fmt.Println()
			printIssueBadge(issue.Type)
			if issue.Line > 0 {
				dimColor.Printf(" line %d\n", issue.Line)
			} else {
				dimColor.Println(" file")
			}
			infoColor.Printf("%s\n", issue.Description)
			if issue.Suggestion != "" {
				dimColor.Printf("   Suggestion: %s\n", issue.Suggestion)
			}
		}
	}
	fmt.Println()
}

func printIssueBadge(t core.IssueType) {
	label := fmt.Sprintf(" %s ", t)
	switch t {
	case core.IssueSecurity:
		color.New(color.BgRed, color.FgWhite, color.Bold).Print(label)
	case core.IssueBug:
		color.New(color.BgHiRed, color.FgWhite).Print(label)
	case core.IssuePerformance:
		color.New(color.BgYellow, color.FgBlack).Print(label)
	case core.IssueStyle, core.IssueBestPractice:
		color.New(color.BgGreen, color.FgWhite).Print(label)
	default:
		color.New(color.BgWhite, color.FgBlack).Print(label)
	}
}
