package gitutil

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sevigo/review-broker/internal/core"
)

var hunkHeaderRegex = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// ParseValidLinesFromPatch returns the line numbers present on the new side of
// a unified diff patch: added and context lines.
func ParseValidLinesFromPatch(patch string, logger *slog.Logger) map[int]struct{} {
	validLines := make(map[int]struct{})
	walkPatch(patch, logger, func(newLine int, line string) {
		if newLine > 0 {
			validLines[newLine] = struct{}{}
		}
	})
	return validLines
}

// ValidLinesByFile builds the new-side line map of every changed file, keyed
// by path.
func ValidLinesByFile(files []core.ChangedFile, logger *slog.Logger) map[string]map[int]struct{} {
	out := make(map[string]map[int]struct{}, len(files))
	for _, f := range files {
		out[f.Path] = ParseValidLinesFromPatch(f.Patch, logger)
	}
	return out
}

// AnnotatePatch prefixes every added or context line with its new-side line
// number so a reader can cite exact lines. Removed lines get a blank gutter.
func AnnotatePatch(patch string) string {
	var sb strings.Builder
	walkPatch(patch, nil, func(newLine int, line string) {
		switch {
		case newLine > 0:
			fmt.Fprintf(&sb, "%5d %s\n", newLine, line)
		default:
			fmt.Fprintf(&sb, "      %s\n", line)
		}
	})
	return sb.String()
}

// walkPatch calls fn for each line of patch with its new-side number, or 0
// for hunk headers, removed lines and lines outside any hunk.
func walkPatch(patch string, logger *slog.Logger, fn func(newLine int, line string)) {
	currentLine := -1

	for _, line := range strings.Split(patch, "\n") {
		if strings.HasPrefix(line, "@@") {
			currentLine = -1
			matches := hunkHeaderRegex.FindStringSubmatch(line)
			if len(matches) >= 2 {
				start, err := strconv.Atoi(matches[1])
				if err != nil {
					// Skip malformed hunk; don't use corrupted line numbers
					if logger != nil {
						logger.Warn("skipped malformed hunk header", "line", line, "error", err)
					}
				} else {
					currentLine = start
				}
			}
			fn(0, line)
			continue
		}

		if currentLine == -1 {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"), strings.HasPrefix(line, " "):
			fn(currentLine, line)
			currentLine++
		case strings.HasPrefix(line, "-"):
			// removal line exists in previous version only
			fn(0, line)
		case line == "":
			// empty line usually at end of hunk
		}
	}
}
