package llm

import (
	"path/filepath"
	"strings"
)

var languageByExtension = map[string]string{
	".go":    "Go",
	".js":    "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript (React)",
	".jsx":   "JavaScript (React)",
	".py":    "Python",
	".java":  "Java",
	".c":     "C",
	".cpp":   "C++",
	".h":     "C header",
	".hpp":   "C++ header",
	".rs":    "Rust",
	".rb":    "Ruby",
	".php":   "PHP",
	".cs":    "C#",
	".swift": "Swift",
	".kt":    "Kotlin",
	".scala": "Scala",
}

// languageFor names the language of a source file, or "" for anything that
// is not recognized as code.
func languageFor(path string) string {
	return languageByExtension[strings.ToLower(filepath.Ext(path))]
}
