package analyzer

import (
	"regexp"
	"strings"

	"github.com/auditflow/auditflow/internal/models"
)

var (
	asyncCodeRe     = regexp.MustCompile(`(?m)\basync\b|\bawait\b|\.then\s*\(`)
	errorHandlingRe = regexp.MustCompile(`\btry\b|\bcatch\b|\.catch\s*\(`)
)

// duplicateBlockLine finds the first line where a three-line block
// repeats a block seen earlier in the same file. Blank and trivially
// short lines are skipped so formatting noise does not count.
func duplicateBlockLine(content string) int {
	rawLines := strings.Split(content, "\n")

	type numbered struct {
		text string
		line int
	}
	var lines []numbered
	for i, raw := range rawLines {
		trimmed := strings.TrimSpace(raw)
		if len(trimmed) < 10 {
			continue
		}
		lines = append(lines, numbered{text: trimmed, line: i + 1})
	}

	seen := make(map[string]bool)
	for i := 0; i+2 < len(lines); i++ {
		block := lines[i].text + "\x00" + lines[i+1].text + "\x00" + lines[i+2].text
		if seen[block] {
			return lines[i].line
		}
		seen[block] = true
	}

	return 0
}

// maxNestingDepth is the brace depth beyond which code is flagged
const maxNestingDepth = 5

// deepNestingLine finds the first line where brace nesting exceeds
// maxNestingDepth. String and comment contexts are not tracked, which
// trades some precision for a single linear pass.
func deepNestingLine(content string) int {
	depth := 0
	line := 1
	for _, r := range content {
		switch r {
		case '\n':
			line++
		case '{':
			depth++
			if depth > maxNestingDepth {
				return line
			}
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return 0
}

// qualityRules is the fixed detector table for the quality category
var qualityRules = []Rule{
	{
		ID: "qual-duplicate-block",
		Matches: func(content string) bool {
			return duplicateBlockLine(content) > 0
		},
		FindLine: duplicateBlockLine,
		Template: Template{
			Title:          "Duplicated code block",
			Description:    "A block of three or more consecutive statements appears more than once in this file.",
			Recommendation: "Extract the repeated block into a shared function.",
			Severity:       models.SeverityLow,
			Category:       models.CategoryCodeQuality,
		},
	},
	{
		ID: "qual-deep-nesting",
		Matches: func(content string) bool {
			return deepNestingLine(content) > 0
		},
		FindLine: deepNestingLine,
		Template: Template{
			Title:          "Deeply nested control flow",
			Description:    "Control flow nests more than five levels deep, which makes the branch structure hard to follow and test.",
			Recommendation: "Flatten the logic with early returns or extract inner levels into named functions.",
			Severity:       models.SeverityMedium,
			Category:       models.CategoryCodeQuality,
		},
	},
	{
		ID: "qual-async-no-error-handling",
		Matches: func(content string) bool {
			return asyncCodeRe.MatchString(content) && !errorHandlingRe.MatchString(content)
		},
		FindLine: func(content string) int {
			return firstLineMatching(content, asyncCodeRe.MatchString)
		},
		Template: Template{
			Title:          "Asynchronous code without error handling",
			Description:    "The file contains asynchronous calls but no try/catch or rejection handler, so failures are silently dropped or crash the process.",
			Recommendation: "Wrap awaited calls in try/catch or attach a .catch handler to every promise chain.",
			Severity:       models.SeverityMedium,
			Category:       models.CategoryCodeQuality,
		},
	},
}
