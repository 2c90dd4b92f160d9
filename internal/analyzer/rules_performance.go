package analyzer

import (
	"regexp"

	"github.com/auditflow/auditflow/internal/models"
)

var (
	broadQueryRe    = regexp.MustCompile(`(?i)select\s+\*\s+from|\.find\(\s*\{\s*\}\s*\)|\.findAll\(\s*\)`)
	timerRe         = regexp.MustCompile(`setInterval\s*\(`)
	clearTimerRe    = regexp.MustCompile(`clearInterval\s*\(`)
	listenerRe      = regexp.MustCompile(`addEventListener\s*\(`)
	removeListenRe  = regexp.MustCompile(`removeEventListener\s*\(`)
	broadImportRe   = regexp.MustCompile(`(?m)^\s*(import\s+\w+\s+from\s+['"](lodash|moment|rxjs|jquery)['"]|.*require\(\s*['"](lodash|moment|rxjs|jquery)['"]\s*\))`)
)

// performanceRules is the fixed detector table for the performance category
var performanceRules = []Rule{
	regexRule("perf-broad-query", broadQueryRe, Template{
		Title:          "Unbounded query shape",
		Description:    "A query selects every column or every row without a projection or limit, which scales poorly as the dataset grows.",
		Recommendation: "Select only needed columns and constrain the result set with filters and limits.",
		Severity:       models.SeverityMedium,
		Category:       models.CategoryCodeQuality,
	}),
	{
		ID: "perf-timer-no-cleanup",
		Matches: func(content string) bool {
			return timerRe.MatchString(content) && !clearTimerRe.MatchString(content)
		},
		FindLine: func(content string) int {
			return firstLineMatching(content, timerRe.MatchString)
		},
		Template: Template{
			Title:          "Interval timer without cleanup",
			Description:    "setInterval is called but clearInterval never appears in this file, so the timer leaks across component or page lifecycles.",
			Recommendation: "Store the timer handle and clear it in the teardown path.",
			Severity:       models.SeverityMedium,
			Category:       models.CategoryCodeQuality,
		},
	},
	{
		ID: "perf-listener-no-cleanup",
		Matches: func(content string) bool {
			return listenerRe.MatchString(content) && !removeListenRe.MatchString(content)
		},
		FindLine: func(content string) int {
			return firstLineMatching(content, listenerRe.MatchString)
		},
		Template: Template{
			Title:          "Event listener without cleanup",
			Description:    "addEventListener is called but removeEventListener never appears in this file, which accumulates listeners on long-lived targets.",
			Recommendation: "Remove the listener when the owning component unmounts.",
			Severity:       models.SeverityLow,
			Category:       models.CategoryCodeQuality,
		},
	},
	regexRule("perf-broad-import", broadImportRe, Template{
		Title:          "Whole-library import of a large dependency",
		Description:    "A large utility library is imported wholesale, pulling the entire package into the bundle when only a few functions are used.",
		Recommendation: "Import the specific submodules needed, or switch to a lighter alternative.",
		Severity:       models.SeverityLow,
		Category:       models.CategoryCodeQuality,
	}),
}
