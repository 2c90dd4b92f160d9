// Package scoring deduplicates raw findings and derives the aggregate
// health score and risk level for a scan.
package scoring

import (
	"sort"
	"strings"

	"github.com/auditflow/auditflow/internal/models"
)

// severityRank orders severities, higher being more severe. Unknown
// severities rank below INFO.
var severityRank = map[models.Severity]int{
	models.SeverityCritical: 4,
	models.SeverityHigh:     3,
	models.SeverityMedium:   2,
	models.SeverityLow:      1,
	models.SeverityInfo:     0,
}

// SeverityRank returns the numeric rank of a severity, CRITICAL highest
func SeverityRank(s models.Severity) int {
	if rank, ok := severityRank[s]; ok {
		return rank
	}
	return -1
}

// MoreSevere reports whether a outranks b
func MoreSevere(a, b models.Severity) bool {
	return SeverityRank(a) > SeverityRank(b)
}

// dedupeKey identifies duplicate findings. Title, path and CWE are
// case-folded so detectors that disagree on casing still collapse.
type dedupeKey struct {
	title string
	path  string
	line  int
	cwe   string
}

func keyOf(f models.Finding) dedupeKey {
	return dedupeKey{
		title: strings.ToLower(f.Title),
		path:  strings.ToLower(f.FilePath),
		line:  f.Line,
		cwe:   strings.ToLower(f.CWE),
	}
}

// cvssOrMissing treats an absent CVSS as smaller than any real score
func cvssOrMissing(f models.Finding) float64 {
	if f.CVSS == 0 {
		return -1
	}
	return f.CVSS
}

// Dedupe collapses findings that share title, file path, line and CWE.
// Of each duplicate group the most severe survives; ties are broken by
// the larger CVSS score. Order of the input does not affect which
// finding wins, and the output is stable for identical input sets.
func Dedupe(findings []models.Finding) []models.Finding {
	if len(findings) == 0 {
		return nil
	}

	best := make(map[dedupeKey]models.Finding, len(findings))
	order := make([]dedupeKey, 0, len(findings))

	for _, f := range findings {
		key := keyOf(f)
		current, seen := best[key]
		if !seen {
			best[key] = f
			order = append(order, key)
			continue
		}

		if MoreSevere(f.Severity, current.Severity) {
			best[key] = f
			continue
		}
		if f.Severity == current.Severity && cvssOrMissing(f) > cvssOrMissing(current) {
			best[key] = f
		}
	}

	deduped := make([]models.Finding, 0, len(best))
	for _, key := range order {
		deduped = append(deduped, best[key])
	}

	// Canonical order: severity, then path, then line
	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if SeverityRank(a.Severity) != SeverityRank(b.Severity) {
			return SeverityRank(a.Severity) > SeverityRank(b.Severity)
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.Line < b.Line
	})

	return deduped
}

// Score computes the overall health score for a set of deduplicated
// findings: 100 minus 20 per critical, 10 per high and 5 per medium,
// clamped to [0, 100]. Low and info findings do not affect the score.
func Score(counts models.SeverityCounts) int {
	score := 100 - 20*counts.Critical - 10*counts.High - 5*counts.Medium
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RiskLevelFor maps a health score onto the aggregate risk label
func RiskLevelFor(score int) models.RiskLevel {
	switch {
	case score >= 90:
		return models.RiskLow
	case score >= 70:
		return models.RiskMedium
	case score >= 40:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

// Summarize runs the full pipeline over raw findings: dedupe, tally,
// score. The returned slice is the deduplicated finding set.
func Summarize(findings []models.Finding) ([]models.Finding, models.SeverityCounts, int, models.RiskLevel) {
	deduped := Dedupe(findings)
	counts := models.CountBySeverity(deduped)
	score := Score(counts)
	return deduped, counts, score, RiskLevelFor(score)
}
