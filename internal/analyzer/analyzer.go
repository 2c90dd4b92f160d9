// Package analyzer runs category-specific detector rules over a
// project's source files and emits raw findings. Detectors are pure
// functions of a single file's content; the engine applies a fixed,
// enumerable rule table per category.
package analyzer

import (
	"strings"

	"github.com/auditflow/auditflow/internal/models"
	"github.com/sirupsen/logrus"
)

// Template carries the fixed reporting fields a rule emits on a match
type Template struct {
	Title          string
	Description    string
	Recommendation string
	Severity       models.Severity
	Category       models.FindingCategory
	CWE            string
	CVSS           float64
}

// Rule is one detector: a match predicate over whole-file content plus
// a line finder and a finding template. A rule emits at most one
// finding per file regardless of how many times the pattern occurs.
type Rule struct {
	ID       string
	Matches  func(content string) bool
	FindLine func(content string) int // 0 means no line identified
	Template Template

	// ManifestOnly restricts the rule to dependency manifest files
	ManifestOnly bool
}

// Analyzer applies detector rules to source files
type Analyzer struct {
	log         *logrus.Logger
	maxFileSize int64
}

// New creates an analyzer. Files larger than maxFileSize are skipped;
// a zero maxFileSize disables the limit.
func New(log *logrus.Logger, maxFileSize int64) *Analyzer {
	return &Analyzer{
		log:         log,
		maxFileSize: maxFileSize,
	}
}

// rulesFor returns the ordered rule tables to run for a scan type
func rulesFor(scanType models.ScanType) [][]Rule {
	switch scanType {
	case models.ScanTypeSecurity:
		return [][]Rule{securityRules}
	case models.ScanTypeQuality:
		return [][]Rule{qualityRules}
	case models.ScanTypePerformance:
		return [][]Rule{performanceRules}
	case models.ScanTypeDependency:
		return [][]Rule{dependencyRules}
	case models.ScanTypeComprehensive:
		return [][]Rule{securityRules, qualityRules, performanceRules, dependencyRules}
	}
	return nil
}

// Categories returns the detector category names a scan type runs,
// for inclusion in the scan result summary.
func Categories(scanType models.ScanType) []string {
	switch scanType {
	case models.ScanTypeComprehensive:
		return []string{"security", "quality", "performance", "dependency"}
	case models.ScanTypeSecurity:
		return []string{"security"}
	case models.ScanTypeQuality:
		return []string{"quality"}
	case models.ScanTypePerformance:
		return []string{"performance"}
	case models.ScanTypeDependency:
		return []string{"dependency"}
	}
	return nil
}

// Detect runs every rule of the scan type's categories over every file
// and returns the raw findings. Per-file failures are isolated: a file
// that cannot be analyzed yields no findings but never aborts the run.
func (a *Analyzer) Detect(scanType models.ScanType, files []models.SourceFile) []models.Finding {
	var findings []models.Finding

	for _, table := range rulesFor(scanType) {
		for i := range files {
			file := &files[i]
			if a.maxFileSize > 0 && file.Size > a.maxFileSize {
				a.log.WithFields(logrus.Fields{
					"path": file.Path,
					"size": file.Size,
				}).Debug("Skipping oversized file")
				continue
			}
			findings = append(findings, a.detectFile(table, file)...)
		}
	}

	return findings
}

// detectFile applies one rule table to one file
func (a *Analyzer) detectFile(table []Rule, file *models.SourceFile) (found []models.Finding) {
	defer func() {
		// A detector bug on one file must not take down the scan.
		if r := recover(); r != nil {
			a.log.WithFields(logrus.Fields{
				"path":  file.Path,
				"panic": r,
			}).Warn("Detector panicked on file, skipping")
			found = nil
		}
	}()

	content := string(file.Content)

	for _, rule := range table {
		if rule.ManifestOnly && !file.IsManifest() {
			continue
		}
		if !rule.Matches(content) {
			continue
		}

		line := 0
		if rule.FindLine != nil {
			line = rule.FindLine(content)
		}
		if line <= 0 {
			// Historical behavior: an unlocated match reports line 1.
			line = 1
		}

		found = append(found, models.Finding{
			Title:          rule.Template.Title,
			Category:       rule.Template.Category,
			Severity:       rule.Template.Severity,
			Description:    rule.Template.Description,
			Recommendation: rule.Template.Recommendation,
			CWE:            rule.Template.CWE,
			CVSS:           rule.Template.CVSS,
			FilePath:       file.Path,
			Line:           line,
		})
	}

	return found
}

// firstLineMatching returns the 1-based index of the first line for
// which match returns true, or 0 if no line matches.
func firstLineMatching(content string, match func(line string) bool) int {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if match(line) {
			return i + 1
		}
	}
	return 0
}
