package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/auditflow/auditflow/internal/models"
)

// deniedPackages is the fixed deny-list of historically compromised or
// abandoned npm packages the dependency detector flags.
var deniedPackages = []string{
	"event-stream",
	"flatmap-stream",
	"eslint-scope",
	"getcookies",
	"ua-parser-js",
	"coa",
	"rc",
	"node-ipc",
	"left-pad",
}

// manifest is the subset of a package manifest the detector reads
type manifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// declaresDependency reports whether the manifest content declares the
// named package. A malformed manifest declares nothing; parse failures
// never propagate.
func declaresDependency(content, pkg string) bool {
	var m manifest
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return false
	}
	if _, ok := m.Dependencies[pkg]; ok {
		return true
	}
	_, ok := m.DevDependencies[pkg]
	return ok
}

// dependencyLine locates the manifest line declaring the package
func dependencyLine(content, pkg string) int {
	needle := fmt.Sprintf("%q", pkg)
	return firstLineMatching(content, func(line string) bool {
		return strings.Contains(line, needle)
	})
}

// denyListRule builds one rule per denied package so the rule table
// stays fixed and enumerable.
func denyListRule(pkg string) Rule {
	return Rule{
		ID:           "dep-denied-" + pkg,
		ManifestOnly: true,
		Matches: func(content string) bool {
			return declaresDependency(content, pkg)
		},
		FindLine: func(content string) int {
			return dependencyLine(content, pkg)
		},
		Template: Template{
			Title:          fmt.Sprintf("Known-vulnerable dependency %q", pkg),
			Description:    fmt.Sprintf("The manifest declares %q, a package with a history of compromise or malicious releases.", pkg),
			Recommendation: fmt.Sprintf("Remove or replace %q and audit the lockfile for transitive copies.", pkg),
			Severity:       models.SeverityHigh,
			Category:       models.CategoryDependency,
			CWE:            "CWE-1104",
			CVSS:           8.0,
		},
	}
}

// dependencyRules is the fixed detector table for the dependency
// category. Every rule is ManifestOnly so ordinary source files are
// never parsed as manifests.
var dependencyRules = buildDependencyRules()

func buildDependencyRules() []Rule {
	rules := make([]Rule, 0, len(deniedPackages))
	for _, pkg := range deniedPackages {
		rules = append(rules, denyListRule(pkg))
	}
	return rules
}
