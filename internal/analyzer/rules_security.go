package analyzer

import (
	"regexp"

	"github.com/auditflow/auditflow/internal/models"
)

var (
	hardcodedSecretRe = regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|password|passwd|token)\s*[:=]\s*["'][^"']{4,}["']`)
	cloudKeyRe        = regexp.MustCompile(`AKIA[0-9A-Z]{16}|ghp_[A-Za-z0-9]{36}|sk_live_[0-9a-zA-Z]{20,}|xox[baprs]-[0-9A-Za-z-]+`)
	sqlConcatRe       = regexp.MustCompile(`(?i)["'][^"']*\b(select|insert|update|delete)\b[^"']*["']\s*\+`)
	xssSinkRe         = regexp.MustCompile(`(?i)(\.innerHTML\s*=|\.outerHTML\s*=|document\.write\s*\(|dangerouslySetInnerHTML|insertAdjacentHTML\s*\()`)
	weakPasswordRe    = regexp.MustCompile(`(?i)password\s*={1,3}\s*["'](admin|password|123456|letmein|qwerty|changeme)["']`)
	tokenStorageRe    = regexp.MustCompile(`(?i)(localStorage|sessionStorage)\.setItem\(\s*["'][^"']*(token|jwt|auth)`)
)

// regexRule builds a rule whose predicate and line finder share one regex
func regexRule(id string, re *regexp.Regexp, tmpl Template) Rule {
	return Rule{
		ID:      id,
		Matches: re.MatchString,
		FindLine: func(content string) int {
			return firstLineMatching(content, re.MatchString)
		},
		Template: tmpl,
	}
}

// securityRules is the fixed detector table for the security category
var securityRules = []Rule{
	regexRule("sec-hardcoded-secret", hardcodedSecretRe, Template{
		Title:          "Hardcoded credential in source",
		Description:    "A credential-like value (API key, secret, password or token) is assigned as a string literal. Anyone with read access to the repository can extract it.",
		Recommendation: "Move the value into environment configuration or a secrets manager and rotate the exposed credential.",
		Severity:       models.SeverityCritical,
		Category:       models.CategoryAuthentication,
		CWE:            "CWE-798",
		CVSS:           9.1,
	}),
	regexRule("sec-cloud-key", cloudKeyRe, Template{
		Title:          "Cloud provider access key committed",
		Description:    "The file contains what looks like a live cloud or service access key (AWS, GitHub, Stripe or Slack key format).",
		Recommendation: "Revoke the key immediately, rotate it, and add a pre-commit secret scanner.",
		Severity:       models.SeverityCritical,
		Category:       models.CategoryAuthentication,
		CWE:            "CWE-798",
		CVSS:           9.8,
	}),
	regexRule("sec-sql-concat", sqlConcatRe, Template{
		Title:          "SQL built by string concatenation",
		Description:    "A SQL statement is assembled by concatenating strings with runtime values, which permits SQL injection if any value is attacker-controlled.",
		Recommendation: "Use parameterized queries or a query builder that binds values.",
		Severity:       models.SeverityCritical,
		Category:       models.CategoryInjection,
		CWE:            "CWE-89",
		CVSS:           9.8,
	}),
	regexRule("sec-xss-sink", xssSinkRe, Template{
		Title:          "Unsafe HTML sink",
		Description:    "Content is written through an HTML sink (innerHTML, document.write or equivalent) that does not escape markup, enabling cross-site scripting.",
		Recommendation: "Use textContent or a sanitizing template API instead of raw HTML injection.",
		Severity:       models.SeverityHigh,
		Category:       models.CategoryDataValidation,
		CWE:            "CWE-79",
		CVSS:           7.2,
	}),
	regexRule("sec-weak-password", weakPasswordRe, Template{
		Title:          "Trivial hardcoded password",
		Description:    "Authentication compares against a well-known trivial password literal.",
		Recommendation: "Remove the hardcoded comparison and authenticate against stored, hashed credentials.",
		Severity:       models.SeverityHigh,
		Category:       models.CategoryAuthentication,
		CWE:            "CWE-521",
		CVSS:           8.1,
	}),
	regexRule("sec-token-storage", tokenStorageRe, Template{
		Title:          "Auth token stored in browser storage",
		Description:    "An authentication token is written to localStorage or sessionStorage, where any script on the page can read it.",
		Recommendation: "Keep session tokens in HttpOnly cookies or in memory.",
		Severity:       models.SeverityMedium,
		Category:       models.CategorySessionManagement,
		CWE:            "CWE-922",
		CVSS:           5.4,
	}),
}
