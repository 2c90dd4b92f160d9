// Package report builds the canonical HTML report for a completed scan
// and renders it to PDF through an ordered chain of strategies.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/auditflow/auditflow/internal/models"
)

// Document is the fully assembled input to PDF rendering: the canonical
// HTML plus the structured data it was built from, so strategies that
// cannot consume HTML can compose from the data directly.
type Document struct {
	ProjectName string
	ScanUUID    string
	ScanType    models.ScanType
	GeneratedAt time.Time
	Result      models.ScanResult
	Findings    []models.Finding
	HTML        string
}

// severityGroup is one severity bucket of the findings section
type severityGroup struct {
	Severity models.Severity
	Findings []models.Finding
}

type htmlData struct {
	ProjectName string
	ScanUUID    string
	ScanType    models.ScanType
	GeneratedAt time.Time
	Result      models.ScanResult
	Groups      []severityGroup
}

var severityOrder = []models.Severity{
	models.SeverityCritical,
	models.SeverityHigh,
	models.SeverityMedium,
	models.SeverityLow,
	models.SeverityInfo,
}

// groupBySeverity buckets findings by severity in descending order,
// omitting empty buckets
func groupBySeverity(findings []models.Finding) []severityGroup {
	buckets := make(map[models.Severity][]models.Finding)
	for _, f := range findings {
		buckets[f.Severity] = append(buckets[f.Severity], f)
	}

	var groups []severityGroup
	for _, sev := range severityOrder {
		if len(buckets[sev]) == 0 {
			continue
		}
		groups = append(groups, severityGroup{Severity: sev, Findings: buckets[sev]})
	}
	return groups
}

// BuildDocument assembles the canonical report document for a scan. The
// HTML is built exactly once per render; both PDF strategies consume the
// same document.
func BuildDocument(project *models.Project, job *models.ScanJob, result models.ScanResult, findings []models.Finding) (*Document, error) {
	data := htmlData{
		ProjectName: project.Name,
		ScanUUID:    job.UUID,
		ScanType:    job.Type,
		GeneratedAt: time.Now().UTC(),
		Result:      result,
		Groups:      groupBySeverity(findings),
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to build report HTML: %w", err)
	}

	return &Document{
		ProjectName: project.Name,
		ScanUUID:    job.UUID,
		ScanType:    job.Type,
		GeneratedAt: data.GeneratedAt,
		Result:      result,
		Findings:    findings,
		HTML:        buf.String(),
	}, nil
}

// reportTemplate is the self-contained report document. All styling is
// inline so the HTML renders identically in a browser tab and through
// the headless-browser print path.
var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"riskColor": riskColor,
	"sevColor":  severityColor,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Audit Report - {{.ProjectName}}</title>
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #1a1a2e; margin: 40px; }
  h1 { font-size: 22px; margin-bottom: 4px; }
  .meta { color: #666; font-size: 12px; margin-bottom: 24px; }
  .score-box { display: inline-block; padding: 16px 28px; border-radius: 8px; color: #fff; background: {{riskColor .Result.RiskLevel}}; }
  .score-box .score { font-size: 34px; font-weight: bold; }
  .score-box .risk { font-size: 13px; letter-spacing: 1px; }
  table.counts { border-collapse: collapse; margin: 20px 0; }
  table.counts th, table.counts td { border: 1px solid #ddd; padding: 6px 14px; font-size: 13px; }
  h2 { font-size: 16px; border-bottom: 2px solid #eee; padding-bottom: 4px; margin-top: 32px; }
  .finding { margin: 14px 0; padding: 12px; border-left: 4px solid {{riskColor .Result.RiskLevel}}; background: #fafafa; page-break-inside: avoid; }
  .finding h3 { margin: 0 0 6px 0; font-size: 14px; }
  .finding .loc { font-family: monospace; font-size: 12px; color: #555; }
  .finding p { font-size: 13px; margin: 6px 0; }
  .badge { display: inline-block; padding: 2px 8px; border-radius: 4px; color: #fff; font-size: 11px; }
</style>
</head>
<body>
<h1>Audit Report: {{.ProjectName}}</h1>
<div class="meta">Scan {{.ScanUUID}} ({{.ScanType}}) · generated {{.GeneratedAt.Format "2006-01-02 15:04 UTC"}}</div>

<div class="score-box">
  <div class="score">{{.Result.Score}}</div>
  <div class="risk">RISK: {{.Result.RiskLevel}}</div>
</div>

<table class="counts">
  <tr><th>Critical</th><th>High</th><th>Medium</th><th>Low</th><th>Info</th><th>Files scanned</th></tr>
  <tr>
    <td>{{.Result.SeverityCounts.Critical}}</td>
    <td>{{.Result.SeverityCounts.High}}</td>
    <td>{{.Result.SeverityCounts.Medium}}</td>
    <td>{{.Result.SeverityCounts.Low}}</td>
    <td>{{.Result.SeverityCounts.Info}}</td>
    <td>{{.Result.FilesScanned}}</td>
  </tr>
</table>

{{range .Groups}}
<h2>{{.Severity}} ({{len .Findings}})</h2>
{{range .Findings}}
<div class="finding" style="border-left-color: {{sevColor .Severity}}">
  <h3><span class="badge" style="background: {{sevColor .Severity}}">{{.Severity}}</span> {{.Title}}</h3>
  <div class="loc">{{.FilePath}}:{{.Line}}{{if .CWE}} · {{.CWE}}{{end}}{{if .CVSS}} · CVSS {{printf "%.1f" .CVSS}}{{end}}</div>
  <p>{{.Description}}</p>
  <p><strong>Recommendation:</strong> {{.Recommendation}}</p>
</div>
{{end}}
{{end}}

{{if not .Groups}}
<h2>Findings</h2>
<p>No findings were reported for this scan.</p>
{{end}}
</body>
</html>
`))

func riskColor(level models.RiskLevel) template.CSS {
	switch level {
	case models.RiskCritical:
		return "#c0392b"
	case models.RiskHigh:
		return "#e67e22"
	case models.RiskMedium:
		return "#f1c40f"
	}
	return "#27ae60"
}

func severityColor(sev models.Severity) template.CSS {
	switch sev {
	case models.SeverityCritical:
		return "#c0392b"
	case models.SeverityHigh:
		return "#e67e22"
	case models.SeverityMedium:
		return "#f1c40f"
	case models.SeverityLow:
		return "#2980b9"
	}
	return "#7f8c8d"
}
