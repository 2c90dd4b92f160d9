package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/auditflow/auditflow/internal/models"
	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
)

// NativeStrategy composes the PDF directly from the structured report
// data. It is the fallback when no browser is available: simpler layout,
// no external process.
type NativeStrategy struct {
	timeout time.Duration
}

// NewNativeStrategy creates the native composition strategy with its
// execution bound
func NewNativeStrategy(timeout time.Duration) *NativeStrategy {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &NativeStrategy{timeout: timeout}
}

// Name identifies the strategy in logs and aggregate errors
func (s *NativeStrategy) Name() string {
	return "native"
}

// Render composes the document into a PDF. Composition is CPU-bound, so
// the timeout is enforced by running it in a goroutine and abandoning it
// on expiry.
func (s *NativeStrategy) Render(ctx context.Context, doc *Document) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		pdf []byte
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		pdf, err := composePDF(doc)
		done <- outcome{pdf: pdf, err: err}
	}()

	select {
	case out := <-done:
		return out.pdf, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func composePDF(doc *Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Audit Report - %s", doc.ProjectName), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, fmt.Sprintf("Audit Report: %s", doc.ProjectName), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, fmt.Sprintf("Scan %s (%s), generated %s",
		doc.ScanUUID, doc.ScanType, doc.GeneratedAt.Format("2006-01-02 15:04 UTC")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(20, 20, 40)
	pdf.SetFont("Helvetica", "B", 28)
	pdf.CellFormat(0, 12, fmt.Sprintf("%d / 100", doc.Result.Score), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Risk level: %s", doc.Result.RiskLevel), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	counts := doc.Result.SeverityCounts
	pdf.SetFont("Helvetica", "B", 9)
	for _, h := range []string{"Critical", "High", "Medium", "Low", "Info", "Files"} {
		pdf.CellFormat(25, 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, v := range []int{counts.Critical, counts.High, counts.Medium, counts.Low, counts.Info, doc.Result.FilesScanned} {
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", v), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(12)

	if len(doc.Findings) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 8, "No findings were reported for this scan.", "", 1, "L", false, 0, "")
	}

	for _, group := range groupBySeverity(doc.Findings) {
		pdf.SetFont("Helvetica", "B", 12)
		r, g, b := severityRGB(group.Severity)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(0, 9, fmt.Sprintf("%s (%d)", group.Severity, len(group.Findings)), "", 1, "L", false, 0, "")
		pdf.SetTextColor(20, 20, 40)

		for _, f := range group.Findings {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.MultiCell(0, 6, f.Title, "", "L", false)

			pdf.SetFont("Courier", "", 8)
			loc := fmt.Sprintf("%s:%d", f.FilePath, f.Line)
			if f.CWE != "" {
				loc += "  " + f.CWE
			}
			if f.CVSS > 0 {
				loc += fmt.Sprintf("  CVSS %.1f", f.CVSS)
			}
			pdf.MultiCell(0, 5, loc, "", "L", false)

			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, 5, f.Description, "", "L", false)
			pdf.MultiCell(0, 5, "Recommendation: "+f.Recommendation, "", "L", false)
			pdf.Ln(3)
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "pdf composition failed")
	}
	return buf.Bytes(), nil
}

func severityRGB(sev models.Severity) (int, int, int) {
	switch sev {
	case models.SeverityCritical:
		return 192, 57, 43
	case models.SeverityHigh:
		return 230, 126, 34
	case models.SeverityMedium:
		return 241, 196, 15
	case models.SeverityLow:
		return 41, 128, 185
	}
	return 127, 140, 141
}
