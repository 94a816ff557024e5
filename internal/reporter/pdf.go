package reporter

import (
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/kluth/npm-code-auditter/internal/aggregate"
	"github.com/kluth/npm-code-auditter/internal/analyzer"
)

// pdfFindingLimit caps the findings listed per package.
const pdfFindingLimit = 25

var (
	pdfRed    = []int{215, 58, 73}
	pdfOrange = []int{227, 98, 9}
	pdfGray   = []int{106, 115, 125}
	pdfDark   = []int{36, 41, 46}
	pdfGreen  = []int{40, 167, 69}
)

func (r *Reporter) renderPDF(report Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(pdfGray[0], pdfGray[1], pdfGray[2])
		pdf.Cell(0, 10, tr(fmt.Sprintf("npm Code Audit: %s@%s", report.Project, report.Version)))
		pdf.Ln(10)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		footer := fmt.Sprintf("Run %s - generated at %s - page %d", report.RunID, report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"), pdf.PageNo())
		pdf.CellFormat(0, 10, footer, "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	r.addSummaryToPDF(pdf, tr, report)

	for _, e := range report.Entries {
		if e.Own == 0 {
			continue
		}
		r.addPackageToPDF(pdf, tr, e)
	}

	return pdf.Output(r.writer)
}

func (r *Reporter) addSummaryToPDF(pdf *fpdf.Fpdf, tr func(string) string, report Report) {
	findings := report.Findings()
	score := CalculateRiskScore(findings)

	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(pdfDark[0], pdfDark[1], pdfDark[2])
	pdf.Cell(0, 12, "npm Code Audit Report")
	pdf.Ln(12)

	// Summary card
	pdf.SetFillColor(246, 248, 250)
	pdf.Rect(10, pdf.GetY(), 190, 28, "F")
	pdf.SetY(pdf.GetY() + 3)
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(95, 6, tr("  Project: "+report.Project+"@"+report.Version))
	pdf.Cell(95, 6, fmt.Sprintf("Packages: %d", len(report.Entries)))
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(95, 6, tr("  Path: "+report.Path))
	pdf.Cell(95, 6, fmt.Sprintf("Findings: %d", len(findings)))
	pdf.Ln(6)
	pdf.Cell(0, 6, "  Run: "+report.RunID)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(50, 6, "Risk assessment:")
	setRiskColor(pdf, score)
	pdf.Cell(0, 6, fmt.Sprintf("%s (%d/100)", RiskLabel(score), score))
	pdf.SetTextColor(pdfDark[0], pdfDark[1], pdfDark[2])
	pdf.Ln(8)

	if len(findings) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(pdfGreen[0], pdfGreen[1], pdfGreen[2])
		pdf.Cell(0, 10, "No suspicious patterns found.")
		return
	}

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(pdfGray[0], pdfGray[1], pdfGray[2])
	pdf.Cell(0, 5, tr(severityStats(report.SeverityCounts(), false)))
	pdf.Ln(8)

	// Package table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(pdfDark[0], pdfDark[1], pdfDark[2])
	pdf.SetFillColor(234, 236, 239)
	pdf.CellFormat(110, 7, "Package", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Own", "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 7, "Transitive", "1", 1, "R", true, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, e := range report.Entries {
		if e.Transitive == 0 {
			continue
		}
		pdf.CellFormat(110, 6, tr(e.Node.Key()), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", e.Own), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", e.Transitive), "1", 1, "R", false, 0, "")
	}
}

func (r *Reporter) addPackageToPDF(pdf *fpdf.Fpdf, tr func(string) string, e aggregate.Entry) {
	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(pdfDark[0], pdfDark[1], pdfDark[2])
	pdf.Cell(0, 8, tr(fmt.Sprintf("%s (own %d, transitive %d)", e.Node.Key(), e.Own, e.Transitive)))
	pdf.Ln(8)

	if !r.verbose {
		pdf.SetFont("Arial", "", 9)
		for _, row := range aggregate.SortedCounts(e.Node.Findings) {
			setSeverityColor(pdf, row.Category.Severity())
			pdf.Cell(0, 5, fmt.Sprintf("%4d x %s", row.Count, row.Category))
			pdf.Ln(5)
		}
		return
	}

	for i, f := range e.Node.Findings {
		if i == pdfFindingLimit {
			pdf.SetFont("Arial", "I", 9)
			pdf.SetTextColor(pdfGray[0], pdfGray[1], pdfGray[2])
			pdf.Cell(0, 6, fmt.Sprintf("... and %d more, run with the terminal format for the full list", len(e.Node.Findings)-i))
			pdf.Ln(6)
			return
		}
		pdf.SetFont("Arial", "B", 9)
		setSeverityColor(pdf, f.Severity)
		pdf.Cell(0, 5, tr(fmt.Sprintf("[%s] %s", f.Severity, f.Title())))
		pdf.Ln(5)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(pdfGray[0], pdfGray[1], pdfGray[2])
		pdf.Cell(0, 4, tr(findingLocation(f)))
		pdf.Ln(4)
		if f.Snippet != "" {
			pdf.SetFont("Courier", "", 8)
			pdf.SetTextColor(pdfDark[0], pdfDark[1], pdfDark[2])
			pdf.MultiCell(0, 4, tr(f.Snippet), "", "", false)
		}
		pdf.Ln(2)
	}
}

func setRiskColor(pdf *fpdf.Fpdf, score int) {
	switch {
	case score >= 40:
		pdf.SetTextColor(pdfRed[0], pdfRed[1], pdfRed[2])
	case score >= 20:
		pdf.SetTextColor(pdfOrange[0], pdfOrange[1], pdfOrange[2])
	default:
		pdf.SetTextColor(pdfGreen[0], pdfGreen[1], pdfGreen[2])
	}
}

func setSeverityColor(pdf *fpdf.Fpdf, s analyzer.Severity) {
	switch {
	case s >= analyzer.SeverityHigh:
		pdf.SetTextColor(pdfRed[0], pdfRed[1], pdfRed[2])
	case s >= analyzer.SeverityMedium:
		pdf.SetTextColor(pdfOrange[0], pdfOrange[1], pdfOrange[2])
	default:
		pdf.SetTextColor(pdfGray[0], pdfGray[1], pdfGray[2])
	}
}
