package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"finance-tracker/internal/analytics"
	"finance-tracker/internal/money"
)

const (
	pageMargin  = 0.7 // inches
	labelWidth  = 3.2
	amountWidth = 1.6
	rowHeight   = 0.26
	noData      = "(no data)"
)

type rgb struct{ r, g, b int }

var (
	headerFill = rgb{0x11, 0x18, 0x27}
	gridColor  = rgb{0x9c, 0xa3, 0xaf}
	rowFills   = []rgb{{0xf5, 0xf5, 0xf5}, {0xd3, 0xd3, 0xd3}}
)

// DashboardPDF renders the monthly dashboard report and returns the file
// name to download it under.
func DashboardPDF(label string, s analytics.Summary) ([]byte, string, error) {
	b, err := renderDashboard(label, s, true)
	if err != nil {
		return nil, "", err
	}
	return b, fmt.Sprintf("Monthly_Dashboard_%s.pdf", SafeLabel(label)), nil
}

func renderDashboard(label string, s analytics.Summary, compress bool) ([]byte, error) {
	pdf := fpdf.New("P", "in", "Letter", "")
	pdf.SetCompression(compress)
	pdf.SetTitle("Monthly Dashboard - "+label, false)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 0.45, "Monthly Dashboard - "+label, "", 1, "C", false, 0, "")
	pdf.Ln(0.2)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{
		"Income: " + money.Format(s.Income),
		"Expenses: " + money.Format(s.Expenses),
		"Net: " + money.Format(s.Net),
	} {
		pdf.CellFormat(0, 0.22, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(0.25)

	heading(pdf, "Income vs Expenses")
	table(pdf, "Type", [][2]string{
		{"Income", money.Plain(s.Income)},
		{"Expenses", money.Plain(s.Expenses)},
	})
	pdf.Ln(0.25)

	byCat := make([][2]string, 0, len(s.ByCategory))
	for _, c := range s.ByCategory {
		byCat = append(byCat, [2]string{c.Category.String(), money.Plain(c.Amount)})
	}
	heading(pdf, "Spending by Category (Expenses Only)")
	table(pdf, "Category", byCat)
	pdf.Ln(0.25)

	byDay := make([][2]string, 0, len(s.ByDay))
	for _, d := range s.ByDay {
		byDay = append(byDay, [2]string{d.Day.Format("01/02/2006"), money.Plain(d.Amount)})
	}
	heading(pdf, "Daily Spending Trend (Expenses Only)")
	table(pdf, "Day", byDay)

	if s.Skipped > 0 {
		pdf.Ln(0.25)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 0.2, fmt.Sprintf("%d transaction(s) with unreadable dates were left out.", s.Skipped), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 0.32, text, "", 1, "L", false, 0, "")
}

// table draws a two column table with a dark header row and alternating row
// shading. An empty body is drawn as a single "(no data)" row.
func table(pdf *fpdf.Fpdf, first string, rows [][2]string) {
	pdf.SetDrawColor(gridColor.r, gridColor.g, gridColor.b)
	pdf.SetLineWidth(0.007)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(headerFill.r, headerFill.g, headerFill.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(labelWidth, rowHeight, first, "1", 0, "L", true, 0, "")
	pdf.CellFormat(amountWidth, rowHeight, "Amount ($)", "1", 1, "L", true, 0, "")

	if len(rows) == 0 {
		rows = [][2]string{{noData, ""}}
	}

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for i, row := range rows {
		fill := rowFills[i%len(rowFills)]
		pdf.SetFillColor(fill.r, fill.g, fill.b)
		pdf.CellFormat(labelWidth, rowHeight, row[0], "1", 0, "L", true, 0, "")
		pdf.CellFormat(amountWidth, rowHeight, row[1], "1", 1, "R", true, 0, "")
	}
}
