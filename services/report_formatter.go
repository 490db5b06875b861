package services

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/fenilmodi00/deals-backend/models"
)

// ReportFormatter renders a deal report for delivery. Column order is fixed:
// brand, model, spec, condition, cash price, previous price, reference
// price, percentage of reference, link. An empty report renders to the
// empty string, which the caller treats as "nothing to notify".
type ReportFormatter struct{}

func NewReportFormatter() *ReportFormatter {
	return &ReportFormatter{}
}

// FormatText renders the report as a line-oriented text block with a header
// naming the result limit.
func (f *ReportFormatter) FormatText(report *models.DealReport, resultLimit int) string {
	if !report.HasChanges() {
		return ""
	}

	lines := []string{fmt.Sprintf("Update from Best %d Deals", resultLimit)}

	for _, row := range report.Rows {
		variant := row.Variant
		var line string
		if row.PreviousPrice != nil {
			line = fmt.Sprintf("-- %-10s %-20s %-20s %-8s £%-6s (£%-6s) £%-6s %s    -- %s",
				variant.Brand, variant.Model, variant.Spec, variant.Condition,
				formatPence(variant.CashPrice), formatPence(*row.PreviousPrice),
				formatPence(row.ReferencePrice), f.percentOfReference(row), variant.Link)
		} else {
			line = fmt.Sprintf("-- %-10s %-20s %-20s %-8s £%-6s £%-6s %s    -- %s",
				variant.Brand, variant.Model, variant.Spec, variant.Condition,
				formatPence(variant.CashPrice), formatPence(row.ReferencePrice),
				f.percentOfReference(row), variant.Link)
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// FormatHTML renders the report as an HTML table for the email body.
func (f *ReportFormatter) FormatHTML(report *models.DealReport, resultLimit int) string {
	if !report.HasChanges() {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("<p>Update from Best %d Deals</p>\n", resultLimit))
	builder.WriteString("<table border=\"1\" cellpadding=\"4\">\n")
	builder.WriteString("<tr><th>Brand</th><th>Model</th><th>Spec</th><th>Condition</th><th>Cash Price</th><th>Previous Price</th><th>Reference Price</th><th>% of Reference</th><th>Link</th></tr>\n")

	for _, row := range report.Rows {
		variant := row.Variant

		previousPrice := ""
		if row.PreviousPrice != nil {
			previousPrice = "£" + formatPence(*row.PreviousPrice)
		}

		builder.WriteString("<tr>")
		builder.WriteString("<td>" + html.EscapeString(variant.Brand) + "</td>")
		builder.WriteString("<td>" + html.EscapeString(variant.Model) + "</td>")
		builder.WriteString("<td>" + html.EscapeString(variant.Spec) + "</td>")
		builder.WriteString("<td>" + html.EscapeString(variant.Condition) + "</td>")
		builder.WriteString("<td>£" + formatPence(variant.CashPrice) + "</td>")
		builder.WriteString("<td>" + previousPrice + "</td>")
		builder.WriteString("<td>£" + formatPence(row.ReferencePrice) + "</td>")
		builder.WriteString("<td>" + f.percentOfReference(row) + "</td>")
		builder.WriteString("<td><a href=\"" + html.EscapeString(variant.Link) + "\">" + html.EscapeString(variant.Link) + "</a></td>")
		builder.WriteString("</tr>\n")
	}

	builder.WriteString("</table>\n")
	return builder.String()
}

// percentOfReference renders the value ratio as a percentage. A zero
// reference price has no meaningful discount, so it renders as n/a rather
// than a division artifact.
func (f *ReportFormatter) percentOfReference(row models.ReportRow) string {
	if row.ReferencePrice == 0 {
		return "n/a"
	}
	ratio := float64(row.Variant.CashPrice) / float64(row.ReferencePrice)
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// formatPence renders minor currency units as pounds, trimming trailing
// zeros the way the report has always shown them (499.99, 500, 500.5).
func formatPence(pence int64) string {
	return strconv.FormatFloat(float64(pence)/100, 'g', -1, 64)
}
