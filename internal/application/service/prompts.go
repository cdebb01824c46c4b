package service

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/garyjia/invoice-insights/internal/analytics"
	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

var enhanceTemplate = template.Must(template.New("enhance").Parse(`Analyze this invoice data and suggest improvements:

Vendor: {{.Vendor}}
Invoice Number: {{.InvoiceNumber}}
Amount: {{.Amount}}
Date: {{.Date}}
Category: {{.Category}}
Description: {{.Description}}

Please suggest:
1. Proper vendor name formatting
2. Category classification ({{.Categories}})
3. Any data validation issues
4. Missing information that should be captured

Respond with specific suggestions for improvement.`))

var insightTemplate = template.Must(template.New("insights").Parse(`Analyze this accounting data and provide 4 specific, actionable business insights:

FINANCIAL SUMMARY:
- Total invoices: {{.Count}}
- Total amount: {{.Total}}
- Average invoice: {{.Average}}
- Top category: {{.TopCategory}}
- Top vendor: {{.TopVendor}}

RECENT INVOICE DATA:
{{range .Lines}}{{.}}
{{end}}
Provide insights about:
1. Spending patterns and vendor analysis
2. Cost optimization opportunities
3. Cash flow management recommendations
4. Process improvement suggestions

Format each insight as:
TITLE: [Clear, specific title]
DESCRIPTION: [Detailed explanation with specific recommendations and dollar amounts where relevant]
IMPACT: [high/medium/low]
VALUE: [Potential savings/impact amount if applicable]

Focus on actionable recommendations that can improve financial performance and workflow efficiency.`))

func enhancePrompt(invoice *entity.Invoice) (string, error) {
	data := map[string]interface{}{
		"Vendor":        invoice.Vendor,
		"InvoiceNumber": invoice.InvoiceNumber,
		"Amount":        analytics.FormatMoney(invoice.Amount),
		"Date":          invoice.Date,
		"Category":      analytics.CategoryKey(invoice),
		"Description":   invoice.Description,
		"Categories":    joinCategories(),
	}
	return render(enhanceTemplate, data)
}

func insightPrompt(d analytics.Digest) (string, error) {
	data := map[string]interface{}{
		"Count":       d.Summary.TotalCount,
		"Total":       analytics.FormatMoney(d.Summary.TotalAmount),
		"Average":     analytics.FormatMoney(d.Summary.AverageAmount),
		"TopCategory": describeTop(d.TopCategory),
		"TopVendor":   describeTop(d.TopVendor),
		"Lines":       d.Lines,
	}
	return render(insightTemplate, data)
}

func describeTop(top *analytics.EntityTotal) string {
	if top == nil {
		return "n/a"
	}
	return fmt.Sprintf("%s (%s)", top.Name, analytics.FormatMoney(top.Amount))
}

func joinCategories() string {
	return strings.Join(entity.ReportCategories, ", ")
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
