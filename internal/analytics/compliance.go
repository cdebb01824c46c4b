package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// Finding kinds
const (
	FindingDeduction   = "deduction"
	FindingRequirement = "requirement"
	FindingWarning     = "warning"
)

// Finding statuses
const (
	StatusCompliant = "compliant"
	StatusAttention = "attention"
	StatusViolation = "violation"
)

// Rule thresholds
var (
	equipmentMinAmount      = decimal.NewFromInt(100)
	documentationMinAmount  = decimal.NewFromInt(75)
	estimatedTaxRate        = decimal.RequireFromString("0.15")
	mealDeductibleShare     = decimal.RequireFromString("0.5")
	documentationConfidence = 80
	homeOfficeMinInvoices   = 3
)

// Evidence cites the rule a finding is based on
type Evidence struct {
	LawReference string `json:"law_reference"`
	Source       string `json:"source"`
	URL          string `json:"url,omitempty"`
	Excerpt      string `json:"excerpt"`
}

// Finding is one tax compliance note
type Finding struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	DueDate     string           `json:"due_date,omitempty"`
	Status      string           `json:"status"`
	Evidence    Evidence         `json:"evidence"`
}

// ComplianceFindings applies the rule-based tax checks to records. Empty
// input yields a single requirement asking for data.
func ComplianceFindings(records []*entity.Invoice, now time.Time) []Finding {
	records = nonNil(records)
	if len(records) == 0 {
		return []Finding{{
			ID:          "no-data",
			Kind:        FindingRequirement,
			Title:       "No Invoice Data Available",
			Description: "Upload invoices to receive tax compliance notes and deduction suggestions.",
			Status:      StatusAttention,
			Evidence: Evidence{
				LawReference: "IRS Publication 535",
				Source:       "IRS Business Expenses Guide",
				URL:          "https://www.irs.gov/publications/p535",
				Excerpt:      "To be deductible, a business expense must be both ordinary and necessary.",
			},
		}}
	}

	var findings []Finding
	total := sumAmounts(records)

	var equipment, lowConfidence, meals, office []*entity.Invoice
	for _, r := range records {
		category := CategoryKey(r)
		if (category == entity.CategoryOfficeSupplies || category == entity.CategorySoftware) && r.Amount.GreaterThan(equipmentMinAmount) {
			equipment = append(equipment, r)
		}
		if r.Amount.GreaterThan(documentationMinAmount) && r.ConfidenceOr(100) < documentationConfidence {
			lowConfidence = append(lowConfidence, r)
		}
		if isMeal(r) {
			meals = append(meals, r)
		}
		if category == entity.CategoryOfficeSupplies {
			office = append(office, r)
		}
	}

	if len(equipment) > 0 {
		amount := sumAmounts(equipment)
		findings = append(findings, Finding{
			ID:    "equipment-deduction",
			Kind:  FindingDeduction,
			Title: "Business Equipment Deductions Available",
			Description: fmt.Sprintf("%d equipment purchases totaling %s may qualify for business deductions. Consider Section 179 expensing.",
				len(equipment), FormatMoney(amount)),
			Amount: &amount,
			Status: StatusCompliant,
			Evidence: Evidence{
				LawReference: "IRC Section 179",
				Source:       "Internal Revenue Code Section 179",
				URL:          "https://www.irs.gov/publications/p946",
				Excerpt:      "You can elect to recover all or part of the cost of certain qualifying property by deducting it in the year you place the property in service.",
			},
		})
	}

	if len(lowConfidence) > 0 {
		findings = append(findings, Finding{
			ID:    "documentation-warning",
			Kind:  FindingWarning,
			Title: "Receipt Documentation Review Needed",
			Description: fmt.Sprintf("%d expenses over %s have low extraction confidence. Keep the original receipts for substantiation.",
				len(lowConfidence), FormatMoney(documentationMinAmount)),
			Status: StatusViolation,
			Evidence: Evidence{
				LawReference: "IRC Section 274(d)",
				Source:       "IRS Substantiation Requirements",
				URL:          "https://www.irs.gov/publications/p463",
				Excerpt:      "You must keep records to prove certain elements of an expense.",
			},
		})
	}

	quarter, due := EstimatedTaxDueDate(now)
	estimate := total.Mul(estimatedTaxRate).Round(0)
	findings = append(findings, Finding{
		ID:          "quarterly-estimate",
		Kind:        FindingRequirement,
		Title:       fmt.Sprintf("Q%d Estimated Tax Payment", quarter),
		Description: "A quarterly estimated tax payment may be due based on your business income.",
		Amount:      &estimate,
		DueDate:     due.Format(entity.DateLayout),
		Status:      StatusAttention,
		Evidence: Evidence{
			LawReference: "IRC Section 6654",
			Source:       "IRS Form 1040-ES Instructions",
			URL:          "https://www.irs.gov/forms-pubs/about-form-1040es",
			Excerpt:      "Generally, you must pay estimated tax if you expect to owe at least $1,000 in tax for the year.",
		},
	})

	if len(meals) > 0 {
		mealTotal := sumAmounts(meals)
		deductible := mealTotal.Mul(mealDeductibleShare).Round(MoneyPlaces)
		findings = append(findings, Finding{
			ID:    "meal-deduction",
			Kind:  FindingDeduction,
			Title: "Business Meal Deductions",
			Description: fmt.Sprintf("%d potential business meal expenses totaling %s. 50%% may be deductible.",
				len(meals), FormatMoney(mealTotal)),
			Amount: &deductible,
			Status: StatusCompliant,
			Evidence: Evidence{
				LawReference: "IRC Section 274(n)",
				Source:       "IRS Publication 463",
				URL:          "https://www.irs.gov/publications/p463",
				Excerpt:      "You can deduct 50% of the cost of business meals if the expense is not lavish or extravagant.",
			},
		})
	}

	if len(office) > homeOfficeMinInvoices {
		officeTotal := sumAmounts(office)
		findings = append(findings, Finding{
			ID:    "home-office-deduction",
			Kind:  FindingDeduction,
			Title: "Home Office Deduction Opportunity",
			Description: fmt.Sprintf("With %s in office supplies you may qualify for a home office deduction if part of your home is used exclusively for business.",
				FormatMoney(officeTotal)),
			Amount: &officeTotal,
			Status: StatusAttention,
			Evidence: Evidence{
				LawReference: "IRC Section 280A",
				Source:       "IRS Publication 587",
				URL:          "https://www.irs.gov/publications/p587",
				Excerpt:      "You may be able to deduct expenses for the business use of your home.",
			},
		})
	}

	return findings
}

// EstimatedTaxDueDate returns now's quarter and the due date of its
// estimated payment. Weekend due dates move to the following Monday.
func EstimatedTaxDueDate(now time.Time) (int, time.Time) {
	quarter := (int(now.Month())-1)/3 + 1

	var due time.Time
	switch quarter {
	case 1:
		due = time.Date(now.Year(), time.April, 15, 0, 0, 0, 0, time.UTC)
	case 2:
		due = time.Date(now.Year(), time.June, 15, 0, 0, 0, 0, time.UTC)
	case 3:
		due = time.Date(now.Year(), time.September, 15, 0, 0, 0, 0, time.UTC)
	default:
		due = time.Date(now.Year()+1, time.January, 15, 0, 0, 0, 0, time.UTC)
	}

	switch due.Weekday() {
	case time.Saturday:
		due = due.AddDate(0, 0, 2)
	case time.Sunday:
		due = due.AddDate(0, 0, 1)
	}
	return quarter, due
}

func isMeal(r *entity.Invoice) bool {
	desc := strings.ToLower(r.Description)
	return strings.Contains(desc, "meal") ||
		strings.Contains(desc, "restaurant") ||
		strings.Contains(strings.ToLower(r.Vendor), "restaurant")
}
