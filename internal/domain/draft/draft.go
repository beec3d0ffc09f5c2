package draft

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Draft represents an in-progress purchase order, addressable by id and
// mutable through staged per-step updates. The id is assigned by the
// gateway on the first create call.
type Draft struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Step1     StepOneData     `json:"step1"`
	Step2     StepTwoData     `json:"step2"`
	Step3     StepThreeData   `json:"step3"`
	Step4     GenericStepData `json:"step4"`
	Step5     GenericStepData `json:"step5"`
}

// StepOneData holds the requester information collected in the first
// wizard step. NeedByDate is an ISO date string; empty means unset.
type StepOneData struct {
	Department string `json:"department"`
	Requester  string `json:"requester"`
	BudgetCode string `json:"budget_code"`
	NeedByDate string `json:"need_by_date,omitempty"`
}

// StepTwoData holds the supplier and the ordered list of line items.
// SupplierName may be empty until the first item is added.
type StepTwoData struct {
	SupplierName string     `json:"supplier_name"`
	Items        []LineItem `json:"items"`
}

// LineItem is one catalog entry with quantity and unit price on a
// purchase order. ID is the stable per-row identity, independent of the
// catalog id: client-generated for ephemeral rows, server-assigned once
// persisted. The two are interchangeable strings.
type LineItem struct {
	ID            string  `json:"id"`
	CatalogItemID string  `json:"catalog_item_id"`
	Item          string  `json:"item"`
	Supplier      string  `json:"supplier"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
}

// Amount returns quantity * unit price for the line.
func (li LineItem) Amount() decimal.Decimal {
	return decimal.NewFromFloat(li.Quantity).Mul(decimal.NewFromFloat(li.UnitPrice))
}

// TotalAmount returns the sum of all line amounts.
func (d StepTwoData) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, li := range d.Items {
		total = total.Add(li.Amount())
	}
	return total
}

// ItemIndex returns the position of the item with the given id, or -1.
func (d StepTwoData) ItemIndex(id string) int {
	for idx := range d.Items {
		if d.Items[idx].ID == id {
			return idx
		}
	}
	return -1
}

// StepThreeData holds the payment terms. AdvancePercentage and
// BalanceDueInDays are required together iff the term is ADVANCE,
// CustomTerms iff CUSTOM, Milestones iff MILESTONE.
type StepThreeData struct {
	PaymentTerm       PaymentTermOption `json:"payment_term"`
	TaxIncluded       bool              `json:"tax_included"`
	AdvancePercentage *float64          `json:"advance_percentage,omitempty"`
	BalanceDueInDays  *int              `json:"balance_due_in_days,omitempty"`
	CustomTerms       string            `json:"custom_terms,omitempty"`
	Milestones        []Milestone       `json:"milestones,omitempty"`
}

// Milestone is a partial-payment event: a percentage of the order total
// due a number of days after confirmation. Percentages across a step's
// milestones must sum to 100 before the step can be saved.
type Milestone struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Percentage float64 `json:"percentage"`
	DueInDays  int     `json:"due_in_days"`
}

// Amount returns this milestone's share of the given order total.
func (m Milestone) Amount(total decimal.Decimal) decimal.Decimal {
	return total.Mul(decimal.NewFromFloat(m.Percentage)).Div(decimal.NewFromInt(100)).Round(2)
}

// GenericStepData holds the three free-text fields used by the
// compliance and review steps. Fields are only checked for non-emptiness.
type GenericStepData struct {
	Purpose       string `json:"purpose"`
	Justification string `json:"justification"`
	Notes         string `json:"notes"`
}

// PaymentTermID identifies one of the fixed payment term types.
type PaymentTermID string

const (
	PaymentTermNet15     PaymentTermID = "NET_15"
	PaymentTermNet30     PaymentTermID = "NET_30"
	PaymentTermNet45     PaymentTermID = "NET_45"
	PaymentTermNet60     PaymentTermID = "NET_60"
	PaymentTermAdvance   PaymentTermID = "ADVANCE"
	PaymentTermMilestone PaymentTermID = "MILESTONE"
	PaymentTermCustom    PaymentTermID = "CUSTOM"
)

// IsValid checks if the id is a known payment term.
func (id PaymentTermID) IsValid() bool {
	switch id {
	case PaymentTermNet15, PaymentTermNet30, PaymentTermNet45, PaymentTermNet60,
		PaymentTermAdvance, PaymentTermMilestone, PaymentTermCustom:
		return true
	}
	return false
}

// String returns the string representation of the payment term id.
func (id PaymentTermID) String() string {
	return string(id)
}

// PaymentTermOption is a payment term with its display label and
// description. The gateway may override label/description per order.
type PaymentTermOption struct {
	ID          PaymentTermID `json:"id"`
	Label       string        `json:"label"`
	Description string        `json:"description"`
}

var paymentTermOptions = []PaymentTermOption{
	{ID: PaymentTermNet15, Label: "Net 15", Description: "Full payment due 15 days after invoice"},
	{ID: PaymentTermNet30, Label: "Net 30", Description: "Full payment due 30 days after invoice"},
	{ID: PaymentTermNet45, Label: "Net 45", Description: "Full payment due 45 days after invoice"},
	{ID: PaymentTermNet60, Label: "Net 60", Description: "Full payment due 60 days after invoice"},
	{ID: PaymentTermAdvance, Label: "Advance", Description: "Partial payment up front, balance on delivery"},
	{ID: PaymentTermMilestone, Label: "Milestones", Description: "Payments released against agreed milestones"},
	{ID: PaymentTermCustom, Label: "Custom", Description: "Free-text terms agreed with the supplier"},
}

// PaymentTermOptions returns the fixed catalog of payment terms.
func PaymentTermOptions() []PaymentTermOption {
	out := make([]PaymentTermOption, len(paymentTermOptions))
	copy(out, paymentTermOptions)
	return out
}

// LookupPaymentTerm resolves a payment term id against the catalog.
func LookupPaymentTerm(id PaymentTermID) (PaymentTermOption, bool) {
	for _, opt := range paymentTermOptions {
		if opt.ID == id {
			return opt, true
		}
	}
	return PaymentTermOption{}, false
}

// DefaultPaymentTerm is the term assumed when the gateway echoes no
// usable discriminator.
func DefaultPaymentTerm() PaymentTermOption {
	opt, _ := LookupPaymentTerm(PaymentTermNet30)
	return opt
}

// NewLineItemID generates an ephemeral id for a line item added
// client-side before persistence.
func NewLineItemID() string {
	return uuid.New().String()
}

// NewMilestoneID generates an ephemeral id for a milestone added
// client-side before persistence.
func NewMilestoneID() string {
	return uuid.New().String()
}
