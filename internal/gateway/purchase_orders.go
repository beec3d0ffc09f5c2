package gateway

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/procurehub/portal/internal/domain/draft"
)

// PurchaseOrderRecord is the wire representation of a purchase order:
// flat fields, line items and milestones carrying a sortOrder integer.
// Nullable fields are pointers and get coerced to safe defaults during
// mapping.
type PurchaseOrderRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	RequesterDepartment string  `json:"requesterDepartment"`
	RequesterUser       string  `json:"requesterUser"`
	BudgetCode          string  `json:"budgetCode"`
	NeedByDate          *string `json:"needByDate"`

	SupplierName *string          `json:"supplierName"`
	LineItems    []LineItemRecord `json:"lineItems"`

	PaymentTermID          *string           `json:"paymentTermId"`
	PaymentTermLabel       *string           `json:"paymentTermLabel"`
	PaymentTermDescription *string           `json:"paymentTermDescription"`
	TaxIncluded            *bool             `json:"taxIncluded"`
	AdvancePercentage      *float64          `json:"advancePercentage"`
	BalanceDueInDays       *int              `json:"balanceDueInDays"`
	CustomTerms            *string           `json:"customTerms"`
	Milestones             []MilestoneRecord `json:"milestones"`

	CompliancePurpose       string `json:"compliancePurpose"`
	ComplianceJustification string `json:"complianceJustification"`
	ComplianceNotes         string `json:"complianceNotes"`
	ReviewPurpose           string `json:"reviewPurpose"`
	ReviewJustification     string `json:"reviewJustification"`
	ReviewNotes             string `json:"reviewNotes"`
}

// LineItemRecord is one wire line item.
type LineItemRecord struct {
	ID            string   `json:"id"`
	CatalogItemID *string  `json:"catalogItemId"`
	Item          *string  `json:"item"`
	Supplier      *string  `json:"supplier"`
	Category      *string  `json:"category"`
	Description   *string  `json:"description"`
	Quantity      *float64 `json:"quantity"`
	UnitPrice     *float64 `json:"unitPrice"`
	SortOrder     int      `json:"sortOrder"`
}

// MilestoneRecord is one wire payment milestone.
type MilestoneRecord struct {
	ID         string   `json:"id"`
	Label      *string  `json:"label"`
	Percentage *float64 `json:"percentage"`
	DueInDays  *int     `json:"dueInDays"`
	SortOrder  int      `json:"sortOrder"`
}

// PurchaseOrderSummary is a list-view row.
type PurchaseOrderSummary struct {
	ID           string    `json:"id"`
	SupplierName string    `json:"supplierName"`
	Department   string    `json:"requesterDepartment"`
	ItemCount    int       `json:"itemCount"`
	TotalAmount  float64   `json:"totalAmount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MapStepTwo maps the wire record into the step-two shape: line items
// sorted by sortOrder ascending, nullable fields coerced to "" and 0.
func MapStepTwo(rec PurchaseOrderRecord) draft.StepTwoData {
	items := make([]LineItemRecord, len(rec.LineItems))
	copy(items, rec.LineItems)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SortOrder < items[j].SortOrder
	})

	out := draft.StepTwoData{
		SupplierName: deref(rec.SupplierName),
		Items:        make([]draft.LineItem, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, draft.LineItem{
			ID:            it.ID,
			CatalogItemID: deref(it.CatalogItemID),
			Item:          deref(it.Item),
			Supplier:      deref(it.Supplier),
			Category:      deref(it.Category),
			Description:   deref(it.Description),
			Quantity:      derefFloat(it.Quantity),
			UnitPrice:     derefFloat(it.UnitPrice),
		})
	}
	return out
}

// MapStepThree maps the wire record into the payment-terms shape. The
// gateway does not always echo an explicit term discriminator, so the
// effective term is resolved by a priority chain: known paymentTermId,
// then milestones present, then custom terms, then advance fields, then
// the NET_30 default.
func MapStepThree(rec PurchaseOrderRecord) draft.StepThreeData {
	out := draft.StepThreeData{
		PaymentTerm:       resolvePaymentTerm(rec),
		TaxIncluded:       rec.TaxIncluded != nil && *rec.TaxIncluded,
		AdvancePercentage: rec.AdvancePercentage,
		BalanceDueInDays:  rec.BalanceDueInDays,
		CustomTerms:       deref(rec.CustomTerms),
	}

	if len(rec.Milestones) > 0 {
		milestones := make([]MilestoneRecord, len(rec.Milestones))
		copy(milestones, rec.Milestones)
		sort.SliceStable(milestones, func(i, j int) bool {
			return milestones[i].SortOrder < milestones[j].SortOrder
		})
		out.Milestones = make([]draft.Milestone, 0, len(milestones))
		for _, m := range milestones {
			out.Milestones = append(out.Milestones, draft.Milestone{
				ID:         m.ID,
				Label:      deref(m.Label),
				Percentage: derefFloat(m.Percentage),
				DueInDays:  derefInt(m.DueInDays),
			})
		}
	}
	return out
}

func resolvePaymentTerm(rec PurchaseOrderRecord) draft.PaymentTermOption {
	if rec.PaymentTermID != nil {
		if opt, ok := draft.LookupPaymentTerm(draft.PaymentTermID(*rec.PaymentTermID)); ok {
			if rec.PaymentTermLabel != nil && *rec.PaymentTermLabel != "" {
				opt.Label = *rec.PaymentTermLabel
			}
			if rec.PaymentTermDescription != nil && *rec.PaymentTermDescription != "" {
				opt.Description = *rec.PaymentTermDescription
			}
			return opt
		}
	}
	if len(rec.Milestones) > 0 {
		opt, _ := draft.LookupPaymentTerm(draft.PaymentTermMilestone)
		return opt
	}
	if deref(rec.CustomTerms) != "" {
		opt, _ := draft.LookupPaymentTerm(draft.PaymentTermCustom)
		return opt
	}
	if rec.AdvancePercentage != nil || rec.BalanceDueInDays != nil {
		opt, _ := draft.LookupPaymentTerm(draft.PaymentTermAdvance)
		return opt
	}
	return draft.DefaultPaymentTerm()
}

// MapRecordToDraft assembles the full step-shaped draft from the wire
// record.
func MapRecordToDraft(rec PurchaseOrderRecord) draft.Draft {
	return draft.Draft{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Step1: draft.StepOneData{
			Department: rec.RequesterDepartment,
			Requester:  rec.RequesterUser,
			BudgetCode: rec.BudgetCode,
			NeedByDate: deref(rec.NeedByDate),
		},
		Step2: MapStepTwo(rec),
		Step3: MapStepThree(rec),
		Step4: draft.GenericStepData{
			Purpose:       rec.CompliancePurpose,
			Justification: rec.ComplianceJustification,
			Notes:         rec.ComplianceNotes,
		},
		Step5: draft.GenericStepData{
			Purpose:       rec.ReviewPurpose,
			Justification: rec.ReviewJustification,
			Notes:         rec.ReviewNotes,
		},
	}
}

// PurchaseOrderPayload is the partial update body sent to the gateway.
// Only non-nil fields are transmitted; step payload builders fill the
// fragment for their step.
type PurchaseOrderPayload struct {
	RequesterDepartment *string `json:"requesterDepartment,omitempty"`
	RequesterUser       *string `json:"requesterUser,omitempty"`
	BudgetCode          *string `json:"budgetCode,omitempty"`
	NeedByDate          *string `json:"needByDate,omitempty"`

	SupplierName *string           `json:"supplierName,omitempty"`
	LineItems    *[]LineItemRecord `json:"lineItems,omitempty"`

	PaymentTermID     *string            `json:"paymentTermId,omitempty"`
	TaxIncluded       *bool              `json:"taxIncluded,omitempty"`
	AdvancePercentage *float64           `json:"advancePercentage,omitempty"`
	BalanceDueInDays  *int               `json:"balanceDueInDays,omitempty"`
	CustomTerms       *string            `json:"customTerms,omitempty"`
	Milestones        *[]MilestoneRecord `json:"milestones,omitempty"`

	CompliancePurpose       *string `json:"compliancePurpose,omitempty"`
	ComplianceJustification *string `json:"complianceJustification,omitempty"`
	ComplianceNotes         *string `json:"complianceNotes,omitempty"`
	ReviewPurpose           *string `json:"reviewPurpose,omitempty"`
	ReviewJustification     *string `json:"reviewJustification,omitempty"`
	ReviewNotes             *string `json:"reviewNotes,omitempty"`
}

// IsEmpty reports whether the payload carries no fields.
func (p PurchaseOrderPayload) IsEmpty() bool {
	return p == (PurchaseOrderPayload{})
}

// BuildStepOnePayload builds the wire fragment for the requester step.
func BuildStepOnePayload(d draft.StepOneData) PurchaseOrderPayload {
	return PurchaseOrderPayload{
		RequesterDepartment: ptr(d.Department),
		RequesterUser:       ptr(d.Requester),
		BudgetCode:          ptr(d.BudgetCode),
		NeedByDate:          ptr(d.NeedByDate),
	}
}

// BuildStepTwoPayload builds the wire fragment for the line-items step.
// sortOrder is assigned from the item's position.
func BuildStepTwoPayload(d draft.StepTwoData) PurchaseOrderPayload {
	items := lineItemRecords(d.Items)
	return PurchaseOrderPayload{
		SupplierName: ptr(d.SupplierName),
		LineItems:    &items,
	}
}

// BuildStepThreePayload builds the wire fragment for the payment step.
func BuildStepThreePayload(d draft.StepThreeData) PurchaseOrderPayload {
	milestones := milestoneRecords(d.Milestones)
	return PurchaseOrderPayload{
		PaymentTermID:     ptr(string(d.PaymentTerm.ID)),
		TaxIncluded:       ptr(d.TaxIncluded),
		AdvancePercentage: d.AdvancePercentage,
		BalanceDueInDays:  d.BalanceDueInDays,
		CustomTerms:       ptr(d.CustomTerms),
		Milestones:        &milestones,
	}
}

// BuildStepFourPayload builds the wire fragment for the compliance step.
func BuildStepFourPayload(d draft.GenericStepData) PurchaseOrderPayload {
	return PurchaseOrderPayload{
		CompliancePurpose:       ptr(d.Purpose),
		ComplianceJustification: ptr(d.Justification),
		ComplianceNotes:         ptr(d.Notes),
	}
}

// BuildStepFivePayload builds the wire fragment for the review step.
func BuildStepFivePayload(d draft.GenericStepData) PurchaseOrderPayload {
	return PurchaseOrderPayload{
		ReviewPurpose:       ptr(d.Purpose),
		ReviewJustification: ptr(d.Justification),
		ReviewNotes:         ptr(d.Notes),
	}
}

// BuildUpdatePayload translates a sanitized pending-changes overlay into
// a single wire payload carrying only the changed fields.
func BuildUpdatePayload(pc draft.PendingChanges) PurchaseOrderPayload {
	var p PurchaseOrderPayload
	if c := pc.Step1; c != nil {
		if c.Department.Set {
			p.RequesterDepartment = ptr(c.Department.Value)
		}
		if c.Requester.Set {
			p.RequesterUser = ptr(c.Requester.Value)
		}
		if c.BudgetCode.Set {
			p.BudgetCode = ptr(c.BudgetCode.Value)
		}
		if c.NeedByDate.Set {
			p.NeedByDate = ptr(c.NeedByDate.Value)
		}
	}
	if c := pc.Step2; c != nil {
		if c.SupplierName.Set {
			p.SupplierName = ptr(c.SupplierName.Value)
		}
		if c.Items.Set {
			items := lineItemRecords(c.Items.Value)
			p.LineItems = &items
		}
	}
	if c := pc.Step3; c != nil {
		if c.PaymentTerm.Set {
			p.PaymentTermID = ptr(string(c.PaymentTerm.Value.ID))
		}
		if c.TaxIncluded.Set {
			p.TaxIncluded = ptr(c.TaxIncluded.Value)
		}
		if c.AdvancePercentage.Set {
			p.AdvancePercentage = c.AdvancePercentage.Value
		}
		if c.BalanceDueInDays.Set {
			p.BalanceDueInDays = c.BalanceDueInDays.Value
		}
		if c.CustomTerms.Set {
			p.CustomTerms = ptr(c.CustomTerms.Value)
		}
		if c.Milestones.Set {
			milestones := milestoneRecords(c.Milestones.Value)
			p.Milestones = &milestones
		}
	}
	return p
}

func lineItemRecords(items []draft.LineItem) []LineItemRecord {
	out := make([]LineItemRecord, 0, len(items))
	for idx, li := range items {
		out = append(out, LineItemRecord{
			ID:            li.ID,
			CatalogItemID: ptr(li.CatalogItemID),
			Item:          ptr(li.Item),
			Supplier:      ptr(li.Supplier),
			Category:      ptr(li.Category),
			Description:   ptr(li.Description),
			Quantity:      ptr(li.Quantity),
			UnitPrice:     ptr(li.UnitPrice),
			SortOrder:     idx,
		})
	}
	return out
}

func milestoneRecords(milestones []draft.Milestone) []MilestoneRecord {
	out := make([]MilestoneRecord, 0, len(milestones))
	for idx, m := range milestones {
		out = append(out, MilestoneRecord{
			ID:         m.ID,
			Label:      ptr(m.Label),
			Percentage: ptr(m.Percentage),
			DueInDays:  ptr(m.DueInDays),
			SortOrder:  idx,
		})
	}
	return out
}

// CreatePurchaseOrder creates a draft from the first wizard step and
// returns the gateway-assigned draft.
func (c *Client) CreatePurchaseOrder(ctx context.Context, token string, step1 draft.StepOneData) (draft.Draft, error) {
	payload := BuildStepOnePayload(step1)
	var rec PurchaseOrderRecord
	if err := c.Post(ctx, "/purchase-orders", token, payload, &rec); err != nil {
		return draft.Draft{}, err
	}
	return MapRecordToDraft(rec), nil
}

// GetPurchaseOrder fetches one order by id.
func (c *Client) GetPurchaseOrder(ctx context.Context, token, id string) (draft.Draft, error) {
	var rec PurchaseOrderRecord
	if err := c.Get(ctx, "/purchase-orders/"+id, token, &rec); err != nil {
		return draft.Draft{}, err
	}
	return MapRecordToDraft(rec), nil
}

// UpdatePurchaseOrder PUTs a partial payload against the order and
// returns the gateway's full refreshed state.
func (c *Client) UpdatePurchaseOrder(ctx context.Context, token, id string, payload PurchaseOrderPayload) (draft.Draft, error) {
	var rec PurchaseOrderRecord
	if err := c.Put(ctx, "/purchase-orders/"+id, token, payload, &rec); err != nil {
		return draft.Draft{}, err
	}
	return MapRecordToDraft(rec), nil
}

// ListPurchaseOrders fetches the list-view rows.
func (c *Client) ListPurchaseOrders(ctx context.Context, token string) ([]PurchaseOrderSummary, error) {
	var out []PurchaseOrderSummary
	if err := c.Get(ctx, "/purchase-orders", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePurchaseOrder removes an order.
func (c *Client) DeletePurchaseOrder(ctx context.Context, token, id string) error {
	return c.Delete(ctx, fmt.Sprintf("/purchase-orders/%s", id), token)
}

func ptr[T any](v T) *T { return &v }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
