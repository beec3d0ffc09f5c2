package draft

import "fmt"

// FieldError is a single validation failure, rendered inline next to the
// offending field. Validation failures never reach the network: they
// disable the Next/Update action instead.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Message
}

// ValidateStepOne checks the requester step.
func ValidateStepOne(d StepOneData) []FieldError {
	var errs []FieldError
	if d.Department == "" {
		errs = append(errs, FieldError{Field: "department", Message: "Department is required."})
	}
	if d.Requester == "" {
		errs = append(errs, FieldError{Field: "requester", Message: "Requester is required."})
	}
	if d.BudgetCode == "" {
		errs = append(errs, FieldError{Field: "budget_code", Message: "Budget code is required."})
	}
	return errs
}

// ValidateStepTwo checks the line items, including the
// supplier-consistency invariant.
func ValidateStepTwo(d StepTwoData) []FieldError {
	var errs []FieldError
	if len(d.Items) == 0 {
		errs = append(errs, FieldError{Field: "items", Message: "At least one line item is required."})
		return errs
	}
	for i, li := range d.Items {
		if li.Quantity <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "Quantity must be greater than zero.",
			})
		}
		if li.UnitPrice < 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("items[%d].unit_price", i),
				Message: "Unit price cannot be negative.",
			})
		}
		if li.Supplier != d.SupplierName {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("items[%d].supplier", i),
				Message: SupplierMismatchMessage,
			})
		}
	}
	return errs
}

// ValidateStepThree checks the payment terms. The conditional fields are
// only required under their own term; stray values under other terms are
// ignored, not rejected.
func ValidateStepThree(d StepThreeData) []FieldError {
	var errs []FieldError
	if !d.PaymentTerm.ID.IsValid() {
		errs = append(errs, FieldError{Field: "payment_term", Message: "A payment term is required."})
		return errs
	}

	switch d.PaymentTerm.ID {
	case PaymentTermAdvance:
		if d.AdvancePercentage == nil {
			errs = append(errs, FieldError{Field: "advance_percentage", Message: "Advance percentage is required."})
		} else if *d.AdvancePercentage <= 0 || *d.AdvancePercentage > 100 {
			errs = append(errs, FieldError{Field: "advance_percentage", Message: "Advance percentage must be between 1 and 100."})
		}
		if d.BalanceDueInDays == nil {
			errs = append(errs, FieldError{Field: "balance_due_in_days", Message: "Balance due days is required."})
		} else if *d.BalanceDueInDays < 0 {
			errs = append(errs, FieldError{Field: "balance_due_in_days", Message: "Balance due days cannot be negative."})
		}
	case PaymentTermCustom:
		if d.CustomTerms == "" {
			errs = append(errs, FieldError{Field: "custom_terms", Message: "Custom terms are required."})
		}
	case PaymentTermMilestone:
		if len(d.Milestones) == 0 {
			errs = append(errs, FieldError{Field: "milestones", Message: "At least one milestone is required."})
			break
		}
		total := 0.0
		for i, m := range d.Milestones {
			if m.Label == "" {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("milestones[%d].label", i),
					Message: "Milestone label is required.",
				})
			}
			if m.Percentage <= 0 || m.Percentage > 100 {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("milestones[%d].percentage", i),
					Message: "Milestone percentage must be between 1 and 100.",
				})
			}
			if m.DueInDays < 0 {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("milestones[%d].due_in_days", i),
					Message: "Milestone due days cannot be negative.",
				})
			}
			total += m.Percentage
		}
		if total != 100 {
			errs = append(errs, FieldError{Field: "milestones", Message: "Milestone percentages must sum to 100."})
		}
	}
	return errs
}

// ValidateGenericStep checks a compliance/review step: all three fields
// must be non-empty.
func ValidateGenericStep(d GenericStepData) []FieldError {
	var errs []FieldError
	if d.Purpose == "" {
		errs = append(errs, FieldError{Field: "purpose", Message: "Purpose is required."})
	}
	if d.Justification == "" {
		errs = append(errs, FieldError{Field: "justification", Message: "Justification is required."})
	}
	if d.Notes == "" {
		errs = append(errs, FieldError{Field: "notes", Message: "Notes are required."})
	}
	return errs
}

// ValidateStep dispatches to the validator for the given wizard step
// (1-based).
func ValidateStep(d Draft, step int) []FieldError {
	switch step {
	case 1:
		return ValidateStepOne(d.Step1)
	case 2:
		return ValidateStepTwo(d.Step2)
	case 3:
		return ValidateStepThree(d.Step3)
	case 4:
		return ValidateGenericStep(d.Step4)
	case 5:
		return ValidateGenericStep(d.Step5)
	}
	return []FieldError{{Field: "step", Message: fmt.Sprintf("Unknown wizard step %d.", step)}}
}
