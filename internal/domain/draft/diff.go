package draft

import "slices"

// Field wraps a step field in the sparse pending-changes overlay. Set
// distinguishes "changed to the zero value" from "unchanged".
type Field[T any] struct {
	Set   bool
	Value T
}

// Changed returns a set field holding v.
func Changed[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// StepOneChanges is the field-level diff of the requester step.
type StepOneChanges struct {
	Department Field[string]
	Requester  Field[string]
	BudgetCode Field[string]
	NeedByDate Field[string]
}

// Empty reports whether no field changed.
func (c StepOneChanges) Empty() bool {
	return !c.Department.Set && !c.Requester.Set && !c.BudgetCode.Set && !c.NeedByDate.Set
}

// StepTwoChanges is the diff of the line-items step. Diffs are shallow:
// when either field differs the entire new value is carried, there is no
// per-item diffing.
type StepTwoChanges struct {
	SupplierName Field[string]
	Items        Field[[]LineItem]
}

// Empty reports whether no field changed.
func (c StepTwoChanges) Empty() bool {
	return !c.SupplierName.Set && !c.Items.Set
}

// StepThreeChanges is the field-level diff of the payment-terms step.
type StepThreeChanges struct {
	PaymentTerm       Field[PaymentTermOption]
	TaxIncluded       Field[bool]
	AdvancePercentage Field[*float64]
	BalanceDueInDays  Field[*int]
	CustomTerms       Field[string]
	Milestones        Field[[]Milestone]
}

// Empty reports whether no field changed.
func (c StepThreeChanges) Empty() bool {
	return !c.PaymentTerm.Set && !c.TaxIncluded.Set && !c.AdvancePercentage.Set &&
		!c.BalanceDueInDays.Set && !c.CustomTerms.Set && !c.Milestones.Set
}

// PendingChanges is the sparse overlay of staged edits over a persisted
// order. A step key is nil when that step's diff is empty, so an empty
// overlay is the zero value.
type PendingChanges struct {
	Step1 *StepOneChanges
	Step2 *StepTwoChanges
	Step3 *StepThreeChanges
}

// HasPending reports whether at least one step diff is present.
func (pc PendingChanges) HasPending() bool {
	return pc.Step1 != nil || pc.Step2 != nil || pc.Step3 != nil
}

// DiffStepOne compares the requester step field by field. NeedByDate is
// normalized so that a missing date and an empty string are equal.
func DiffStepOne(base, next StepOneData) StepOneChanges {
	var c StepOneChanges
	if base.Department != next.Department {
		c.Department = Changed(next.Department)
	}
	if base.Requester != next.Requester {
		c.Requester = Changed(next.Requester)
	}
	if base.BudgetCode != next.BudgetCode {
		c.BudgetCode = Changed(next.BudgetCode)
	}
	if base.NeedByDate != next.NeedByDate {
		c.NeedByDate = Changed(next.NeedByDate)
	}
	return c
}

// DiffStepTwo compares the supplier by equality and the items by
// order-sensitive deep equality; a reorder alone produces a diff.
func DiffStepTwo(base, next StepTwoData) StepTwoChanges {
	var c StepTwoChanges
	if base.SupplierName != next.SupplierName {
		c.SupplierName = Changed(next.SupplierName)
	}
	if !slices.Equal(base.Items, next.Items) {
		c.Items = Changed(slices.Clone(next.Items))
	}
	return c
}

// DiffStepThree compares each payment-terms field individually.
func DiffStepThree(base, next StepThreeData) StepThreeChanges {
	var c StepThreeChanges
	if base.PaymentTerm != next.PaymentTerm {
		c.PaymentTerm = Changed(next.PaymentTerm)
	}
	if base.TaxIncluded != next.TaxIncluded {
		c.TaxIncluded = Changed(next.TaxIncluded)
	}
	if !floatPtrEqual(base.AdvancePercentage, next.AdvancePercentage) {
		c.AdvancePercentage = Changed(next.AdvancePercentage)
	}
	if !intPtrEqual(base.BalanceDueInDays, next.BalanceDueInDays) {
		c.BalanceDueInDays = Changed(next.BalanceDueInDays)
	}
	if base.CustomTerms != next.CustomTerms {
		c.CustomTerms = Changed(next.CustomTerms)
	}
	if !slices.Equal(base.Milestones, next.Milestones) {
		c.Milestones = Changed(slices.Clone(next.Milestones))
	}
	return c
}

// Diff computes the sanitized overlay turning base into next: step diffs
// that came out empty are omitted entirely.
func Diff(base, next Draft) PendingChanges {
	var pc PendingChanges
	if c := DiffStepOne(base.Step1, next.Step1); !c.Empty() {
		pc.Step1 = &c
	}
	if c := DiffStepTwo(base.Step2, next.Step2); !c.Empty() {
		pc.Step2 = &c
	}
	if c := DiffStepThree(base.Step3, next.Step3); !c.Empty() {
		pc.Step3 = &c
	}
	return pc
}

// Apply overlays pending changes onto base and returns the result; base
// is never mutated. The result is what the edit view renders.
func Apply(base Draft, pc PendingChanges) Draft {
	out := base
	out.Step2.Items = slices.Clone(base.Step2.Items)
	out.Step3.Milestones = slices.Clone(base.Step3.Milestones)

	if c := pc.Step1; c != nil {
		if c.Department.Set {
			out.Step1.Department = c.Department.Value
		}
		if c.Requester.Set {
			out.Step1.Requester = c.Requester.Value
		}
		if c.BudgetCode.Set {
			out.Step1.BudgetCode = c.BudgetCode.Value
		}
		if c.NeedByDate.Set {
			out.Step1.NeedByDate = c.NeedByDate.Value
		}
	}
	if c := pc.Step2; c != nil {
		if c.SupplierName.Set {
			out.Step2.SupplierName = c.SupplierName.Value
		}
		if c.Items.Set {
			out.Step2.Items = slices.Clone(c.Items.Value)
		}
	}
	if c := pc.Step3; c != nil {
		if c.PaymentTerm.Set {
			out.Step3.PaymentTerm = c.PaymentTerm.Value
		}
		if c.TaxIncluded.Set {
			out.Step3.TaxIncluded = c.TaxIncluded.Value
		}
		if c.AdvancePercentage.Set {
			out.Step3.AdvancePercentage = c.AdvancePercentage.Value
		}
		if c.BalanceDueInDays.Set {
			out.Step3.BalanceDueInDays = c.BalanceDueInDays.Value
		}
		if c.CustomTerms.Set {
			out.Step3.CustomTerms = c.CustomTerms.Value
		}
		if c.Milestones.Set {
			out.Step3.Milestones = slices.Clone(c.Milestones.Value)
		}
	}
	return out
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
