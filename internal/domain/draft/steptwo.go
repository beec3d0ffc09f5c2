package draft

import "slices"

// SupplierMismatchMessage is the fixed warning shown when an item from a
// different supplier is saved into an order that already has one.
const SupplierMismatchMessage = "All items in a PO must come from the same supplier"

// StepTwoState is the reducer state for the line-items step. A non-empty
// SupplierWarning means the last save was rejected.
type StepTwoState struct {
	Values          StepTwoData
	SupplierWarning string
}

// StepTwoAction is a state transition applied by ReduceStepTwo.
type StepTwoAction interface {
	isStepTwoAction()
}

// SetValues replaces the step values wholesale and clears any warning.
// Used when (re)loading from the gateway.
type SetValues struct {
	Data StepTwoData
}

// SaveItem adds a new line item or replaces the existing one with the
// same id. Rejected with a warning when the item's supplier conflicts
// with the order's supplier.
type SaveItem struct {
	Item LineItem
}

// DeleteItem removes the line item with the given id.
type DeleteItem struct {
	ID string
}

// ReorderItems moves the item at Source to Destination, shifting the
// items in between.
type ReorderItems struct {
	Source      int
	Destination int
}

// ClearWarning clears the supplier warning only.
type ClearWarning struct{}

func (SetValues) isStepTwoAction()    {}
func (SaveItem) isStepTwoAction()     {}
func (DeleteItem) isStepTwoAction()   {}
func (ReorderItems) isStepTwoAction() {}
func (ClearWarning) isStepTwoAction() {}

// ReduceStepTwo applies an action to the step-two state and returns the
// next state. It is a pure function: no I/O, no mutation of the input.
// The supplier-consistency invariant is enforced here, not by the types:
// every item in one order must share step2's supplier name.
func ReduceStepTwo(s StepTwoState, a StepTwoAction) StepTwoState {
	switch act := a.(type) {
	case SetValues:
		return StepTwoState{Values: cloneStepTwo(act.Data)}

	case SaveItem:
		if s.Values.SupplierName != "" && act.Item.Supplier != s.Values.SupplierName {
			next := s
			next.Values = cloneStepTwo(s.Values)
			next.SupplierWarning = SupplierMismatchMessage
			return next
		}

		next := StepTwoState{Values: cloneStepTwo(s.Values)}
		if next.Values.SupplierName == "" {
			next.Values.SupplierName = act.Item.Supplier
		}
		if idx := next.Values.ItemIndex(act.Item.ID); idx >= 0 {
			next.Values.Items[idx] = act.Item
		} else {
			next.Values.Items = append(next.Values.Items, act.Item)
		}
		return next

	case DeleteItem:
		next := StepTwoState{Values: cloneStepTwo(s.Values), SupplierWarning: s.SupplierWarning}
		idx := next.Values.ItemIndex(act.ID)
		if idx < 0 {
			return next
		}
		next.Values.Items = slices.Delete(next.Values.Items, idx, idx+1)
		// With no items left the supplier is no longer pinned, so the
		// next saved item may establish a new one.
		if len(next.Values.Items) == 0 {
			next.Values.SupplierName = ""
		}
		return next

	case ReorderItems:
		n := len(s.Values.Items)
		if act.Source == act.Destination ||
			act.Source < 0 || act.Source >= n ||
			act.Destination < 0 || act.Destination >= n {
			return s
		}
		next := StepTwoState{Values: cloneStepTwo(s.Values), SupplierWarning: s.SupplierWarning}
		item := next.Values.Items[act.Source]
		next.Values.Items = slices.Delete(next.Values.Items, act.Source, act.Source+1)
		next.Values.Items = slices.Insert(next.Values.Items, act.Destination, item)
		return next

	case ClearWarning:
		next := s
		next.SupplierWarning = ""
		return next
	}

	return s
}

func cloneStepTwo(d StepTwoData) StepTwoData {
	out := d
	out.Items = slices.Clone(d.Items)
	return out
}
