package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/portal/internal/domain/draft"
	"github.com/procurehub/portal/internal/domain/shared"
	"github.com/procurehub/portal/internal/gateway"
)

// fakeUpdater records the payloads it receives and answers from a script.
type fakeUpdater struct {
	mu       sync.Mutex
	payloads []gateway.PurchaseOrderPayload
	result   draft.Draft
	err      error
	block    chan struct{}
}

func (f *fakeUpdater) UpdatePurchaseOrder(ctx context.Context, token, id string, payload gateway.PurchaseOrderPayload) (draft.Draft, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.err != nil {
		return draft.Draft{}, f.err
	}
	return f.result, nil
}

func editBase() draft.Draft {
	return draft.Draft{
		ID: "po-1",
		Step1: draft.StepOneData{
			Department: "Engineering",
			Requester:  "u-1",
			BudgetCode: "ENG-2026",
		},
		Step2: draft.StepTwoData{
			SupplierName: "Acme Corp",
			Items: []draft.LineItem{
				{ID: "a", Item: "Laptop", Supplier: "Acme Corp", Quantity: 2, UnitPrice: 1200},
			},
		},
		Step3: draft.StepThreeData{PaymentTerm: draft.DefaultPaymentTerm()},
	}
}

func TestEditSession_Staging(t *testing.T) {
	t.Run("open step seeds from the display order, not the baseline", func(t *testing.T) {
		s := NewEditSession(&fakeUpdater{}, "tok", editBase())

		step1 := s.OpenStep(1).Step1
		step1.BudgetCode = "ENG-2027"
		s.StageStepOne(step1)

		seeded := s.OpenStep(1).Step1
		assert.Equal(t, "ENG-2027", seeded.BudgetCode)
		assert.Equal(t, "Engineering", seeded.Department)
	})

	t.Run("re-staging the original values clears the step diff", func(t *testing.T) {
		s := NewEditSession(&fakeUpdater{}, "tok", editBase())

		edited := editBase().Step1
		edited.BudgetCode = "ENG-2027"
		s.StageStepOne(edited)
		require.True(t, s.HasPendingChanges())

		s.StageStepOne(editBase().Step1)
		assert.False(t, s.HasPendingChanges())
	})

	t.Run("edits staged across steps stack in the display order", func(t *testing.T) {
		s := NewEditSession(&fakeUpdater{}, "tok", editBase())

		step1 := s.OpenStep(1).Step1
		step1.Department = "Operations"
		s.StageStepOne(step1)

		step3 := s.OpenStep(3).Step3
		step3.TaxIncluded = true
		s.StageStepThree(step3)

		display := s.Display()
		assert.Equal(t, "Operations", display.Step1.Department)
		assert.True(t, display.Step3.TaxIncluded)
		assert.Equal(t, "Engineering", s.Base().Step1.Department)
	})

	t.Run("cancel discards the overlay", func(t *testing.T) {
		s := NewEditSession(&fakeUpdater{}, "tok", editBase())

		edited := editBase().Step1
		edited.Requester = "u-2"
		s.StageStepOne(edited)

		s.Cancel()

		assert.False(t, s.HasPendingChanges())
		assert.Equal(t, "u-1", s.Display().Step1.Requester)
	})
}

func TestEditSession_Save(t *testing.T) {
	t.Run("sends only the staged fragments", func(t *testing.T) {
		updated := editBase()
		updated.Step1.BudgetCode = "ENG-2027"
		up := &fakeUpdater{result: updated}
		s := NewEditSession(up, "tok", editBase())

		edited := editBase().Step1
		edited.BudgetCode = "ENG-2027"
		s.StageStepOne(edited)

		got, err := s.Save(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "ENG-2027", got.Step1.BudgetCode)
		require.Len(t, up.payloads, 1)
		p := up.payloads[0]
		require.NotNil(t, p.BudgetCode)
		assert.Equal(t, "ENG-2027", *p.BudgetCode)
		assert.Nil(t, p.RequesterDepartment)
		assert.Nil(t, p.SupplierName)
		assert.Nil(t, p.PaymentTermID)
	})

	t.Run("success rebases and clears the overlay", func(t *testing.T) {
		updated := editBase()
		updated.Step1.Department = "Operations"
		up := &fakeUpdater{result: updated}
		s := NewEditSession(up, "tok", editBase())

		edited := editBase().Step1
		edited.Department = "Operations"
		s.StageStepOne(edited)

		_, err := s.Save(context.Background())

		require.NoError(t, err)
		assert.False(t, s.HasPendingChanges())
		assert.Equal(t, "Operations", s.Base().Step1.Department)
	})

	t.Run("failure keeps the overlay for a retry", func(t *testing.T) {
		up := &fakeUpdater{err: errors.New("boom")}
		s := NewEditSession(up, "tok", editBase())

		edited := editBase().Step1
		edited.Department = "Operations"
		s.StageStepOne(edited)

		_, err := s.Save(context.Background())

		require.Error(t, err)
		assert.True(t, s.HasPendingChanges())
		assert.Equal(t, "Operations", s.Display().Step1.Department)
	})

	t.Run("gateway 409 maps to the supplier conflict", func(t *testing.T) {
		up := &fakeUpdater{err: &gateway.APIError{Status: 409, Message: "conflict"}}
		s := NewEditSession(up, "tok", editBase())

		edited := editBase().Step2
		edited.Items = append(edited.Items, draft.LineItem{ID: "b", Item: "Chair", Supplier: "Acme Corp", Quantity: 1, UnitPrice: 80})
		s.StageStepTwo(edited)

		_, err := s.Save(context.Background())

		assert.ErrorIs(t, err, shared.ErrSupplierConflict)
	})

	t.Run("save with nothing staged returns the baseline without a call", func(t *testing.T) {
		up := &fakeUpdater{}
		s := NewEditSession(up, "tok", editBase())

		got, err := s.Save(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "po-1", got.ID)
		assert.Empty(t, up.payloads)
	})

	t.Run("overlapping saves are rejected", func(t *testing.T) {
		up := &fakeUpdater{result: editBase(), block: make(chan struct{})}
		s := NewEditSession(up, "tok", editBase())

		edited := editBase().Step1
		edited.Department = "Operations"
		s.StageStepOne(edited)

		firstDone := make(chan error, 1)
		go func() {
			_, err := s.Save(context.Background())
			firstDone <- err
		}()

		// Wait for the first save to hit the updater.
		require.Eventually(t, func() bool {
			up.mu.Lock()
			defer up.mu.Unlock()
			return len(up.payloads) == 1
		}, time.Second, 5*time.Millisecond)

		_, err := s.Save(context.Background())
		assert.ErrorIs(t, err, shared.ErrSaveInFlight)

		close(up.block)
		require.NoError(t, <-firstDone)
	})
}
