package order

import (
	"context"
	"sync"

	"github.com/procurehub/portal/internal/domain/draft"
	"github.com/procurehub/portal/internal/domain/shared"
	"github.com/procurehub/portal/internal/gateway"
)

// Updater is the slice of the gateway client the edit session needs.
type Updater interface {
	UpdatePurchaseOrder(ctx context.Context, token, id string, payload gateway.PurchaseOrderPayload) (draft.Draft, error)
}

// EditSession lets a user edit a persisted purchase order through
// per-step sub-modals while issuing a minimal update containing only
// changed steps. It holds the last known server state (base) and a
// sparse overlay of staged edits (pending); the display order is always
// derived, never stored.
type EditSession struct {
	updater Updater
	token   string

	mu      sync.Mutex
	base    draft.Draft
	pending draft.PendingChanges
	saving  bool
}

// NewEditSession opens an edit session over a loaded baseline.
func NewEditSession(updater Updater, token string, base draft.Draft) *EditSession {
	return &EditSession{updater: updater, token: token, base: base}
}

// Base returns the last known server state.
func (s *EditSession) Base() draft.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// Display returns the baseline with all pending changes applied. This
// is what the detail view renders.
func (s *EditSession) Display() draft.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return draft.Apply(s.base, s.pending)
}

// OpenStep seeds a step's editing draft from the display order, not the
// baseline, so edits staged across steps stack before a save.
func (s *EditSession) OpenStep(step int) draft.Draft {
	return s.Display()
}

// StageStepOne records the requester-step edit. The step's slice of the
// overlay is recomputed against the baseline and dropped entirely when
// it came out empty.
func (s *EditSession) StageStepOne(data draft.StepOneData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := draft.DiffStepOne(s.base.Step1, data); !c.Empty() {
		s.pending.Step1 = &c
	} else {
		s.pending.Step1 = nil
	}
}

// StageStepTwo records the line-items-step edit.
func (s *EditSession) StageStepTwo(data draft.StepTwoData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := draft.DiffStepTwo(s.base.Step2, data); !c.Empty() {
		s.pending.Step2 = &c
	} else {
		s.pending.Step2 = nil
	}
}

// StageStepThree records the payment-step edit.
func (s *EditSession) StageStepThree(data draft.StepThreeData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := draft.DiffStepThree(s.base.Step3, data); !c.Empty() {
		s.pending.Step3 = &c
	} else {
		s.pending.Step3 = nil
	}
}

// PendingChanges returns the staged overlay.
func (s *EditSession) PendingChanges() draft.PendingChanges {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// HasPendingChanges reports whether at least one step diff is staged.
func (s *EditSession) HasPendingChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.HasPending()
}

// Save sends every staged step fragment in one PUT. On success the
// server's full response becomes the new baseline and the overlay
// resets; on failure the overlay is left untouched so the user can
// retry. Further saves are rejected while one is in flight.
func (s *EditSession) Save(ctx context.Context) (draft.Draft, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return draft.Draft{}, shared.ErrSaveInFlight
	}
	if !s.pending.HasPending() {
		base := s.base
		s.mu.Unlock()
		return base, nil
	}
	s.saving = true
	id := s.base.ID
	payload := gateway.BuildUpdatePayload(s.pending)
	s.mu.Unlock()

	updated, err := s.updater.UpdatePurchaseOrder(ctx, s.token, id, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		return draft.Draft{}, classify(err)
	}
	s.base = updated
	s.pending = draft.PendingChanges{}
	return updated, nil
}

// Cancel discards the overlay without a network call; the display order
// reverts to the baseline.
func (s *EditSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = draft.PendingChanges{}
}
