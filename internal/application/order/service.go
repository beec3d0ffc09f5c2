// Package order orchestrates the purchase-order wizard and edit flows
// over the gateway client.
package order

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/domain/draft"
	"github.com/procurehub/portal/internal/domain/shared"
	"github.com/procurehub/portal/internal/gateway"
)

// ValidationError aggregates the inline field failures that block a
// Next/Update action. It never reaches the gateway.
type ValidationError struct {
	Fields []draft.FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return e.Fields[0].Message
}

// Service handles the purchase-order wizard operations.
type Service struct {
	gw     *gateway.Client
	logger *zap.Logger

	// inflight guards against overlapping PUTs for the same order.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService creates an order service over a gateway client.
func NewService(gw *gateway.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gw:       gw,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// StartDraft creates the draft on the gateway from the first wizard
// step and returns it. The draft is referenced by id thereafter.
func (s *Service) StartDraft(ctx context.Context, token string, step1 draft.StepOneData) (draft.Draft, error) {
	if errs := draft.ValidateStepOne(step1); len(errs) > 0 {
		return draft.Draft{}, &ValidationError{Fields: errs}
	}
	d, err := s.gw.CreatePurchaseOrder(ctx, token, step1)
	if err != nil {
		return draft.Draft{}, classify(err)
	}
	s.logger.Info("purchase order draft created", zap.String("order_id", d.ID))
	return d, nil
}

// Get fetches one order.
func (s *Service) Get(ctx context.Context, token, id string) (draft.Draft, error) {
	d, err := s.gw.GetPurchaseOrder(ctx, token, id)
	if err != nil {
		return draft.Draft{}, classify(err)
	}
	return d, nil
}

// List fetches the list-view rows.
func (s *Service) List(ctx context.Context, token string) ([]gateway.PurchaseOrderSummary, error) {
	rows, err := s.gw.ListPurchaseOrders(ctx, token)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// Delete removes an order.
func (s *Service) Delete(ctx context.Context, token, id string) error {
	if err := s.gw.DeletePurchaseOrder(ctx, token, id); err != nil {
		return classify(err)
	}
	return nil
}

// SaveStepOne validates and PUTs the requester step.
func (s *Service) SaveStepOne(ctx context.Context, token, id string, data draft.StepOneData) (draft.Draft, error) {
	if errs := draft.ValidateStepOne(data); len(errs) > 0 {
		return draft.Draft{}, &ValidationError{Fields: errs}
	}
	return s.put(ctx, token, id, gateway.BuildStepOnePayload(data))
}

// SaveStepTwo validates and PUTs the line-items step.
func (s *Service) SaveStepTwo(ctx context.Context, token, id string, data draft.StepTwoData) (draft.Draft, error) {
	if errs := draft.ValidateStepTwo(data); len(errs) > 0 {
		return draft.Draft{}, &ValidationError{Fields: errs}
	}
	return s.put(ctx, token, id, gateway.BuildStepTwoPayload(data))
}

// SaveStepThree validates and PUTs the payment step.
func (s *Service) SaveStepThree(ctx context.Context, token, id string, data draft.StepThreeData) (draft.Draft, error) {
	if errs := draft.ValidateStepThree(data); len(errs) > 0 {
		return draft.Draft{}, &ValidationError{Fields: errs}
	}
	return s.put(ctx, token, id, gateway.BuildStepThreePayload(data))
}

// SaveStepFour validates and PUTs the compliance step.
func (s *Service) SaveStepFour(ctx context.Context, token, id string, data draft.GenericStepData) (draft.Draft, error) {
	if errs := draft.ValidateGenericStep(data); len(errs) > 0 {
		return draft.Draft{}, &ValidationError{Fields: errs}
	}
	return s.put(ctx, token, id, gateway.BuildStepFourPayload(data))
}

// SaveStepFive validates and PUTs the review step.
func (s *Service) SaveStepFive(ctx context.Context, token, id string, data draft.GenericStepData) (draft.Draft, error) {
	if errs := draft.ValidateGenericStep(data); len(errs) > 0 {
		return draft.Draft{}, &ValidationError{Fields: errs}
	}
	return s.put(ctx, token, id, gateway.BuildStepFivePayload(data))
}

// SavePending applies a pending-changes overlay in a single PUT and
// returns the refreshed order. Overlapping saves for the same order are
// rejected rather than queued.
func (s *Service) SavePending(ctx context.Context, token, id string, pc draft.PendingChanges) (draft.Draft, error) {
	if !pc.HasPending() {
		return s.Get(ctx, token, id)
	}
	return s.put(ctx, token, id, gateway.BuildUpdatePayload(pc))
}

func (s *Service) put(ctx context.Context, token, id string, payload gateway.PurchaseOrderPayload) (draft.Draft, error) {
	if !s.acquire(id) {
		return draft.Draft{}, shared.ErrSaveInFlight
	}
	defer s.release(id)

	d, err := s.gw.UpdatePurchaseOrder(ctx, token, id, payload)
	if err != nil {
		return draft.Draft{}, classify(err)
	}
	return d, nil
}

func (s *Service) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// classify maps gateway errors onto domain errors where the status has
// a specific meaning: 409 on a purchase-order mutation is the
// supplier-mismatch conflict.
func classify(err error) error {
	if gateway.IsConflict(err) {
		return shared.ErrSupplierConflict
	}
	return err
}
