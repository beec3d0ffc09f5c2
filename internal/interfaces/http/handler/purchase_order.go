package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/procurehub/portal/internal/application/order"
	"github.com/procurehub/portal/internal/domain/draft"
	"github.com/procurehub/portal/internal/domain/shared"
	"github.com/procurehub/portal/internal/gateway"
	"github.com/procurehub/portal/internal/interfaces/http/dto"
	"github.com/procurehub/portal/internal/interfaces/http/middleware"
)

// PurchaseOrderHandler serves the create wizard, the list/detail views
// and the post-creation edit flow.
type PurchaseOrderHandler struct {
	BaseHandler
	svc     *order.Service
	gw      *gateway.Client
	session *SessionRecovery
	logger  *zap.Logger
}

// NewPurchaseOrderHandler creates a new purchase order handler. session
// may be nil; upstream 401s then surface without a refresh retry.
func NewPurchaseOrderHandler(svc *order.Service, gw *gateway.Client, session *SessionRecovery, logger *zap.Logger) *PurchaseOrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderHandler{svc: svc, gw: gw, session: session, logger: logger}
}

// List returns the purchase-order list view rows
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var rows []gateway.PurchaseOrderSummary
	err := h.session.Run(c, func(token string) error {
		var err error
		rows, err = h.svc.List(c.Request.Context(), token)
		return err
	})
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Success(c, rows)
}

// Create starts a draft from the first wizard step
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req draft.StepOneData
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
		return
	}

	var d draft.Draft
	err := h.session.Run(c, func(token string) error {
		var err error
		d, err = h.svc.StartDraft(c.Request.Context(), token, req)
		return err
	})
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Created(c, d)
}

// Get returns one order with all step data
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var d draft.Draft
	err := h.session.Run(c, func(token string) error {
		var err error
		d, err = h.svc.Get(c.Request.Context(), token, req.ID)
		return err
	})
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Success(c, d)
}

// Delete removes an order
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	err := h.session.Run(c, func(token string) error {
		return h.svc.Delete(c.Request.Context(), token, req.ID)
	})
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.NoContent(c)
}

// SaveStepOne persists the requester step
func (h *PurchaseOrderHandler) SaveStepOne(c *gin.Context) {
	var req draft.StepOneData
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
		return
	}
	h.saveStep(c, func(ctx *gin.Context, token, id string) (draft.Draft, error) {
		return h.svc.SaveStepOne(ctx.Request.Context(), token, id, req)
	})
}

// SaveStepTwo persists the line-items step
func (h *PurchaseOrderHandler) SaveStepTwo(c *gin.Context) {
	var req draft.StepTwoData
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
		return
	}
	h.saveStep(c, func(ctx *gin.Context, token, id string) (draft.Draft, error) {
		return h.svc.SaveStepTwo(ctx.Request.Context(), token, id, req)
	})
}

// SaveStepThree persists the payment-terms step
func (h *PurchaseOrderHandler) SaveStepThree(c *gin.Context) {
	var req draft.StepThreeData
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
		return
	}
	h.saveStep(c, func(ctx *gin.Context, token, id string) (draft.Draft, error) {
		return h.svc.SaveStepThree(ctx.Request.Context(), token, id, req)
	})
}

// SaveStepFour persists the compliance step
func (h *PurchaseOrderHandler) SaveStepFour(c *gin.Context) {
	var req draft.GenericStepData
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
		return
	}
	h.saveStep(c, func(ctx *gin.Context, token, id string) (draft.Draft, error) {
		return h.svc.SaveStepFour(ctx.Request.Context(), token, id, req)
	})
}

// SaveStepFive persists the review step
func (h *PurchaseOrderHandler) SaveStepFive(c *gin.Context) {
	var req draft.GenericStepData
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
		return
	}
	h.saveStep(c, func(ctx *gin.Context, token, id string) (draft.Draft, error) {
		return h.svc.SaveStepFive(ctx.Request.Context(), token, id, req)
	})
}

func (h *PurchaseOrderHandler) saveStep(c *gin.Context, save func(*gin.Context, string, string) (draft.Draft, error)) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var d draft.Draft
	err := h.session.Run(c, func(token string) error {
		var err error
		d, err = save(c, token, req.ID)
		return err
	})
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Success(c, d)
}

// ItemStateResponse is the line-items step state returned by the item
// sub-modal operations. A non-empty supplierWarning means the operation
// was rejected and values are unchanged.
type ItemStateResponse struct {
	Values          draft.StepTwoData `json:"values"`
	SupplierWarning string            `json:"supplierWarning,omitempty"`
}

// SaveItem adds or replaces one line item through the step-two reducer.
// A supplier mismatch returns 409 with the current state untouched and
// nothing is persisted.
func (h *PurchaseOrderHandler) SaveItem(c *gin.Context) {
	var item draft.LineItem
	if err := c.ShouldBindJSON(&item); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
		return
	}
	if item.ID == "" {
		item.ID = draft.NewLineItemID()
	}
	h.reduceItems(c, draft.SaveItem{Item: item})
}

// DeleteItem removes one line item; removing the last one also resets
// the order's supplier
func (h *PurchaseOrderHandler) DeleteItem(c *gin.Context) {
	itemID := c.Param("itemId")
	if itemID == "" {
		h.BadRequest(c, "Invalid item ID")
		return
	}
	h.reduceItems(c, draft.DeleteItem{ID: itemID})
}

// ReorderItemsRequest represents a drag-and-drop reorder
type ReorderItemsRequest struct {
	Source      int `json:"source"`
	Destination int `json:"destination"`
}

// ReorderItems moves a line item to a new position
func (h *PurchaseOrderHandler) ReorderItems(c *gin.Context) {
	var req ReorderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
		return
	}
	h.reduceItems(c, draft.ReorderItems{Source: req.Source, Destination: req.Destination})
}

// reduceItems loads the order, applies one reducer action to its
// line-items step and persists the result when it changed.
func (h *PurchaseOrderHandler) reduceItems(c *gin.Context, action draft.StepTwoAction) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var d draft.Draft
	err := h.session.Run(c, func(token string) error {
		var err error
		d, err = h.svc.Get(c.Request.Context(), token, req.ID)
		return err
	})
	if err != nil {
		h.handleOrderError(c, err)
		return
	}

	state := draft.StepTwoState{Values: d.Step2}
	next := draft.ReduceStepTwo(state, action)

	if next.SupplierWarning != "" {
		resp := dto.NewErrorResponse(dto.ErrCodeSupplierConflict, next.SupplierWarning)
		resp.Body = ItemStateResponse{Values: state.Values, SupplierWarning: next.SupplierWarning}
		c.JSON(http.StatusConflict, resp)
		return
	}

	// Persist through the overlay path: item mutations are legal on a
	// partially filled step, completeness is only checked on step save.
	changes := draft.DiffStepTwo(d.Step2, next.Values)
	if changes.Empty() {
		h.Success(c, ItemStateResponse{Values: next.Values})
		return
	}

	var saved draft.Draft
	err = h.session.Run(c, func(token string) error {
		var err error
		saved, err = h.svc.SavePending(c.Request.Context(), token, req.ID, draft.PendingChanges{Step2: &changes})
		return err
	})
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Success(c, ItemStateResponse{Values: saved.Step2})
}

// EditOrderRequest carries full step values from the per-step edit
// sub-modals. Absent steps are untouched; the portal diffs the present
// ones against the stored order and sends only what changed upstream.
type EditOrderRequest struct {
	Step1 *draft.StepOneData   `json:"step1,omitempty"`
	Step2 *draft.StepTwoData   `json:"step2,omitempty"`
	Step3 *draft.StepThreeData `json:"step3,omitempty"`
}

// EditOrderResponse pairs the refreshed order with whether anything was
// actually sent upstream
type EditOrderResponse struct {
	Order   draft.Draft `json:"order"`
	Updated bool        `json:"updated"`
}

// Edit applies staged per-step edits as a single minimal update. When
// every provided step equals the stored state, no upstream call is made.
func (h *PurchaseOrderHandler) Edit(c *gin.Context) {
	var uri dto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	var req EditOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
		return
	}

	var base draft.Draft
	err := h.session.Run(c, func(token string) error {
		var err error
		base, err = h.svc.Get(c.Request.Context(), token, uri.ID)
		return err
	})
	if err != nil {
		h.handleOrderError(c, err)
		return
	}

	stage := func(token string) *order.EditSession {
		session := order.NewEditSession(h.gw, token, base)
		if req.Step1 != nil {
			session.StageStepOne(*req.Step1)
		}
		if req.Step2 != nil {
			session.StageStepTwo(*req.Step2)
		}
		if req.Step3 != nil {
			session.StageStepThree(*req.Step3)
		}
		return session
	}

	if !stage(middleware.GetSessionToken(c)).HasPendingChanges() {
		h.Success(c, EditOrderResponse{Order: base, Updated: false})
		return
	}

	var updated draft.Draft
	err = h.session.Run(c, func(token string) error {
		var err error
		updated, err = stage(token).Save(c.Request.Context())
		return err
	})
	if err != nil {
		h.handleOrderError(c, err)
		return
	}
	h.Success(c, EditOrderResponse{Order: updated, Updated: true})
}

// handleOrderError maps order-flow errors onto the envelope. Inline
// validation failures carry per-field details; a supplier conflict keeps
// its fixed message.
func (h *PurchaseOrderHandler) handleOrderError(c *gin.Context, err error) {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		h.ValidationError(c, vErr.Fields)
		return
	}
	if errors.Is(err, shared.ErrSupplierConflict) {
		h.ErrorWithCode(c, dto.ErrCodeSupplierConflict, shared.ErrSupplierConflict.Message)
		return
	}
	if errors.Is(err, shared.ErrSaveInFlight) {
		h.ErrorWithCode(c, dto.ErrCodeSaveInFlight, shared.ErrSaveInFlight.Message)
		return
	}
	h.HandleError(c, err)
}
