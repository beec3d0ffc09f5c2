package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/procurehub/portal/internal/application/refdata"
)

// ReferenceHandler serves the lookup lists the wizard renders. All
// endpoints read through the cached provider, so one page load costs at
// most one upstream round trip.
type ReferenceHandler struct {
	BaseHandler
	provider *refdata.Provider
	session  *SessionRecovery
}

// NewReferenceHandler creates a new reference data handler. session may
// be nil; upstream 401s then surface without a refresh retry.
func NewReferenceHandler(provider *refdata.Provider, session *SessionRecovery) *ReferenceHandler {
	return &ReferenceHandler{provider: provider, session: session}
}

// All returns every lookup list in one response
func (h *ReferenceHandler) All(c *gin.Context) {
	data, err := h.load(c)
	if err != nil {
		return
	}
	h.Success(c, data)
}

// Departments returns the department list
func (h *ReferenceHandler) Departments(c *gin.Context) {
	data, err := h.load(c)
	if err != nil {
		return
	}
	h.Success(c, data.Departments)
}

// Users returns the requester list
func (h *ReferenceHandler) Users(c *gin.Context) {
	data, err := h.load(c)
	if err != nil {
		return
	}
	h.Success(c, data.Users)
}

// CatalogItems returns the catalog list
func (h *ReferenceHandler) CatalogItems(c *gin.Context) {
	data, err := h.load(c)
	if err != nil {
		return
	}
	h.Success(c, data.CatalogItems)
}

// Suppliers returns the supplier list
func (h *ReferenceHandler) Suppliers(c *gin.Context) {
	data, err := h.load(c)
	if err != nil {
		return
	}
	h.Success(c, data.Suppliers)
}

// PaymentTerms returns the payment-term options
func (h *ReferenceHandler) PaymentTerms(c *gin.Context) {
	data, err := h.load(c)
	if err != nil {
		return
	}
	h.Success(c, data.PaymentTerms)
}

func (h *ReferenceHandler) load(c *gin.Context) (refdata.ReferenceData, error) {
	var data refdata.ReferenceData
	err := h.session.Run(c, func(token string) error {
		var err error
		data, err = h.provider.Load(c.Request.Context(), token)
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return refdata.ReferenceData{}, err
	}
	return data, nil
}
