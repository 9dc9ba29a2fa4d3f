package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/credit"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// CreditHandler serves customer payments and credit history.
type CreditHandler struct {
	base    *BaseHandler
	service *credit.Service
}

// NewCreditHandler creates a credit handler.
func NewCreditHandler(base *BaseHandler, service *credit.Service) *CreditHandler {
	return &CreditHandler{base: base, service: service}
}

// CreatePayment handles POST /customer-payments. The payment must
// reference an invoice owned by the payment's customer.
func (h *CreditHandler) CreatePayment(c *gin.Context) {
	var req dto.CreateCustomerPaymentRequest
	if !h.base.BindJSON(c, &req) {
		return
	}
	p := req.ToEntity()
	if err := h.service.CreatePayment(c.Request.Context(), p); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.Created(c, p.ID.String())
}

// DeletePayment handles DELETE /customer-payments/:id. The payment is
// archived to the trash before removal.
func (h *CreditHandler) DeletePayment(c *gin.Context) {
	paymentID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePayment(c.Request.Context(), paymentID, h.base.GetUsername(c)); err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.NoContent(c)
}

// PaymentsByCustomer handles GET /customer-payments/by-customer/:id.
func (h *CreditHandler) PaymentsByCustomer(c *gin.Context) {
	customerID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	payments, err := h.service.PaymentsByCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, payments)
}

// PaymentsByInvoice handles GET /customer-payments/by-invoice/:id.
func (h *CreditHandler) PaymentsByInvoice(c *gin.Context) {
	invoiceID, ok := h.base.ParseID(c, "id")
	if !ok {
		return
	}
	payments, err := h.service.PaymentsByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, payments)
}

// History handles GET /credit/history/:customerId, one entry per
// invoice with running balances.
func (h *CreditHandler) History(c *gin.Context) {
	customerID, ok := h.base.ParseID(c, "customerId")
	if !ok {
		return
	}
	entries, err := h.service.History(c.Request.Context(), customerID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, entries)
}

// Summary handles GET /credit/summary/:customerId.
func (h *CreditHandler) Summary(c *gin.Context) {
	customerID, ok := h.base.ParseID(c, "customerId")
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), customerID)
	if err != nil {
		h.base.Error(c, err)
		return
	}
	h.base.OK(c, summary)
}
