package controllers

import (
	"net/http"

	"github.com/maximillian1508/easyrent-backend/internal/dtos"
	"github.com/maximillian1508/easyrent-backend/internal/services"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

type PaymentController struct {
	payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// POST /api/v1/payments/intent
func (c *PaymentController) CreateIntentHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreatePaymentIntentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	intent, err := c.payments.CreatePaymentIntent(r.Context(), req.TransactionID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.PaymentIntentResponse{
		PaymentIntentID: intent.Reference,
		ClientSecret:    intent.ClientSecret,
		Status:          string(intent.Status),
	})
}

// POST /api/v1/payments/deposit/confirm
func (c *PaymentController) ConfirmDepositHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.ConfirmDepositRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	out, err := c.payments.ConfirmDeposit(r.Context(), req.PaymentReference, req.ContractID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ConfirmDepositResponse{
		Contract:    out.Contract,
		Deposit:     out.Deposit,
		Application: out.Application,
		Property:    out.Property,
	})
}

// POST /api/v1/payments/rent/confirm
func (c *PaymentController) ConfirmRentHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.ConfirmRentPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	paid, err := c.payments.ConfirmRentPayment(r.Context(), req.PaymentReference, req.TransactionID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ConfirmRentPaymentResponse{Transaction: paid})
}
