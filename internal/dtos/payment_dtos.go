package dtos

import (
	"github.com/google/uuid"

	"github.com/maximillian1508/easyrent-backend/internal/models"
)

type CreatePaymentIntentRequest struct {
	TransactionID uuid.UUID `json:"transaction_id" validate:"required"`
}

type PaymentIntentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Status          string `json:"status"`
}

type ConfirmDepositRequest struct {
	PaymentReference string    `json:"payment_reference" validate:"required"`
	ContractID       uuid.UUID `json:"contract_id" validate:"required"`
}

type ConfirmDepositResponse struct {
	Contract    *models.Contract    `json:"contract"`
	Deposit     *models.Transaction `json:"deposit"`
	Application *models.Application `json:"application"`
	Property    *models.Property    `json:"property"`
}

type ConfirmRentPaymentRequest struct {
	PaymentReference string    `json:"payment_reference" validate:"required"`
	TransactionID    uuid.UUID `json:"transaction_id" validate:"required"`
}

type ConfirmRentPaymentResponse struct {
	Transaction *models.Transaction `json:"transaction"`
}
