package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/services"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

const maxWebhookBodyBytes = 65536

type StripeWebhookController struct {
	secret   string
	payments *services.PaymentService
}

func NewStripeWebhookController(secret string, payments *services.PaymentService) *StripeWebhookController {
	return &StripeWebhookController{secret: secret, payments: payments}
}

// WebhookHandler -> POST /api/v1/payments/stripe/webhook
func (c *StripeWebhookController) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Missing Stripe-Signature header", nil)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Failed to read webhook body", nil, err)
		return
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, c.secret)
	if err != nil {
		utils.Logger.WithError(err).Error("Stripe webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			utils.Logger.WithError(err).Error("Could not parse payment intent in payment_intent.succeeded")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := c.handlePaymentSucceeded(r.Context(), &pi); err != nil {
			// Non-2xx makes Stripe redeliver the event.
			utils.HandleAppError(w, err)
			return
		}
	default:
		utils.Logger.Infof("Unhandled Stripe event type received in rental-service: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (c *StripeWebhookController) handlePaymentSucceeded(ctx context.Context, pi *stripe.PaymentIntent) error {
	logger := utils.Logger.WithFields(logrus.Fields{
		"payment_intent": pi.ID,
		"type":           pi.Metadata["type"],
	})

	var err error
	switch models.TransactionType(pi.Metadata["type"]) {
	case models.TransactionTypeDeposit:
		contractID, parseErr := uuid.Parse(pi.Metadata["contract_id"])
		if parseErr != nil {
			logger.WithError(parseErr).Warn("Deposit payment intent without a usable contract_id, ignoring")
			return nil
		}
		_, err = c.payments.ConfirmDeposit(ctx, pi.ID, contractID)
	case models.TransactionTypeMonthlyRental:
		txnID, parseErr := uuid.Parse(pi.Metadata["transaction_id"])
		if parseErr != nil {
			logger.WithError(parseErr).Warn("Rent payment intent without a usable transaction_id, ignoring")
			return nil
		}
		_, err = c.payments.ConfirmRentPayment(ctx, pi.ID, txnID)
	default:
		logger.Info("Payment intent not created by rental-service, ignoring")
		return nil
	}

	switch {
	case err == nil:
		logger.Info("Payment applied from webhook")
		return nil
	case errors.Is(err, utils.ErrNotFound):
		// Already applied by the client-side confirmation or an earlier delivery.
		logger.WithError(err).Info("Webhook payment already applied")
		return nil
	default:
		logger.WithError(err).Error("Failed to apply payment from webhook")
		return err
	}
}
