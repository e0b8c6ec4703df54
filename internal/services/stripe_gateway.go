package services

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// StripeGateway implements PaymentGateway over the Stripe PaymentIntents API.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func mapIntentStatus(s stripe.PaymentIntentStatus) PaymentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return PaymentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		Reference:    pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       mapIntentStatus(pi.Status),
	}
}

func (g *StripeGateway) Verify(ctx context.Context, reference string) (PaymentStatus, error) {
	pi, err := g.get(ctx, reference)
	if err != nil {
		return "", err
	}
	return mapIntentStatus(pi.Status), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, reference string) (*PaymentIntent, error) {
	pi, err := g.get(ctx, reference)
	if err != nil {
		return nil, err
	}
	return toPaymentIntent(pi), nil
}

func (g *StripeGateway) get(ctx context.Context, reference string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return paymentintent.Get(reference, params)
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return toPaymentIntent(pi), nil
}
