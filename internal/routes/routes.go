package routes

const (
	Health = "/health"

	ApplicationsSubmit      = "/api/v1/applications"
	ApplicationsEligibility = "/api/v1/applications/eligibility"
	ApplicationsActive      = "/api/v1/applications/active"
	ApplicationsDecision    = "/api/v1/applications/{id}/decision"
	ApplicationsCancel      = "/api/v1/applications/{id}/cancel"

	PaymentsIntent         = "/api/v1/payments/intent"
	PaymentsDepositConfirm = "/api/v1/payments/deposit/confirm"
	PaymentsRentConfirm    = "/api/v1/payments/rent/confirm"
	PaymentsStripeWebhook  = "/api/v1/payments/stripe/webhook"
)
