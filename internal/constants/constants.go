package constants

import "time"

const (
	LandlordName = "EasyRent"
	CurrencyCode = "myr"
	// CurrencyLabel prefixes amounts in lease text and emails.
	CurrencyLabel = "RM"

	// RentGracePeriod is added to the billing run time to get a charge's due date.
	RentGracePeriod = 5 * 24 * time.Hour

	LeaseObjectPrefix = "rental_agreements"
)

// Collaborator timeouts.
const (
	DocumentGenerationTimeout  = 30 * time.Second
	NotificationTimeout        = 10 * time.Second
	PaymentVerificationTimeout = 10 * time.Second
	PaymentIntentTimeout       = 10 * time.Second

	NotificationMaxAttempts    = 3
	NotificationInitialBackoff = 500 * time.Millisecond
	NotificationWorkers        = 4
	NotificationQueueSize      = 256
)

// Scheduled jobs.
const (
	// Midnight on the first of every month.
	MonthlyBillingCron = "0 0 1 * *"
	// Used when use_short_billing_period is on.
	ShortBillingCron = "*/10 * * * *"
	DailyExpiryCron  = "0 0 * * *"
	DailyOverdueCron = "30 0 * * *"

	BillingJobTimeout = 15 * time.Minute
	ExpiryJobTimeout  = 5 * time.Minute
	OverdueJobTimeout = 5 * time.Minute

	BillingConcurrency = 8
)

// Seeding
const (
	SeedSentinelUserID = "0e7d3f02-7f7a-4c1b-9a53-5d0f8a2c1e01"
)
