package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"github.com/maximillian1508/easyrent-backend/internal/app"
	"github.com/maximillian1508/easyrent-backend/internal/constants"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
	"github.com/maximillian1508/easyrent-backend/internal/services"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

const defaultFromEmail = "no-reply@easyrent.my"

func getDB() (*pgxpool.Pool, error) {
	url := os.Getenv("DB_URL")
	if url == "" {
		return nil, fmt.Errorf("DB_URL is not set")
	}
	return app.ConnectWithRetry(url)
}

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := getDB()
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := app.RunMigrations(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %v", err)
			}
			if len(applied) == 0 {
				fmt.Println("Schema is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Printf("Applied %s\n", v)
			}
			return nil
		},
	}
}

func SeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo landlord data set",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := getDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := app.SeedAllTestData(cmd.Context(), repositories.NewPostgresStore(db)); err != nil {
				return fmt.Errorf("failed to seed: %v", err)
			}
			fmt.Println("Seed data in place")
			return nil
		},
	}
}

// BillingCmd runs the scheduled jobs once, outside the service's cron.
func BillingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Run billing jobs on demand",
	}
	cmd.AddCommand(
		billingJobCmd("charge", "Generate this month's rent charges", constants.BillingJobTimeout,
			func(ctx context.Context, s *services.BillingService) (string, error) {
				report, err := s.GenerateMonthlyCharges(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("charged %d of %d contracts (%d charge failures, %d reminder failures)",
					report.Charged, report.Considered, len(report.ChargeFailures), len(report.NotificationFailures)), nil
			}),
		billingJobCmd("expire", "Deactivate contracts past their end date", constants.ExpiryJobTimeout,
			func(ctx context.Context, s *services.BillingService) (string, error) {
				n, err := s.ExpireContracts(ctx)
				return fmt.Sprintf("expired %d contracts", n), err
			}),
		billingJobCmd("overdue", "Mark unpaid charges past due as Overdue", constants.OverdueJobTimeout,
			func(ctx context.Context, s *services.BillingService) (string, error) {
				n, err := s.MarkOverdueTransactions(ctx)
				return fmt.Sprintf("marked %d transactions overdue", n), err
			}),
	)
	return cmd
}

func billingJobCmd(
	use, short string,
	timeout time.Duration,
	run func(context.Context, *services.BillingService) (string, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := getDB()
			if err != nil {
				return err
			}
			defer db.Close()

			notifier := services.NewSendgridTwilioNotifier(services.MessagingConfig{
				OrgName:   constants.LandlordName,
				FromEmail: utils.FirstNonEmpty(os.Getenv("SENDGRID_FROM_EMAIL"), defaultFromEmail),
				FromPhone: os.Getenv("TWILIO_FROM_PHONE"),
			}, os.Getenv("SENDGRID_API_KEY"), os.Getenv("TWILIO_ACCOUNT_SID"), os.Getenv("TWILIO_AUTH_TOKEN"))
			billing := services.NewBillingService(repositories.NewPostgresStore(db), notifier, nil)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			summary, err := run(ctx, billing)
			if err != nil {
				return fmt.Errorf("billing %s failed: %v", use, err)
			}
			fmt.Println(summary)
			return nil
		},
	}
}
