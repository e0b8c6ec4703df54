package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/maximillian1508/easyrent-backend/internal/constants"
	"github.com/maximillian1508/easyrent-backend/internal/models"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

const dateLayout = "2 Jan 2006"

type EmailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SMSSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type MessagingConfig struct {
	OrgName         string
	FromEmail       string
	FromPhone       string
	SendgridSandbox bool
}

// MessagingNotifier sends email through SendGrid and, for payment
// reminders, an SMS through Twilio when the tenant has a phone number.
type MessagingNotifier struct {
	cfg   MessagingConfig
	email EmailSender
	sms   SMSSender
}

func NewMessagingNotifier(cfg MessagingConfig, email EmailSender, sms SMSSender) *MessagingNotifier {
	return &MessagingNotifier{cfg: cfg, email: email, sms: sms}
}

// NewSendgridTwilioNotifier builds the production notifier. Either API
// credential may be empty, in which case that channel is skipped.
func NewSendgridTwilioNotifier(cfg MessagingConfig, sendgridAPIKey, twilioSID, twilioToken string) *MessagingNotifier {
	var email EmailSender
	if sendgridAPIKey != "" {
		email = sendgrid.NewSendClient(sendgridAPIKey)
	}
	var sms SMSSender
	if twilioSID != "" && twilioToken != "" {
		sms = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: twilioSID,
			Password: twilioToken,
		}).Api
	}
	return NewMessagingNotifier(cfg, email, sms)
}

func money(amount decimal.Decimal) string {
	return constants.CurrencyLabel + amount.StringFixed(2)
}

func (n *MessagingNotifier) SendAcceptance(ctx context.Context, notice AcceptanceNotice) error {
	subject := fmt.Sprintf("[%s] Application Accepted", n.cfg.OrgName)
	premises := notice.Property.Name
	if notice.RoomName != "" {
		premises = fmt.Sprintf("%s (%s)", notice.Property.Name, notice.RoomName)
	}
	start := notice.StartDate.Format(dateLayout)
	end := notice.EndDate.Format(dateLayout)

	plain := fmt.Sprintf(
		"Hi %s,\n\nYour application for %s has been accepted.\nStart date: %s\nEnd date: %s\nMonthly rent: %s\nDeposit: %s\n",
		notice.User.FirstName, premises, start, end, money(notice.RentAmount), money(notice.DepositAmount),
	)
	html := fmt.Sprintf(acceptanceEmailHTML,
		notice.User.FirstName, premises, start, end,
		money(notice.RentAmount), money(notice.DepositAmount), n.cfg.OrgName,
	)
	return n.sendEmail(ctx, notice.User, subject, plain, html)
}

func (n *MessagingNotifier) SendRejection(ctx context.Context, user *models.User, property *models.Property) error {
	subject := fmt.Sprintf("[%s] Application Update", n.cfg.OrgName)
	plain := fmt.Sprintf(
		"Hi %s,\n\nThank you for your interest in %s. Unfortunately your application was not successful this time.\n",
		user.FirstName, property.Name,
	)
	html := fmt.Sprintf(rejectionEmailHTML, user.FirstName, property.Name, n.cfg.OrgName)
	return n.sendEmail(ctx, user, subject, plain, html)
}

func (n *MessagingNotifier) SendPaymentReminder(ctx context.Context, user *models.User, amount decimal.Decimal, dueDate time.Time) error {
	subject := fmt.Sprintf("[%s] Rent Payment Reminder", n.cfg.OrgName)
	due := dueDate.Format(dateLayout)
	plain := fmt.Sprintf("Hi %s,\n\nYour monthly rent of %s is due on %s.\n", user.FirstName, money(amount), due)
	html := fmt.Sprintf(paymentReminderEmailHTML, user.FirstName, money(amount), due, n.cfg.OrgName)

	if err := n.sendEmail(ctx, user, subject, plain, html); err != nil {
		return err
	}

	// SMS is a courtesy copy; its failure does not fail the reminder.
	phone := utils.Val(user.PhoneNumber)
	if phone == "" {
		return nil
	}
	if n.sms == nil {
		utils.Logger.Warnf("Twilio client is nil, skipping SMS reminder to user %s", user.ID)
		return nil
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(n.cfg.FromPhone)
	params.SetBody(subject + " :: " + plain)
	if err := runWithContext(ctx, func() error {
		_, err := n.sms.CreateMessage(params)
		return err
	}); err != nil {
		utils.Logger.WithError(err).Warnf("Failed to send SMS reminder to user %s", user.ID)
	}
	return nil
}

func (n *MessagingNotifier) sendEmail(ctx context.Context, user *models.User, subject, plain, html string) error {
	if n.email == nil {
		utils.Logger.Warnf("SendGrid client is nil, skipping email to user %s", user.ID)
		return nil
	}

	from := mail.NewEmail(n.cfg.OrgName, n.cfg.FromEmail)
	to := mail.NewEmail(user.FullName(), user.Email)
	msg := mail.NewSingleEmail(from, subject, to, plain, html)
	msg.TrackingSettings = &mail.TrackingSettings{
		ClickTracking: &mail.ClickTrackingSetting{
			Enable: utils.Ptr(false),
		},
	}
	if n.cfg.SendgridSandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := n.email.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp != nil && resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// runWithContext bounds a call that does not accept a context itself.
func runWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
