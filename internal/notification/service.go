package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reminder is an overdue-bill notice for one household.
type Reminder struct {
	BillID        string
	HouseholdName string
	ServiceNumber string
	Email         string
	TotalAmount   decimal.Decimal
	DueDate       time.Time
	LateFine      decimal.Decimal
}

// Notifier delivers reminders.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the log; it is the fallback when no mail
// provider is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, r Reminder) error {
	n.log.Info("overdue bill reminder",
		zap.String("bill_id", r.BillID),
		zap.String("service_number", r.ServiceNumber),
		zap.String("total", r.TotalAmount.StringFixed(2)),
		zap.Time("due_date", r.DueDate),
	)
	return nil
}

// mailSender is the part of *sendgrid.Client we use.
type mailSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier mails reminders to households that have an email address
// and hands the rest to Fallback.
type SendGridNotifier struct {
	client   mailSender
	from     *mail.Email
	fallback Notifier
}

func NewSendGridNotifier(apiKey, fromName, fromAddress string, fallback Notifier) (*SendGridNotifier, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is empty")
	}
	return newSendGridNotifier(sendgrid.NewSendClient(apiKey), fromName, fromAddress, fallback), nil
}

func newSendGridNotifier(client mailSender, fromName, fromAddress string, fallback Notifier) *SendGridNotifier {
	return &SendGridNotifier{
		client:   client,
		from:     mail.NewEmail(fromName, fromAddress),
		fallback: fallback,
	}
}

func (n *SendGridNotifier) Notify(ctx context.Context, r Reminder) error {
	if r.Email == "" {
		if n.fallback == nil {
			return nil
		}
		return n.fallback.Notify(ctx, r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, plain, html := renderReminder(r)
	to := mail.NewEmail(r.HouseholdName, r.Email)
	message := mail.NewSingleEmail(n.from, subject, to, plain, html)
	resp, err := n.client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func renderReminder(r Reminder) (subject, plain, html string) {
	subject = fmt.Sprintf("Electricity bill %s is overdue", r.ServiceNumber)
	due := r.DueDate.Format("02 Jan 2006")
	plain = fmt.Sprintf(
		"Dear %s,\n\nYour electricity bill %s of %s was due on %s and is still unpaid.\n"+
			"A late fine of %s may be added to your next bill.\n",
		r.HouseholdName, r.BillID, r.TotalAmount.StringFixed(2), due, r.LateFine.StringFixed(2),
	)
	html = fmt.Sprintf(
		"<p>Dear %s,</p><p>Your electricity bill <b>%s</b> of <b>%s</b> was due on %s and is still unpaid.</p>"+
			"<p>A late fine of %s may be added to your next bill.</p>",
		r.HouseholdName, r.BillID, r.TotalAmount.StringFixed(2), due, r.LateFine.StringFixed(2),
	)
	return subject, plain, html
}
