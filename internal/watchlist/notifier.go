package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

// Change is the outcome of polling one watched section.
type Change struct {
	Term     string
	CRN      string
	Title    string
	Changed  bool
	Previous Snapshot
	Current  Snapshot
}

func (c Change) Summary() string {
	name := c.Title
	if name == "" {
		name = "CRN " + c.CRN
	}
	if !c.Changed {
		return fmt.Sprintf("%s (%s): unchanged", name, c.Term)
	}
	return fmt.Sprintf("%s (%s): %s", name, c.Term, strings.Join(c.Previous.Differences(c.Current), ", "))
}

// Notifier receives the result of every polled row, changed or not.
//
// note: fault injection point
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

// LogNotifier writes one log line per polled row.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, change Change) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if change.Changed {
		logger.InfoContext(ctx, "watched course changed", "term", change.Term, "crn", change.CRN, "summary", change.Summary())
		return nil
	}
	logger.DebugContext(ctx, "watched course unchanged", "term", change.Term, "crn", change.CRN)
	return nil
}

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && c.EmailAddress != "" && len(c.To) > 0
}

// EmailNotifier mails changed sections, unchanged ones are ignored.
type EmailNotifier struct {
	config SmtpConfig
}

func NewEmailNotifier(config SmtpConfig) EmailNotifier {
	return EmailNotifier{config: config}
}

func (n EmailNotifier) Notify(ctx context.Context, change Change) error {
	if !change.Changed {
		return nil
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Coursewatch <%s>", n.config.EmailAddress)
	mail.To = n.config.To
	mail.Subject = fmt.Sprintf("CRN %s changed", change.CRN)
	mail.Text = []byte(fmt.Sprintf(`A course on your watch list changed.

%s

Term: %s
CRN: %s
Seats remaining: %s
Waitlist remaining: %s
`, change.Summary(), change.Term, change.CRN, formatCount(change.Current.SeatsRemaining), formatCount(change.Current.WaitlistRemaining)))

	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)
	err := mail.Send(addr, smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send change email for %s: %w", change.CRN, err)
	}
	return nil
}

// MultiNotifier notifies every inner notifier, even when one fails.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, change Change) error {
	var errs []error
	for _, n := range m {
		err := n.Notify(ctx, change)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
