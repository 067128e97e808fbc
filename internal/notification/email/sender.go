// Package email delivers pipeline alert mail over SMTP via go-mail.
package email

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"dealflow_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers closer alert emails. A disabled sender (no SMTP config or
// EMAIL_ENABLED=false) silently no-ops so environments without mail still run.
type Sender struct {
	cfg config.EmailConfig
}

// New creates a sender from the email configuration.
func New(cfg config.EmailConfig) *Sender {
	return &Sender{cfg: cfg}
}

func (s *Sender) enabled() bool {
	return s.cfg.GetEmailEnabled() && s.cfg.GetSMTPHost() != "" && s.cfg.GetCloserAlertAddress() != ""
}

// SendHandoffAlert notifies the closer desk that a lead landed in their queue.
func (s *Sender) SendHandoffAlert(ctx context.Context, ownerName, addressLine, summary string, missingFields []string) error {
	if !s.enabled() {
		return nil
	}

	subject := fmt.Sprintf("New handoff: %s — %s", ownerName, addressLine)

	var body strings.Builder
	body.WriteString("<h2>A lead was sent to the closer queue</h2>")
	body.WriteString("<p><strong>Owner:</strong> " + html.EscapeString(ownerName) + "<br>")
	body.WriteString("<strong>Address:</strong> " + html.EscapeString(addressLine) + "</p>")
	if len(missingFields) > 0 {
		body.WriteString("<p><strong>Missing intake fields:</strong> " + html.EscapeString(strings.Join(missingFields, ", ")) + "</p>")
	}
	body.WriteString("<pre>" + html.EscapeString(summary) + "</pre>")

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(s.cfg.GetCloserAlertAddress()); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body.String())

	client, err := gomail.NewClient(s.cfg.GetSMTPHost(),
		gomail.WithPort(s.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.GetSMTPUsername()),
		gomail.WithPassword(s.cfg.GetSMTPPassword()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
