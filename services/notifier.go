package services

import (
	"fmt"
	"net/smtp"

	"github.com/fenilmodi00/deals-backend/shared"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// SMTPConfig holds the delivery channel settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// EmailNotifier delivers a formatted report to the recipient list over SMTP.
// Delivery is all-or-nothing: a nil error means the channel accepted the
// message, anything else is a delivery failure the caller surfaces.
type EmailNotifier struct {
	config SMTPConfig
}

func NewEmailNotifier(config SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: config}
}

// Send delivers the report body. Both a text and an HTML rendering are
// attached so the receiving client picks whichever it prefers.
func (n *EmailNotifier) Send(subject, textBody, htmlBody string, recipients []string) error {
	if len(recipients) == 0 {
		return shared.NewServiceError(
			shared.ErrorCategoryConfiguration,
			"NO_RECIPIENTS",
			"no recipients configured for deal report delivery",
			"EmailNotifier",
			"Send",
			false,
			nil,
		)
	}

	logrus.WithFields(logrus.Fields{
		"component":  "EmailNotifier",
		"subject":    subject,
		"recipients": len(recipients),
	}).Info("Sending deal report email")

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Deal Watch <%s>", n.config.From)
	mail.To = recipients
	mail.Subject = subject
	mail.Text = []byte(textBody)
	mail.HTML = []byte(htmlBody)

	address := fmt.Sprintf("%s:%s", n.config.Host, n.config.Port)
	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	if err := mail.Send(address, auth); err != nil {
		return shared.NewServiceError(
			shared.ErrorCategoryDelivery,
			"EMAIL_SEND_FAILED",
			"Failed to deliver deal report email",
			"EmailNotifier",
			"Send",
			true,
			err,
		)
	}

	return nil
}
