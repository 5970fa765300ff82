package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

type Config struct {
	Host     string
	Port     string
	From     string
	Password string
}

// SendConfirmationEmail mails a registration confirmation to the
// participant. Failures are reported to the caller, which logs and moves
// on; the registration itself is already stored.
func SendConfirmationEmail(log *zerolog.Logger, cfg Config, eventTitle, recipientName, recipientEmail string, tickets int) error {
	subject := "Registration confirmed"
	body := fmt.Sprintf(
		"Hello %s!\n\nYour registration for \"%s\" (%d ticket(s)) has been received.\nThank you for supporting this event.",
		recipientName, eventTitle, tickets,
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		cfg.From, recipientEmail, subject, body,
	)

	addr := cfg.Host + ":" + cfg.Port
	auth := smtp.PlainAuth("", cfg.From, cfg.Password, cfg.Host)

	if err := smtp.SendMail(addr, auth, cfg.From, []string{recipientEmail}, []byte(msg)); err != nil {
		log.Warn().Msgf("failed to send email to %s: %v", recipientEmail, err)
		return fmt.Errorf("send email: %w", err)
	}

	log.Info().Msgf("Confirmation email sent to %s", recipientEmail)
	return nil
}
