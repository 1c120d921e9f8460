package notify

import (
	"context"
	"log"
)

// ConsoleMailer logs messages instead of sending them; the dev default
// when no SendGrid key is configured.
type ConsoleMailer struct{}

// Send logs the message and always succeeds.
func (ConsoleMailer) Send(_ context.Context, toName, toAddr, subject, htmlBody string) error {
	log.Printf("mail to %s <%s>: %s\n%s", toName, toAddr, subject, htmlBody)
	return nil
}
