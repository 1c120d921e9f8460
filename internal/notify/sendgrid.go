package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendgridMailer delivers through the SendGrid v3 API.
type SendgridMailer struct {
	client   *sendgrid.Client
	from     *sgmail.Email
	subjPref string
}

// NewSendgridMailer creates a mailer sending as fromName <fromAddr>.
func NewSendgridMailer(apiKey, fromName, fromAddr string) *SendgridMailer {
	return &SendgridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		from:     sgmail.NewEmail(fromName, fromAddr),
		subjPref: "[" + fromName + "] ",
	}
}

// Send makes one API call; any non-2xx response is a failure.
func (m *SendgridMailer) Send(ctx context.Context, toName, toAddr, subject, htmlBody string) error {
	msg := sgmail.NewSingleEmail(m.from, m.subjPref+subject, sgmail.NewEmail(toName, toAddr), "", htmlBody)
	res, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
