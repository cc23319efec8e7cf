package email

import (
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
)

// ResendService implements Service using the Resend API.
type ResendService struct {
	client      *resend.Client
	fromAddress string
}

// NewResendService creates a new Resend email service.
// fromAddress must be a sender verified in Resend.
func NewResendService(apiKey, fromAddress string) *ResendService {
	return &ResendService{
		client:      resend.NewClient(apiKey),
		fromAddress: fromAddress,
	}
}

// Send sends an email using the specified template via Resend.
func (r *ResendService) Send(to, templateName string, data any) error {
	subject, body := renderTemplate(templateName, data)

	params := &resend.SendEmailRequest{
		From:    r.fromAddress,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}

	if _, err := r.client.Emails.Send(params); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}

func renderTemplate(templateName string, data any) (subject, body string) {
	switch templateName {
	case TemplateNoteReady:
		d, ok := data.(NoteReadyData)
		if !ok {
			break
		}
		subject = fmt.Sprintf("Your generated note is ready: %s", d.Title)
		body = fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="margin-top: 0;">%s</h2>
    <p>A new note was generated for you and filed under <strong>%s</strong>.</p>
    <p style="color: #666; font-size: 14px;">Document ID: %s</p>
</body>
</html>`, html.EscapeString(d.Title), html.EscapeString(d.Category), html.EscapeString(d.DocID))
	}

	if subject == "" {
		subject = "Notification"
		body = fmt.Sprintf("<p>%+v</p>", data)
	}
	return subject, body
}
