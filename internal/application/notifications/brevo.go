package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"estate-backend/internal/domain"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches the Brevo API v3 transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoContact   `json:"sender"`
	To          []BrevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	ReplyTo     *BrevoContact  `json:"replyTo,omitempty"`
}

type BrevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BrevoClient sends emails via the Brevo (Sendinblue) API. An empty APIKey disables sending.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Endpoint string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@estate.example"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

func (c *BrevoClient) send(ctx context.Context, to BrevoContact, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoContact{Email: c.from(), Name: "Estate"},
		To:          []BrevoContact{to},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoContact{Email: c.from(), Name: "Estate Sales"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// OfferAccepted emails the bidder whose offer won. Partners without an email are skipped.
func (c *BrevoClient) OfferAccepted(ctx context.Context, partner domain.Partner, property domain.Property, price float64) error {
	if c.APIKey == "" || partner.Email == "" {
		return nil
	}
	subject := fmt.Sprintf("Your offer on %s was accepted", property.Name)
	content := offerAcceptedContent(partner.Name, property.Name, price)
	return c.send(ctx, BrevoContact{Email: partner.Email, Name: partner.Name}, subject, EmailLayout(content))
}

func offerAcceptedContent(partnerName, propertyName string, price float64) string {
	if partnerName == "" {
		partnerName = "there"
	}
	return fmt.Sprintf(`
    <h1>Good news, %s!</h1>
    <p>Your offer of <strong>%.2f</strong> on <strong>%s</strong> has been accepted.</p>
    <p>Your salesperson will contact you shortly to prepare the sale. Other offers on this property have been declined.</p>
    <p>The Estate Team</p>
`, EscapeHTML(partnerName), price, EscapeHTML(propertyName))
}
