package payments

import (
	"encoding/json"
	"fmt"

	billingsvc "estate-backend/internal/application/billing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

type WebhookHandler struct {
	Billing       *billingsvc.Service
	WebhookSecret string
}

// HandleWebhook POST /api/v1/stripe/webhook: raw body, signature verification, then process.
// Domain failures still answer 200 so Stripe does not retry them.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get("Stripe-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Stripe webhook received empty body")
		return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: empty body")
	}
	if wh.WebhookSecret == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: missing signature or secret")
	}

	event, err := webhook.ConstructEventWithOptions(rawBody, sig, wh.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Msg("Stripe webhook signature verification failed")
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	if event.Type == "invoice.paid" && wh.Billing != nil {
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			log.Warn().Err(err).Str("event_id", event.ID).Msg("Stripe webhook: invoice decode failed")
			return c.Status(fiber.StatusOK).SendString("ok")
		}
		var localID *uuid.UUID
		if id, err := uuid.Parse(inv.Metadata["invoice_id"]); err == nil {
			localID = &id
		}
		if _, err := wh.Billing.MarkPaid(c.UserContext(), inv.ID, localID); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("Stripe webhook: mark paid failed")
		}
	}

	return c.Status(fiber.StatusOK).SendString("ok")
}
