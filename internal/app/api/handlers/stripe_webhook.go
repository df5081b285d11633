package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/fatflowers/pointsledger/pkg/apperr"
	"github.com/fatflowers/pointsledger/pkg/logctx"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// StripeEventHandler applies a verified Stripe event.
type StripeEventHandler interface {
	Handle(ctx context.Context, event *stripe.Event) (duplicate bool, err error)
}

// WebhookResponse is what Stripe receives; only the status code matters to it.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

// verifyStripeEvent checks the Stripe-Signature header against secret.
func verifyStripeEvent(payload []byte, header, secret string) (stripe.Event, error) {
	if strings.TrimSpace(header) == "" {
		return stripe.Event{}, errors.Join(apperr.ErrSignature, errors.New("missing Stripe-Signature header"))
	}
	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, errors.Join(apperr.ErrSignature, err)
	}
	return event, nil
}

// @Summary      Stripe webhook
// @Description  Verifies the Stripe-Signature header and applies the event once. 400 on a bad signature, 500 when processing fails so Stripe retries.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header  string  true  "Stripe signature"
// @Success      200  {object}  handlers.WebhookResponse
// @Failure      400  {object}  handlers.WebhookResponse
// @Failure      500  {object}  handlers.WebhookResponse
// @Router       /api/stripe/webhook [post]
func ApiStripeWebhook(h StripeEventHandler, secret string, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := logctx.FromGin(c, log)
		if strings.TrimSpace(secret) == "" {
			c.JSON(http.StatusServiceUnavailable, WebhookResponse{Error: "webhook secret not configured"})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit)
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, WebhookResponse{Error: "failed to read request body"})
			return
		}

		event, err := verifyStripeEvent(payload, c.GetHeader("Stripe-Signature"), secret)
		if err != nil {
			lg.Warnw("stripe webhook rejected", "err", err)
			c.JSON(http.StatusBadRequest, WebhookResponse{Error: "invalid Stripe signature"})
			return
		}

		duplicate, err := h.Handle(c.Request.Context(), &event)
		if err != nil {
			lg.Errorw("stripe webhook processing failed", "event_id", event.ID, "event_type", event.Type, "err", err)
			c.JSON(http.StatusInternalServerError, WebhookResponse{Error: "processing failed"})
			return
		}
		status := "processed"
		if duplicate {
			status = "duplicate"
		}
		c.JSON(http.StatusOK, WebhookResponse{Received: true, Status: status})
	}
}

func RegisterStripeRoutes(r gin.IRouter, h StripeEventHandler, secret string, log *zap.SugaredLogger) {
	r.POST("/webhook", ApiStripeWebhook(h, secret, log))
}
