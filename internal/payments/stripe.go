package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ms-venues/internal/apperr"
	"ms-venues/internal/logger"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrProviderDisabled is returned by charge operations when no payment
// provider is configured.
var ErrProviderDisabled = errors.New("payment provider is not configured")

const metadataPaymentID = "payment_id"

// Provider webhook event types handled by HandleProviderEvent.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
)

type IntentRequest struct {
	PaymentID string
	// AmountMinor is the amount in the currency's minor units.
	AmountMinor int64
	Currency    string
}

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// Gateway creates provider-side charges.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}

// StripeGateway creates Stripe PaymentIntents.
type StripeGateway struct {
	api *client.API
	log *logger.Logger
}

func NewStripeGateway(secretKey string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, ErrProviderDisabled
	}
	sc := client.New(secretKey, nil)
	log.Info("STRIPE", "Stripe client initialized")
	return &StripeGateway{api: sc, log: log}, nil
}

func (g *StripeGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata(metadataPaymentID, req.PaymentID)
	params.SetIdempotencyKey("payment-" + req.PaymentID)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to create payment intent for %s: %v", req.PaymentID, err))
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

// ProviderEvent is a verified webhook notification about one intent.
type ProviderEvent struct {
	ID        string
	Type      string
	IntentID  string
	PaymentID string
}

// ParseWebhook verifies the Stripe-Signature header and extracts the
// payment intent the event refers to.
func ParseWebhook(payload []byte, sigHeader, secret string) (ProviderEvent, error) {
	if secret == "" {
		return ProviderEvent{}, ErrProviderDisabled
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return ProviderEvent{}, apperr.Validation("signature", "invalid webhook signature").Wrap(err)
	}

	out := ProviderEvent{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "payment_intent.") || event.Data == nil {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return ProviderEvent{}, apperr.Validation("payload", "malformed payment intent").Wrap(err)
	}
	out.IntentID = pi.ID
	out.PaymentID = pi.Metadata[metadataPaymentID]
	return out, nil
}
