package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"nfpickle-donations/internal/client"
	"nfpickle-donations/internal/metrics"
	"nfpickle-donations/internal/model"
	"nfpickle-donations/internal/repository"

	"github.com/stripe/stripe-go/v74"
	"gorm.io/datatypes"
)

const (
	eventPaymentIntentSucceeded  = "payment_intent.succeeded"
	eventPaymentIntentFailed     = "payment_intent.payment_failed"
	eventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	eventInvoicePaymentFailed    = "invoice.payment_failed"
	eventSubscriptionDeleted     = "customer.subscription.deleted"
)

type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, sigHeader string) error
}

type webhookServiceImpl struct {
	stripeClient client.StripeClient
	donationRepo repository.DonationRepository
	eventRepo    repository.ProviderEventRepository
	logger       *slog.Logger
}

func NewWebhookService(
	stripeClient client.StripeClient,
	donationRepo repository.DonationRepository,
	eventRepo repository.ProviderEventRepository,
	logger *slog.Logger,
) WebhookService {
	return &webhookServiceImpl{
		stripeClient: stripeClient,
		donationRepo: donationRepo,
		eventRepo:    eventRepo,
		logger:       logger,
	}
}

// HandleEvent verifies the delivery, logs it once by provider event id,
// and applies the idempotent state transition for its kind. A replay of
// an already-processed event id acknowledges without re-applying; a
// replay of a previously failed apply retries it.
func (s *webhookServiceImpl) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.stripeClient.VerifyWebhook(payload, sigHeader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	seen, processed, err := s.eventRepo.Record(ctx, &model.ProviderEvent{
		EventID:     event.ID,
		EventType:   event.Type,
		PayloadJSON: datatypes.JSON(payload),
		ReceivedAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("record provider event: %w", err)
	}
	if seen && processed {
		metrics.WebhookEvents.WithLabelValues(event.Type, metrics.OutcomeReplayed).Inc()
		s.logger.InfoContext(ctx, "webhook event replayed, acknowledging", "event_id", event.ID, "type", event.Type)
		return nil
	}

	outcome, applyErr := s.apply(ctx, event)
	if applyErr != nil {
		metrics.WebhookEvents.WithLabelValues(event.Type, metrics.OutcomeFailed).Inc()
		if err := s.eventRepo.MarkFailed(ctx, event.ID, applyErr.Error()); err != nil {
			s.logger.ErrorContext(ctx, "mark webhook event failed", "event_id", event.ID, "err", err)
		}
		return fmt.Errorf("apply webhook event %s: %w", event.Type, applyErr)
	}

	metrics.WebhookEvents.WithLabelValues(event.Type, outcome).Inc()
	if err := s.eventRepo.MarkProcessed(ctx, event.ID); err != nil {
		s.logger.ErrorContext(ctx, "mark webhook event processed", "event_id", event.ID, "err", err)
	}

	s.logger.InfoContext(ctx, "webhook event handled", "event_id", event.ID, "type", event.Type, "outcome", outcome)
	return nil
}

func (s *webhookServiceImpl) apply(ctx context.Context, event stripe.Event) (string, error) {
	switch event.Type {
	case eventPaymentIntentSucceeded:
		return s.applyPaymentSucceeded(ctx, event)
	case eventPaymentIntentFailed:
		return s.applyPaymentFailed(ctx, event)
	case eventInvoicePaymentSucceeded:
		return s.applyInvoicePaid(ctx, event)
	case eventInvoicePaymentFailed:
		return s.applyInvoiceFailed(ctx, event)
	case eventSubscriptionDeleted:
		return s.applySubscriptionDeleted(ctx, event)
	default:
		// Forward-compatible no-op.
		return metrics.OutcomeIgnored, nil
	}
}

func (s *webhookServiceImpl) applyPaymentSucceeded(ctx context.Context, event stripe.Event) (string, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return "", fmt.Errorf("decode payment intent: %w", err)
	}

	now := time.Now()
	fields := map[string]interface{}{
		"status":            model.StatusCompleted,
		"payment_status":    model.PaymentStatusSucceeded,
		"last_payment_date": &now,
	}

	// The event carries only the charge id at this API version; the
	// receipt link lives on the charge itself.
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		if charge, err := s.stripeClient.GetCharge(ctx, pi.LatestCharge.ID); err == nil {
			fields["receipt_url"] = charge.ReceiptURL
		} else {
			s.logger.WarnContext(ctx, "receipt lookup failed", "charge_id", pi.LatestCharge.ID, "err", err)
		}
	}

	return s.updateByPaymentIntent(ctx, pi.ID, fields)
}

func (s *webhookServiceImpl) applyPaymentFailed(ctx context.Context, event stripe.Event) (string, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return "", fmt.Errorf("decode payment intent: %w", err)
	}

	return s.updateByPaymentIntent(ctx, pi.ID, map[string]interface{}{
		"status":         model.StatusFailed,
		"payment_status": model.PaymentStatusFailed,
	})
}

func (s *webhookServiceImpl) applyInvoicePaid(ctx context.Context, event stripe.Event) (string, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return "", fmt.Errorf("decode invoice: %w", err)
	}
	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		// One-off invoice, not a donation cycle.
		return metrics.OutcomeIgnored, nil
	}

	lastPayment := time.Now()
	if invoice.StatusTransitions != nil && invoice.StatusTransitions.PaidAt > 0 {
		lastPayment = time.Unix(invoice.StatusTransitions.PaidAt, 0)
	}

	fields := map[string]interface{}{
		"status":            model.StatusCompleted,
		"payment_status":    model.PaymentStatusSucceeded,
		"last_payment_date": &lastPayment,
	}
	if invoice.HostedInvoiceURL != "" {
		fields["receipt_url"] = invoice.HostedInvoiceURL
	}

	if sub, err := s.stripeClient.GetSubscription(ctx, invoice.Subscription.ID); err == nil {
		if sub.CurrentPeriodEnd > 0 {
			next := time.Unix(sub.CurrentPeriodEnd, 0)
			fields["next_payment_date"] = &next
		}
	} else {
		s.logger.WarnContext(ctx, "next billing date lookup failed", "subscription_id", invoice.Subscription.ID, "err", err)
	}

	return s.updateBySubscription(ctx, invoice.Subscription.ID, fields)
}

// applyInvoiceFailed marks the payment cycle failed without touching the
// overall status: one missed payment does not un-complete the donation's
// history, only an explicit cancellation moves status to cancelled.
func (s *webhookServiceImpl) applyInvoiceFailed(ctx context.Context, event stripe.Event) (string, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return "", fmt.Errorf("decode invoice: %w", err)
	}
	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		return metrics.OutcomeIgnored, nil
	}

	return s.updateBySubscription(ctx, invoice.Subscription.ID, map[string]interface{}{
		"payment_status": model.PaymentStatusFailed,
	})
}

func (s *webhookServiceImpl) applySubscriptionDeleted(ctx context.Context, event stripe.Event) (string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return "", fmt.Errorf("decode subscription: %w", err)
	}

	return s.updateBySubscription(ctx, sub.ID, map[string]interface{}{
		"status": model.StatusCancelled,
	})
}

func (s *webhookServiceImpl) updateByPaymentIntent(ctx context.Context, paymentIntentID string, fields map[string]interface{}) (string, error) {
	matched, err := s.donationRepo.UpdateByPaymentIntentID(ctx, paymentIntentID, fields)
	if err != nil {
		return "", err
	}
	if matched == 0 {
		return metrics.OutcomeNoMatch, nil
	}
	return metrics.OutcomeApplied, nil
}

func (s *webhookServiceImpl) updateBySubscription(ctx context.Context, subscriptionID string, fields map[string]interface{}) (string, error) {
	matched, err := s.donationRepo.UpdateBySubscriptionID(ctx, subscriptionID, fields)
	if err != nil {
		return "", err
	}
	if matched == 0 {
		return metrics.OutcomeNoMatch, nil
	}
	return metrics.OutcomeApplied, nil
}
