package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nfpickle-donations/internal/client"
	"nfpickle-donations/internal/metrics"
	"nfpickle-donations/internal/model"
	"nfpickle-donations/internal/repository"

	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v74"
)

// Reconciler sweeps donations stuck in pending past the stale window and
// re-queries the provider for their real outcome. It closes the gap left
// by missed webhooks and by inserts that raced a process crash.
type Reconciler struct {
	stripeClient client.StripeClient
	donationRepo repository.DonationRepository
	staleAfter   time.Duration
	schedule     string
	logger       *slog.Logger
	cron         *cron.Cron
}

func NewReconciler(
	stripeClient client.StripeClient,
	donationRepo repository.DonationRepository,
	schedule string,
	staleAfter time.Duration,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		stripeClient: stripeClient,
		donationRepo: donationRepo,
		staleAfter:   staleAfter,
		schedule:     schedule,
		logger:       logger,
		cron:         cron.New(),
	}
}

func (r *Reconciler) Start() error {
	if r.schedule == "" {
		r.logger.Info("reconciliation worker disabled")
		return nil
	}

	_, err := r.cron.AddFunc(r.schedule, func() {
		ctx := context.Background()
		if err := r.RunOnce(ctx); err != nil {
			r.logger.Error("reconciliation sweep failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reconciliation worker: %w", err)
	}

	r.cron.Start()
	r.logger.Info("reconciliation worker started", "schedule", r.schedule, "stale_after", r.staleAfter.String())
	return nil
}

func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Reconciler) RunOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-r.staleAfter)
	stale, err := r.donationRepo.ListStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale pending donations: %w", err)
	}

	for _, donation := range stale {
		if err := r.reconcile(ctx, donation); err != nil {
			r.logger.Warn("reconcile donation failed", "id", donation.ID, "err", err)
		}
	}

	return nil
}

func (r *Reconciler) reconcile(ctx context.Context, donation *model.Donation) error {
	if donation.SubscriptionID != "" {
		return r.reconcileSubscription(ctx, donation)
	}
	if donation.PaymentIntentID != "" {
		return r.reconcilePaymentIntent(ctx, donation)
	}
	return nil
}

func (r *Reconciler) reconcilePaymentIntent(ctx context.Context, donation *model.Donation) error {
	pi, err := r.stripeClient.GetPaymentIntent(ctx, donation.PaymentIntentID)
	if err != nil {
		return err
	}

	var fields map[string]interface{}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		now := time.Now()
		fields = map[string]interface{}{
			"status":            model.StatusCompleted,
			"payment_status":    model.PaymentStatusSucceeded,
			"last_payment_date": &now,
		}
	case stripe.PaymentIntentStatusCanceled:
		fields = map[string]interface{}{
			"status":         model.StatusFailed,
			"payment_status": model.PaymentStatusFailed,
		}
	default:
		// Still confirmable; leave it pending.
		return nil
	}

	if _, err := r.donationRepo.UpdateByPaymentIntentID(ctx, donation.PaymentIntentID, fields); err != nil {
		return err
	}
	metrics.ReconcileUpdates.Inc()
	r.logger.Info("reconciled stale donation", "id", donation.ID, "payment_intent_id", donation.PaymentIntentID, "provider_status", string(pi.Status))
	return nil
}

func (r *Reconciler) reconcileSubscription(ctx context.Context, donation *model.Donation) error {
	sub, err := r.stripeClient.GetSubscription(ctx, donation.SubscriptionID)
	if err != nil {
		return err
	}

	var fields map[string]interface{}
	switch sub.Status {
	case stripe.SubscriptionStatusActive:
		now := time.Now()
		fields = map[string]interface{}{
			"status":            model.StatusCompleted,
			"payment_status":    model.PaymentStatusSucceeded,
			"last_payment_date": &now,
		}
		if sub.CurrentPeriodEnd > 0 {
			next := time.Unix(sub.CurrentPeriodEnd, 0)
			fields["next_payment_date"] = &next
		}
	case stripe.SubscriptionStatusCanceled:
		fields = map[string]interface{}{
			"status": model.StatusCancelled,
		}
	case stripe.SubscriptionStatusIncompleteExpired:
		fields = map[string]interface{}{
			"status":         model.StatusFailed,
			"payment_status": model.PaymentStatusFailed,
		}
	default:
		return nil
	}

	if _, err := r.donationRepo.UpdateBySubscriptionID(ctx, donation.SubscriptionID, fields); err != nil {
		return err
	}
	metrics.ReconcileUpdates.Inc()
	r.logger.Info("reconciled stale donation", "id", donation.ID, "subscription_id", donation.SubscriptionID, "provider_status", string(sub.Status))
	return nil
}
