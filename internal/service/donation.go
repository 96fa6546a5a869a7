package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"nfpickle-donations/internal/client"
	"nfpickle-donations/internal/dto"
	"nfpickle-donations/internal/metrics"
	"nfpickle-donations/internal/model"
	"nfpickle-donations/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DonationService interface {
	Create(ctx context.Context, req *dto.CreateDonationRequest) (*model.Donation, string, error)
	List(ctx context.Context) ([]*model.Donation, error)
	Delete(ctx context.Context, id string) error
}

type donationServiceImpl struct {
	stripeClient client.StripeClient
	donationRepo repository.DonationRepository
	validate     *validator.Validate
	maxAmount    decimal.Decimal
	logger       *slog.Logger
}

func NewDonationService(
	stripeClient client.StripeClient,
	donationRepo repository.DonationRepository,
	maxAmount int64,
	logger *slog.Logger,
) DonationService {
	return &donationServiceImpl{
		stripeClient: stripeClient,
		donationRepo: donationRepo,
		validate:     validator.New(),
		maxAmount:    decimal.NewFromInt(maxAmount),
		logger:       logger,
	}
}

// Create validates the request, creates the provider-side payment object
// and writes exactly one pending record. The record write happens only
// after the provider call succeeds, so a failed provider call leaves no
// orphan record.
func (s *donationServiceImpl) Create(ctx context.Context, req *dto.CreateDonationRequest) (*model.Donation, string, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, "", err
	}

	amount := req.Amount.Round(2)
	amountCents := amount.Shift(2).IntPart()

	donor := client.Donor{
		Name:    req.DonorName,
		Email:   req.DonorEmail,
		Phone:   req.DonorPhone,
		Message: req.DonorMessage,
		Address: req.DonorAddress,
	}

	donation := &model.Donation{
		ID:            uuid.NewString(),
		DonorName:     req.DonorName,
		DonorEmail:    req.DonorEmail,
		DonorPhone:    req.DonorPhone,
		DonorMessage:  req.DonorMessage,
		DonorAddress:  req.DonorAddress,
		Amount:        amount,
		DonationType:  req.DonationType,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentStatusIncomplete,
	}

	var clientSecret string

	switch req.DonationType {
	case model.DonationTypeOneTime:
		pi, err := s.stripeClient.CreatePaymentIntent(ctx, amountCents, donor)
		if err != nil {
			return nil, "", &ProviderError{Op: "create payment intent", Err: err}
		}
		donation.PaymentIntentID = pi.ID
		clientSecret = pi.ClientSecret

	case model.DonationTypeRecurring:
		donation.Frequency = req.Frequency

		cust, err := s.stripeClient.EnsureCustomer(ctx, donor)
		if err != nil {
			return nil, "", &ProviderError{Op: "ensure customer", Err: err}
		}

		price, err := s.stripeClient.EnsurePrice(ctx, amountCents, intervalFor(req.Frequency))
		if err != nil {
			return nil, "", &ProviderError{Op: "ensure price", Err: err}
		}

		sub, err := s.stripeClient.CreateSubscription(ctx, cust.ID, price.ID)
		if err != nil {
			return nil, "", &ProviderError{Op: "create subscription", Err: err}
		}

		donation.SubscriptionID = sub.ID
		donation.CustomerID = cust.ID
		if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
			donation.PaymentIntentID = sub.LatestInvoice.PaymentIntent.ID
			clientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
		}
	}

	if err := s.donationRepo.Create(ctx, donation); err != nil {
		s.voidProviderObjects(ctx, donation)
		return nil, "", fmt.Errorf("store donation: %w", err)
	}

	metrics.DonationsInitiated.WithLabelValues(donation.DonationType).Inc()
	s.logger.InfoContext(ctx, "donation initiated",
		"id", donation.ID,
		"type", donation.DonationType,
		"amount", donation.Amount.String(),
	)

	return donation, clientSecret, nil
}

func (s *donationServiceImpl) List(ctx context.Context) ([]*model.Donation, error) {
	return s.donationRepo.ListNewestFirst(ctx)
}

// Delete removes the record permanently. An active subscription is
// cancelled remotely first, best-effort: a failed cancel is logged and
// never blocks the local delete.
func (s *donationServiceImpl) Delete(ctx context.Context, id string) error {
	donation, err := s.donationRepo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("find donation: %w", err)
	}

	if donation.SubscriptionID != "" && donation.Status != model.StatusCancelled {
		if err := s.stripeClient.CancelSubscription(ctx, donation.SubscriptionID); err != nil {
			metrics.RemoteCancelFailures.Inc()
			s.logger.WarnContext(ctx, "remote subscription cancel failed, deleting locally anyway",
				"id", donation.ID,
				"subscription_id", donation.SubscriptionID,
				"err", err,
			)
		}
	}

	if err := s.donationRepo.DeleteByID(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("delete donation: %w", err)
	}

	s.logger.InfoContext(ctx, "donation deleted", "id", id)
	return nil
}

func (s *donationServiceImpl) validateRequest(req *dto.CreateDonationRequest) error {
	fields := map[string]string{}

	// Frequency supplied on a one-time donation is ignored, not
	// rejected, so clear it before the tag rules see it.
	if req.DonationType == model.DonationTypeOneTime {
		req.Frequency = ""
	}

	if err := s.validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields[fieldName(fe.Field())] = messageFor(fe)
			}
		} else {
			return fmt.Errorf("validate request: %w", err)
		}
	}

	if !req.Amount.IsPositive() {
		fields["amount"] = "must be a positive amount"
	} else if req.Amount.GreaterThan(s.maxAmount) {
		fields["amount"] = fmt.Sprintf("must not exceed %s", s.maxAmount.String())
	}

	if req.DonationType == model.DonationTypeRecurring && req.Frequency == "" {
		fields["frequency"] = "frequency required for recurring donations"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// voidProviderObjects is the compensating action for a provider create
// followed by a failed local write. Subscriptions are cancelled so the
// donor is never billed for a record we lost; unconfirmed payment
// intents expire on the provider side without a charge.
func (s *donationServiceImpl) voidProviderObjects(ctx context.Context, donation *model.Donation) {
	if donation.SubscriptionID == "" {
		return
	}
	if err := s.stripeClient.CancelSubscription(ctx, donation.SubscriptionID); err != nil {
		s.logger.ErrorContext(ctx, "void of orphaned subscription failed",
			"subscription_id", donation.SubscriptionID,
			"err", err,
		)
	}
}

func intervalFor(frequency string) string {
	if frequency == model.FrequencyYearly {
		return "year"
	}
	return "month"
}

func fieldName(structField string) string {
	if structField == "" {
		return structField
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "too long"
	default:
		return "invalid value"
	}
}
