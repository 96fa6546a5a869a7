package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"nfpickle-donations/internal/client"
	"nfpickle-donations/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var errNotStubbed = errors.New("not stubbed")

// fakeStripeClient implements client.StripeClient for tests; unset
// funcs fail so a test only ever exercises the calls it expects.
type fakeStripeClient struct {
	createPaymentIntentFunc func(ctx context.Context, amountCents int64, donor client.Donor) (*stripe.PaymentIntent, error)
	ensureCustomerFunc      func(ctx context.Context, donor client.Donor) (*stripe.Customer, error)
	ensurePriceFunc         func(ctx context.Context, amountCents int64, interval string) (*stripe.Price, error)
	createSubscriptionFunc  func(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error)
	cancelSubscriptionFunc  func(ctx context.Context, subscriptionID string) error
	getPaymentIntentFunc    func(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	getSubscriptionFunc     func(ctx context.Context, id string) (*stripe.Subscription, error)
	getChargeFunc           func(ctx context.Context, id string) (*stripe.Charge, error)
	verifyWebhookFunc       func(payload []byte, sigHeader string) (stripe.Event, error)
}

func (f *fakeStripeClient) CreatePaymentIntent(ctx context.Context, amountCents int64, donor client.Donor) (*stripe.PaymentIntent, error) {
	if f.createPaymentIntentFunc != nil {
		return f.createPaymentIntentFunc(ctx, amountCents, donor)
	}
	return nil, errNotStubbed
}

func (f *fakeStripeClient) EnsureCustomer(ctx context.Context, donor client.Donor) (*stripe.Customer, error) {
	if f.ensureCustomerFunc != nil {
		return f.ensureCustomerFunc(ctx, donor)
	}
	return nil, errNotStubbed
}

func (f *fakeStripeClient) EnsurePrice(ctx context.Context, amountCents int64, interval string) (*stripe.Price, error) {
	if f.ensurePriceFunc != nil {
		return f.ensurePriceFunc(ctx, amountCents, interval)
	}
	return nil, errNotStubbed
}

func (f *fakeStripeClient) CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error) {
	if f.createSubscriptionFunc != nil {
		return f.createSubscriptionFunc(ctx, customerID, priceID)
	}
	return nil, errNotStubbed
}

func (f *fakeStripeClient) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if f.cancelSubscriptionFunc != nil {
		return f.cancelSubscriptionFunc(ctx, subscriptionID)
	}
	return errNotStubbed
}

func (f *fakeStripeClient) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	if f.getPaymentIntentFunc != nil {
		return f.getPaymentIntentFunc(ctx, id)
	}
	return nil, errNotStubbed
}

func (f *fakeStripeClient) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if f.getSubscriptionFunc != nil {
		return f.getSubscriptionFunc(ctx, id)
	}
	return nil, errNotStubbed
}

func (f *fakeStripeClient) GetCharge(ctx context.Context, id string) (*stripe.Charge, error) {
	if f.getChargeFunc != nil {
		return f.getChargeFunc(ctx, id)
	}
	return nil, errNotStubbed
}

func (f *fakeStripeClient) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if f.verifyWebhookFunc != nil {
		return f.verifyWebhookFunc(payload, sigHeader)
	}
	return stripe.Event{}, errNotStubbed
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(&model.Donation{}, &model.ProviderEvent{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

func seedDonation(id, paymentIntentID, subscriptionID string) *model.Donation {
	donation := &model.Donation{
		ID:              id,
		DonorName:       "Jane Doe",
		DonorEmail:      "jane@example.com",
		Amount:          decimal.NewFromInt(50),
		DonationType:    model.DonationTypeOneTime,
		PaymentIntentID: paymentIntentID,
		Status:          model.StatusPending,
		PaymentStatus:   model.PaymentStatusIncomplete,
	}
	if subscriptionID != "" {
		donation.DonationType = model.DonationTypeRecurring
		donation.Frequency = model.FrequencyMonthly
		donation.SubscriptionID = subscriptionID
		donation.CustomerID = "cus_1"
	}
	return donation
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func countDonations(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	if err := db.Model(&model.Donation{}).Count(&count).Error; err != nil {
		t.Fatalf("count donations: %v", err)
	}
	return count
}

func getDonation(t *testing.T, db *gorm.DB, id string) *model.Donation {
	t.Helper()

	var donation model.Donation
	if err := db.Where("id = ?", id).First(&donation).Error; err != nil {
		t.Fatalf("load donation %s: %v", id, err)
	}
	return &donation
}
