package client

import (
	"context"
	"fmt"

	"nfpickle-donations/internal/config"

	"github.com/stripe/stripe-go/v74"
	stripeclient "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// Donor carries the donor details attached to provider-side objects as
// metadata so they survive on receipts and in the provider dashboard.
type Donor struct {
	Name    string
	Email   string
	Phone   string
	Message string
	Address string
}

type StripeClient interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, donor Donor) (*stripe.PaymentIntent, error)
	EnsureCustomer(ctx context.Context, donor Donor) (*stripe.Customer, error)
	EnsurePrice(ctx context.Context, amountCents int64, interval string) (*stripe.Price, error)
	CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error

	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	GetCharge(ctx context.Context, id string) (*stripe.Charge, error)

	VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error)
}

type stripeClientImpl struct {
	api           *stripeclient.API
	webhookSecret string
}

func NewStripeClient(cfg *config.Stripe) StripeClient {
	api := &stripeclient.API{}
	api.Init(cfg.SecretKey, nil)

	return &stripeClientImpl{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (c *stripeClientImpl) CreatePaymentIntent(ctx context.Context, amountCents int64, donor Donor) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(amountCents),
		Currency:     stripe.String(string(stripe.CurrencyUSD)),
		ReceiptEmail: stripe.String(donor.Email),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	addDonorMetadata(&params.Params, donor)

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return pi, nil
}

// EnsureCustomer reuses an existing customer for the donor's email so a
// repeat donor does not accumulate duplicate customer objects.
func (c *stripeClientImpl) EnsureCustomer(ctx context.Context, donor Donor) (*stripe.Customer, error) {
	listParams := &stripe.CustomerListParams{
		Email: stripe.String(donor.Email),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	it := c.api.Customers.List(listParams)
	for it.Next() {
		return it.Customer(), nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe list customers: %w", err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(donor.Email),
		Name:  stripe.String(donor.Name),
	}
	if donor.Phone != "" {
		params.Phone = stripe.String(donor.Phone)
	}
	params.Context = ctx
	addDonorMetadata(&params.Params, donor)

	cust, err := c.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create customer: %w", err)
	}
	return cust, nil
}

// EnsurePrice looks up the recurring price for (amount, interval) by its
// deterministic lookup key and creates one if absent. The lookup and the
// create are not atomic; two first-time requests racing can create two
// equivalent prices, which is harmless.
func (c *stripeClientImpl) EnsurePrice(ctx context.Context, amountCents int64, interval string) (*stripe.Price, error) {
	key := fmt.Sprintf("donation_%d_%s", amountCents, interval)

	listParams := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{key}),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	it := c.api.Prices.List(listParams)
	for it.Next() {
		return it.Price(), nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe list prices: %w", err)
	}

	params := &stripe.PriceParams{
		UnitAmount: stripe.Int64(amountCents),
		Currency:   stripe.String(string(stripe.CurrencyUSD)),
		LookupKey:  stripe.String(key),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(interval),
		},
		ProductData: &stripe.PriceProductDataParams{
			Name: stripe.String("Recurring donation"),
		},
	}
	params.Context = ctx

	price, err := c.api.Prices.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create price: %w", err)
	}
	return price, nil
}

func (c *stripeClientImpl) CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.Context = ctx
	// The first invoice's payment intent carries the confirmation secret.
	params.AddExpand("latest_invoice.payment_intent")

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create subscription: %w", err)
	}
	return sub, nil
}

func (c *stripeClientImpl) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := c.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("stripe cancel subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (c *stripeClientImpl) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get payment intent %s: %w", id, err)
	}
	return pi, nil
}

func (c *stripeClientImpl) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get subscription %s: %w", id, err)
	}
	return sub, nil
}

func (c *stripeClientImpl) GetCharge(ctx context.Context, id string) (*stripe.Charge, error) {
	params := &stripe.ChargeParams{}
	params.Context = ctx

	ch, err := c.api.Charges.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get charge %s: %w", id, err)
	}
	return ch, nil
}

func (c *stripeClientImpl) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func addDonorMetadata(params *stripe.Params, donor Donor) {
	params.AddMetadata("donor_name", donor.Name)
	params.AddMetadata("donor_email", donor.Email)
	if donor.Phone != "" {
		params.AddMetadata("donor_phone", donor.Phone)
	}
	if donor.Message != "" {
		params.AddMetadata("donor_message", donor.Message)
	}
	if donor.Address != "" {
		params.AddMetadata("donor_address", donor.Address)
	}
}
