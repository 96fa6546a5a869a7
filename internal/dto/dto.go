package dto

import (
	"nfpickle-donations/internal/model"

	"github.com/shopspring/decimal"
)

type CreateDonationRequest struct {
	DonorName    string          `json:"donorName" validate:"required"`
	DonorEmail   string          `json:"donorEmail" validate:"required,email"`
	DonorPhone   string          `json:"donorPhone" validate:"omitempty,max=32"`
	DonorMessage string          `json:"donorMessage" validate:"omitempty,max=1000"`
	DonorAddress string          `json:"donorAddress" validate:"omitempty,max=500"`
	Amount       decimal.Decimal `json:"amount"`
	DonationType string          `json:"donationType" validate:"required,oneof=one-time recurring"`
	Frequency    string          `json:"frequency" validate:"omitempty,oneof=monthly yearly"`
}

type CreateDonationResponse struct {
	Donation *model.Donation `json:"donation"`
	// ClientSecret is consumed by the donor's browser to confirm the
	// payment directly with the provider.
	ClientSecret string `json:"clientSecret"`
}

type ListDonationsResponse struct {
	Donations []*model.Donation `json:"donations"`
}

type DeleteDonationResponse struct {
	Success bool `json:"success"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type PublicConfigResponse struct {
	PublishableKey string `json:"publishableKey"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
