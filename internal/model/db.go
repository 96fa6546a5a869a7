package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	DonationTypeOneTime   = "one-time"
	DonationTypeRecurring = "recurring"

	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"

	PaymentStatusIncomplete = "incomplete"
	PaymentStatusSucceeded  = "succeeded"
	PaymentStatusFailed     = "failed"
)

// Donation is one donation attempt. Donor fields are written once at
// creation; status, payment status, timestamps and receipt are owned by
// the webhook path afterwards.
type Donation struct {
	ID string `gorm:"primaryKey;size:36;not null" json:"id"`

	DonorName    string `gorm:"size:191;not null" json:"donorName"`
	DonorEmail   string `gorm:"size:191;index;not null" json:"donorEmail"`
	DonorPhone   string `gorm:"size:32" json:"donorPhone,omitempty"`
	DonorMessage string `gorm:"size:1024" json:"donorMessage,omitempty"`
	DonorAddress string `gorm:"size:512" json:"donorAddress,omitempty"`

	Amount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	DonationType string          `gorm:"size:16;not null" json:"donationType"` // one-time, recurring
	Frequency    string          `gorm:"size:16" json:"frequency,omitempty"`   // monthly, yearly; recurring only

	// Provider correlation ids. The webhook handler looks records up by
	// these, never by the internal id.
	PaymentIntentID string `gorm:"size:64;index" json:"paymentIntentId,omitempty"`
	SubscriptionID  string `gorm:"size:64;index" json:"subscriptionId,omitempty"`
	CustomerID      string `gorm:"size:64" json:"customerId,omitempty"`

	Status        string `gorm:"size:16;index;not null" json:"status"`  // pending, completed, failed, cancelled
	PaymentStatus string `gorm:"size:16;not null" json:"paymentStatus"` // incomplete, succeeded, failed

	LastPaymentDate *time.Time `json:"lastPaymentDate,omitempty"`
	NextPaymentDate *time.Time `json:"nextPaymentDate,omitempty"`
	ReceiptURL      string     `gorm:"size:512" json:"receiptUrl,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProviderEvent logs every authenticated webhook delivery, keyed by the
// provider's event id so replays can be acknowledged without re-applying.
type ProviderEvent struct {
	EventID     string         `gorm:"primaryKey;size:128;not null"`
	EventType   string         `gorm:"size:64;index;not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json"`

	ReceivedAt   time.Time `gorm:"not null"`
	ProcessedAt  *time.Time
	ProcessError *string `gorm:"size:255"`
}
