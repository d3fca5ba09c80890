/**
 * @description
 * This file defines the payment-side domain models for the payments-service:
 * the per-line-item payment records created at intent time and the
 * distribution ledger rows that track where each slice of a payment must end
 * up. These structs map directly to the `payment_records` and
 * `distribution_records` tables.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (cents),
 *   which avoids floating-point inaccuracies with financial data.
 * - A PaymentRecord always satisfies
 *   GrossAmount == PlatformFeeAmount + ManagementFeeAmount + OwnerNetAmount.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment record lifecycle statuses. Completed and failed are terminal.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Distribution ledger statuses. Processing is a short-lived claim state used
// to make the transfer attempt single-shot; the remaining three are terminal.
const (
	DistributionStatusPending        = "pending"
	DistributionStatusProcessing     = "processing"
	DistributionStatusTransferred    = "transferred"
	DistributionStatusTransferFailed = "transfer_failed"
	DistributionStatusManualRequired = "manual_processing_required"
)

// Distribution recipient types.
const (
	RecipientPlatform   = "platform"
	RecipientManagement = "management"
	RecipientOwner      = "owner"
)

// PaymentRecord is one billable line item (rent, security deposit, ...) of an
// application's payment. Rows are created when the processor intent is
// created and are immutable once completed, except for audit timestamps.
type PaymentRecord struct {
	ID                  uuid.UUID  `json:"id"`
	ApplicationID       uuid.UUID  `json:"application_id"`
	PaymentType         string     `json:"payment_type"`
	GrossAmount         int64      `json:"gross_amount"` // in cents
	PlatformFeeAmount   int64      `json:"platform_fee_amount"`
	ManagementFeeAmount int64      `json:"management_fee_amount"`
	OwnerNetAmount      int64      `json:"owner_net_amount"`
	ProcessorIntentID   string     `json:"processor_intent_id"`
	Status              string     `json:"status"`
	TransactionID       *string    `json:"transaction_id,omitempty"`
	PaidAt              *time.Time `json:"paid_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// DistributionRecord is one recipient's share of one payment record. The sum
// of distribution amounts for a payment record equals its gross amount.
type DistributionRecord struct {
	ID                  uuid.UUID  `json:"id"`
	PaymentRecordID     uuid.UUID  `json:"payment_record_id"`
	RecipientType       string     `json:"recipient_type"`
	RecipientID         uuid.UUID  `json:"recipient_id"`
	Amount              int64      `json:"amount"` // in cents
	Percentage          float64    `json:"percentage"`
	Status              string     `json:"status"`
	ProcessorTransferID *string    `json:"processor_transfer_id,omitempty"`
	TransferAmount      *int64     `json:"transfer_amount,omitempty"`
	TransferCurrency    *string    `json:"transfer_currency,omitempty"`
	TransferError       *string    `json:"transfer_error,omitempty"`
	TransferredAt       *time.Time `json:"transferred_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// PaymentLineItem is one billable component of a create-intent request.
type PaymentLineItem struct {
	PaymentType string `json:"payment_type"`
	Amount      int64  `json:"amount"` // in cents
}

// CreateIntentInput is the DTO for incoming create-payment-intent requests.
type CreateIntentInput struct {
	ApplicationID   uuid.UUID         `json:"application_id"`
	GrossAmount     int64             `json:"gross_amount"` // in cents
	LineItems       []PaymentLineItem `json:"line_items"`
	VerificationRef string            `json:"verification_ref,omitempty"`
}

// FeeBreakdown is the aggregate split returned to the client alongside the
// intent's client secret.
type FeeBreakdown struct {
	GrossAmount         int64 `json:"gross_amount"`
	PlatformFeeAmount   int64 `json:"platform_fee_amount"`
	ManagementFeeAmount int64 `json:"management_fee_amount"`
	OwnerNetAmount      int64 `json:"owner_net_amount"`
}

// IntentResult is the successful response of the payment-intent orchestrator.
type IntentResult struct {
	IntentID     string       `json:"intent_id"`
	ClientSecret string       `json:"client_secret"`
	Breakdown    FeeBreakdown `json:"breakdown"`
	Warnings     []string     `json:"warnings,omitempty"`
}

// SettlementMetadata is the typed metadata attached to processor intents and
// transfers so that webhook deliveries can be correlated back to our records
// without parsing loose maps.
type SettlementMetadata struct {
	ApplicationID   uuid.UUID `json:"application_id"`
	PropertyID      uuid.UUID `json:"property_id"`
	OwnerID         uuid.UUID `json:"owner_id"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
}
