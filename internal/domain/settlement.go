package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransferResult captures the processor's view of a successful owner payout.
type TransferResult struct {
	TransferID string `json:"transfer_id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

// SettlementOutcome is returned from the reconciler's success path. Non-fatal
// step failures land in Warnings so callers and tests can assert on partial
// failure instead of grepping logs.
type SettlementOutcome struct {
	ApplicationID     uuid.UUID       `json:"application_id"`
	PropertyID        uuid.UUID       `json:"property_id"`
	PaymentsCompleted int             `json:"payments_completed"`
	AlreadySettled    bool            `json:"already_settled"`
	BankingStatus     string          `json:"banking_status"`
	TransferResult    *TransferResult `json:"transfer_result,omitempty"`
	TransferError     *string         `json:"transfer_error,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
}

// AddWarning records a non-fatal step failure.
func (o *SettlementOutcome) AddWarning(msg string) {
	o.Warnings = append(o.Warnings, msg)
}

// OwnerOnboardingEvent is the payload consumed from the onboarding
// collaborator's queue when an owner's payout eligibility changes.
type OwnerOnboardingEvent struct {
	OwnerID            uuid.UUID `json:"owner_id"`
	ProcessorAccountID string    `json:"processor_account_id"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	PayoutsEnabled     bool      `json:"payouts_enabled"`
	Timestamp          time.Time `json:"timestamp"`
}

// PaymentSettledEvent is published after a successful settlement so
// downstream services (notifications, analytics) can react.
type PaymentSettledEvent struct {
	ApplicationID uuid.UUID `json:"application_id"`
	PropertyID    uuid.UUID `json:"property_id"`
	IntentID      string    `json:"intent_id"`
	GrossAmount   int64     `json:"gross_amount"`
	BankingStatus string    `json:"banking_status"`
	Timestamp     time.Time `json:"timestamp"`
}
