/**
 * @description
 * Rental-side domain models: applications, properties, agreements and owner
 * payout profiles. The payments-service only mutates the status fields that
 * settlement outcomes drive; everything else is owned by the listings side.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Rental application statuses.
const (
	ApplicationStatusPending        = "pending"
	ApplicationStatusApproved       = "approved"
	ApplicationStatusPaymentPending = "payment_pending"
	ApplicationStatusCompleted      = "completed"
	ApplicationStatusRejected       = "rejected"
)

// Application payment statuses.
const (
	AppPaymentStatusNotRequired = "not_required"
	AppPaymentStatusPending     = "pending"
	AppPaymentStatusCompleted   = "completed"
)

// Property statuses.
const (
	PropertyStatusAvailable   = "available"
	PropertyStatusPending     = "pending"
	PropertyStatusRented      = "rented"
	PropertyStatusMaintenance = "maintenance"
)

// RentalApplication is a tenant's request for a property.
type RentalApplication struct {
	ID            uuid.UUID `json:"id"`
	PropertyID    uuid.UUID `json:"property_id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Property is the rental unit an application targets. Fee percentages are
// configured per property; nil means the platform-wide default applies.
type Property struct {
	ID                   uuid.UUID `json:"id"`
	OwnerID              uuid.UUID `json:"owner_id"`
	Status               string    `json:"status"`
	MonthlyRent          int64     `json:"monthly_rent"` // in cents
	SecurityDeposit      *int64    `json:"security_deposit,omitempty"`
	PlatformFeePercent   *float64  `json:"platform_fee_percent,omitempty"`
	ManagementFeePercent *float64  `json:"management_fee_percent,omitempty"`
	ManagementCompanyID  *uuid.UUID `json:"management_company_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// RentalAgreement binds tenant, owner and property once the first settlement
// for an application succeeds. At most one row exists per application.
type RentalAgreement struct {
	ID              uuid.UUID `json:"id"`
	ApplicationID   uuid.UUID `json:"application_id"`
	PropertyID      uuid.UUID `json:"property_id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	OwnerID         uuid.UUID `json:"owner_id"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	MonthlyRent     int64     `json:"monthly_rent"`
	SecurityDeposit int64     `json:"security_deposit"`
	CreatedAt       time.Time `json:"created_at"`
}

// OwnerProfile is the payout-relevant view of a property owner. It is
// read-only input to the reconciler; only the onboarding consumer mutates it.
type OwnerProfile struct {
	ID                 uuid.UUID `json:"id"`
	ProcessorAccountID *string   `json:"processor_account_id,omitempty"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	PayoutsEnabled     bool      `json:"payouts_enabled"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CanReceiveTransfers reports whether automated payouts may even be
// attempted for this owner. A live processor-side check still follows.
func (o *OwnerProfile) CanReceiveTransfers() bool {
	return o.ProcessorAccountID != nil && *o.ProcessorAccountID != "" &&
		o.OnboardingComplete && o.PayoutsEnabled
}
