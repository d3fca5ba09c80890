/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the payments-service needs. Keeping the interface separate from the
 * PostgreSQL implementation lets the orchestrator and reconciler be tested
 * against small stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/gdc-properties/payments-service/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Application and property methods
	GetApplication(ctx context.Context, applicationID uuid.UUID) (*domain.RentalApplication, error)
	UpdateApplicationStatus(ctx context.Context, applicationID uuid.UUID, status, paymentStatus string) error
	RejectSiblingApplications(ctx context.Context, propertyID, exceptApplicationID uuid.UUID) (int64, error)
	GetProperty(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error)
	MarkPropertyRented(ctx context.Context, propertyID uuid.UUID) (bool, error)
	UpdatePropertyStatus(ctx context.Context, propertyID uuid.UUID, status string) error

	// Owner payout profile methods
	GetOwnerProfile(ctx context.Context, ownerID uuid.UUID) (*domain.OwnerProfile, error)
	ApplyOwnerOnboarding(ctx context.Context, event domain.OwnerOnboardingEvent) error

	// Payment record methods
	CreatePaymentRecords(ctx context.Context, records []*domain.PaymentRecord) error
	FindPaymentRecordsByIntentID(ctx context.Context, intentID string) ([]domain.PaymentRecord, error)
	CompletePaymentsByIntentID(ctx context.Context, intentID, transactionID string, paidAt time.Time) (int64, error)
	FailPaymentsByIntentID(ctx context.Context, intentID string) (int64, error)

	// Distribution ledger methods
	CreateDistributionRecords(ctx context.Context, records []*domain.DistributionRecord) error
	FindDistributionsByApplicationID(ctx context.Context, applicationID uuid.UUID) ([]domain.DistributionRecord, error)
	FindDistributionsByIntentID(ctx context.Context, intentID, recipientType string) ([]domain.DistributionRecord, error)
	ClaimDistributionForTransfer(ctx context.Context, distributionID uuid.UUID) (bool, error)
	MarkDistributionTransferred(ctx context.Context, distributionID uuid.UUID, transferID string, amount int64, currency string, transferredAt time.Time) error
	MarkDistributionTransferFailed(ctx context.Context, distributionID uuid.UUID, transferError string) error
	MarkDistributionManual(ctx context.Context, distributionID uuid.UUID, reason string) error

	// Rental agreement methods
	CreateRentalAgreement(ctx context.Context, agreement *domain.RentalAgreement) (bool, error)
}
