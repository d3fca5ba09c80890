/**
 * @description
 * This file contains the core business logic for the payments-service. The
 * Service struct orchestrates payment intent creation: it validates the
 * application and property, computes the per-line-item fee splits, creates the
 * processor intent, and persists the payment and distribution ledger rows.
 *
 * Settlement of succeeded/failed intents lives in reconciler.go; the
 * onboarding event consumer lives in onboarding_consumer.go.
 *
 * @dependencies
 * - internal/store: For database operations via the Repository interface.
 * - internal/fees: For the deterministic fee-split arithmetic.
 * - pkg/processorclient: For communication with the payment processor.
 * - pkg/verificationclient: For resolving verification references.
 * - pkg/rabbitmq: For publishing settlement events.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gdc-properties/payments-service/internal/domain"
	"github.com/gdc-properties/payments-service/internal/fees"
	"github.com/gdc-properties/payments-service/internal/store"
	"github.com/gdc-properties/payments-service/pkg/processorclient"
	"github.com/gdc-properties/payments-service/pkg/rabbitmq"
	"github.com/gdc-properties/payments-service/pkg/verificationclient"
	"github.com/google/uuid"
)

var (
	// ErrInvalidInput is returned for malformed create-intent requests.
	ErrInvalidInput = errors.New("invalid payment request")
	// ErrAmountMismatch is returned when the line items do not sum to the gross amount.
	ErrAmountMismatch = errors.New("line items do not sum to gross amount")
	// ErrApplicationNotEligible is returned when the application is not in a payable state.
	ErrApplicationNotEligible = errors.New("application is not eligible for payment")
	// ErrPropertyUnavailable is returned when the property is already rented.
	ErrPropertyUnavailable = errors.New("property is no longer available")
	// ErrVerificationRequired is returned when the verification reference is missing, unknown, expired, or for another application.
	ErrVerificationRequired = errors.New("verification check failed")
)

// ProcessorClient is the subset of the payment processor API the service uses.
type ProcessorClient interface {
	CreateIntent(ctx context.Context, amountMinorUnits int64, currency string, metadata domain.SettlementMetadata) (*processorclient.IntentResponse, error)
	CancelIntent(ctx context.Context, intentID string) error
	RetrieveConnectedAccount(ctx context.Context, accountID string) (*processorclient.ConnectedAccount, error)
	CreateTransfer(ctx context.Context, amountMinorUnits int64, currency, destinationAccountID, transferGroup string, metadata domain.SettlementMetadata) (*processorclient.TransferResponse, error)
}

// VerificationClient resolves verification references for create-intent requests.
type VerificationClient interface {
	CheckVerification(ctx context.Context, reference, applicationID string) (*verificationclient.VerificationStatus, error)
}

// Settings carries the payment policy knobs the orchestrator and reconciler need.
type Settings struct {
	PlatformFeePercent   float64
	ManagementFeePercent float64
	Currency             string
	LeaseTermDays        int
	RequireVerification  bool
}

// Service provides methods for payment business logic.
type Service struct {
	repo      store.Repository
	processor ProcessorClient
	verifier  VerificationClient
	producer  rabbitmq.Publisher
	dedupe    EventDeduper
	settings  Settings
}

// NewService creates a new instance of the payments service.
func NewService(repo store.Repository, processor ProcessorClient, verifier VerificationClient, producer rabbitmq.Publisher, dedupe EventDeduper, settings Settings) *Service {
	if producer == nil {
		producer = &rabbitmq.EventProducerFallback{}
	}
	if dedupe == nil {
		dedupe = &NoopEventDeduper{}
	}
	if settings.Currency == "" {
		settings.Currency = "usd"
	}
	if settings.LeaseTermDays <= 0 {
		settings.LeaseTermDays = 365
	}
	return &Service{
		repo:      repo,
		processor: processor,
		verifier:  verifier,
		producer:  producer,
		dedupe:    dedupe,
		settings:  settings,
	}
}

// CreatePaymentIntent validates an application's payment request, creates a
// processor payment intent for the gross amount, and persists one payment
// record per line item together with its distribution ledger rows.
//
// If persistence fails after the processor intent was created, the intent is
// cancelled as a compensating action so no orphaned intent can later settle.
func (s *Service) CreatePaymentIntent(ctx context.Context, input domain.CreateIntentInput) (*domain.IntentResult, error) {
	if err := validateIntentInput(input); err != nil {
		return nil, err
	}

	app, err := s.repo.GetApplication(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.ApplicationStatusApproved && app.Status != domain.ApplicationStatusPaymentPending {
		return nil, fmt.Errorf("%w: status is %s", ErrApplicationNotEligible, app.Status)
	}
	if app.PaymentStatus == domain.AppPaymentStatusCompleted {
		return nil, fmt.Errorf("%w: payment already completed", ErrApplicationNotEligible)
	}

	property, err := s.repo.GetProperty(ctx, app.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.Status == domain.PropertyStatusRented {
		return nil, ErrPropertyUnavailable
	}

	if err := s.checkVerification(ctx, input); err != nil {
		return nil, err
	}

	platformPct, managementPct := s.feePercentsFor(property)

	// Per-line-item splits are authoritative: the aggregate breakdown is the
	// sum of the parts, never a second rounding pass over the gross.
	var breakdown domain.FeeBreakdown
	records := make([]*domain.PaymentRecord, 0, len(input.LineItems))
	splits := make([]fees.Breakdown, 0, len(input.LineItems))
	for _, item := range input.LineItems {
		split, splitErr := fees.ComputeSplit(item.Amount, platformPct, managementPct)
		if splitErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, splitErr)
		}
		splits = append(splits, split)
		breakdown.GrossAmount += split.GrossAmount
		breakdown.PlatformFeeAmount += split.PlatformFeeAmount
		breakdown.ManagementFeeAmount += split.ManagementFeeAmount
		breakdown.OwnerNetAmount += split.OwnerNetAmount
		records = append(records, &domain.PaymentRecord{
			ID:                  uuid.New(),
			ApplicationID:       app.ID,
			PaymentType:         item.PaymentType,
			GrossAmount:         split.GrossAmount,
			PlatformFeeAmount:   split.PlatformFeeAmount,
			ManagementFeeAmount: split.ManagementFeeAmount,
			OwnerNetAmount:      split.OwnerNetAmount,
			Status:              domain.PaymentStatusPending,
		})
	}

	metadata := domain.SettlementMetadata{
		ApplicationID: app.ID,
		PropertyID:    property.ID,
		OwnerID:       property.OwnerID,
	}
	intent, err := s.processor.CreateIntent(ctx, breakdown.GrossAmount, s.settings.Currency, metadata)
	if err != nil {
		log.Printf("level=error component=payment_service op=create_intent application_id=%s msg=\"processor intent creation failed\" err=%v", app.ID, err)
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	for _, rec := range records {
		rec.ProcessorIntentID = intent.ID
	}
	if err := s.repo.CreatePaymentRecords(ctx, records); err != nil {
		log.Printf("level=error component=payment_service op=create_intent application_id=%s intent_id=%s msg=\"payment record persistence failed; cancelling intent\" err=%v", app.ID, intent.ID, err)
		if cancelErr := s.processor.CancelIntent(ctx, intent.ID); cancelErr != nil {
			log.Printf("level=error component=payment_service op=create_intent intent_id=%s msg=\"compensating cancel failed; intent may be orphaned\" err=%v", intent.ID, cancelErr)
		}
		return nil, fmt.Errorf("failed to persist payment records: %w", err)
	}

	result := &domain.IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Breakdown:    breakdown,
	}

	// Ledger rows and the application status flip are best effort: the intent
	// and payment records already exist, so a failure here must not fail the
	// request. The reconciler tolerates a missing ledger.
	if err := s.createDistributionLedger(ctx, property, records, splits); err != nil {
		log.Printf("level=warn component=payment_service op=create_intent intent_id=%s msg=\"distribution ledger creation failed\" err=%v", intent.ID, err)
		result.Warnings = append(result.Warnings, "distribution ledger creation failed")
	}
	if err := s.repo.UpdateApplicationStatus(ctx, app.ID, domain.ApplicationStatusPaymentPending, domain.AppPaymentStatusPending); err != nil {
		log.Printf("level=warn component=payment_service op=create_intent application_id=%s msg=\"application status update failed\" err=%v", app.ID, err)
		result.Warnings = append(result.Warnings, "application status update failed")
	}

	log.Printf("level=info component=payment_service op=create_intent application_id=%s intent_id=%s gross=%d platform_fee=%d management_fee=%d owner_net=%d",
		app.ID, intent.ID, breakdown.GrossAmount, breakdown.PlatformFeeAmount, breakdown.ManagementFeeAmount, breakdown.OwnerNetAmount)
	return result, nil
}

// GetDistributions returns the distribution ledger for an application.
func (s *Service) GetDistributions(ctx context.Context, applicationID uuid.UUID) ([]domain.DistributionRecord, error) {
	return s.repo.FindDistributionsByApplicationID(ctx, applicationID)
}

// UpdatePropertyStatus is an administrative escape hatch, e.g. returning a
// property to available after a lease ends.
func (s *Service) UpdatePropertyStatus(ctx context.Context, propertyID uuid.UUID, status string) error {
	switch status {
	case domain.PropertyStatusAvailable, domain.PropertyStatusPending,
		domain.PropertyStatusRented, domain.PropertyStatusMaintenance:
	default:
		return fmt.Errorf("%w: unknown property status %q", ErrInvalidInput, status)
	}
	return s.repo.UpdatePropertyStatus(ctx, propertyID, status)
}

func validateIntentInput(input domain.CreateIntentInput) error {
	if input.ApplicationID == uuid.Nil {
		return fmt.Errorf("%w: application_id is required", ErrInvalidInput)
	}
	if input.GrossAmount <= 0 {
		return fmt.Errorf("%w: gross_amount must be positive", ErrInvalidInput)
	}
	if len(input.LineItems) == 0 {
		return fmt.Errorf("%w: at least one line item is required", ErrInvalidInput)
	}
	var sum int64
	for _, item := range input.LineItems {
		if item.PaymentType == "" {
			return fmt.Errorf("%w: line item payment_type is required", ErrInvalidInput)
		}
		if item.Amount <= 0 {
			return fmt.Errorf("%w: line item amounts must be positive", ErrInvalidInput)
		}
		sum += item.Amount
	}
	if sum != input.GrossAmount {
		return ErrAmountMismatch
	}
	return nil
}

func (s *Service) checkVerification(ctx context.Context, input domain.CreateIntentInput) error {
	if !s.settings.RequireVerification {
		return nil
	}
	if s.verifier == nil {
		log.Printf("level=warn component=payment_service msg=\"verification required but no verification client configured\"")
		return nil
	}
	if input.VerificationRef == "" {
		return fmt.Errorf("%w: verification_ref is required", ErrVerificationRequired)
	}
	status, err := s.verifier.CheckVerification(ctx, input.VerificationRef, input.ApplicationID.String())
	if err != nil {
		return fmt.Errorf("failed to resolve verification reference: %w", err)
	}
	if !status.Verified || status.Expired {
		return ErrVerificationRequired
	}
	if status.ApplicationID != "" && status.ApplicationID != input.ApplicationID.String() {
		return fmt.Errorf("%w: reference belongs to another application", ErrVerificationRequired)
	}
	return nil
}

// feePercentsFor resolves the fee percentages for a property, falling back to
// the configured platform-wide defaults.
func (s *Service) feePercentsFor(property *domain.Property) (float64, float64) {
	platformPct := s.settings.PlatformFeePercent
	if property.PlatformFeePercent != nil {
		platformPct = *property.PlatformFeePercent
	}
	managementPct := s.settings.ManagementFeePercent
	if property.ManagementFeePercent != nil {
		managementPct = *property.ManagementFeePercent
	}
	return platformPct, managementPct
}

// createDistributionLedger writes the pending ledger rows for each payment
// record: an owner row always, plus platform and management rows for
// whichever fees are non-zero.
func (s *Service) createDistributionLedger(ctx context.Context, property *domain.Property, records []*domain.PaymentRecord, splits []fees.Breakdown) error {
	var ledger []*domain.DistributionRecord
	for i, rec := range records {
		split := splits[i]
		if split.PlatformFeeAmount > 0 {
			ledger = append(ledger, &domain.DistributionRecord{
				ID:              uuid.New(),
				PaymentRecordID: rec.ID,
				RecipientType:   domain.RecipientPlatform,
				RecipientID:     uuid.Nil,
				Amount:          split.PlatformFeeAmount,
				Percentage:      split.PlatformFeePercent,
				Status:          domain.DistributionStatusPending,
			})
		}
		if split.ManagementFeeAmount > 0 {
			// A missing management company leaves the recipient nil; the
			// reconciler routes the row to manual processing either way.
			managementID := uuid.Nil
			if property.ManagementCompanyID != nil {
				managementID = *property.ManagementCompanyID
			}
			ledger = append(ledger, &domain.DistributionRecord{
				ID:              uuid.New(),
				PaymentRecordID: rec.ID,
				RecipientType:   domain.RecipientManagement,
				RecipientID:     managementID,
				Amount:          split.ManagementFeeAmount,
				Percentage:      split.ManagementFeePercent,
				Status:          domain.DistributionStatusPending,
			})
		}
		ledger = append(ledger, &domain.DistributionRecord{
			ID:              uuid.New(),
			PaymentRecordID: rec.ID,
			RecipientType:   domain.RecipientOwner,
			RecipientID:     property.OwnerID,
			Amount:          split.OwnerNetAmount,
			Percentage:      100 - split.PlatformFeePercent - split.ManagementFeePercent,
			Status:          domain.DistributionStatusPending,
		})
	}
	return s.repo.CreateDistributionRecords(ctx, ledger)
}

// now is stubbed in tests that assert on lease dates.
var now = time.Now
