/**
 * @description
 * Settlement reconciliation for succeeded and failed payment intents. The
 * success path runs a sequence of fault-isolated steps: each step failure is
 * recorded as a warning on the outcome instead of aborting the remaining
 * steps, because the tenant's money has already moved and every local record
 * we can still fix should be fixed.
 *
 * Idempotency rests on the store's status-gated conditional updates plus an
 * optional Redis event-id dedupe in front of the webhook handler. A duplicate
 * delivery flips zero payment records and short-circuits with AlreadySettled.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gdc-properties/payments-service/internal/domain"
	"github.com/gdc-properties/payments-service/internal/metrics"
	"github.com/gdc-properties/payments-service/internal/store"
	"github.com/google/uuid"
)

// Transfer failure codes recorded on the distribution ledger.
const (
	transferErrTimeout = "transfer_timeout"
)

// Manual-processing reasons recorded on the distribution ledger.
const (
	manualReasonOwnerNotOnboarded   = "owner_not_onboarded"
	manualReasonPayoutsDisabled     = "payouts_disabled_at_processor"
	manualReasonManagementRecipient = "management_payouts_not_automated"
)

// HandlePaymentSucceeded settles a succeeded payment intent. It completes the
// payment records, promotes the application and property, writes the rental
// agreement, and attempts the owner payout. The returned outcome carries the
// banking status and any non-fatal step failures as warnings.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, intentID, transactionID string, paidAt time.Time) (*domain.SettlementOutcome, error) {
	records, err := s.repo.FindPaymentRecordsByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}

	outcome := &domain.SettlementOutcome{
		ApplicationID: records[0].ApplicationID,
	}

	// Step 1: flip pending payment records to completed. Zero rows means a
	// duplicate delivery; everything downstream already ran or is running.
	completed, err := s.repo.CompletePaymentsByIntentID(ctx, intentID, transactionID, paidAt)
	if err != nil {
		return nil, fmt.Errorf("failed to complete payment records: %w", err)
	}
	if completed == 0 {
		log.Printf("level=info component=reconciler intent_id=%s msg=\"duplicate settlement delivery; no pending records\"", intentID)
		outcome.AlreadySettled = true
		metrics.SettlementsTotal.WithLabelValues("duplicate").Inc()
		return outcome, nil
	}
	outcome.PaymentsCompleted = int(completed)

	app, err := s.repo.GetApplication(ctx, records[0].ApplicationID)
	if err != nil {
		// Without the application we cannot run the remaining steps, but the
		// payment records are already completed, so report partial success.
		outcome.AddWarning(fmt.Sprintf("failed to load application: %v", err))
		metrics.SettlementsTotal.WithLabelValues("partial").Inc()
		return outcome, nil
	}
	outcome.PropertyID = app.PropertyID

	var property *domain.Property
	if property, err = s.repo.GetProperty(ctx, app.PropertyID); err != nil {
		outcome.AddWarning(fmt.Sprintf("failed to load property: %v", err))
	}

	// Step 2: application goes to completed / payment completed.
	if err := s.repo.UpdateApplicationStatus(ctx, app.ID, domain.ApplicationStatusCompleted, domain.AppPaymentStatusCompleted); err != nil {
		outcome.AddWarning(fmt.Sprintf("failed to update application status: %v", err))
	}

	// Step 3: property goes off the market.
	if _, err := s.repo.MarkPropertyRented(ctx, app.PropertyID); err != nil {
		outcome.AddWarning(fmt.Sprintf("failed to mark property rented: %v", err))
	}

	// Step 4: reject every other open application for the property.
	if rejected, err := s.repo.RejectSiblingApplications(ctx, app.PropertyID, app.ID); err != nil {
		outcome.AddWarning(fmt.Sprintf("failed to reject sibling applications: %v", err))
	} else if rejected > 0 {
		log.Printf("level=info component=reconciler intent_id=%s property_id=%s msg=\"rejected sibling applications\" count=%d", intentID, app.PropertyID, rejected)
	}

	// Step 5: write the rental agreement (single-shot per application).
	if property != nil {
		if err := s.createAgreement(ctx, app, property, paidAt); err != nil {
			outcome.AddWarning(fmt.Sprintf("failed to create rental agreement: %v", err))
		}
	} else {
		outcome.AddWarning("skipped rental agreement: property unavailable")
	}

	// Step 6: settle the ledger. Platform funds are already in our account;
	// management payouts are handled manually; the owner gets a transfer.
	s.settlePlatformRows(ctx, intentID, outcome)
	s.settleManagementRows(ctx, intentID, outcome)
	s.settleOwnerPayout(ctx, intentID, records, property, outcome)

	// Step 7: notify downstream services.
	event := domain.PaymentSettledEvent{
		ApplicationID: app.ID,
		PropertyID:    app.PropertyID,
		IntentID:      intentID,
		GrossAmount:   sumGross(records),
		BankingStatus: outcome.BankingStatus,
		Timestamp:     now(),
	}
	if err := s.producer.PublishPaymentSettledEvent(ctx, event); err != nil {
		outcome.AddWarning(fmt.Sprintf("failed to publish settlement event: %v", err))
	}

	if len(outcome.Warnings) == 0 {
		metrics.SettlementsTotal.WithLabelValues("success").Inc()
	} else {
		metrics.SettlementsTotal.WithLabelValues("partial").Inc()
	}
	log.Printf("level=info component=reconciler intent_id=%s application_id=%s banking_status=%s warnings=%d msg=\"settlement processed\"",
		intentID, app.ID, outcome.BankingStatus, len(outcome.Warnings))
	return outcome, nil
}

// HandlePaymentFailed marks the payment records for a failed intent and
// returns the application to an approved, payable state so the tenant can try
// again.
func (s *Service) HandlePaymentFailed(ctx context.Context, intentID, failureReason string) error {
	records, err := s.repo.FindPaymentRecordsByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			log.Printf("level=warn component=reconciler intent_id=%s msg=\"failure delivery for unknown intent\"", intentID)
			return err
		}
		return err
	}

	failed, err := s.repo.FailPaymentsByIntentID(ctx, intentID)
	if err != nil {
		return fmt.Errorf("failed to mark payment records failed: %w", err)
	}
	if failed == 0 {
		log.Printf("level=info component=reconciler intent_id=%s msg=\"duplicate failure delivery; no pending records\"", intentID)
		return nil
	}

	// The application returns to approved so the tenant can start a fresh
	// intent; payment goes back to not_required until they do.
	appID := records[0].ApplicationID
	if err := s.repo.UpdateApplicationStatus(ctx, appID, domain.ApplicationStatusApproved, domain.AppPaymentStatusNotRequired); err != nil {
		log.Printf("level=warn component=reconciler intent_id=%s application_id=%s msg=\"failed to reset application after payment failure\" err=%v", intentID, appID, err)
	}

	metrics.SettlementsTotal.WithLabelValues("failed").Inc()
	log.Printf("level=info component=reconciler intent_id=%s application_id=%s reason=%q msg=\"payment failure recorded\"", intentID, appID, failureReason)
	return nil
}

func (s *Service) createAgreement(ctx context.Context, app *domain.RentalApplication, property *domain.Property, paidAt time.Time) error {
	// A property without an explicit deposit uses one month's rent.
	deposit := property.MonthlyRent
	if property.SecurityDeposit != nil {
		deposit = *property.SecurityDeposit
	}
	start := paidAt
	agreement := &domain.RentalAgreement{
		ID:              uuid.New(),
		ApplicationID:   app.ID,
		PropertyID:      property.ID,
		TenantID:        app.TenantID,
		OwnerID:         property.OwnerID,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, s.settings.LeaseTermDays),
		MonthlyRent:     property.MonthlyRent,
		SecurityDeposit: deposit,
	}
	created, err := s.repo.CreateRentalAgreement(ctx, agreement)
	if err != nil {
		return err
	}
	if !created {
		log.Printf("level=info component=reconciler application_id=%s msg=\"rental agreement already exists\"", app.ID)
	}
	return nil
}

// settlePlatformRows marks the platform's ledger rows transferred immediately:
// the platform fee never leaves our processor balance, so there is no
// transfer to make.
func (s *Service) settlePlatformRows(ctx context.Context, intentID string, outcome *domain.SettlementOutcome) {
	rows, err := s.repo.FindDistributionsByIntentID(ctx, intentID, domain.RecipientPlatform)
	if err != nil {
		outcome.AddWarning(fmt.Sprintf("failed to load platform distributions: %v", err))
		return
	}
	for _, row := range rows {
		if row.Status != domain.DistributionStatusPending {
			continue
		}
		claimed, err := s.repo.ClaimDistributionForTransfer(ctx, row.ID)
		if err != nil || !claimed {
			continue
		}
		if err := s.repo.MarkDistributionTransferred(ctx, row.ID, "retained", row.Amount, s.settings.Currency, now()); err != nil {
			outcome.AddWarning(fmt.Sprintf("failed to settle platform distribution %s: %v", row.ID, err))
		}
	}
}

// settleManagementRows routes management fee rows to manual processing.
// Automated management payouts are not supported.
func (s *Service) settleManagementRows(ctx context.Context, intentID string, outcome *domain.SettlementOutcome) {
	rows, err := s.repo.FindDistributionsByIntentID(ctx, intentID, domain.RecipientManagement)
	if err != nil {
		outcome.AddWarning(fmt.Sprintf("failed to load management distributions: %v", err))
		return
	}
	for _, row := range rows {
		if row.Status != domain.DistributionStatusPending {
			continue
		}
		if err := s.repo.MarkDistributionManual(ctx, row.ID, manualReasonManagementRecipient); err != nil {
			outcome.AddWarning(fmt.Sprintf("failed to flag management distribution %s: %v", row.ID, err))
		}
	}
}

// settleOwnerPayout attempts the automated transfer of the owner's net
// amount. The owner must be eligible both locally and at the processor at
// transfer time; cached eligibility is never trusted on its own.
func (s *Service) settleOwnerPayout(ctx context.Context, intentID string, records []domain.PaymentRecord, property *domain.Property, outcome *domain.SettlementOutcome) {
	rows, err := s.repo.FindDistributionsByIntentID(ctx, intentID, domain.RecipientOwner)
	if err != nil {
		outcome.AddWarning(fmt.Sprintf("failed to load owner distributions: %v", err))
		outcome.BankingStatus = domain.DistributionStatusManualRequired
		return
	}
	if len(rows) == 0 {
		// Ledger creation was best effort at intent time; a missing ledger
		// means ops settles by hand from the payment records.
		outcome.AddWarning("no owner distribution rows for intent")
		outcome.BankingStatus = domain.DistributionStatusManualRequired
		return
	}

	if property == nil {
		s.markOwnerRowsManual(ctx, rows, manualReasonOwnerNotOnboarded, outcome)
		return
	}

	profile, err := s.repo.GetOwnerProfile(ctx, property.OwnerID)
	if err != nil || !profile.CanReceiveTransfers() {
		if err != nil && !errors.Is(err, store.ErrOwnerNotFound) {
			outcome.AddWarning(fmt.Sprintf("failed to load owner profile: %v", err))
		}
		s.markOwnerRowsManual(ctx, rows, manualReasonOwnerNotOnboarded, outcome)
		return
	}

	account, err := s.processor.RetrieveConnectedAccount(ctx, *profile.ProcessorAccountID)
	if err != nil {
		outcome.AddWarning(fmt.Sprintf("failed to check connected account: %v", err))
		s.markOwnerRowsManual(ctx, rows, manualReasonPayoutsDisabled, outcome)
		return
	}
	if !account.PayoutsEnabled {
		s.markOwnerRowsManual(ctx, rows, manualReasonPayoutsDisabled, outcome)
		return
	}

	// Claim every pending row before moving money so a concurrent delivery
	// cannot double-pay. Zero claimed rows means another worker owns them.
	var claimedRows []domain.DistributionRecord
	var total int64
	for _, row := range rows {
		claimed, claimErr := s.repo.ClaimDistributionForTransfer(ctx, row.ID)
		if claimErr != nil {
			outcome.AddWarning(fmt.Sprintf("failed to claim distribution %s: %v", row.ID, claimErr))
			continue
		}
		if claimed {
			claimedRows = append(claimedRows, row)
			total += row.Amount
		}
	}
	if len(claimedRows) == 0 {
		outcome.BankingStatus = rows[0].Status
		return
	}

	metadata := domain.SettlementMetadata{
		ApplicationID:   records[0].ApplicationID,
		PropertyID:      property.ID,
		OwnerID:         property.OwnerID,
		PaymentIntentID: intentID,
	}
	transfer, err := s.processor.CreateTransfer(ctx, total, s.settings.Currency, *profile.ProcessorAccountID, metadata.ApplicationID.String(), metadata)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = transferErrTimeout
		}
		for _, row := range claimedRows {
			if markErr := s.repo.MarkDistributionTransferFailed(ctx, row.ID, reason); markErr != nil {
				outcome.AddWarning(fmt.Sprintf("failed to record transfer failure on %s: %v", row.ID, markErr))
			}
		}
		outcome.BankingStatus = domain.DistributionStatusTransferFailed
		outcome.TransferError = &reason
		metrics.PayoutsTotal.WithLabelValues("failed").Inc()
		log.Printf("level=error component=reconciler intent_id=%s owner_id=%s amount=%d msg=\"owner transfer failed\" err=%v", intentID, property.OwnerID, total, err)
		s.publishPayoutFailed(ctx, metadata, total, reason)
		return
	}

	for _, row := range claimedRows {
		if err := s.repo.MarkDistributionTransferred(ctx, row.ID, transfer.ID, row.Amount, transfer.Currency, now()); err != nil {
			outcome.AddWarning(fmt.Sprintf("failed to finalize distribution %s: %v", row.ID, err))
		}
	}
	outcome.BankingStatus = domain.DistributionStatusTransferred
	outcome.TransferResult = &domain.TransferResult{
		TransferID: transfer.ID,
		Amount:     transfer.Amount,
		Currency:   transfer.Currency,
	}
	metrics.PayoutsTotal.WithLabelValues("transferred").Inc()
	log.Printf("level=info component=reconciler intent_id=%s owner_id=%s transfer_id=%s amount=%d msg=\"owner payout transferred\"", intentID, property.OwnerID, transfer.ID, total)
}

func (s *Service) markOwnerRowsManual(ctx context.Context, rows []domain.DistributionRecord, reason string, outcome *domain.SettlementOutcome) {
	for _, row := range rows {
		if row.Status != domain.DistributionStatusPending && row.Status != domain.DistributionStatusProcessing {
			continue
		}
		if err := s.repo.MarkDistributionManual(ctx, row.ID, reason); err != nil {
			outcome.AddWarning(fmt.Sprintf("failed to flag distribution %s for manual processing: %v", row.ID, err))
		}
	}
	outcome.BankingStatus = domain.DistributionStatusManualRequired
	metrics.PayoutsTotal.WithLabelValues("manual").Inc()
	if s.producer != nil {
		payload := map[string]interface{}{
			"owner_id":  rows[0].RecipientID,
			"amount":    sumDistributions(rows),
			"reason":    reason,
			"timestamp": now(),
		}
		if err := s.producer.Publish(ctx, eventsExchange, "payout.manual", payload); err != nil {
			log.Printf("level=warn component=reconciler msg=\"failed to publish manual payout event\" err=%v", err)
		}
	}
}

func (s *Service) publishPayoutFailed(ctx context.Context, metadata domain.SettlementMetadata, amount int64, reason string) {
	payload := map[string]interface{}{
		"application_id": metadata.ApplicationID,
		"property_id":    metadata.PropertyID,
		"owner_id":       metadata.OwnerID,
		"intent_id":      metadata.PaymentIntentID,
		"amount":         amount,
		"reason":         reason,
		"timestamp":      now(),
	}
	if err := s.producer.Publish(ctx, eventsExchange, "payout.failed", payload); err != nil {
		log.Printf("level=warn component=reconciler msg=\"failed to publish payout failure event\" err=%v", err)
	}
}

func sumDistributions(rows []domain.DistributionRecord) int64 {
	var total int64
	for _, row := range rows {
		total += row.Amount
	}
	return total
}

func sumGross(records []domain.PaymentRecord) int64 {
	var total int64
	for _, rec := range records {
		total += rec.GrossAmount
	}
	return total
}

// eventsExchange is the topic exchange settlement events are published to.
const eventsExchange = "gdc.events"
