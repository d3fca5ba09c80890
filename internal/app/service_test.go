package app

import (
	"context"
	"errors"
	"testing"

	"github.com/gdc-properties/payments-service/internal/domain"
	"github.com/gdc-properties/payments-service/internal/store"
	"github.com/gdc-properties/payments-service/pkg/processorclient"
	"github.com/gdc-properties/payments-service/pkg/verificationclient"
	"github.com/google/uuid"
)

func webhookEvent(eventID, eventType, intentID string) *processorclient.WebhookEvent {
	var event processorclient.WebhookEvent
	event.ID = eventID
	event.Type = eventType
	event.Data.Object.ID = intentID
	return &event
}

type intentRepoStub struct {
	store.Repository

	application *domain.RentalApplication
	property    *domain.Property

	createRecordsErr error
	createdRecords   []*domain.PaymentRecord
	createdLedger    []*domain.DistributionRecord
	appStatus        string
	appPaymentStatus string
	appStatusCalled  bool
}

func (s *intentRepoStub) GetApplication(ctx context.Context, applicationID uuid.UUID) (*domain.RentalApplication, error) {
	if s.application == nil {
		return nil, store.ErrApplicationNotFound
	}
	return s.application, nil
}

func (s *intentRepoStub) GetProperty(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error) {
	if s.property == nil {
		return nil, store.ErrPropertyNotFound
	}
	return s.property, nil
}

func (s *intentRepoStub) CreatePaymentRecords(ctx context.Context, records []*domain.PaymentRecord) error {
	if s.createRecordsErr != nil {
		return s.createRecordsErr
	}
	s.createdRecords = records
	return nil
}

func (s *intentRepoStub) CreateDistributionRecords(ctx context.Context, records []*domain.DistributionRecord) error {
	s.createdLedger = append(s.createdLedger, records...)
	return nil
}

func (s *intentRepoStub) UpdateApplicationStatus(ctx context.Context, applicationID uuid.UUID, status, paymentStatus string) error {
	s.appStatusCalled = true
	s.appStatus = status
	s.appPaymentStatus = paymentStatus
	return nil
}

type verifierStub struct {
	status *verificationclient.VerificationStatus
	err    error
}

func (v *verifierStub) CheckVerification(ctx context.Context, reference, applicationID string) (*verificationclient.VerificationStatus, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.status, nil
}

func intentFixture() (*intentRepoStub, domain.CreateIntentInput) {
	appID := uuid.New()
	propertyID := uuid.New()
	ownerID := uuid.New()

	repo := &intentRepoStub{
		application: &domain.RentalApplication{
			ID: appID, PropertyID: propertyID, TenantID: uuid.New(),
			Status: domain.ApplicationStatusApproved, PaymentStatus: domain.AppPaymentStatusPending,
		},
		property: &domain.Property{
			ID: propertyID, OwnerID: ownerID, Status: domain.PropertyStatusAvailable,
			MonthlyRent: 100000,
		},
	}
	input := domain.CreateIntentInput{
		ApplicationID: appID,
		GrossAmount:   150000,
		LineItems: []domain.PaymentLineItem{
			{PaymentType: "rent", Amount: 100000},
			{PaymentType: "security_deposit", Amount: 50000},
		},
	}
	return repo, input
}

func TestCreatePaymentIntent_SplitsLineItemsAndPersists(t *testing.T) {
	repo, input := intentFixture()
	processor := &processorStub{}
	svc := NewService(repo, processor, nil, &producerStub{}, nil, testSettings())

	result, err := svc.CreatePaymentIntent(context.Background(), input)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.IntentID != "pi_test" || result.ClientSecret != "pi_test_secret" {
		t.Fatalf("unexpected intent result: %+v", result)
	}
	if result.Breakdown.GrossAmount != 150000 {
		t.Fatalf("expected gross 150000, got %d", result.Breakdown.GrossAmount)
	}
	if result.Breakdown.PlatformFeeAmount != 7500 {
		t.Fatalf("expected platform fee 7500, got %d", result.Breakdown.PlatformFeeAmount)
	}
	if result.Breakdown.OwnerNetAmount != 142500 {
		t.Fatalf("expected owner net 142500, got %d", result.Breakdown.OwnerNetAmount)
	}
	if got := result.Breakdown.PlatformFeeAmount + result.Breakdown.ManagementFeeAmount + result.Breakdown.OwnerNetAmount; got != result.Breakdown.GrossAmount {
		t.Fatalf("breakdown parts %d do not sum to gross %d", got, result.Breakdown.GrossAmount)
	}
	if len(repo.createdRecords) != 2 {
		t.Fatalf("expected 2 payment records, got %d", len(repo.createdRecords))
	}
	for _, rec := range repo.createdRecords {
		if rec.ProcessorIntentID != "pi_test" {
			t.Fatalf("payment record missing intent id: %+v", rec)
		}
		if rec.Status != domain.PaymentStatusPending {
			t.Fatalf("expected pending record, got %q", rec.Status)
		}
		if rec.GrossAmount != rec.PlatformFeeAmount+rec.ManagementFeeAmount+rec.OwnerNetAmount {
			t.Fatalf("record parts do not sum to gross: %+v", rec)
		}
	}
	// Two records, platform + owner row each (no management fee).
	if len(repo.createdLedger) != 4 {
		t.Fatalf("expected 4 distribution rows, got %d", len(repo.createdLedger))
	}
	var ledgerTotal int64
	for _, row := range repo.createdLedger {
		if row.Status != domain.DistributionStatusPending {
			t.Fatalf("expected pending distribution, got %q", row.Status)
		}
		ledgerTotal += row.Amount
	}
	if ledgerTotal != 150000 {
		t.Fatalf("distribution rows sum to %d, want 150000", ledgerTotal)
	}
	if repo.appStatus != domain.ApplicationStatusPaymentPending || repo.appPaymentStatus != domain.AppPaymentStatusPending {
		t.Fatalf("expected application payment_pending/pending, got %s/%s", repo.appStatus, repo.appPaymentStatus)
	}
}

func TestCreatePaymentIntent_PropertyFeeOverride(t *testing.T) {
	repo, input := intentFixture()
	override := 10.0
	repo.property.PlatformFeePercent = &override
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	result, err := svc.CreatePaymentIntent(context.Background(), input)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Breakdown.PlatformFeeAmount != 15000 {
		t.Fatalf("expected overridden platform fee 15000, got %d", result.Breakdown.PlatformFeeAmount)
	}
}

func TestCreatePaymentIntent_AmountMismatch(t *testing.T) {
	repo, input := intentFixture()
	input.GrossAmount = 149999
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	_, err := svc.CreatePaymentIntent(context.Background(), input)
	if !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
}

func TestCreatePaymentIntent_RejectsRentedProperty(t *testing.T) {
	repo, input := intentFixture()
	repo.property.Status = domain.PropertyStatusRented
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	_, err := svc.CreatePaymentIntent(context.Background(), input)
	if !errors.Is(err, ErrPropertyUnavailable) {
		t.Fatalf("expected ErrPropertyUnavailable, got %v", err)
	}
}

func TestCreatePaymentIntent_RejectsCompletedApplication(t *testing.T) {
	repo, input := intentFixture()
	repo.application.Status = domain.ApplicationStatusCompleted
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	_, err := svc.CreatePaymentIntent(context.Background(), input)
	if !errors.Is(err, ErrApplicationNotEligible) {
		t.Fatalf("expected ErrApplicationNotEligible, got %v", err)
	}
}

func TestCreatePaymentIntent_PersistFailureCancelsIntent(t *testing.T) {
	repo, input := intentFixture()
	repo.createRecordsErr = errors.New("db down")
	processor := &processorStub{}
	svc := NewService(repo, processor, nil, &producerStub{}, nil, testSettings())

	_, err := svc.CreatePaymentIntent(context.Background(), input)
	if err == nil {
		t.Fatal("expected an error when persistence fails")
	}
	if !processor.cancelCalled {
		t.Fatal("expected the intent to be cancelled after persistence failure")
	}
	if processor.cancelledID != "pi_test" {
		t.Fatalf("expected cancel of pi_test, got %q", processor.cancelledID)
	}
}

func TestCreatePaymentIntent_VerificationRejected(t *testing.T) {
	repo, input := intentFixture()
	input.VerificationRef = "ref_expired"
	settings := testSettings()
	settings.RequireVerification = true
	verifier := &verifierStub{status: &verificationclient.VerificationStatus{Verified: true, Expired: true}}
	svc := NewService(repo, &processorStub{}, verifier, &producerStub{}, nil, settings)

	_, err := svc.CreatePaymentIntent(context.Background(), input)
	if !errors.Is(err, ErrVerificationRequired) {
		t.Fatalf("expected ErrVerificationRequired, got %v", err)
	}
}

func TestCreatePaymentIntent_VerificationForOtherApplication(t *testing.T) {
	repo, input := intentFixture()
	input.VerificationRef = "ref_other"
	settings := testSettings()
	settings.RequireVerification = true
	verifier := &verifierStub{status: &verificationclient.VerificationStatus{
		Verified: true, ApplicationID: uuid.NewString(),
	}}
	svc := NewService(repo, &processorStub{}, verifier, &producerStub{}, nil, settings)

	_, err := svc.CreatePaymentIntent(context.Background(), input)
	if !errors.Is(err, ErrVerificationRequired) {
		t.Fatalf("expected ErrVerificationRequired, got %v", err)
	}
}

func TestUpdatePropertyStatus_RejectsUnknownStatus(t *testing.T) {
	repo, _ := intentFixture()
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	err := svc.UpdatePropertyStatus(context.Background(), uuid.New(), "demolished")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

type dedupeStub struct {
	seen map[string]bool
}

func (d *dedupeStub) FirstDelivery(ctx context.Context, eventID string) bool {
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[eventID] {
		return false
	}
	d.seen[eventID] = true
	return true
}

func TestProcessWebhookEvent_DuplicateEventIDSkipped(t *testing.T) {
	repo, _, _, _ := settlementFixture()
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, &dedupeStub{}, testSettings())

	event := webhookEvent("evt_1", "payment_intent.succeeded", "pi_settle")
	if result, err := svc.ProcessWebhookEvent(context.Background(), event); err != nil || result != WebhookResultAccepted {
		t.Fatalf("expected first delivery accepted, got %s err=%v", result, err)
	}
	if result, err := svc.ProcessWebhookEvent(context.Background(), event); err != nil || result != WebhookResultDuplicate {
		t.Fatalf("expected duplicate skipped, got %s err=%v", result, err)
	}
}

func TestProcessWebhookEvent_UnknownIntentIgnored(t *testing.T) {
	repo := &settlementRepoStub{}
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	event := webhookEvent("evt_2", "payment_intent.succeeded", "pi_unknown")
	result, err := svc.ProcessWebhookEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result != WebhookResultIgnored {
		t.Fatalf("expected ignored, got %s", result)
	}
}

func TestProcessWebhookEvent_UnhandledTypeIgnored(t *testing.T) {
	repo, _, _, _ := settlementFixture()
	svc := NewService(repo, &processorStub{}, nil, &producerStub{}, nil, testSettings())

	event := webhookEvent("evt_3", "charge.refunded", "pi_settle")
	result, err := svc.ProcessWebhookEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result != WebhookResultIgnored {
		t.Fatalf("expected ignored, got %s", result)
	}
}
