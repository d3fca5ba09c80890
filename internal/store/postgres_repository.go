/**
 * @description
 * PostgreSQL implementation of the `Repository` interface. All settlement
 * idempotency rests on the conditional UPDATEs in this file: status-gated
 * writes with RowsAffected checks instead of locks, so duplicate deliveries
 * of the same settlement event collapse into no-ops.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/gdc-properties/payments-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrApplicationNotFound  = errors.New("rental application not found")
	ErrPropertyNotFound     = errors.New("property not found")
	ErrOwnerNotFound        = errors.New("owner profile not found")
	ErrPaymentNotFound      = errors.New("payment record not found")
	ErrDistributionNotFound = errors.New("distribution record not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetApplication retrieves a rental application by its ID.
func (r *PostgresRepository) GetApplication(ctx context.Context, applicationID uuid.UUID) (*domain.RentalApplication, error) {
	var app domain.RentalApplication
	query := `
		SELECT id, property_id, tenant_id, status, payment_status, created_at, updated_at
		FROM rental_applications
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, applicationID).Scan(
		&app.ID, &app.PropertyID, &app.TenantID, &app.Status, &app.PaymentStatus,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &app, nil
}

// UpdateApplicationStatus sets both status fields on an application.
func (r *PostgresRepository) UpdateApplicationStatus(ctx context.Context, applicationID uuid.UUID, status, paymentStatus string) error {
	query := `
		UPDATE rental_applications
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, applicationID, status, paymentStatus)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// RejectSiblingApplications rejects every other pending/approved application
// for the same property and returns how many rows changed.
func (r *PostgresRepository) RejectSiblingApplications(ctx context.Context, propertyID, exceptApplicationID uuid.UUID) (int64, error) {
	query := `
		UPDATE rental_applications
		SET status = $3, updated_at = NOW()
		WHERE property_id = $1
		  AND id <> $2
		  AND status IN ($4, $5)
	`
	result, err := r.db.Exec(ctx, query, propertyID, exceptApplicationID,
		domain.ApplicationStatusRejected, domain.ApplicationStatusPending, domain.ApplicationStatusApproved)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// GetProperty retrieves a property by its ID.
func (r *PostgresRepository) GetProperty(ctx context.Context, propertyID uuid.UUID) (*domain.Property, error) {
	var p domain.Property
	query := `
		SELECT id, owner_id, status, monthly_rent, security_deposit,
		       platform_fee_percent, management_fee_percent, management_company_id,
		       created_at, updated_at
		FROM properties
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, propertyID).Scan(
		&p.ID, &p.OwnerID, &p.Status, &p.MonthlyRent, &p.SecurityDeposit,
		&p.PlatformFeePercent, &p.ManagementFeePercent, &p.ManagementCompanyID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MarkPropertyRented transitions a property to rented. The status guard makes
// the transition single-shot: a second settlement delivery affects zero rows
// and returns false without error.
func (r *PostgresRepository) MarkPropertyRented(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	query := `
		UPDATE properties
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status <> $2
	`
	result, err := r.db.Exec(ctx, query, propertyID, domain.PropertyStatusRented)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// UpdatePropertyStatus sets an arbitrary property status (administrative use).
func (r *PostgresRepository) UpdatePropertyStatus(ctx context.Context, propertyID uuid.UUID, status string) error {
	result, err := r.db.Exec(ctx, `UPDATE properties SET status = $2, updated_at = NOW() WHERE id = $1`, propertyID, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

// GetOwnerProfile retrieves the payout profile for a property owner.
func (r *PostgresRepository) GetOwnerProfile(ctx context.Context, ownerID uuid.UUID) (*domain.OwnerProfile, error) {
	var o domain.OwnerProfile
	query := `
		SELECT id, processor_account_id, onboarding_complete, payouts_enabled, updated_at
		FROM owner_profiles
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, ownerID).Scan(
		&o.ID, &o.ProcessorAccountID, &o.OnboardingComplete, &o.PayoutsEnabled, &o.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}
	return &o, nil
}

// ApplyOwnerOnboarding upserts payout eligibility flags from an onboarding event.
func (r *PostgresRepository) ApplyOwnerOnboarding(ctx context.Context, event domain.OwnerOnboardingEvent) error {
	query := `
		INSERT INTO owner_profiles (id, processor_account_id, onboarding_complete, payouts_enabled, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE
		SET processor_account_id = COALESCE(NULLIF(EXCLUDED.processor_account_id, ''), owner_profiles.processor_account_id),
		    onboarding_complete = EXCLUDED.onboarding_complete,
		    payouts_enabled = EXCLUDED.payouts_enabled,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, event.OwnerID, event.ProcessorAccountID, event.OnboardingComplete, event.PayoutsEnabled)
	return err
}

// CreatePaymentRecords inserts one pending payment record per line item.
func (r *PostgresRepository) CreatePaymentRecords(ctx context.Context, records []*domain.PaymentRecord) error {
	query := `
		INSERT INTO payment_records (
			id, application_id, payment_type, gross_amount,
			platform_fee_amount, management_fee_amount, owner_net_amount,
			processor_intent_id, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	for _, rec := range records {
		_, err := r.db.Exec(ctx, query,
			rec.ID, rec.ApplicationID, rec.PaymentType, rec.GrossAmount,
			rec.PlatformFeeAmount, rec.ManagementFeeAmount, rec.OwnerNetAmount,
			rec.ProcessorIntentID, rec.Status,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// FindPaymentRecordsByIntentID retrieves all payment records for a processor intent.
func (r *PostgresRepository) FindPaymentRecordsByIntentID(ctx context.Context, intentID string) ([]domain.PaymentRecord, error) {
	query := `
		SELECT id, application_id, payment_type, gross_amount,
		       platform_fee_amount, management_fee_amount, owner_net_amount,
		       processor_intent_id, status, transaction_id, paid_at, created_at, updated_at
		FROM payment_records
		WHERE processor_intent_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, intentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		var rec domain.PaymentRecord
		if err := rows.Scan(
			&rec.ID, &rec.ApplicationID, &rec.PaymentType, &rec.GrossAmount,
			&rec.PlatformFeeAmount, &rec.ManagementFeeAmount, &rec.OwnerNetAmount,
			&rec.ProcessorIntentID, &rec.Status, &rec.TransactionID, &rec.PaidAt,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrPaymentNotFound
	}
	return records, rows.Err()
}

// CompletePaymentsByIntentID marks pending payment records for an intent as
// completed. Records already completed or failed are left untouched; the
// caller learns how many rows actually transitioned.
func (r *PostgresRepository) CompletePaymentsByIntentID(ctx context.Context, intentID, transactionID string, paidAt time.Time) (int64, error) {
	query := `
		UPDATE payment_records
		SET status = $2, transaction_id = $3, paid_at = $4, updated_at = NOW()
		WHERE processor_intent_id = $1 AND status = $5
	`
	result, err := r.db.Exec(ctx, query, intentID, domain.PaymentStatusCompleted, transactionID, paidAt, domain.PaymentStatusPending)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// FailPaymentsByIntentID marks pending payment records for an intent as failed.
func (r *PostgresRepository) FailPaymentsByIntentID(ctx context.Context, intentID string) (int64, error) {
	query := `
		UPDATE payment_records
		SET status = $2, updated_at = NOW()
		WHERE processor_intent_id = $1 AND status = $3
	`
	result, err := r.db.Exec(ctx, query, intentID, domain.PaymentStatusFailed, domain.PaymentStatusPending)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// CreateDistributionRecords inserts pending distribution ledger rows.
func (r *PostgresRepository) CreateDistributionRecords(ctx context.Context, records []*domain.DistributionRecord) error {
	query := `
		INSERT INTO distribution_records (
			id, payment_record_id, recipient_type, recipient_id,
			amount, percentage, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	for _, rec := range records {
		_, err := r.db.Exec(ctx, query,
			rec.ID, rec.PaymentRecordID, rec.RecipientType, rec.RecipientID,
			rec.Amount, rec.Percentage, rec.Status,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

const distributionColumns = `
	d.id, d.payment_record_id, d.recipient_type, d.recipient_id,
	d.amount, d.percentage, d.status, d.processor_transfer_id,
	d.transfer_amount, d.transfer_currency, d.transfer_error, d.transferred_at,
	d.created_at, d.updated_at
`

func scanDistribution(row pgx.Row) (*domain.DistributionRecord, error) {
	var d domain.DistributionRecord
	err := row.Scan(
		&d.ID, &d.PaymentRecordID, &d.RecipientType, &d.RecipientID,
		&d.Amount, &d.Percentage, &d.Status, &d.ProcessorTransferID,
		&d.TransferAmount, &d.TransferCurrency, &d.TransferError, &d.TransferredAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindDistributionsByApplicationID returns the full ledger for an application.
func (r *PostgresRepository) FindDistributionsByApplicationID(ctx context.Context, applicationID uuid.UUID) ([]domain.DistributionRecord, error) {
	query := `
		SELECT ` + distributionColumns + `
		FROM distribution_records d
		JOIN payment_records p ON p.id = d.payment_record_id
		WHERE p.application_id = $1
		ORDER BY d.created_at
	`
	rows, err := r.db.Query(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.DistributionRecord
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *d)
	}
	return records, rows.Err()
}

// FindDistributionsByIntentID returns the distribution rows of the given
// recipient type for the payment(s) behind a processor intent. An intent with
// several line items has one row per payment record.
func (r *PostgresRepository) FindDistributionsByIntentID(ctx context.Context, intentID, recipientType string) ([]domain.DistributionRecord, error) {
	query := `
		SELECT ` + distributionColumns + `
		FROM distribution_records d
		JOIN payment_records p ON p.id = d.payment_record_id
		WHERE p.processor_intent_id = $1 AND d.recipient_type = $2
		ORDER BY d.created_at
	`
	rows, err := r.db.Query(ctx, query, intentID, recipientType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.DistributionRecord
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *d)
	}
	return records, rows.Err()
}

// ClaimDistributionForTransfer moves a distribution from pending to
// processing. Exactly one concurrent caller wins the claim; everyone else
// sees false and must not attempt a transfer.
func (r *PostgresRepository) ClaimDistributionForTransfer(ctx context.Context, distributionID uuid.UUID) (bool, error) {
	query := `
		UPDATE distribution_records
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.Exec(ctx, query, distributionID, domain.DistributionStatusProcessing, domain.DistributionStatusPending)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// MarkDistributionTransferred finalizes a claimed distribution after a
// successful processor transfer.
func (r *PostgresRepository) MarkDistributionTransferred(ctx context.Context, distributionID uuid.UUID, transferID string, amount int64, currency string, transferredAt time.Time) error {
	query := `
		UPDATE distribution_records
		SET status = $2, processor_transfer_id = $3, transfer_amount = $4,
		    transfer_currency = $5, transferred_at = $6, transfer_error = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $7
	`
	result, err := r.db.Exec(ctx, query, distributionID, domain.DistributionStatusTransferred,
		transferID, amount, currency, transferredAt, domain.DistributionStatusProcessing)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrDistributionNotFound
	}
	return nil
}

// MarkDistributionTransferFailed records a failed transfer attempt on a
// claimed distribution. Terminal; no automated retry follows.
func (r *PostgresRepository) MarkDistributionTransferFailed(ctx context.Context, distributionID uuid.UUID, transferError string) error {
	query := `
		UPDATE distribution_records
		SET status = $2, transfer_error = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	result, err := r.db.Exec(ctx, query, distributionID, domain.DistributionStatusTransferFailed,
		transferError, domain.DistributionStatusProcessing)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrDistributionNotFound
	}
	return nil
}

// MarkDistributionManual flags a distribution for manual ops processing. The
// row may still be pending (owner ineligible before any claim) or processing
// (eligibility re-check failed after the claim).
func (r *PostgresRepository) MarkDistributionManual(ctx context.Context, distributionID uuid.UUID, reason string) error {
	query := `
		UPDATE distribution_records
		SET status = $2, transfer_error = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)
	`
	result, err := r.db.Exec(ctx, query, distributionID, domain.DistributionStatusManualRequired,
		reason, domain.DistributionStatusPending, domain.DistributionStatusProcessing)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrDistributionNotFound
	}
	return nil
}

// CreateRentalAgreement inserts the agreement for an application. The unique
// constraint on application_id turns duplicate settlement deliveries into a
// no-op; the bool reports whether this call created the row.
func (r *PostgresRepository) CreateRentalAgreement(ctx context.Context, agreement *domain.RentalAgreement) (bool, error) {
	query := `
		INSERT INTO rental_agreements (
			id, application_id, property_id, tenant_id, owner_id,
			start_date, end_date, monthly_rent, security_deposit, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (application_id) DO NOTHING
	`
	result, err := r.db.Exec(ctx, query,
		agreement.ID, agreement.ApplicationID, agreement.PropertyID, agreement.TenantID, agreement.OwnerID,
		agreement.StartDate, agreement.EndDate, agreement.MonthlyRent, agreement.SecurityDeposit,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: another writer inserted between our statement planning and
		// execution on an older schema without the ON CONFLICT target.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
