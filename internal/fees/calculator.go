/**
 * @description
 * Pure fee-split arithmetic for marketplace payments. Given a gross amount in
 * cents and the platform/management fee percentages, ComputeSplit returns the
 * three-way split whose parts always sum back to the gross amount.
 *
 * Rounding rule: platform and management fees round half-up to the nearest
 * cent; the owner's net takes the exact remainder. This keeps
 * gross == platform + management + owner exact for every input.
 */

package fees

import (
	"errors"
	"math"
)

var (
	// ErrInvalidAmount is returned for negative gross amounts.
	ErrInvalidAmount = errors.New("gross amount must be non-negative")
	// ErrInvalidPercentage is returned for NaN/Inf or out-of-range
	// percentages, including a combined fee share above 100%.
	ErrInvalidPercentage = errors.New("fee percentage out of range")
)

// Default fee percentages applied when a property has no override.
const (
	DefaultPlatformFeePercent   = 5.00
	DefaultManagementFeePercent = 0.00
)

// Breakdown is the result of a fee split, in cents.
type Breakdown struct {
	GrossAmount          int64
	PlatformFeeAmount    int64
	ManagementFeeAmount  int64
	OwnerNetAmount       int64
	PlatformFeePercent   float64
	ManagementFeePercent float64
}

// ComputeSplit splits grossCents into platform, management and owner shares.
// It is deterministic and side-effect free.
func ComputeSplit(grossCents int64, platformPct, managementPct float64) (Breakdown, error) {
	if grossCents < 0 {
		return Breakdown{}, ErrInvalidAmount
	}
	if !validPercent(platformPct) || !validPercent(managementPct) || platformPct+managementPct > 100 {
		return Breakdown{}, ErrInvalidPercentage
	}

	platformFee := roundCents(float64(grossCents) * platformPct / 100)
	managementFee := roundCents(float64(grossCents) * managementPct / 100)
	ownerNet := grossCents - platformFee - managementFee

	return Breakdown{
		GrossAmount:          grossCents,
		PlatformFeeAmount:    platformFee,
		ManagementFeeAmount:  managementFee,
		OwnerNetAmount:       ownerNet,
		PlatformFeePercent:   platformPct,
		ManagementFeePercent: managementPct,
	}, nil
}

func validPercent(pct float64) bool {
	return !math.IsNaN(pct) && !math.IsInf(pct, 0) && pct >= 0 && pct <= 100
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
