package fees

import (
	"errors"
	"math"
	"testing"
)

func TestComputeSplit_StandardScenario(t *testing.T) {
	// $1000 gross, 5% platform, 0% management.
	b, err := ComputeSplit(100000, 5, 0)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if b.PlatformFeeAmount != 5000 {
		t.Fatalf("expected platform fee 5000, got %d", b.PlatformFeeAmount)
	}
	if b.ManagementFeeAmount != 0 {
		t.Fatalf("expected management fee 0, got %d", b.ManagementFeeAmount)
	}
	if b.OwnerNetAmount != 95000 {
		t.Fatalf("expected owner net 95000, got %d", b.OwnerNetAmount)
	}
}

func TestComputeSplit_PartsAlwaysSumToGross(t *testing.T) {
	grosses := []int64{0, 1, 99, 100, 101, 333, 12345, 99999, 100000, 7777777}
	percents := []struct{ platform, management float64 }{
		{0, 0}, {5, 0}, {5, 8}, {2.5, 2.5}, {33.33, 33.33}, {0.01, 0.01}, {100, 0}, {50, 50},
	}
	for _, gross := range grosses {
		for _, p := range percents {
			b, err := ComputeSplit(gross, p.platform, p.management)
			if err != nil {
				t.Fatalf("gross=%d platform=%v management=%v: unexpected error %v", gross, p.platform, p.management, err)
			}
			sum := b.PlatformFeeAmount + b.ManagementFeeAmount + b.OwnerNetAmount
			if sum != gross {
				t.Fatalf("gross=%d platform=%v management=%v: parts sum to %d", gross, p.platform, p.management, sum)
			}
		}
	}
}

func TestComputeSplit_RoundingRemainderGoesToOwner(t *testing.T) {
	// 10.01 at 5% is 50.05 cents; the half-cent rounds to 50 and the owner
	// keeps the remainder.
	b, err := ComputeSplit(1001, 5, 0)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if b.PlatformFeeAmount != 50 {
		t.Fatalf("expected platform fee 50, got %d", b.PlatformFeeAmount)
	}
	if b.OwnerNetAmount != 951 {
		t.Fatalf("expected owner net 951, got %d", b.OwnerNetAmount)
	}
}

func TestComputeSplit_InvalidInputs(t *testing.T) {
	cases := []struct {
		name       string
		gross      int64
		platform   float64
		management float64
		want       error
	}{
		{"negative gross", -1, 5, 0, ErrInvalidAmount},
		{"negative percent", 1000, -1, 0, ErrInvalidPercentage},
		{"nan percent", 1000, math.NaN(), 0, ErrInvalidPercentage},
		{"inf percent", 1000, math.Inf(1), 0, ErrInvalidPercentage},
		{"over 100 percent", 1000, 0, 101, ErrInvalidPercentage},
		{"combined over 100", 1000, 60, 50, ErrInvalidPercentage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeSplit(tc.gross, tc.platform, tc.management)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestComputeSplit_ZeroGross(t *testing.T) {
	b, err := ComputeSplit(0, 5, 8)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if b.PlatformFeeAmount != 0 || b.ManagementFeeAmount != 0 || b.OwnerNetAmount != 0 {
		t.Fatalf("expected all-zero split, got %+v", b)
	}
}
