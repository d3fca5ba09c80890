package config

import "testing"

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/payments")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.PlatformFeePercent != 5.0 {
		t.Fatalf("expected default platform fee 5.0, got %f", cfg.PlatformFeePercent)
	}
	if cfg.ManagementFeePercent != 0.0 {
		t.Fatalf("expected default management fee 0.0, got %f", cfg.ManagementFeePercent)
	}
	if cfg.LeaseTermDays != 365 {
		t.Fatalf("expected default lease term 365, got %d", cfg.LeaseTermDays)
	}
	if cfg.Currency != "usd" {
		t.Fatalf("expected default currency usd, got %q", cfg.Currency)
	}
	if cfg.OnboardingEventQueue != "payments_service.owner_onboarding" {
		t.Fatalf("unexpected default queue %q", cfg.OnboardingEventQueue)
	}
}

func TestLoadConfig_CoercesOutOfRangePercentages(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PERCENT", "-3")
	t.Setenv("MANAGEMENT_FEE_PERCENT", "150")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.PlatformFeePercent != 0 {
		t.Fatalf("expected negative platform fee coerced to 0, got %f", cfg.PlatformFeePercent)
	}
	if cfg.ManagementFeePercent != 0 {
		t.Fatalf("expected oversized management fee coerced to 0, got %f", cfg.ManagementFeePercent)
	}
}

func TestLoadConfig_NormalizesCurrency(t *testing.T) {
	t.Setenv("CURRENCY", " USD ")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Currency != "usd" {
		t.Fatalf("expected lowercased currency, got %q", cfg.Currency)
	}
}
