package config

import (
	"testing"
	"time"
)

func TestMarketplaceDefaultsValidate(t *testing.T) {
	cfg := MarketplaceConfig{
		MinPayoutCents:       5000,
		HoldingPeriodDays:    7,
		MaxDeliveryAttempts:  3,
		DefaultCommissionBps: 1500,
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if got := cfg.HoldingPeriod(); got != 7*24*time.Hour {
		t.Fatalf("holding period = %v, want 168h", got)
	}
}

func TestMarketplaceValidateRejectsBadRates(t *testing.T) {
	cases := []MarketplaceConfig{
		{MaxDeliveryAttempts: 3, DefaultCommissionBps: 10001},
		{MaxDeliveryAttempts: 0, DefaultCommissionBps: 1500},
		{MaxDeliveryAttempts: 3, DefaultCommissionBps: 1500, MinPayoutCents: -1},
		{MaxDeliveryAttempts: 3, DefaultCommissionBps: 1500, PayoutFeeBps: 20000},
	}
	for i, cfg := range cases {
		if err := cfg.validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
