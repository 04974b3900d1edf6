package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSumMoney_KeepsFullPrecision(t *testing.T) {
	got := SumMoney(decimal.RequireFromString("0.005"), decimal.RequireFromString("0.005"), decimal.RequireFromString("1.10"))
	if !got.Equal(decimal.RequireFromString("1.11")) {
		t.Fatalf("got %s, want 1.11", got)
	}
	if !SumMoney().IsZero() {
		t.Fatalf("empty sum is not zero")
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	if err := ValidatePhoneNumber("+31612345678", "NL"); err != nil {
		t.Fatalf("valid NL mobile rejected: %v", err)
	}
	if err := ValidatePhoneNumber("+3161234", "NL"); err == nil {
		t.Fatalf("short NL number accepted")
	}
}
