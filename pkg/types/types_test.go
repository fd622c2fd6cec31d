package types

import (
	"math/big"
	"strings"
	"testing"
	"time"
)

func TestDurationUnit_IsValid(t *testing.T) {
	for _, u := range []DurationUnit{DurationUnitSeconds, DurationUnitMinutes, DurationUnitHours, DurationUnitDays, DurationUnitWeeks} {
		if !u.IsValid() {
			t.Errorf("%s should be valid", u)
		}
	}
	if DurationUnit("fortnights").IsValid() {
		t.Error("fortnights should not be valid")
	}
}

func TestParseLockDuration(t *testing.T) {
	tests := []struct {
		input   string
		unit    DurationUnit
		want    int64
		wantErr bool
	}{
		{"30", DurationUnitMinutes, 30, false},
		{" 4 ", DurationUnitWeeks, 4, false},
		{"2h", DurationUnitMinutes, 120, false},
		{"336h", DurationUnitWeeks, 2, false},
		{"90s", DurationUnitMinutes, 0, true},
		{"30s", DurationUnitMinutes, 0, true},
		{"0", DurationUnitMinutes, 0, true},
		{"-5", DurationUnitMinutes, 0, true},
		{"", DurationUnitMinutes, 0, true},
		{"abc", DurationUnitMinutes, 0, true},
		{"10", DurationUnit("bogus"), 0, true},
	}

	for _, tt := range tests {
		got, err := ParseLockDuration(tt.input, tt.unit)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseLockDuration(%q, %s): expected error, got %s", tt.input, tt.unit, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLockDuration(%q, %s): %v", tt.input, tt.unit, err)
			continue
		}
		if got.Cmp(big.NewInt(tt.want)) != 0 {
			t.Errorf("ParseLockDuration(%q, %s) = %s, want %d", tt.input, tt.unit, got, tt.want)
		}
	}
}

func TestParseLockDuration_OutOfRange(t *testing.T) {
	_, err := ParseLockDuration("99999999999999999999", DurationUnitMinutes)
	if err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestDurationUnit_Duration(t *testing.T) {
	if DurationUnitWeeks.Duration() != 7*24*time.Hour {
		t.Errorf("weeks = %s", DurationUnitWeeks.Duration())
	}
	if DurationUnit("x").Duration() != 0 {
		t.Error("unknown unit should have zero duration")
	}
}

func TestPosition_Closed(t *testing.T) {
	if !(Position{Amount: big.NewInt(0)}).Closed() {
		t.Error("zero amount should be closed")
	}
	if !(Position{}).Closed() {
		t.Error("nil amount should be closed")
	}
	if (Position{Amount: big.NewInt(1)}).Closed() {
		t.Error("non-zero amount should be open")
	}
}
