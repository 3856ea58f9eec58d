package domain

import (
	"encoding/json"
	"testing"
)

func TestTypesExist(t *testing.T) {
	// Verify DailyBar can be instantiated with zero values.
	bar := DailyBar{}
	if bar.Date != "" {
		t.Error("expected empty Date for zero-value DailyBar")
	}
	if bar.Open != 0 || bar.High != 0 || bar.Low != 0 || bar.Close != 0 || bar.Volume != 0 {
		t.Error("expected zero OHLCV values for zero-value DailyBar")
	}

	// Verify enum constants are defined correctly.
	if StatusPending != "PENDING" || StatusExecuted != "EXECUTED" {
		t.Error("Status constants have unexpected values")
	}
	if TradeAdd != "ADD" || TradeSell != "SELL" || TradeBuy != "BUY" {
		t.Error("TradeType constants have unexpected values")
	}
	if !TradeAdd.IsBuy() || !TradeBuy.IsBuy() || TradeSell.IsBuy() {
		t.Error("IsBuy classification is wrong")
	}
	if StatusPending.Terminal() {
		t.Error("PENDING must not be terminal")
	}
	for _, s := range []Status{StatusCompleted, StatusExecuted, StatusFailed, StatusExpired, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"2024-12-25", "2024-12-25", false},
		{"20241225", "2024-12-25", false},
		{" 20240101 ", "2024-01-01", false},
		{"2024/01/01", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeDate(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := CompactDate("2024-12-25"); got != "20241225" {
		t.Errorf("CompactDate = %q, want %q", got, "20241225")
	}
}

func TestAccountCloneIsDeep(t *testing.T) {
	a := NewAccount(100000)
	a.Positions["600001.SH"] = &Position{Code: "600001.SH", Quantity: 100, Cost: 10}

	c := a.Clone()
	c.Positions["600001.SH"].Quantity = 500
	c.Cash = 1

	if a.Positions["600001.SH"].Quantity != 100 {
		t.Errorf("clone shares position pointers with original")
	}
	if a.Cash != 100000 {
		t.Errorf("clone mutated original cash")
	}
}

func TestAccountJSONMatchesSnapshotLayout(t *testing.T) {
	a := NewAccount(100000)
	a.Frozen = 5500
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"initialFund", "available", "frozen", "positions"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("account JSON missing key %q: %s", key, data)
		}
	}
	if got := a.Spendable(); got != 94500 {
		t.Errorf("Spendable() = %v, want 94500", got)
	}
}
