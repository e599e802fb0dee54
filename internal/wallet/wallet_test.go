package wallet

import (
	"slices"
	"testing"

	"github.com/maruel/tutordb/internal/store"
)

func txs() []*store.Transaction {
	return []*store.Transaction{
		{ID: "t3", Type: store.TxSessionPayment, Amount: -200},
		{ID: "t2", Type: store.TxBonus, Amount: 50},
		nil,
		{ID: "t1", Type: store.TxPurchase, Amount: 1000},
	}
}

func TestFilterByType(t *testing.T) {
	tests := []struct {
		typ  string
		want []string
	}{
		{"all", []string{"t3", "t2", "", "t1"}},
		{"", []string{"t3", "t2", "", "t1"}},
		{"Purchase", []string{"t1"}},
		{"session payment", []string{"t3"}},
		{"refund", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got := []string{}
			for _, tx := range FilterByType(txs(), tt.typ) {
				if tx == nil {
					got = append(got, "")
				} else {
					got = append(got, tx.ID)
				}
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("FilterByType(%q) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	got := History(txs(), 850)
	want := []struct {
		id      string
		balance float64
	}{
		{"t3", 850},
		{"t2", 1050},
		{"t1", 1000},
	}
	if len(got) != len(want) {
		t.Fatalf("History() returned %d entries, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].RunningBalance != w.balance {
			t.Errorf("History()[%d] = %s %v, want %s %v", i, got[i].ID, got[i].RunningBalance, w.id, w.balance)
		}
	}
	if h := History(nil, 10); len(h) != 0 {
		t.Errorf("History(nil) = %v", h)
	}
}

func TestFilterEntries(t *testing.T) {
	history := History([]*store.Transaction{
		{ID: "t3", Type: store.TxBonus, Amount: 20},
		{ID: "t2", Type: store.TxSessionPayment, Amount: -50},
		{ID: "t1", Type: store.TxPurchase, Amount: 100},
	}, 500)
	tests := []struct {
		typ      string
		ids      []string
		balances []float64
	}{
		{"all", []string{"t3", "t2", "t1"}, []float64{500, 480, 530}},
		{"purchase", []string{"t1"}, []float64{530}},
		{"BONUS", []string{"t3"}, []float64{500}},
		{"refund", []string{}, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			ids := []string{}
			balances := []float64{}
			for _, e := range FilterEntries(history, tt.typ) {
				ids = append(ids, e.ID)
				balances = append(balances, e.RunningBalance)
			}
			if !slices.Equal(ids, tt.ids) || !slices.Equal(balances, tt.balances) {
				t.Errorf("FilterEntries(%q) = %v %v, want %v %v", tt.typ, ids, balances, tt.ids, tt.balances)
			}
		})
	}
}

func TestTier(t *testing.T) {
	tests := []struct {
		balance float64
		want    string
	}{
		{-5, TierCritical},
		{99.5, TierCritical},
		{100, TierLow},
		{500, TierLow},
		{500.01, TierSufficient},
	}
	for _, tt := range tests {
		if got := Tier(tt.balance); got != tt.want {
			t.Errorf("Tier(%v) = %q, want %q", tt.balance, got, tt.want)
		}
	}
}
