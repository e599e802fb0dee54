// Package wallet computes the views of a user's coin transactions.
package wallet

import (
	"strings"

	"github.com/maruel/tutordb/internal/store"
)

// All is the FilterByType value that keeps every transaction.
const All = "all"

// Balance tiers.
const (
	TierCritical   = "critical"
	TierLow        = "low"
	TierSufficient = "sufficient"
)

// Entry is a transaction with the wallet balance right after it was applied.
type Entry struct {
	*store.Transaction
	RunningBalance float64 `json:"running_balance"`
}

// FilterByType returns the transactions whose type equals typ,
// case-insensitively, preserving order. All and the empty string keep
// everything.
func FilterByType(txs []*store.Transaction, typ string) []*store.Transaction {
	if keepAll(typ) {
		return txs
	}
	out := make([]*store.Transaction, 0, len(txs))
	for _, t := range txs {
		if t != nil && strings.EqualFold(string(t.Type), typ) {
			out = append(out, t)
		}
	}
	return out
}

// FilterEntries is FilterByType over a computed history. Filter after
// [History] so that hidden transactions still count in the balances shown.
func FilterEntries(entries []Entry, typ string) []Entry {
	if keepAll(typ) {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.EqualFold(string(e.Type), typ) {
			out = append(out, e)
		}
	}
	return out
}

func keepAll(typ string) bool {
	return typ == "" || strings.EqualFold(typ, All)
}

// History attaches running balances to txs, which must be the full history
// sorted newest first. The newest entry carries current and each older entry is the balance
// before the next newer one was applied.
func History(txs []*store.Transaction, current float64) []Entry {
	out := make([]Entry, 0, len(txs))
	balance := current
	for _, t := range txs {
		if t == nil {
			continue
		}
		if len(out) > 0 {
			balance -= out[len(out)-1].Amount
		}
		out = append(out, Entry{Transaction: t, RunningBalance: balance})
	}
	return out
}

// Tier classifies a balance: critical below 100, low up to 500 inclusive and
// sufficient above.
func Tier(balance float64) string {
	switch {
	case balance < 100:
		return TierCritical
	case balance <= 500:
		return TierLow
	default:
		return TierSufficient
	}
}
