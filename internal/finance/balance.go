package finance

import (
	"time"

	"github.com/festa-erp/festa/internal/money"
)

// DeriveBalances sums the live entries that belong to o. Entries for other
// obligations, in the wrong direction or soft-deleted are ignored.
func DeriveBalances(o Obligation, entries []Entry) Balance {
	var paid money.Cents
	dir := o.Kind.Direction()
	for _, e := range entries {
		if e.DeletedAt != nil || e.ObligationID != o.ID || e.Direction != dir {
			continue
		}
		paid += e.Amount
	}
	return Balance{AmountPaid: paid, AmountRemaining: o.Amount - paid}
}

// Positions pairs every obligation with its balance.
func Positions(obligations []Obligation, entries []Entry) []Position {
	out := make([]Position, len(obligations))
	for i, o := range obligations {
		out[i] = Position{Obligation: o, Balance: DeriveBalances(o, entries)}
	}
	return out
}

// AgeOutstanding buckets the remaining balance of pending positions by how many
// days past due they are at asOf.
func AgeOutstanding(positions []Position, asOf time.Time) Aging {
	var bucket Aging
	for _, p := range positions {
		if p.Status != StatusPending || p.AmountRemaining <= 0 {
			continue
		}
		days := int(asOf.Sub(p.DueDate).Hours() / 24)
		switch {
		case days <= 0:
			bucket.Current += p.AmountRemaining
		case days <= 30:
			bucket.Bucket30 += p.AmountRemaining
		case days <= 60:
			bucket.Bucket60 += p.AmountRemaining
		case days <= 90:
			bucket.Bucket90 += p.AmountRemaining
		default:
			bucket.Bucket120 += p.AmountRemaining
		}
	}
	return bucket
}
