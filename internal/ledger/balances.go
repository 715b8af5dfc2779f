// Package ledger implements the pure arithmetic of the group expense ledger:
// splitting an amount across members, validating caller-supplied splits, and
// deriving per-member balances from the recorded history.
//
// Nothing in this package touches storage or carries state; every function is
// a plain computation over already-fetched rows, so it is safe under
// concurrent report reads.
package ledger

import (
	"sort"

	"riyalmind/internal/core"
)

// SplitEqually divides amount across memberIDs in integer cents. The first
// len(amount)%n members absorb the remainder cent each, so the splits always
// sum exactly to the amount. The payer's split is marked paid: they covered
// their own share by fronting the whole expense.
func SplitEqually(amount core.Money, memberIDs []string, payerID string) []core.Split {
	n := int64(len(memberIDs))
	if n == 0 {
		return nil
	}
	base := amount.Cents / n
	remainder := amount.Cents % n

	splits := make([]core.Split, 0, n)
	for i, userID := range memberIDs {
		cents := base
		if int64(i) < remainder {
			cents++
		}
		splits = append(splits, core.Split{
			UserID: userID,
			Amount: core.Money{Cents: cents},
			Paid:   userID == payerID,
		})
	}
	return splits
}

// ValidateSplits checks caller-supplied splits against the expense total and
// the group's membership. Each split must be positive, reference a current
// member, and the sum must equal the total exactly.
func ValidateSplits(amount core.Money, splits []core.Split, members []core.Member) error {
	memberSet := make(map[string]bool, len(members))
	for _, m := range members {
		memberSet[m.UserID] = true
	}

	var sum int64
	for _, s := range splits {
		if s.Amount.Cents <= 0 {
			return core.InvalidInputf("split for user %s must be positive", s.UserID)
		}
		if !memberSet[s.UserID] {
			return core.InvalidInputf("split references non-member user %s", s.UserID)
		}
		sum += s.Amount.Cents
	}
	if sum != amount.Cents {
		return core.InvalidInputf("splits sum to %s, expense total is %s",
			core.Money{Cents: sum}, amount)
	}
	return nil
}

// ComputeBalances derives each member's net position from the expense
// history. For every split of every expense:
//
//   - the payer's own split credits them with amount - ownShare (they fronted
//     the whole amount but only truly spent their share)
//   - any other split debits that member their share
//
// The two branches are mutually exclusive per split, so the payer's share
// contributes exactly once. Members with no activity stay at zero.
// Settlements are not part of this computation; see ApplySettlements.
func ComputeBalances(members []core.Member, expenses []core.Expense) map[string]core.Money {
	balances := make(map[string]core.Money, len(members))
	for _, m := range members {
		balances[m.UserID] = core.Money{}
	}

	for _, e := range expenses {
		for _, s := range e.Splits {
			b := balances[s.UserID]
			if s.UserID == e.PaidByID {
				b.Cents += e.Amount.Cents - s.Amount.Cents
			} else {
				b.Cents -= s.Amount.Cents
			}
			balances[s.UserID] = b
		}
	}
	return balances
}

// ApplySettlements folds recorded settlements into a copy of balances: the
// paying member's position improves by the settled amount, the receiving
// member's decreases. The input map is not mutated.
func ApplySettlements(balances map[string]core.Money, settlements []core.Settlement) map[string]core.Money {
	net := make(map[string]core.Money, len(balances))
	for userID, b := range balances {
		net[userID] = b
	}

	for _, s := range settlements {
		from := net[s.FromUserID]
		from.Cents += s.Amount.Cents
		net[s.FromUserID] = from

		to := net[s.ToUserID]
		to.Cents -= s.Amount.Cents
		net[s.ToUserID] = to
	}
	return net
}

// SuggestRepayments matches debtors against creditors greedily, producing a
// small set of transfers that would zero out the given balances. Output is
// deterministic: parties are visited in user-ID order.
func SuggestRepayments(balances map[string]core.Money) []core.Repayment {
	type party struct {
		userID string
		cents  int64
	}

	var debtors, creditors []party
	for userID, b := range balances {
		switch {
		case b.Cents < 0:
			debtors = append(debtors, party{userID, -b.Cents})
		case b.Cents > 0:
			creditors = append(creditors, party{userID, b.Cents})
		}
	}
	sort.Slice(debtors, func(i, j int) bool { return debtors[i].userID < debtors[j].userID })
	sort.Slice(creditors, func(i, j int) bool { return creditors[i].userID < creditors[j].userID })

	var repayments []core.Repayment
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].cents
		if creditors[j].cents < amount {
			amount = creditors[j].cents
		}
		if amount > 0 {
			repayments = append(repayments, core.Repayment{
				FromUserID: debtors[i].userID,
				ToUserID:   creditors[j].userID,
				Amount:     core.Money{Cents: amount},
			})
		}
		debtors[i].cents -= amount
		creditors[j].cents -= amount
		if debtors[i].cents == 0 {
			i++
		}
		if creditors[j].cents == 0 {
			j++
		}
	}
	return repayments
}
