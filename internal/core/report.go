package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthOverview is a compact personal-spending summary for a year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	ByCategory []CategoryAmount
}

// Repayment is a suggested transfer that would reduce outstanding debt
// between two members.
type Repayment struct {
	FromUserID string
	ToUserID   string
	Amount     Money
}

// GroupReport is the derived view of a group's ledger. Balances follows the
// raw expense history only; NetBalances additionally folds in recorded
// settlements. Positive = the member is owed money, negative = they owe.
type GroupReport struct {
	Group       Group
	Balances    map[string]Money
	NetBalances map[string]Money
	Repayments  []Repayment
}
