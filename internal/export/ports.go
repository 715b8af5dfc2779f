// Package export pushes ledger rows into an external spreadsheet for the
// household's long-lived bookkeeping.
package export

import (
	"context"

	"riyalmind/internal/core"
)

// LedgerWriter appends ledger rows to the export target. Each method returns
// a reference to the written row.
type LedgerWriter interface {
	AppendPersonal(ctx context.Context, e core.PersonalExpense) (rowRef string, err error)
	AppendShared(ctx context.Context, e core.Expense) (rowRef string, err error)
	AppendSettlement(ctx context.Context, s core.Settlement) (rowRef string, err error)
}
