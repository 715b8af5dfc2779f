package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"riyalmind/internal/core"
)

// Sync status values for the spreadsheet export worker.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

func (r *SQLiteRepository) MarkPersonalExpenseSynced(ctx context.Context, id int64) error {
	return r.setPersonalSyncStatus(ctx, id, SyncDone)
}

func (r *SQLiteRepository) MarkPersonalExpenseSyncError(ctx context.Context, id int64) error {
	return r.setPersonalSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setPersonalSyncStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE personal_expenses SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update personal sync status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("personal expense %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) MarkGroupExpenseSynced(ctx context.Context, id string) error {
	return r.setGroupSyncStatus(ctx, id, SyncDone)
}

func (r *SQLiteRepository) MarkGroupExpenseSyncError(ctx context.Context, id string) error {
	return r.setGroupSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setGroupSyncStatus(ctx context.Context, id string, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE group_expenses SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update group expense sync status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("group expense %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListPendingPersonalExpenseIDs returns IDs still awaiting export, oldest
// first, used by the worker's startup sweep.
func (r *SQLiteRepository) ListPendingPersonalExpenseIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM personal_expenses WHERE sync_status = ? ORDER BY id LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending personal expenses: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListPendingGroupExpenseIDs returns group expense IDs still awaiting export,
// oldest first.
func (r *SQLiteRepository) ListPendingGroupExpenseIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM group_expenses WHERE sync_status = ? ORDER BY created_at LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending group expenses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetSettlement loads a single settlement row, for export.
func (r *SQLiteRepository) GetSettlement(ctx context.Context, id string) (*core.Settlement, error) {
	var s core.Settlement
	var settledAt sql.NullInt64
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, from_user_id, to_user_id, amount_cents, settled, settled_at, created_at
		 FROM settlements WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.GroupID, &s.FromUserID, &s.ToUserID,
		&s.Amount.Cents, &s.Settled, &settledAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settlement %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", err)
	}
	if settledAt.Valid {
		s.SettledAt = time.Unix(settledAt.Int64, 0)
	}
	s.CreatedAt = time.Unix(createdAt, 0)
	return &s, nil
}

// GetGroupExpense loads a single group expense with its splits, for export.
func (r *SQLiteRepository) GetGroupExpense(ctx context.Context, id string) (*core.Expense, error) {
	var e core.Expense
	var splitType string
	var date, createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, paid_by, amount_cents, description, category, date, split_type, created_at
		 FROM group_expenses WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.GroupID, &e.PaidByID, &e.Amount.Cents,
		&e.Description, &e.Category, &date, &splitType, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get group expense: %w", err)
	}
	e.SplitType = core.SplitType(splitType)
	e.Date = time.Unix(date, 0)
	e.CreatedAt = time.Unix(createdAt, 0)

	splits, err := r.findExpenseSplits(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	e.Splits = splits
	return &e, nil
}
