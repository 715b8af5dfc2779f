// Package worker drains the ledger event queue and exports rows to the
// spreadsheet, with a pending sweep to recover from lost messages.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"riyalmind/internal/amqp"
	"riyalmind/internal/core"
	"riyalmind/internal/export"
)

// SyncStore is the slice of storage the worker needs to resolve event
// pointers and track export state.
type SyncStore interface {
	GetPersonalExpense(ctx context.Context, id int64) (*core.PersonalExpense, error)
	GetGroupExpense(ctx context.Context, id string) (*core.Expense, error)
	GetSettlement(ctx context.Context, id string) (*core.Settlement, error)
	MarkPersonalExpenseSynced(ctx context.Context, id int64) error
	MarkPersonalExpenseSyncError(ctx context.Context, id int64) error
	MarkGroupExpenseSynced(ctx context.Context, id string) error
	MarkGroupExpenseSyncError(ctx context.Context, id string) error
	ListPendingPersonalExpenseIDs(ctx context.Context, limit int) ([]int64, error)
	ListPendingGroupExpenseIDs(ctx context.Context, limit int) ([]string, error)
}

// SyncWorker exports ledger rows referenced by queue messages.
type SyncWorker struct {
	store     SyncStore
	writer    export.LedgerWriter
	batchSize int
}

func NewSyncWorker(store SyncStore, writer export.LedgerWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{store: store, writer: writer, batchSize: batchSize}
}

// HandleMessage resolves a queue message against storage and exports the row.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event", "kind", msg.Kind, "id", msg.ID)

	switch msg.Kind {
	case amqp.KindPersonalExpense:
		id, err := strconv.ParseInt(msg.ID, 10, 64)
		if err != nil {
			return fmt.Errorf("bad personal expense id %q: %w", msg.ID, err)
		}
		return w.syncPersonal(ctx, id)
	case amqp.KindGroupExpense:
		return w.syncGroupExpense(ctx, msg.ID)
	case amqp.KindSettlement:
		return w.syncSettlement(ctx, msg.ID)
	default:
		return fmt.Errorf("unknown event kind %q", msg.Kind)
	}
}

func (w *SyncWorker) syncPersonal(ctx context.Context, id int64) error {
	expense, err := w.store.GetPersonalExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("get personal expense: %w", err)
	}

	ref, err := w.writer.AppendPersonal(ctx, *expense)
	if err != nil {
		if markErr := w.store.MarkPersonalExpenseSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append personal expense: %w", err)
	}

	if err := w.store.MarkPersonalExpenseSynced(ctx, id); err != nil {
		// The export itself worked; just log.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Personal expense exported", "id", id, "row_ref", ref)
	return nil
}

func (w *SyncWorker) syncGroupExpense(ctx context.Context, id string) error {
	expense, err := w.store.GetGroupExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("get group expense: %w", err)
	}

	ref, err := w.writer.AppendShared(ctx, *expense)
	if err != nil {
		if markErr := w.store.MarkGroupExpenseSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append group expense: %w", err)
	}

	if err := w.store.MarkGroupExpenseSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Group expense exported", "id", id, "row_ref", ref)
	return nil
}

func (w *SyncWorker) syncSettlement(ctx context.Context, id string) error {
	settlement, err := w.store.GetSettlement(ctx, id)
	if err != nil {
		return fmt.Errorf("get settlement: %w", err)
	}

	ref, err := w.writer.AppendSettlement(ctx, *settlement)
	if err != nil {
		return fmt.Errorf("append settlement: %w", err)
	}

	slog.InfoContext(ctx, "Settlement exported", "id", id, "row_ref", ref)
	return nil
}

// StartupSweep exports rows still marked pending. It recovers work lost to
// dropped messages or worker downtime.
func (w *SyncWorker) StartupSweep(ctx context.Context) error {
	personalIDs, err := w.store.ListPendingPersonalExpenseIDs(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending personal expenses: %w", err)
	}
	groupIDs, err := w.store.ListPendingGroupExpenseIDs(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending group expenses: %w", err)
	}

	if len(personalIDs) == 0 && len(groupIDs) == 0 {
		slog.InfoContext(ctx, "No pending rows found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending rows on startup",
		"personal", len(personalIDs), "group", len(groupIDs))

	synced, failed := 0, 0
	for _, id := range personalIDs {
		if err := w.syncPersonal(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Startup sync failed", "personal_id", id, "error", err)
			failed++
			continue
		}
		synced++
	}
	for _, id := range groupIDs {
		if err := w.syncGroupExpense(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Startup sync failed", "group_expense_id", id, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sweep completed", "synced", synced, "errors", failed)
	return nil
}

// RunPeriodicSweep re-runs the pending sweep on an interval until the context
// is cancelled.
func (w *SyncWorker) RunPeriodicSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.StartupSweep(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sweep failed", "error", err)
			}
		}
	}
}
