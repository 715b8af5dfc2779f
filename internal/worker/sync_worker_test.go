package worker

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"riyalmind/internal/amqp"
	"riyalmind/internal/core"
	"riyalmind/internal/export"
	"riyalmind/internal/storage"
)

func setupWorker(t *testing.T) (*SyncWorker, *storage.SQLiteRepository, *export.MemoryWriter) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	writer := export.NewMemoryWriter()
	return NewSyncWorker(repo, writer, 10), repo, writer
}

var seedCounter int

func seedPersonal(t *testing.T, repo *storage.SQLiteRepository) int64 {
	t.Helper()
	ctx := context.Background()
	seedCounter++
	email := "u" + strconv.Itoa(seedCounter) + "@example.com"
	user := &core.User{Email: email, DisplayName: "u", PasswordHash: "x"}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	id, err := repo.AppendPersonalExpense(ctx, core.PersonalExpense{
		UserID:      user.ID,
		Date:        time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		Description: "Coffee",
		Amount:      core.Money{Cents: 350},
		Category:    "Dining",
	})
	if err != nil {
		t.Fatalf("AppendPersonalExpense: %v", err)
	}
	return id
}

func TestHandleMessagePersonalExpense(t *testing.T) {
	w, repo, writer := setupWorker(t)
	ctx := context.Background()

	id := seedPersonal(t, repo)
	msg := amqp.NewLedgerEventMessage(amqp.KindPersonalExpense, strconv.FormatInt(id, 10))

	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(writer.Personal) != 1 || writer.Personal[0].Description != "Coffee" {
		t.Errorf("exported rows = %+v", writer.Personal)
	}

	// Synced rows no longer show up in the pending sweep.
	pending, err := repo.ListPendingPersonalExpenseIDs(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingPersonalExpenseIDs: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after sync = %v, want empty", pending)
	}
}

func TestHandleMessageExportFailureMarksError(t *testing.T) {
	w, repo, writer := setupWorker(t)
	ctx := context.Background()

	id := seedPersonal(t, repo)
	writer.FailNext = true

	msg := amqp.NewLedgerEventMessage(amqp.KindPersonalExpense, strconv.FormatInt(id, 10))
	if err := w.HandleMessage(ctx, msg); err == nil {
		t.Fatal("expected export failure to propagate")
	}

	// The row left the pending state so a retry storm cannot build up; it is
	// marked as errored instead.
	pending, err := repo.ListPendingPersonalExpenseIDs(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingPersonalExpenseIDs: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after failure = %v, want empty (marked error)", pending)
	}
}

func TestHandleMessageRejectsBadInput(t *testing.T) {
	w, _, _ := setupWorker(t)
	ctx := context.Background()

	if err := w.HandleMessage(ctx, &amqp.LedgerEventMessage{Kind: "mystery", ID: "1"}); err == nil {
		t.Error("unknown kind should error")
	}
	if err := w.HandleMessage(ctx, &amqp.LedgerEventMessage{Kind: amqp.KindPersonalExpense, ID: "abc"}); err == nil {
		t.Error("non-numeric personal id should error")
	}
}

func TestStartupSweep(t *testing.T) {
	w, repo, writer := setupWorker(t)
	ctx := context.Background()

	seedPersonal(t, repo)
	seedPersonal(t, repo)

	if err := w.StartupSweep(ctx); err != nil {
		t.Fatalf("StartupSweep: %v", err)
	}
	if len(writer.Personal) != 2 {
		t.Errorf("exported %d rows, want 2", len(writer.Personal))
	}

	// A second sweep finds nothing to do.
	if err := w.StartupSweep(ctx); err != nil {
		t.Fatalf("second StartupSweep: %v", err)
	}
	if len(writer.Personal) != 2 {
		t.Errorf("second sweep re-exported rows: %d", len(writer.Personal))
	}
}
