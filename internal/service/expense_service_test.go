package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"riyalmind/internal/core"
)

type fakePersonalStore struct {
	expenses  []core.PersonalExpense
	overviews int // ReadMonthOverview call count
}

func (f *fakePersonalStore) AppendPersonalExpense(_ context.Context, e core.PersonalExpense) (int64, error) {
	e.ID = int64(len(f.expenses) + 1)
	f.expenses = append(f.expenses, e)
	return e.ID, nil
}

func (f *fakePersonalStore) ListPersonalExpenses(_ context.Context, userID string, year, month int) ([]core.PersonalExpense, error) {
	var out []core.PersonalExpense
	for _, e := range f.expenses {
		if e.UserID == userID && e.Date.Year() == year && int(e.Date.Month()) == month {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakePersonalStore) ReadMonthOverview(_ context.Context, userID string, year, month int) (core.MonthOverview, error) {
	f.overviews++
	overview := core.MonthOverview{Year: year, Month: month}
	for _, e := range f.expenses {
		if e.UserID == userID && e.Date.Year() == year && int(e.Date.Month()) == month {
			overview.Total.Cents += e.Amount.Cents
		}
	}
	return overview, nil
}

func (f *fakePersonalStore) ListCategories(_ context.Context) ([]string, error) {
	return []string{"Groceries", "Other"}, nil
}

func TestAddPersonalExpenseValidates(t *testing.T) {
	store := &fakePersonalStore{}
	svc := NewExpenseService(store, nil)
	ctx := context.Background()

	date := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	if _, err := svc.AddExpense(ctx, "u1", core.PersonalExpense{
		Date: date, Description: "", Amount: core.Money{Cents: 100},
	}); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("empty description = %v, want InvalidInput", err)
	}
	if _, err := svc.AddExpense(ctx, "u1", core.PersonalExpense{
		Date: date, Description: "Coffee", Amount: core.Money{Cents: 0},
	}); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("zero amount = %v, want InvalidInput", err)
	}

	id, err := svc.AddExpense(ctx, "u1", core.PersonalExpense{
		Date: date, Description: "Coffee", Amount: core.Money{Cents: 350}, Category: "Other",
	})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}
	if store.expenses[0].UserID != "u1" {
		t.Errorf("stored user = %s, want acting user", store.expenses[0].UserID)
	}
}

func TestMonthOverviewCaching(t *testing.T) {
	store := &fakePersonalStore{}
	svc := NewExpenseService(store, nil)
	ctx := context.Background()

	date := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	if _, err := svc.AddExpense(ctx, "u1", core.PersonalExpense{
		Date: date, Description: "Coffee", Amount: core.Money{Cents: 350}, Category: "Other",
	}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	first, err := svc.MonthOverview(ctx, "u1", 2026, 8)
	if err != nil {
		t.Fatalf("MonthOverview: %v", err)
	}
	if first.Total.Cents != 350 {
		t.Errorf("total = %d, want 350", first.Total.Cents)
	}

	// Second read is served from cache.
	if _, err := svc.MonthOverview(ctx, "u1", 2026, 8); err != nil {
		t.Fatalf("MonthOverview cached: %v", err)
	}
	if store.overviews != 1 {
		t.Errorf("store reads = %d, want 1 (second served from cache)", store.overviews)
	}

	// A write invalidates the month and the next read recomputes.
	if _, err := svc.AddExpense(ctx, "u1", core.PersonalExpense{
		Date: date, Description: "Lunch", Amount: core.Money{Cents: 1200}, Category: "Dining",
	}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	refreshed, err := svc.MonthOverview(ctx, "u1", 2026, 8)
	if err != nil {
		t.Fatalf("MonthOverview after write: %v", err)
	}
	if refreshed.Total.Cents != 1550 {
		t.Errorf("refreshed total = %d, want 1550", refreshed.Total.Cents)
	}
	if store.overviews != 2 {
		t.Errorf("store reads = %d, want 2", store.overviews)
	}
}

func TestMonthOverviewRejectsBadRange(t *testing.T) {
	svc := NewExpenseService(&fakePersonalStore{}, nil)
	ctx := context.Background()

	if _, err := svc.MonthOverview(ctx, "u1", 2026, 13); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("month 13 = %v, want InvalidInput", err)
	}
	if _, err := svc.ListMonth(ctx, "u1", 1900, 1); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("year 1900 = %v, want InvalidInput", err)
	}
}
