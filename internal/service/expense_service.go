package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"riyalmind/internal/amqp"
	"riyalmind/internal/cache"
	"riyalmind/internal/core"
)

// PersonalStore is the persistence surface for private expense tracking.
type PersonalStore interface {
	AppendPersonalExpense(ctx context.Context, e core.PersonalExpense) (int64, error)
	ListPersonalExpenses(ctx context.Context, userID string, year, month int) ([]core.PersonalExpense, error)
	ReadMonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// ExpenseService handles a user's private expenses and month summaries.
// Overviews are cached per user+month and invalidated on every write.
type ExpenseService struct {
	store     PersonalStore
	publisher EventPublisher
	overviews *cache.LRUCache[core.MonthOverview]
}

func NewExpenseService(store PersonalStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		overviews: cache.NewLRUCache[core.MonthOverview](256, 5*time.Minute),
	}
}

// AddExpense validates and stores a private expense, then queues it for
// export.
func (s *ExpenseService) AddExpense(ctx context.Context, userID string, e core.PersonalExpense) (int64, error) {
	e.UserID = userID
	if err := e.Validate(); err != nil {
		return 0, core.InvalidInputf("%v", err)
	}

	id, err := s.store.AppendPersonalExpense(ctx, e)
	if err != nil {
		return 0, core.PersistenceError(err)
	}

	s.overviews.Delete(overviewKey(userID, e.Date.Year(), int(e.Date.Month())))

	if s.publisher != nil {
		if err := s.publisher.PublishLedgerEvent(ctx, amqp.KindPersonalExpense, strconv.FormatInt(id, 10)); err != nil {
			slog.WarnContext(ctx, "Failed to publish personal expense event", "id", id, "error", err)
		}
	}
	return id, nil
}

// ListMonth returns the user's expenses for a month, newest day first.
func (s *ExpenseService) ListMonth(ctx context.Context, userID string, year, month int) ([]core.PersonalExpense, error) {
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}
	expenses, err := s.store.ListPersonalExpenses(ctx, userID, year, month)
	if err != nil {
		return nil, core.PersistenceError(err)
	}
	return expenses, nil
}

// MonthOverview returns the cached month summary, computing it on a miss.
func (s *ExpenseService) MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	if err := validateYearMonth(year, month); err != nil {
		return core.MonthOverview{}, err
	}

	key := overviewKey(userID, year, month)
	if overview, ok := s.overviews.Get(key); ok {
		return overview, nil
	}

	overview, err := s.store.ReadMonthOverview(ctx, userID, year, month)
	if err != nil {
		return core.MonthOverview{}, core.PersistenceError(err)
	}
	s.overviews.Set(key, overview)
	return overview, nil
}

// Categories lists the known expense categories.
func (s *ExpenseService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, core.PersistenceError(err)
	}
	return categories, nil
}

func validateYearMonth(year, month int) error {
	if year < 2000 || year > 2200 {
		return core.InvalidInputf("year %d out of range", year)
	}
	if month < 1 || month > 12 {
		return core.InvalidInputf("month %d out of range", month)
	}
	return nil
}

func overviewKey(userID string, year, month int) string {
	return fmt.Sprintf("%s:%d-%02d", userID, year, month)
}
