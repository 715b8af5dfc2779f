// Package service implements the application operations on top of storage,
// the ledger arithmetic and the auth primitives.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"riyalmind/internal/amqp"
	"riyalmind/internal/core"
	"riyalmind/internal/ledger"
	"riyalmind/internal/storage"
)

// GroupStore is the persistence surface the ledger service needs.
type GroupStore interface {
	GetUserByID(ctx context.Context, id string) (*core.User, error)
	CreateGroupWithAdmin(ctx context.Context, group *core.Group, adminUserID string) error
	FindGroup(ctx context.Context, groupID string) (*core.Group, error)
	FindGroupMembers(ctx context.Context, groupID string) ([]core.Member, error)
	FindGroupMembership(ctx context.Context, groupID, userID string) (*core.Member, error)
	AddMember(ctx context.Context, member *core.Member) error
	CreateExpenseWithSplits(ctx context.Context, expense *core.Expense, splits []core.Split) error
	FindGroupExpensesWithSplits(ctx context.Context, groupID string) ([]core.Expense, error)
	CreateSettlement(ctx context.Context, settlement *core.Settlement) error
	FindGroupSettlements(ctx context.Context, groupID string) ([]core.Settlement, error)
}

// EventPublisher pushes ledger sync pointers to the export worker. A nil
// publisher disables export.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, kind, id string) error
}

// LedgerService implements group creation, membership, shared expenses,
// settlements and report derivation.
type LedgerService struct {
	store     GroupStore
	publisher EventPublisher
}

func NewLedgerService(store GroupStore, publisher EventPublisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

// CreateGroup creates a group owned by userID, who becomes its first admin
// member in the same write.
func (s *LedgerService) CreateGroup(ctx context.Context, userID, name, description string, groupType core.GroupType) (*core.Group, error) {
	group := &core.Group{
		Name:        name,
		Description: description,
		Type:        groupType,
	}
	if err := group.Validate(); err != nil {
		return nil, core.InvalidInputf("%v", err)
	}

	if err := s.store.CreateGroupWithAdmin(ctx, group, userID); err != nil {
		return nil, core.PersistenceError(err)
	}
	slog.InfoContext(ctx, "Group created", "group_id", group.ID, "name", group.Name, "type", group.Type)
	return group, nil
}

// AddMember invites newUserID into the group. Only admins may invite, the
// user must exist, and repeat invites are rejected.
func (s *LedgerService) AddMember(ctx context.Context, actingUserID, groupID, newUserID string, share float64) (*core.Member, error) {
	actor, err := s.requireMembership(ctx, groupID, actingUserID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, core.Unauthorizedf("only group admins can add members")
	}

	if _, err := s.store.GetUserByID(ctx, newUserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, core.NotFoundf("user %s not found", newUserID)
		}
		return nil, core.PersistenceError(err)
	}

	member := &core.Member{
		GroupID:         groupID,
		UserID:          newUserID,
		Role:            core.RoleMember,
		SharePercentage: share,
	}
	if err := member.Validate(); err != nil {
		return nil, core.InvalidInputf("%v", err)
	}

	if err := s.store.AddMember(ctx, member); err != nil {
		if errors.Is(err, storage.ErrDuplicateMember) {
			return nil, core.InvalidInputf("user %s is already a member", newUserID)
		}
		return nil, core.PersistenceError(err)
	}
	slog.InfoContext(ctx, "Member added", "group_id", groupID, "user_id", newUserID, "by", actingUserID)
	return member, nil
}

// ExpenseInput is the caller-side description of a new shared expense. For
// equal splits the Splits field is ignored; for percentage and custom splits
// it must carry the full division.
type ExpenseInput struct {
	PaidByID    string
	Amount      core.Money
	Description string
	Category    string
	Date        time.Time
	SplitType   core.SplitType
	Splits      []core.Split
}

// AddExpense records a shared expense and its splits atomically. The acting
// user must be a member, as must the payer.
func (s *LedgerService) AddExpense(ctx context.Context, actingUserID, groupID string, input ExpenseInput) (*core.Expense, error) {
	if _, err := s.requireMembership(ctx, groupID, actingUserID); err != nil {
		return nil, err
	}

	if input.PaidByID == "" {
		input.PaidByID = actingUserID
	}

	expense := &core.Expense{
		GroupID:     groupID,
		PaidByID:    input.PaidByID,
		Amount:      input.Amount,
		Description: input.Description,
		Category:    input.Category,
		Date:        input.Date,
		SplitType:   input.SplitType,
	}
	if err := expense.Validate(); err != nil {
		return nil, core.InvalidInputf("%v", err)
	}

	members, err := s.store.FindGroupMembers(ctx, groupID)
	if err != nil {
		return nil, core.PersistenceError(err)
	}
	if !isMember(members, input.PaidByID) {
		return nil, core.InvalidInputf("payer %s is not a member of this group", input.PaidByID)
	}

	var splits []core.Split
	switch expense.SplitType {
	case core.SplitEqual:
		memberIDs := make([]string, len(members))
		for i, m := range members {
			memberIDs[i] = m.UserID
		}
		splits = ledger.SplitEqually(expense.Amount, memberIDs, expense.PaidByID)
	case core.SplitPercentage, core.SplitCustom:
		if len(input.Splits) == 0 {
			return nil, core.InvalidInputf("%s split requires explicit shares", expense.SplitType)
		}
		if err := ledger.ValidateSplits(expense.Amount, input.Splits, members); err != nil {
			return nil, err
		}
		splits = make([]core.Split, len(input.Splits))
		copy(splits, input.Splits)
		for i := range splits {
			splits[i].Paid = splits[i].UserID == expense.PaidByID
		}
	}

	if err := s.store.CreateExpenseWithSplits(ctx, expense, splits); err != nil {
		return nil, core.PersistenceError(err)
	}

	s.publish(ctx, amqp.KindGroupExpense, expense.ID)

	slog.InfoContext(ctx, "Shared expense recorded",
		"group_id", groupID,
		"expense_id", expense.ID,
		"amount_cents", expense.Amount.Cents,
		"split_type", expense.SplitType,
		"splits", len(splits))
	return expense, nil
}

// GetReport derives the group's full report: raw balances from the expense
// history, net balances with settlements applied, and suggested repayments
// for the remaining net debt. Members only.
func (s *LedgerService) GetReport(ctx context.Context, actingUserID, groupID string) (*core.GroupReport, error) {
	if _, err := s.requireMembership(ctx, groupID, actingUserID); err != nil {
		return nil, err
	}

	group, err := s.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, core.PersistenceError(err)
	}
	members, err := s.store.FindGroupMembers(ctx, groupID)
	if err != nil {
		return nil, core.PersistenceError(err)
	}
	expenses, err := s.store.FindGroupExpensesWithSplits(ctx, groupID)
	if err != nil {
		return nil, core.PersistenceError(err)
	}
	settlements, err := s.store.FindGroupSettlements(ctx, groupID)
	if err != nil {
		return nil, core.PersistenceError(err)
	}

	group.Members = members
	group.Expenses = expenses

	balances := ledger.ComputeBalances(members, expenses)
	net := ledger.ApplySettlements(balances, settlements)

	return &core.GroupReport{
		Group:       *group,
		Balances:    balances,
		NetBalances: net,
		Repayments:  ledger.SuggestRepayments(net),
	}, nil
}

// SettleDebt records a transfer from one member to another. The record is
// historical: it is stored already settled and only affects the report's net
// balances, never the raw expense-derived ones.
func (s *LedgerService) SettleDebt(ctx context.Context, actingUserID, groupID, fromUserID, toUserID string, amount core.Money) (*core.Settlement, error) {
	if _, err := s.requireMembership(ctx, groupID, actingUserID); err != nil {
		return nil, err
	}
	if err := amount.Validate(); err != nil {
		return nil, core.InvalidInputf("%v", err)
	}
	if fromUserID == toUserID {
		return nil, core.InvalidInputf("a settlement needs two distinct members")
	}

	for _, userID := range []string{fromUserID, toUserID} {
		m, err := s.store.FindGroupMembership(ctx, groupID, userID)
		if err != nil {
			return nil, core.PersistenceError(err)
		}
		if m == nil {
			return nil, core.InvalidInputf("user %s is not a member of this group", userID)
		}
	}

	settlement := &core.Settlement{
		GroupID:    groupID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Amount:     amount,
		Settled:    true,
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		return nil, core.PersistenceError(err)
	}

	s.publish(ctx, amqp.KindSettlement, settlement.ID)

	slog.InfoContext(ctx, "Settlement recorded",
		"group_id", groupID,
		"from", fromUserID,
		"to", toUserID,
		"amount_cents", amount.Cents)
	return settlement, nil
}

// requireMembership resolves the acting user's membership, mapping a missing
// group to NotFound and a non-member to Unauthorized.
func (s *LedgerService) requireMembership(ctx context.Context, groupID, userID string) (*core.Member, error) {
	if _, err := s.store.FindGroup(ctx, groupID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, core.NotFoundf("group %s not found", groupID)
		}
		return nil, core.PersistenceError(err)
	}

	member, err := s.store.FindGroupMembership(ctx, groupID, userID)
	if err != nil {
		return nil, core.PersistenceError(err)
	}
	if member == nil {
		return nil, core.Unauthorizedf("user is not a member of this group")
	}
	return member, nil
}

// publish pushes a sync pointer best-effort. Export lag is acceptable; a
// failed publish is picked up later by the worker's pending sweep.
func (s *LedgerService) publish(ctx context.Context, kind, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, kind, id); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event", "kind", kind, "id", id, "error", err)
	}
}

func isMember(members []core.Member, userID string) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
