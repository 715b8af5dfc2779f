package core

import (
	"errors"
	"strings"
	"time"
)

const (
	GroupFamily    GroupType = "family"
	GroupFriends   GroupType = "friends"
	GroupRoommates GroupType = "roommates"
)

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

const (
	SplitEqual      SplitType = "equal"
	SplitPercentage SplitType = "percentage"
	SplitCustom     SplitType = "custom"
)

type (
	GroupType  string
	MemberRole string
	SplitType  string

	Money struct {
		Cents int64
	}

	// User is a registered account. Every acting identity in the ledger is a
	// user ID taken from the authenticated session.
	User struct {
		ID           string
		Email        string
		DisplayName  string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Group is a set of users sharing expenses. The creating user is seeded
	// as its first admin member atomically with the group itself.
	Group struct {
		ID          string
		Name        string
		Description string
		Type        GroupType
		CreatedBy   string
		CreatedAt   time.Time
		Members     []Member
		Expenses    []Expense
	}

	// Member is a user's membership record in a group. SharePercentage is
	// informational weighting only; the equal-split computation ignores it.
	Member struct {
		ID              string
		GroupID         string
		UserID          string
		Role            MemberRole
		SharePercentage float64
		JoinedAt        time.Time
	}

	// Expense is a single payment fronted by one member on behalf of the
	// group, divided into Splits. Append-only once recorded.
	Expense struct {
		ID          string
		GroupID     string
		PaidByID    string
		Amount      Money
		Description string
		Category    string
		Date        time.Time
		SplitType   SplitType
		CreatedAt   time.Time
		Splits      []Split
	}

	// Split is one member's portion of an expense. Paid is true only for the
	// payer's own share, which they covered by fronting the whole amount.
	Split struct {
		ID        string
		ExpenseID string
		UserID    string
		Amount    Money
		Paid      bool
	}

	// Settlement records a transfer between two members intended to offset a
	// balance. It is a historical record, created already settled.
	Settlement struct {
		ID         string
		GroupID    string
		FromUserID string
		ToUserID   string
		Amount     Money
		Settled    bool
		SettledAt  time.Time
		CreatedAt  time.Time
	}

	// PersonalExpense is a private expense outside any group, the original
	// single-user tracking feature.
	PersonalExpense struct {
		ID          int64
		UserID      string
		Date        time.Time
		Description string
		Amount      Money
		Category    string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidGroupType = errors.New("invalid group type")
	ErrInvalidSplitType = errors.New("invalid split type")
	ErrInvalidShare     = errors.New("share percentage must be between 0 and 100")
)

func (t GroupType) Valid() bool {
	switch t {
	case GroupFamily, GroupFriends, GroupRoommates:
		return true
	}
	return false
}

func (t SplitType) Valid() bool {
	switch t {
	case SplitEqual, SplitPercentage, SplitCustom:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (g Group) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if len(g.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if !g.Type.Valid() {
		return ErrInvalidGroupType
	}
	return nil
}

func (m Member) Validate() error {
	if m.SharePercentage < 0 || m.SharePercentage > 100 {
		return ErrInvalidShare
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.SplitType.Valid() {
		return ErrInvalidSplitType
	}
	return nil
}

func (p PersonalExpense) Validate() error {
	if p.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if len(strings.TrimSpace(p.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(p.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return p.Amount.Validate()
}

// IsAdmin reports whether the membership carries the admin role.
func (m Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}
