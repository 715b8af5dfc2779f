// Package storage provides the SQLite persistence layer for users, groups,
// the group expense ledger and personal expenses.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"riyalmind/internal/core"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateMember is returned when (group_id, user_id) already exists.
	ErrDuplicateMember = errors.New("user is already a member of this group")
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser inserts a new user, generating ID and CreatedAt when unset.
func (r *SQLiteRepository) CreateUser(ctx context.Context, user *core.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns (nil, nil) when no user has the given email.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	user := &core.User{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0)
	return user, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	user := &core.User{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	user.CreatedAt = time.Unix(createdAt, 0)
	return user, nil
}

// CreateGroupWithAdmin inserts the group and its creating admin member in a
// single transaction. The admin is seeded with a 100% share.
func (r *SQLiteRepository) CreateGroupWithAdmin(ctx context.Context, group *core.Group, adminUserID string) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now()
	}
	group.CreatedBy = adminUserID

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, type, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, string(group.Type), group.CreatedBy, group.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	admin := core.Member{
		ID:              uuid.New().String(),
		GroupID:         group.ID,
		UserID:          adminUserID,
		Role:            core.RoleAdmin,
		SharePercentage: 100,
		JoinedAt:        group.CreatedAt,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_members (id, group_id, user_id, role, share_percentage, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		admin.ID, admin.GroupID, admin.UserID, string(admin.Role), admin.SharePercentage, admin.JoinedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert admin member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	group.Members = []core.Member{admin}
	return nil
}

func (r *SQLiteRepository) FindGroup(ctx context.Context, groupID string) (*core.Group, error) {
	group := &core.Group{}
	var groupType string
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, type, created_by, created_at FROM groups WHERE id = ?`,
		groupID,
	).Scan(&group.ID, &group.Name, &group.Description, &groupType, &group.CreatedBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	group.Type = core.GroupType(groupType)
	group.CreatedAt = time.Unix(createdAt, 0)
	return group, nil
}

func (r *SQLiteRepository) FindGroupMembers(ctx context.Context, groupID string) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, user_id, role, share_percentage, joined_at
		 FROM group_members WHERE group_id = ? ORDER BY joined_at, id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		var role string
		var joinedAt int64
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &role, &m.SharePercentage, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Role = core.MemberRole(role)
		m.JoinedAt = time.Unix(joinedAt, 0)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// FindGroupMembership returns (nil, nil) when the user is not a member.
func (r *SQLiteRepository) FindGroupMembership(ctx context.Context, groupID, userID string) (*core.Member, error) {
	m := &core.Member{}
	var role string
	var joinedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, user_id, role, share_percentage, joined_at
		 FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	).Scan(&m.ID, &m.GroupID, &m.UserID, &role, &m.SharePercentage, &joinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	m.Role = core.MemberRole(role)
	m.JoinedAt = time.Unix(joinedAt, 0)
	return m, nil
}

// AddMember inserts a membership row. The (group_id, user_id) uniqueness
// constraint turns repeated invites into ErrDuplicateMember.
func (r *SQLiteRepository) AddMember(ctx context.Context, member *core.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	if member.Role == "" {
		member.Role = core.RoleMember
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (id, group_id, user_id, role, share_percentage, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID, member.GroupID, member.UserID, string(member.Role), member.SharePercentage, member.JoinedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateMember
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// CreateExpenseWithSplits writes the expense and all of its splits in one
// transaction so a reader never observes a headless split set.
func (r *SQLiteRepository) CreateExpenseWithSplits(ctx context.Context, expense *core.Expense, splits []core.Split) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}
	if expense.Date.IsZero() {
		expense.Date = expense.CreatedAt
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_expenses (id, group_id, paid_by, amount_cents, description, category, date, split_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.PaidByID, expense.Amount.Cents,
		expense.Description, expense.Category, expense.Date.Unix(), string(expense.SplitType), expense.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	for i := range splits {
		s := &splits[i]
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		s.ExpenseID = expense.ID
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_splits (id, expense_id, user_id, amount_cents, paid)
			 VALUES (?, ?, ?, ?, ?)`,
			s.ID, s.ExpenseID, s.UserID, s.Amount.Cents, s.Paid,
		)
		if err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	expense.Splits = splits
	return nil
}

// FindGroupExpensesWithSplits returns the group's expenses most-recent-first
// by date, each with its full split set.
func (r *SQLiteRepository) FindGroupExpensesWithSplits(ctx context.Context, groupID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, paid_by, amount_cents, description, category, date, split_type, created_at
		 FROM group_expenses WHERE group_id = ? ORDER BY date DESC, created_at DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("query group expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var splitType string
		var date, createdAt int64
		if err := rows.Scan(&e.ID, &e.GroupID, &e.PaidByID, &e.Amount.Cents,
			&e.Description, &e.Category, &date, &splitType, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.SplitType = core.SplitType(splitType)
		e.Date = time.Unix(date, 0)
		e.CreatedAt = time.Unix(createdAt, 0)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	for i := range expenses {
		splits, err := r.findExpenseSplits(ctx, expenses[i].ID)
		if err != nil {
			return nil, err
		}
		expenses[i].Splits = splits
	}
	return expenses, nil
}

func (r *SQLiteRepository) findExpenseSplits(ctx context.Context, expenseID string) ([]core.Split, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, expense_id, user_id, amount_cents, paid
		 FROM expense_splits WHERE expense_id = ? ORDER BY user_id`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query expense splits: %w", err)
	}
	defer rows.Close()

	var splits []core.Split
	for rows.Next() {
		var s core.Split
		if err := rows.Scan(&s.ID, &s.ExpenseID, &s.UserID, &s.Amount.Cents, &s.Paid); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		splits = append(splits, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate splits: %w", err)
	}
	return splits, nil
}

// CreateSettlement records a settlement, generating ID and timestamps when
// unset.
func (r *SQLiteRepository) CreateSettlement(ctx context.Context, settlement *core.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt.IsZero() {
		settlement.CreatedAt = time.Now()
	}
	var settledAt any
	if settlement.Settled {
		if settlement.SettledAt.IsZero() {
			settlement.SettledAt = settlement.CreatedAt
		}
		settledAt = settlement.SettledAt.Unix()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, from_user_id, to_user_id, amount_cents, settled, settled_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.GroupID, settlement.FromUserID, settlement.ToUserID,
		settlement.Amount.Cents, settlement.Settled, settledAt, settlement.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindGroupSettlements(ctx context.Context, groupID string) ([]core.Settlement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, from_user_id, to_user_id, amount_cents, settled, settled_at, created_at
		 FROM settlements WHERE group_id = ? ORDER BY created_at DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("query settlements: %w", err)
	}
	defer rows.Close()

	var settlements []core.Settlement
	for rows.Next() {
		var s core.Settlement
		var settledAt sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&s.ID, &s.GroupID, &s.FromUserID, &s.ToUserID,
			&s.Amount.Cents, &s.Settled, &settledAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		if settledAt.Valid {
			s.SettledAt = time.Unix(settledAt.Int64, 0)
		}
		s.CreatedAt = time.Unix(createdAt, 0)
		settlements = append(settlements, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}
	return settlements, nil
}

// AppendPersonalExpense stores a private expense and returns its row ID.
func (r *SQLiteRepository) AppendPersonalExpense(ctx context.Context, e core.PersonalExpense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO personal_expenses (user_id, year, month, day, description, amount_cents, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Date.Year(), int(e.Date.Month()), e.Date.Day(),
		e.Description, e.Amount.Cents, e.Category, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert personal expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("personal expense id: %w", err)
	}

	slog.InfoContext(ctx, "Personal expense saved",
		"id", id,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)
	return id, nil
}

func (r *SQLiteRepository) GetPersonalExpense(ctx context.Context, id int64) (*core.PersonalExpense, error) {
	var e core.PersonalExpense
	var year, month, day int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, year, month, day, description, amount_cents, category
		 FROM personal_expenses WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.UserID, &year, &month, &day, &e.Description, &e.Amount.Cents, &e.Category)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("personal expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get personal expense: %w", err)
	}
	e.Date = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &e, nil
}

func (r *SQLiteRepository) ListPersonalExpenses(ctx context.Context, userID string, year, month int) ([]core.PersonalExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, year, month, day, description, amount_cents, category
		 FROM personal_expenses WHERE user_id = ? AND year = ? AND month = ?
		 ORDER BY day DESC, id DESC`,
		userID, year, month,
	)
	if err != nil {
		return nil, fmt.Errorf("query personal expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.PersonalExpense
	for rows.Next() {
		var e core.PersonalExpense
		var y, m, d int
		if err := rows.Scan(&e.ID, &e.UserID, &y, &m, &d, &e.Description, &e.Amount.Cents, &e.Category); err != nil {
			return nil, fmt.Errorf("scan personal expense: %w", err)
		}
		e.Date = time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personal expenses: %w", err)
	}
	return expenses, nil
}

// ReadMonthOverview aggregates a user's spending for a month, total and
// per-category.
func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM personal_expenses
		 WHERE user_id = ? AND year = ? AND month = ?`,
		userID, year, month,
	).Scan(&overview.Total.Cents)
	if err != nil {
		return overview, fmt.Errorf("month total: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) AS total FROM personal_expenses
		 WHERE user_id = ? AND year = ? AND month = ?
		 GROUP BY category ORDER BY total DESC`,
		userID, year, month,
	)
	if err != nil {
		return overview, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return overview, fmt.Errorf("scan category sum: %w", err)
		}
		overview.ByCategory = append(overview.ByCategory, ca)
	}
	if err := rows.Err(); err != nil {
		return overview, fmt.Errorf("iterate category sums: %w", err)
	}
	return overview, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}
