package http

import (
	"net/http"
	"strings"
	"time"

	"riyalmind/internal/core"
	"riyalmind/internal/service"
)

type memberJSON struct {
	UserID          string  `json:"user_id"`
	Role            string  `json:"role"`
	SharePercentage float64 `json:"share_percentage"`
}

type groupJSON struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        string       `json:"type"`
	CreatedBy   string       `json:"created_by"`
	Members     []memberJSON `json:"members,omitempty"`
}

type splitJSON struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Paid        bool   `json:"paid"`
}

type groupExpenseJSON struct {
	ID          string      `json:"id"`
	PaidBy      string      `json:"paid_by"`
	AmountCents int64       `json:"amount_cents"`
	Amount      string      `json:"amount"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category,omitempty"`
	Date        string      `json:"date"`
	SplitType   string      `json:"split_type"`
	Splits      []splitJSON `json:"splits"`
}

func toGroupJSON(g *core.Group) groupJSON {
	out := groupJSON{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Type:        string(g.Type),
		CreatedBy:   g.CreatedBy,
	}
	for _, m := range g.Members {
		out.Members = append(out.Members, memberJSON{
			UserID:          m.UserID,
			Role:            string(m.Role),
			SharePercentage: m.SharePercentage,
		})
	}
	return out
}

func toGroupExpenseJSON(e core.Expense) groupExpenseJSON {
	out := groupExpenseJSON{
		ID:          e.ID,
		PaidBy:      e.PaidByID,
		AmountCents: e.Amount.Cents,
		Amount:      e.Amount.String(),
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date.Format("2006-01-02"),
		SplitType:   string(e.SplitType),
		Splits:      make([]splitJSON, 0, len(e.Splits)),
	}
	for _, sp := range e.Splits {
		out.Splits = append(out.Splits, splitJSON{
			UserID:      sp.UserID,
			AmountCents: sp.Amount.Cents,
			Amount:      sp.Amount.String(),
			Paid:        sp.Paid,
		})
	}
	return out
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := s.ledger.CreateGroup(r.Context(), userID(r),
		sanitizeInput(req.Name), sanitizeInput(req.Description), core.GroupType(req.Type))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupJSON(group))
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID          string  `json:"user_id"`
		SharePercentage float64 `json:"share_percentage"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}

	member, err := s.ledger.AddMember(r.Context(), userID(r), r.PathValue("id"), req.UserID, req.SharePercentage)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, memberJSON{
		UserID:          member.UserID,
		Role:            string(member.Role),
		SharePercentage: member.SharePercentage,
	})
}

func (s *Server) handleAddGroupExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaidBy      string `json:"paid_by"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Date        string `json:"date"`
		SplitType   string `json:"split_type"`
		Splits      []struct {
			UserID string `json:"user_id"`
			Amount string `json:"amount"`
		} `json:"splits"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	input := service.ExpenseInput{
		PaidByID:    strings.TrimSpace(req.PaidBy),
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
		SplitType:   core.SplitType(req.SplitType),
	}
	if input.SplitType == "" {
		input.SplitType = core.SplitEqual
	}
	if v := strings.TrimSpace(req.Date); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD")
			return
		}
		input.Date = parsed
	}
	for _, sp := range req.Splits {
		spCents, err := core.ParseDecimalToCents(sp.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid split amount")
			return
		}
		input.Splits = append(input.Splits, core.Split{
			UserID: sp.UserID,
			Amount: core.Money{Cents: spCents},
		})
	}

	expense, err := s.ledger.AddExpense(r.Context(), userID(r), r.PathValue("id"), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupExpenseJSON(*expense))
}

func (s *Server) handleGroupReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.ledger.GetReport(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type repaymentJSON struct {
		From        string `json:"from"`
		To          string `json:"to"`
		AmountCents int64  `json:"amount_cents"`
		Amount      string `json:"amount"`
	}
	resp := struct {
		Group       groupJSON          `json:"group"`
		Expenses    []groupExpenseJSON `json:"expenses"`
		Balances    map[string]int64   `json:"balances"`
		NetBalances map[string]int64   `json:"net_balances"`
		Repayments  []repaymentJSON    `json:"repayments"`
	}{
		Group:       toGroupJSON(&report.Group),
		Expenses:    make([]groupExpenseJSON, 0, len(report.Group.Expenses)),
		Balances:    make(map[string]int64, len(report.Balances)),
		NetBalances: make(map[string]int64, len(report.NetBalances)),
		Repayments:  make([]repaymentJSON, 0, len(report.Repayments)),
	}
	for _, e := range report.Group.Expenses {
		resp.Expenses = append(resp.Expenses, toGroupExpenseJSON(e))
	}
	for uid, b := range report.Balances {
		resp.Balances[uid] = b.Cents
	}
	for uid, b := range report.NetBalances {
		resp.NetBalances[uid] = b.Cents
	}
	for _, rp := range report.Repayments {
		resp.Repayments = append(resp.Repayments, repaymentJSON{
			From:        rp.FromUserID,
			To:          rp.ToUserID,
			AmountCents: rp.Amount.Cents,
			Amount:      rp.Amount.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSettleDebt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromUserID string `json:"from_user_id"`
		ToUserID   string `json:"to_user_id"`
		Amount     string `json:"amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	settlement, err := s.ledger.SettleDebt(r.Context(), userID(r), r.PathValue("id"),
		strings.TrimSpace(req.FromUserID), strings.TrimSpace(req.ToUserID), core.Money{Cents: cents})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		ID          string `json:"id"`
		From        string `json:"from"`
		To          string `json:"to"`
		AmountCents int64  `json:"amount_cents"`
		Amount      string `json:"amount"`
		Settled     bool   `json:"settled"`
		SettledAt   string `json:"settled_at"`
	}{
		ID:          settlement.ID,
		From:        settlement.FromUserID,
		To:          settlement.ToUserID,
		AmountCents: settlement.Amount.Cents,
		Amount:      settlement.Amount.String(),
		Settled:     settlement.Settled,
		SettledAt:   settlement.SettledAt.Format(time.RFC3339),
	})
}
