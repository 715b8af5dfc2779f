package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"riyalmind/internal/core"
)

type personalExpenseJSON struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

func toPersonalExpenseJSON(e core.PersonalExpense) personalExpenseJSON {
	return personalExpenseJSON{
		ID:          e.ID,
		Date:        e.Date.Format("2006-01-02"),
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Amount:      e.Amount.String(),
		Category:    e.Category,
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Category    string `json:"category"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	date := time.Now()
	if v := strings.TrimSpace(req.Date); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	id, err := s.expenses.AddExpense(r.Context(), userID(r), core.PersonalExpense{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(req.Category),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	expenses, err := s.expenses.ListMonth(r.Context(), userID(r), year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]personalExpenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toPersonalExpenseJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthOverview(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	overview, err := s.expenses.MonthOverview(r.Context(), userID(r), year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type categoryJSON struct {
		Name        string `json:"name"`
		AmountCents int64  `json:"amount_cents"`
		Amount      string `json:"amount"`
	}
	resp := struct {
		Year       int            `json:"year"`
		Month      int            `json:"month"`
		TotalCents int64          `json:"total_cents"`
		Total      string         `json:"total"`
		ByCategory []categoryJSON `json:"by_category"`
	}{
		Year:       overview.Year,
		Month:      overview.Month,
		TotalCents: overview.Total.Cents,
		Total:      overview.Total.String(),
		ByCategory: make([]categoryJSON, 0, len(overview.ByCategory)),
	}
	for _, c := range overview.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryJSON{
			Name:        c.Name,
			AmountCents: c.Amount.Cents,
			Amount:      c.Amount.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.expenses.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// parseYearMonth extracts year and month from query parameters, defaulting to
// the current month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}
	return year, month
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
