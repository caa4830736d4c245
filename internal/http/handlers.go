package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"

	"ledgerbook/internal/aggregate"
	"ledgerbook/internal/core"
	"ledgerbook/internal/services"
)

type (
	ledgerJSON struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Color  string `json:"color"`
		Active bool   `json:"active"`
	}

	transactionJSON struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Amount     int64  `json:"amount"`
		AmountText string `json:"amountText"`
		Date       string `json:"date"`
		Kind       string `json:"kind"`
		Category   string `json:"category"`
		Memo       string `json:"memo,omitempty"`
		LedgerID   string `json:"ledgerId"`
	}

	dayEntryJSON struct {
		transactionJSON
		LedgerName  string `json:"ledgerName"`
		LedgerColor string `json:"ledgerColor"`
	}

	dayJSON struct {
		Date         string            `json:"date"`
		Income       int64             `json:"income"`
		Expense      int64             `json:"expense"`
		Net          int64             `json:"net"`
		IncomeText   string            `json:"incomeText"`
		ExpenseText  string            `json:"expenseText"`
		Transactions []transactionJSON `json:"transactions"`
	}

	statusJSON struct {
		Warnings  []string  `json:"warnings"`
		Rejected  int       `json:"rejected"`
		FetchedAt time.Time `json:"fetchedAt"`
	}

	ledgersResponse struct {
		Ledgers   []ledgerJSON `json:"ledgers"`
		AllActive bool         `json:"allActive"`
	}

	calendarResponse struct {
		UserID      string       `json:"userId"`
		Month       string       `json:"month"`
		Income      int64        `json:"income"`
		Expense     int64        `json:"expense"`
		IncomeText  string       `json:"incomeText"`
		ExpenseText string       `json:"expenseText"`
		Days        []dayJSON    `json:"days"`
		Ledgers     []ledgerJSON `json:"ledgers"`
		statusJSON
	}

	dayResponse struct {
		Date        string         `json:"date"`
		Income      int64          `json:"income"`
		Expense     int64          `json:"expense"`
		IncomeText  string         `json:"incomeText"`
		ExpenseText string         `json:"expenseText"`
		Entries     []dayEntryJSON `json:"entries"`
		statusJSON
	}

	budgetResponse struct {
		Ledger        ledgerJSON `json:"ledger"`
		Month         string     `json:"month"`
		Spent         int64      `json:"spent"`
		DaysElapsed   int        `json:"daysElapsed"`
		DaysInMonth   int        `json:"daysInMonth"`
		Projected     int64      `json:"projected"`
		Budget        int64      `json:"budget"`
		PercentUsed   int64      `json:"percentUsed"`
		Over          bool       `json:"over"`
		Excess        int64      `json:"excess"`
		Remaining     int64      `json:"remaining"`
		SpentText     string     `json:"spentText"`
		ProjectedText string     `json:"projectedText"`
		BudgetText    string     `json:"budgetText"`
		Message       string     `json:"message"`
		statusJSON
	}

	bookResponse struct {
		Search       string            `json:"search,omitempty"`
		Kind         string            `json:"kind,omitempty"`
		From         string            `json:"from,omitempty"`
		To           string            `json:"to,omitempty"`
		Count        int               `json:"count"`
		Transactions []transactionJSON `json:"transactions"`
		statusJSON
	}

	refreshResponse struct {
		UserID       string `json:"userId"`
		Ledgers      int    `json:"ledgers"`
		Transactions int    `json:"transactions"`
		statusJSON
	}
)

func (s *Server) handleLedgers(w http.ResponseWriter, r *http.Request) {
	ls, err := s.ledgers.Ledgers(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toLedgersResponse(ls)).Write(w)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	ls, err := s.ledgers.Toggle(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "ledgerID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toLedgersResponse(ls)).Write(w)
}

func (s *Server) handleToggleAll(w http.ResponseWriter, r *http.Request) {
	ls, err := s.ledgers.ToggleAll(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toLedgersResponse(ls)).Write(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	v, err := s.ledgers.Calendar(r.Context(), chi.URLParam(r, "userID"), sanitizeInput(r.URL.Query().Get("month")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := calendarResponse{
		UserID:      v.UserID,
		Month:       v.Month,
		Income:      v.IncomeTotal,
		Expense:     v.ExpenseTotal,
		IncomeText:  formatWon(v.IncomeTotal),
		ExpenseText: formatWon(v.ExpenseTotal),
		Days:        make([]dayJSON, 0, len(v.Days)),
		Ledgers:     toLedgerJSON(v.Ledgers),
		statusJSON:  toStatusJSON(v.Status),
	}
	for _, d := range v.Days {
		resp.Days = append(resp.Days, dayJSON{
			Date:         d.Date,
			Income:       d.IncomeTotal,
			Expense:      d.ExpenseTotal,
			Net:          d.Net(),
			IncomeText:   formatWon(d.IncomeTotal),
			ExpenseText:  formatWon(d.ExpenseTotal),
			Transactions: toTransactionJSON(d.Transactions),
		})
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	v, err := s.ledgers.Day(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := dayResponse{
		Date:        v.Date,
		Income:      v.IncomeTotal,
		Expense:     v.ExpenseTotal,
		IncomeText:  formatWon(v.IncomeTotal),
		ExpenseText: formatWon(v.ExpenseTotal),
		Entries:     make([]dayEntryJSON, 0, len(v.Entries)),
		statusJSON:  toStatusJSON(v.Status),
	}
	for _, e := range v.Entries {
		resp.Entries = append(resp.Entries, dayEntryJSON{
			transactionJSON: toTransaction(e.Transaction),
			LedgerName:      e.LedgerName,
			LedgerColor:     e.LedgerColor,
		})
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	ceiling, err := parseBudget(r, s.defaultBudget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	v, err := s.ledgers.Budget(r.Context(), chi.URLParam(r, "userID"), sanitizeInput(q.Get("ledger")), sanitizeInput(q.Get("month")), ceiling)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(budgetResponse{
		Ledger:        toLedger(v.Ledger),
		Month:         v.MonthKey,
		Spent:         v.SpentToDate,
		DaysElapsed:   v.DaysElapsed,
		DaysInMonth:   v.DaysInMonth,
		Projected:     v.ProjectedTotal,
		Budget:        v.BudgetCeiling,
		PercentUsed:   v.PercentUsed,
		Over:          v.IsOverProjected,
		Excess:        v.Excess(),
		Remaining:     v.Remaining(),
		SpentText:     formatWon(v.SpentToDate),
		ProjectedText: formatWon(v.ProjectedTotal),
		BudgetText:    formatWon(v.BudgetCeiling),
		Message:       budgetMessage(v.BudgetProjection),
		statusJSON:    toStatusJSON(v.Status),
	}).Write(w)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := aggregate.BookFilter{
		Search: sanitizeInput(q.Get("q")),
		Kind:   core.Kind(strings.ToUpper(sanitizeInput(q.Get("kind")))),
		From:   sanitizeInput(q.Get("from")),
		To:     sanitizeInput(q.Get("to")),
	}
	v, err := s.ledgers.Book(r.Context(), chi.URLParam(r, "userID"), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(bookResponse{
		Search:       v.Filter.Search,
		Kind:         string(v.Filter.Kind),
		From:         v.Filter.From,
		To:           v.Filter.To,
		Count:        len(v.Transactions),
		Transactions: toTransactionJSON(v.Transactions),
		statusJSON:   toStatusJSON(v.Status),
	}).Write(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledgers.Refresh(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(refreshResponse{
		UserID:       res.UserID,
		Ledgers:      len(res.Memberships) + 1,
		Transactions: len(res.Transactions),
		statusJSON:   toStatusJSON(services.StatusOf(res)),
	}).Write(w)
}

func budgetMessage(p core.BudgetProjection) string {
	if p.IsOverProjected {
		return "예상 지출액이 예산을 " + formatWon(p.Excess()) + " 초과할 것으로 보입니다."
	}
	return "현재 속도라면 예산 내에서 완주 가능합니다."
}

func toLedger(l core.Ledger) ledgerJSON {
	return ledgerJSON{ID: l.ID, Name: l.DisplayName, Color: l.Color, Active: l.IsActive}
}

func toLedgerJSON(ls []core.Ledger) []ledgerJSON {
	out := make([]ledgerJSON, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLedger(l))
	}
	return out
}

func toLedgersResponse(ls []core.Ledger) ledgersResponse {
	all := len(ls) > 0
	for _, l := range ls {
		all = all && l.IsActive
	}
	return ledgersResponse{Ledgers: toLedgerJSON(ls), AllActive: all}
}

func toTransaction(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:         t.ID,
		Title:      t.Title,
		Amount:     t.Amount,
		AmountText: formatWon(t.Amount),
		Date:       t.Date,
		Kind:       string(t.Kind),
		Category:   t.Category,
		Memo:       t.Memo,
		LedgerID:   t.LedgerID,
	}
}

func toTransactionJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransaction(t))
	}
	return out
}

func toStatusJSON(st services.Status) statusJSON {
	w := st.Warnings
	if w == nil {
		w = []string{}
	}
	return statusJSON{Warnings: w, Rejected: st.Rejected, FetchedAt: st.FetchedAt}
}
