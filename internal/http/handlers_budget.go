package http

import (
	"errors"
	"net/http"
	"time"

	"mywallet/internal/core"
	"mywallet/internal/services"
)

const (
	msgBudgetCreated      = "Budget record created successfully"
	msgBudgetUpdated      = "Budget record updated successfully"
	msgBudgetSpentUpdated = "Budget spent amount updated successfully"
	msgBudgetDeleted      = "Budget record deleted successfully"
)

func (s *Server) registerBudgetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /budget/create", s.handleBudgetCreate)
	mux.HandleFunc("GET /budget", s.handleBudgetList)
	mux.HandleFunc("GET /budget/{$}", s.handleBudgetList)
	mux.HandleFunc("GET /budget/active", s.handleBudgetActive)
	mux.HandleFunc("GET /budget/{userId}", s.handleBudgetByUser)
	mux.HandleFunc("PUT /budget/update/{id}", s.handleBudgetUpdate)
	mux.HandleFunc("DELETE /budget/delete/{id}", s.handleBudgetDelete)
}

// budgetAmounts parses amount and the optional spentAmount. Any non-numeric
// value is reported with the combined budget message.
func budgetAmounts(p *RequestBodyParser) (amount, spent *int64, err error) {
	if amount, err = p.Amount("amount"); err != nil && !errors.Is(err, core.ErrEmptyFields) {
		return nil, nil, core.Validation(core.ErrBudgetNotNumeric)
	}
	if err != nil {
		return nil, nil, core.Validation(core.ErrEmptyFields)
	}
	if spent, err = p.Amount("spentAmount"); err != nil && !errors.Is(err, core.ErrEmptyFields) {
		return nil, nil, core.Validation(core.ErrBudgetNotNumeric)
	}
	return amount, spent, nil
}

func budgetDates(p *RequestBodyParser, loc *time.Location) (start, end *time.Time, err error) {
	if start, err = p.Date("startDate", loc); err != nil {
		return nil, nil, core.Validation(core.ErrInvalidDate)
	}
	if end, err = p.Date("endDate", loc); err != nil {
		return nil, nil, core.Validation(core.ErrInvalidDate)
	}
	return start, end, nil
}

func (s *Server) handleBudgetCreate(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	if p.Get("userId") == "" || p.Get("category") == "" || p.Get("amount") == "" ||
		p.Get("startDate") == "" || p.Get("endDate") == "" {
		FromError(core.Validation(core.ErrEmptyFields)).Write(w, r)
		return
	}
	amount, spent, err := budgetAmounts(p)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	start, end, err := budgetDates(p, s.opts.Location)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}

	b := core.Budget{
		UserID:    p.Get("userId"),
		Category:  p.Get("category"),
		Amount:    *amount,
		StartDate: *start,
		EndDate:   *end,
		Note:      p.Get("note"),
	}
	if spent != nil {
		b.SpentAmount = *spent
	}
	created, err := s.svc.Budgets.Create(r.Context(), b)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgBudgetCreated).Data(created).Write(w, r)
}

func (s *Server) handleBudgetList(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Budgets.List(r.Context())
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(nonNil(budgets)).Write(w, r)
}

func (s *Server) handleBudgetByUser(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Budgets.ListByUser(r.Context(), r.PathValue("userId"))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(budgets).Write(w, r)
}

func (s *Server) handleBudgetActive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	budgets, err := s.svc.Budgets.Active(r.Context(), q.Get("userId"), q.Get("category"))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(nonNil(budgets)).Write(w, r)
}

// handleBudgetUpdate amends a budget. With updateSpentAmountOnly set only
// spentAmount is read and stored.
func (s *Server) handleBudgetUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}

	if p.Bool("updateSpentAmountOnly") {
		spent, err := core.ParseAmount(p.Get("spentAmount"))
		if err != nil {
			FromError(core.Validation(core.ErrSpentAmountNotValid)).Write(w, r)
			return
		}
		b, err := s.svc.Budgets.UpdateSpent(r.Context(), id, spent)
		if err != nil {
			FromError(err).Write(w, r)
			return
		}
		Success().Message(msgBudgetSpentUpdated).Data(b).Write(w, r)
		return
	}

	if p.Get("category") == "" || p.Get("amount") == "" || p.Get("startDate") == "" || p.Get("endDate") == "" {
		FromError(core.Validation(core.ErrEmptyFields)).Write(w, r)
		return
	}
	amount, spent, err := budgetAmounts(p)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	start, end, err := budgetDates(p, s.opts.Location)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}

	b, err := s.svc.Budgets.Update(r.Context(), id, services.BudgetPatch{
		Category:    p.String("category"),
		Amount:      amount,
		SpentAmount: spent,
		StartDate:   start,
		EndDate:     end,
		Note:        p.String("note"),
	})
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgBudgetUpdated).Data(b).Write(w, r)
}

func (s *Server) handleBudgetDelete(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Budgets.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgBudgetDeleted).Data(b).Write(w, r)
}
