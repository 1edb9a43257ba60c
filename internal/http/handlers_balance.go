package http

import (
	"errors"
	"net/http"

	"mywallet/internal/core"
)

const (
	msgBalanceCreated    = "Balance record created successfully"
	msgBalanceUpdated    = "Balance record updated successfully"
	msgBalanceDeleted    = "Balance record deleted successfully"
	msgBalanceReconciled = "Balance record reconciled successfully"
	msgBalanceNotNumeric = "Only numbers are accepted for the amount"
)

func (s *Server) registerBalanceRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /balance/create", s.handleBalanceCreate)
	mux.HandleFunc("GET /balance", s.handleBalanceList)
	mux.HandleFunc("GET /balance/{$}", s.handleBalanceList)
	mux.HandleFunc("GET /balance/user", s.handleBalanceByUser)
	mux.HandleFunc("GET /balance/{id}", s.handleBalanceGet)
	mux.HandleFunc("PUT /balance/update/{id}", s.handleBalanceUpdate)
	mux.HandleFunc("POST /balance/reconcile", s.handleBalanceReconcile)
	mux.HandleFunc("DELETE /balance/delete/{id}", s.handleBalanceDelete)
}

// handleBalanceCreate credits amount to the user's balance; the first call
// for a user creates the row.
func (s *Server) handleBalanceCreate(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	userID, amount := p.Get("userId"), p.Get("amount")
	if userID == "" || amount == "" {
		FromError(core.Validation(core.ErrEmptyFields)).Write(w, r)
		return
	}
	v, err := core.ParseAmount(amount)
	if err != nil {
		FromError(core.Validation(err)).Write(w, r)
		return
	}

	bal, err := s.svc.Balances.Create(r.Context(), userID, v)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgBalanceCreated).Data(bal).Write(w, r)
}

func (s *Server) handleBalanceList(w http.ResponseWriter, r *http.Request) {
	bals, err := s.svc.Balances.List(r.Context())
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(nonNil(bals)).Write(w, r)
}

func (s *Server) handleBalanceGet(w http.ResponseWriter, r *http.Request) {
	bal, err := s.svc.Balances.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(bal).Write(w, r)
}

func (s *Server) handleBalanceByUser(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := queryRange(q, s.opts.Location)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	bals, err := s.svc.Balances.ByUser(r.Context(), q.Get("userId"), from, to)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(nonNil(bals)).Write(w, r)
}

// handleBalanceUpdate overwrites the balance with an absolute amount.
func (s *Server) handleBalanceUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	v, err := core.ParseAmount(p.Get("amount"))
	switch {
	case errors.Is(err, core.ErrNotNumeric):
		Failed(msgBalanceNotNumeric).Write(w, r)
		return
	case err != nil:
		FromError(core.Validation(err)).Write(w, r)
		return
	}

	bal, err := s.svc.Balances.Update(r.Context(), r.PathValue("id"), v)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgBalanceUpdated).Data(bal).Write(w, r)
}

// handleBalanceReconcile recomputes the balance from the user's
// transactions. The applied correction is reported as totalAmount.
func (s *Server) handleBalanceReconcile(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		if p, err := parseBody(w, r); err == nil {
			userID = p.Get("userId")
		}
	}
	bal, diff, err := s.svc.Balances.Reconcile(r.Context(), userID)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgBalanceReconciled).Data(bal).TotalAmount(diff).Write(w, r)
}

func (s *Server) handleBalanceDelete(w http.ResponseWriter, r *http.Request) {
	bal, err := s.svc.Balances.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgBalanceDeleted).Data(bal).Write(w, r)
}
