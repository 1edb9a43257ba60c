package http

import (
	"net/http"

	"mywallet/internal/core"
	"mywallet/internal/services"
)

const (
	msgTxCreated = "Transaction record created successfully"
	msgTxUpdated = "Transaction record updated successfully"
	msgTxDeleted = "Transaction record deleted successfully"
)

// registerTransactionRoutes mounts the ledger routes under prefix. A
// non-empty typ pins every route to income or expense records; with an
// empty typ the type comes from the request.
func (s *Server) registerTransactionRoutes(mux *http.ServeMux, prefix string, typ core.TransactionType) {
	h := &transactionHandlers{s: s, typ: typ}
	mux.HandleFunc("POST "+prefix+"/create", h.create)
	mux.HandleFunc("GET "+prefix, h.list)
	mux.HandleFunc("GET "+prefix+"/{$}", h.list)
	mux.HandleFunc("GET "+prefix+"/user", h.byUser)
	mux.HandleFunc("GET "+prefix+"/daily", h.daily)
	mux.HandleFunc("GET "+prefix+"/period/{period}", h.byPeriod)
	mux.HandleFunc("GET "+prefix+"/category/{period}", h.byCategory)
	mux.HandleFunc("GET "+prefix+"/{id}", h.get)
	mux.HandleFunc("PUT "+prefix+"/update/{id}", h.update)
	mux.HandleFunc("DELETE "+prefix+"/delete/{id}", h.delete)
}

type transactionHandlers struct {
	s   *Server
	typ core.TransactionType
}

// typeFilter returns the type a read is restricted to: the pinned type, or
// the "type" query parameter on the generic routes.
func (h *transactionHandlers) typeFilter(r *http.Request) string {
	if h.typ != "" {
		return string(h.typ)
	}
	return r.URL.Query().Get("type")
}

func (h *transactionHandlers) create(w http.ResponseWriter, r *http.Request) {
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}

	t := core.Transaction{
		UserID:        p.Get("userId"),
		Type:          h.typ,
		Category:      p.Get("category"),
		PaymentMethod: p.Get("paymentMethod"),
		Note:          p.Get("note"),
	}
	if h.typ == "" {
		t.Type = core.TransactionType(p.Get("type"))
	}

	amount, date := p.Get("amount"), p.Get("date")
	if amount == "" || date == "" || t.UserID == "" || t.Category == "" || t.PaymentMethod == "" || t.Type == "" {
		FromError(core.Validation(core.ErrEmptyFields)).Write(w, r)
		return
	}
	if t.Amount, err = core.ParseAmount(amount); err != nil {
		FromError(core.Validation(err)).Write(w, r)
		return
	}
	if t.Date, err = core.ParseDate(date, h.s.opts.Location); err != nil {
		FromError(core.Validation(core.ErrInvalidDate)).Write(w, r)
		return
	}

	created, err := h.s.svc.Transactions.Create(r.Context(), t)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgTxCreated).Data(created).Write(w, r)
}

func (h *transactionHandlers) list(w http.ResponseWriter, r *http.Request) {
	typ, err := h.pinnedOrQueryType(r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	txs, err := h.s.svc.Transactions.List(r.Context(), typ)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(nonNil(txs)).Write(w, r)
}

func (h *transactionHandlers) get(w http.ResponseWriter, r *http.Request) {
	t, err := h.s.svc.Transactions.Get(r.Context(), r.PathValue("id"), h.typ)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(t).Write(w, r)
}

func (h *transactionHandlers) byUser(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ, err := h.pinnedOrQueryType(r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	from, to, err := queryRange(q, h.s.opts.Location)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	txs, err := h.s.svc.Transactions.ListByUser(r.Context(), q.Get("userId"), typ, from, to)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(nonNil(txs)).Write(w, r)
}

func (h *transactionHandlers) periodQuery(r *http.Request) services.PeriodQuery {
	q := r.URL.Query()
	return services.PeriodQuery{
		UserID: q.Get("userId"),
		Period: r.PathValue("period"),
		Month:  q.Get("month"),
		Year:   q.Get("year"),
		Type:   h.typeFilter(r),
	}
}

func (h *transactionHandlers) byPeriod(w http.ResponseWriter, r *http.Request) {
	res, err := h.s.svc.Transactions.ByPeriod(r.Context(), h.periodQuery(r))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(nonNil(res.Transactions)).TotalAmount(res.TotalAmount).Write(w, r)
}

func (h *transactionHandlers) byCategory(w http.ResponseWriter, r *http.Request) {
	totals, err := h.s.svc.Transactions.ByCategory(r.Context(), h.periodQuery(r))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(nonNil(totals)).Write(w, r)
}

func (h *transactionHandlers) daily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	totals, err := h.s.svc.Transactions.Daily(r.Context(), q.Get("userId"), q.Get("month"), q.Get("year"), h.typeFilter(r))
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Data(nonNil(totals)).Write(w, r)
}

func (h *transactionHandlers) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := parseBody(w, r)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	patch, err := h.patchFrom(p)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	if h.typ != "" {
		if _, err := h.s.svc.Transactions.Get(r.Context(), id, h.typ); err != nil {
			FromError(err).Write(w, r)
			return
		}
	}

	updated, err := h.s.svc.Transactions.Update(r.Context(), id, patch)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgTxUpdated).Data(updated).Write(w, r)
}

func (h *transactionHandlers) patchFrom(p *RequestBodyParser) (services.TransactionPatch, error) {
	patch := services.TransactionPatch{
		Category:      p.String("category"),
		PaymentMethod: p.String("paymentMethod"),
		Note:          p.String("note"),
	}
	var err error
	if patch.Amount, err = p.Amount("amount"); err != nil {
		return services.TransactionPatch{}, core.Validation(err)
	}
	if patch.Date, err = p.Date("date", h.s.opts.Location); err != nil {
		return services.TransactionPatch{}, core.Validation(core.ErrInvalidDate)
	}
	if h.typ == "" && p.Has("type") {
		typ, err := core.ParseTransactionType(p.Get("type"))
		if err != nil {
			return services.TransactionPatch{}, core.Validation(err)
		}
		patch.Type = &typ
	}
	return patch, nil
}

func (h *transactionHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.typ != "" {
		if _, err := h.s.svc.Transactions.Get(r.Context(), id, h.typ); err != nil {
			FromError(err).Write(w, r)
			return
		}
	}
	deleted, err := h.s.svc.Transactions.Delete(r.Context(), id)
	if err != nil {
		FromError(err).Write(w, r)
		return
	}
	Success().Message(msgTxDeleted).Data(deleted).Write(w, r)
}

// pinnedOrQueryType resolves the type filter of list reads; an empty or
// "all" query means both types.
func (h *transactionHandlers) pinnedOrQueryType(r *http.Request) (core.TransactionType, error) {
	v := h.typeFilter(r)
	if v == "" || v == core.CategoryAll {
		return "", nil
	}
	typ, err := core.ParseTransactionType(v)
	if err != nil {
		return "", core.Validation(err)
	}
	return typ, nil
}
