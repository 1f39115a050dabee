package http

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"finsight/internal/api"
	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/reqstate"
)

const transactionListTarget = "transaction-list"

// transactionList backs the "transaction_list" template.
type transactionList struct {
	State  reqstate.State[core.Page[core.Transaction]]
	Filter TransactionFilter
}

func (l transactionList) PageURL(page int) string {
	return "/transactions?" + l.Filter.WithPage(page).Query().Encode()
}

// ListURL reloads the current page of the list.
func (l transactionList) ListURL() string {
	return l.PageURL(l.Filter.Page.Page)
}

func (l transactionList) Target() string { return transactionListTarget }

type transactionsPage struct {
	page
	List       transactionList
	Categories []core.Category
	Types      []core.TransactionType
	Today      string
}

// fetchTransactions picks the listing endpoint matching the filter. Only one
// criterion is applied: type, then category, then date range.
func fetchTransactions(ctx context.Context, client *api.Client, f TransactionFilter) (core.Page[core.Transaction], error) {
	switch {
	case f.Type != "":
		return client.GetTransactionsByType(ctx, f.Type, f.Page)
	case f.CategoryID > 0:
		return client.GetTransactionsByCategory(ctx, f.CategoryID, f.Page)
	case f.HasDateRange():
		return client.GetTransactionsByDateRange(ctx, f.Start, f.End, f.Page)
	default:
		return client.GetTransactions(ctx, f.Page)
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	client := s.client
	filter := ParseTransactionFilter(r.URL.Query())
	log.FromContext(r.Context()).DebugContext(r.Context(), "Listing transactions",
		log.NewFields().
			WithOperation(log.OpList).
			WithPage(filter.Page.Page, filter.Page.Size).
			ToSlice()...)

	list := reqstate.New(func(ctx context.Context, f TransactionFilter) (core.Page[core.Transaction], error) {
		return fetchTransactions(ctx, client, f)
	})

	if isHTMX(r) && r.Header.Get("HX-Target") == transactionListTarget {
		if _, err := list.Execute(r.Context(), filter); err != nil {
			s.handleAPIError(w, r, err, log.ComponentTx, log.OpList)
			return
		}
		s.renderPartial(w, r, NewHTMXResponse(), "transaction_list",
			transactionList{State: list.State(), Filter: filter})
		return
	}

	categories := reqstate.New(client.GetCategories)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		_, _ = list.Execute(ctx, filter)
		return nil
	})
	g.Go(func() error {
		_, _ = categories.Execute(ctx, api.PageRequest{Size: maxPageSize})
		return nil
	})
	_ = g.Wait()

	status := http.StatusOK
	if apiErr := list.State().Err; apiErr != nil {
		if api.IsUnauthorized(apiErr) {
			s.respondFormError(w, r, apiErr, "", nil)
			return
		}
		s.backendFailed(r, apiErr, log.ComponentTx, log.OpList)
		status = errorStatus(apiErr)
	}
	if apiErr := categories.State().Err; apiErr != nil {
		s.backendFailed(r, apiErr, log.ComponentCategory, log.OpList)
	}

	s.render(w, r, status, "transactions.html", transactionsPage{
		page:       s.newPage(r, "Transactions", "transactions"),
		List:       transactionList{State: list.State(), Filter: filter},
		Categories: categories.State().Data.Content,
		Types:      core.TransactionTypes(),
		Today:      time.Now().Format(core.DateLayout),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p, perr := s.parseForm(r)
	if perr != nil {
		s.respondFormError(w, r, perr, "", nil)
		return
	}
	tx, err := ParseTransaction(p)
	if err != nil {
		s.respondFormError(w, r, validationError(err), "", nil)
		return
	}

	atomic.AddInt64(&s.appMetrics.formSubmissions, 1)

	ctrl := reqstate.New(s.client.CreateTransaction)
	created, err := ctrl.Execute(r.Context(), tx)
	if err != nil {
		apiErr := ctrl.State().Err
		s.backendFailed(r, apiErr, log.ComponentTx, log.OpCreate)
		s.respondFormError(w, r, apiErr, "", nil)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithResource("transaction", created.ID).
			ToSlice()...)

	respondChanged(w, r, "transactions", "Transaction saved", "/transactions")
}

// txUpdate pairs a path id with the submitted values.
type txUpdate struct {
	ID int64
	Tx core.Transaction
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		s.respondFormError(w, r, notFound("Transaction not found"), "", nil)
		return
	}
	p, perr := s.parseForm(r)
	if perr != nil {
		s.respondFormError(w, r, perr, "", nil)
		return
	}
	tx, err := ParseTransaction(p)
	if err != nil {
		s.respondFormError(w, r, validationError(err), "", nil)
		return
	}

	atomic.AddInt64(&s.appMetrics.formSubmissions, 1)

	client := s.client
	ctrl := reqstate.New(func(ctx context.Context, u txUpdate) (core.Transaction, error) {
		return client.UpdateTransaction(ctx, u.ID, u.Tx)
	})
	if _, err := ctrl.Execute(r.Context(), txUpdate{ID: id, Tx: tx}); err != nil {
		apiErr := ctrl.State().Err
		s.backendFailed(r, apiErr, log.ComponentTx, log.OpUpdate)
		s.respondFormError(w, r, apiErr, "", nil)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction updated",
		log.NewFields().
			WithOperation(log.OpUpdate).
			WithResource("transaction", &id).
			ToSlice()...)

	respondChanged(w, r, "transactions", "Transaction updated", "/transactions")
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		s.respondFormError(w, r, notFound("Transaction not found"), "", nil)
		return
	}

	atomic.AddInt64(&s.appMetrics.formSubmissions, 1)

	client := s.client
	ctrl := reqstate.New(func(ctx context.Context, id int64) (struct{}, error) {
		return struct{}{}, client.DeleteTransaction(ctx, id)
	})
	if _, err := ctrl.Execute(r.Context(), id); err != nil {
		apiErr := ctrl.State().Err
		s.backendFailed(r, apiErr, log.ComponentTx, log.OpDelete)
		s.respondFormError(w, r, apiErr, "", nil)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.NewFields().
			WithOperation(log.OpDelete).
			WithResource("transaction", &id).
			ToSlice()...)

	respondChanged(w, r, "transactions", "Transaction deleted", "/transactions")
}
