package http

import (
	"fmt"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := req.toNewEntry()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ownerID := owner(r)
	entry, err := s.svc.Ledger.CreateTransaction(r.Context(), ownerID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.invalidate(ownerID)
	NewJSONResponse().Status(http.StatusCreated).Body(toEntryResponse(entry)).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseEntryFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.svc.Ledger.ListTransactions(r.Context(), owner(r), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(toEntryResponses(entries)).Write(w)
}

// handleDeleteTransaction serves both /transactions/{id} and /transactions?id=.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("id"))
	}
	if id == "" {
		s.fail(w, r, fmt.Errorf("%w: transaction id is required", errBadRequest))
		return
	}

	ownerID := owner(r)
	entry, err := s.svc.Ledger.DeleteTransaction(r.Context(), ownerID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.invalidate(ownerID)
	NewJSONResponse().Body(toEntryResponse(entry)).Write(w)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := req.toTransfer()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ownerID := owner(r)
	res, err := s.svc.Ledger.TransferFunds(r.Context(), ownerID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// The destination may belong to someone else; the invalidating
	// publisher covers that owner once the event goes out.
	s.invalidate(ownerID)
	NewJSONResponse().Body(transferResponse{
		Success:               res.Success,
		TransferID:            res.TransferID,
		Date:                  res.Date,
		NewSourceBalance:      amountString(res.NewSourceBalance),
		NewDestinationBalance: amountString(res.NewDestinationBalance),
	}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ownerID := owner(r)
	compute := func() (core.Summary, error) {
		return s.svc.Reports.GetSummary(r.Context(), ownerID, rng)
	}
	var sum core.Summary
	if s.svc.Summaries != nil {
		sum, err = s.svc.Summaries.Get(r.Context(), ownerID, rng, compute)
	} else {
		sum, err = compute()
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(toSummaryResponse(sum)).Write(w)
}

func (s *Server) handleBalanceHistory(w http.ResponseWriter, r *http.Request) {
	period, err := core.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	points, err := s.svc.Reports.GetBalanceHistory(r.Context(), owner(r), period)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(toBalanceHistoryResponse(points)).Write(w)
}
