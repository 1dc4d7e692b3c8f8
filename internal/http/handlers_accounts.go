package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	opening, err := req.OpeningBalance.OrZero()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ownerID := owner(r)
	acc, err := s.svc.Accounts.CreateAccount(r.Context(), ownerID, core.NewAccount{
		Name:           sanitizeInput(req.Name),
		Currency:       sanitizeInput(req.Currency),
		OpeningBalance: opening,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.invalidate(ownerID)
	NewJSONResponse().Status(http.StatusCreated).Body(toAccountResponse(acc)).Write(w)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts.ListAccounts(r.Context(), owner(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.svc.Accounts.GetAccount(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Body(toAccountResponse(acc)).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ownerID := owner(r)
	if err := s.svc.Accounts.DeleteAccount(r.Context(), ownerID, r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.invalidate(ownerID)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := core.ParseEntryType(req.Type)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.Categories.CreateCategory(r.Context(), owner(r), core.NewCategory{
		Name: sanitizeInput(req.Name),
		Type: t,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toCategoryResponse(c)).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Categories.ListCategories(r.Context(), owner(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCategoryResponse(c))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.DeleteCategory(r.Context(), owner(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
