package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samarachi/bank-agent/internal/adapters/permit"
)

type queryRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	resp, err := s.agent.HandleQuery(r.Context(), req.UserID, req.Query)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, permit.ErrPDPUnavailable) {
			status = http.StatusServiceUnavailable
		}
		s.logger.Error().Err(err).Str("user", req.UserID).Msg("query failed")
		writeJSON(w, status, errorResponse{Error: "query failed"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("listing documents failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing documents failed"})
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("listing accounts failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing accounts failed"})
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
