package http

import (
	"net/http"

	"moneta/internal/core"
	applog "moneta/internal/log"
	"moneta/internal/services"
)

type createWalletRequest struct {
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	Currency       string     `json:"currency"`
	InitialBalance jsonAmount `json:"initialBalance"`
}

type updateWalletRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	wallets, err := s.ledger.ListWallets(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toWalletDTOs(wallets), "")
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	wallet, err := s.ledger.GetWallet(r.Context(), r.PathValue("id"), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toWalletDTO(wallet), "")
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req createWalletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	wallet, err := s.ledger.CreateWallet(r.Context(), services.CreateWalletInput{
		UserID:         user,
		Name:           req.Name,
		Type:           req.Type,
		Currency:       req.Currency,
		InitialBalance: string(req.InitialBalance),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.mutation.LogMutation(r.Context(), applog.OpCreate+"_wallet", user, wallet.ID, "")
	writeData(w, http.StatusCreated, toWalletDTO(wallet), "Wallet created")
}

func (s *Server) handleEnsurePrimaryWallet(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	wallet, err := s.ledger.EnsurePrimaryWallet(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toWalletDTO(wallet), "")
}

func (s *Server) handleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req updateWalletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	wallet, err := s.ledger.UpdateWallet(r.Context(), services.UpdateWalletInput{
		ID:       r.PathValue("id"),
		UserID:   user,
		Name:     req.Name,
		Type:     req.Type,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.mutation.LogMutation(r.Context(), applog.OpUpdate+"_wallet", user, wallet.ID, "")
	writeData(w, http.StatusOK, toWalletDTO(wallet), "Wallet updated")
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := s.ledger.DeleteWallet(r.Context(), id, user); err != nil {
		writeError(w, r, err)
		return
	}
	s.mutation.LogMutation(r.Context(), applog.OpDelete+"_wallet", user, id, "")
	writeData(w, http.StatusOK, nil, "Wallet deleted")
}

func (s *Server) handleRunningBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	rbs, err := s.reports.RunningBalances(r.Context(), user, r.PathValue("id"))
	if readFailed(w, r, err) {
		return
	}
	writeData(w, http.StatusOK, toRunningBalanceDTOs(rbs), "")
}

func (s *Server) handleDrift(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	drift, err := s.reports.Drift(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !drift.IsZero() {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Wallet balance drift detected",
			applog.FieldUserID, user, applog.FieldWalletID, id, "drift", drift.String())
	}
	writeData(w, http.StatusOK, map[string]any{"walletId": id, "drift": core.FormatAmount(drift), "consistent": drift.IsZero()}, "")
}
