package http

import (
	"net/http"

	applog "moneta/internal/log"
	"moneta/internal/services"
)

type createTransactionRequest struct {
	WalletID    string     `json:"walletId"`
	Type        string     `json:"type"`
	Amount      jsonAmount `json:"amount"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
}

// updateTransactionRequest uses pointers so an absent field keeps the
// stored value. An empty description clears it; an empty title is
// rejected.
type updateTransactionRequest struct {
	Amount      jsonAmount `json:"amount"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Date        string     `json:"date"`
}

type transferRequest struct {
	SenderWalletID   string     `json:"senderWalletId"`
	ReceiverWalletID string     `json:"receiverWalletId"`
	Amount           jsonAmount `json:"amount"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Date             string     `json:"date"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	f, err := parseFilter(user, r.URL.Query())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	rows, err := s.reports.GetFilteredTransactions(r.Context(), f)
	if readFailed(w, r, err) {
		return
	}
	writeData(w, http.StatusOK, toRowDTOs(rows), "")
}

func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	f, err := parseFilter(user, r.URL.Query())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	sum, err := s.reports.GetTransactionSummary(r.Context(), f)
	if readFailed(w, r, err) {
		return
	}
	writeData(w, http.StatusOK, toTransactionSummaryDTO(sum), "")
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	t, err := s.ledger.CreateTransaction(r.Context(), services.CreateTransactionInput{
		UserID:      user,
		WalletID:    req.WalletID,
		Type:        req.Type,
		Amount:      string(req.Amount),
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.mutation.LogMutation(r.Context(), applog.OpCreate+"_transaction", user, t.WalletID, t.ID)
	writeData(w, http.StatusCreated, toTransactionDTO(t), "Transaction created")
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req updateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	t, err := s.ledger.UpdateTransaction(r.Context(), services.UpdateTransactionInput{
		ID:          r.PathValue("id"),
		UserID:      user,
		Amount:      string(req.Amount),
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.mutation.LogMutation(r.Context(), applog.OpUpdate+"_transaction", user, t.WalletID, t.ID)
	writeData(w, http.StatusOK, toTransactionDTO(t), "Transaction updated")
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := s.ledger.DeleteTransaction(r.Context(), id, user); err != nil {
		writeError(w, r, err)
		return
	}
	s.mutation.LogMutation(r.Context(), applog.OpDelete+"_transaction", user, "", id)
	writeData(w, http.StatusOK, nil, "Transaction deleted")
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	res, err := s.ledger.TransferBetweenWallets(r.Context(), services.TransferInput{
		UserID:           user,
		SenderWalletID:   req.SenderWalletID,
		ReceiverWalletID: req.ReceiverWalletID,
		Amount:           string(req.Amount),
		Title:            req.Title,
		Description:      req.Description,
		Date:             date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.mutation.LogMutation(r.Context(), applog.OpTransfer, user, res.Sender.WalletID, res.Sender.ID)
	writeData(w, http.StatusCreated, toTransferDTO(res), "Transfer completed")
}
