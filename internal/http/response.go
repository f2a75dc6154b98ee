package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"moneta/internal/core"
	applog "moneta/internal/log"
	"moneta/internal/middleware/trace"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

// statusFor maps ledger error kinds to HTTP status codes.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindAuthorization:
		return http.StatusForbidden
	case core.KindInsufficientBalance, core.KindLastWallet, core.KindWalletInUse, core.KindConflict:
		return http.StatusConflict
	case core.KindUnsupported:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status of err's kind. Storage and unknown
// errors are logged and their detail is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	status := statusFor(kind)

	msg := err.Error()
	var le *core.Error
	if errors.As(err, &le) && le.Msg != "" {
		msg = le.Msg
	}
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, r.Method+" "+r.URL.Path,
			applog.NewFields().WithLedger(r.Header.Get(userHeader), "", ""))
		msg = "internal error"
		if id := trace.GetRequestID(r.Context()); id != "" {
			msg += " (request " + id + ")"
		}
	}
	writeJSON(w, status, envelope{Success: false, Message: msg, Error: kind.String()})
}

// readFailed reports whether a read handler must stop on err. Storage
// failures are logged and the caller serves the zeroed result it got back.
func readFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if core.KindOf(err) == core.KindStorage {
		applog.FromContext(r.Context()).LogError(r.Context(), "Read failed, serving empty result", err, r.Method+" "+r.URL.Path,
			applog.NewFields().WithLedger(r.Header.Get(userHeader), "", ""))
		return false
	}
	writeError(w, r, err)
	return true
}

// writeBadRequest answers malformed input that never reached the ledger.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: msg, Error: "bad_request"})
}
