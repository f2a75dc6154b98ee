package http

import (
	"net/http"
	"strings"

	"moneta/internal/core"
)

// handleMonthlySummary serves ?year&month&wallet. Missing year or month
// default to the current UTC month.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	year, err := queryInt(q, "year")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	month, err := queryInt(q, "month")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	current := core.PeriodOf(s.now())
	if year == 0 {
		year = current.Year
	}
	if month == 0 {
		month = current.Month
	}

	sum, err := s.reports.GetMonthlySummary(r.Context(), user, year, month, strings.TrimSpace(q.Get("wallet")))
	if readFailed(w, r, err) {
		return
	}
	writeData(w, http.StatusOK, toMonthlySummaryDTO(sum), "")
}

// handleMonthlyStats serves ?from=YYYY-MM&to=YYYY-MM.
func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := parsePeriod(q.Get("from"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	to, err := parsePeriod(q.Get("to"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	stats, err := s.reports.GetMonthlyStats(r.Context(), user, from, to)
	if readFailed(w, r, err) {
		return
	}
	writeData(w, http.StatusOK, toMonthlyStatsDTO(stats), "")
}
