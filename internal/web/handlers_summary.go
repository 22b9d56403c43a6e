package web

import (
	"net/http"

	"github.com/JonMunkholm/attendance/internal/core"
)

func (s *Server) handleShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := s.service.Shifts(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, shifts)
}

func (s *Server) handleLines(w http.ResponseWriter, r *http.Request) {
	lines, err := s.service.Lines(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, lines)
}

// handleFilterOptions returns both filter lists in one response.
func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	shifts, lines, err := s.service.FilterOptions(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, struct {
		Shifts []core.ShiftOption `json:"shifts"`
		Lines  []core.LineOption  `json:"lines"`
	}{shifts, lines})
}

// handleOverallSummary answers
// GET /api/attendance/overall-summary?date=YYYY-MM-DD[&shifts=A,B][&lines=L1,L2].
func (s *Server) handleOverallSummary(w http.ResponseWriter, r *http.Request) {
	q, err := core.ParseSummaryQuery(r.URL.Query())
	if err != nil {
		fail(w, r, err)
		return
	}

	records, err := s.service.Summary(r.Context(), q)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, records)
}
