package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/attendance/internal/core"
)

// defaultMaxBodyBytes caps a batch body when no limit is configured.
const defaultMaxBodyBytes = 10 << 20

// handleSaveUserShifts saves one batch of user shift rows.
func (s *Server) handleSaveUserShifts(w http.ResponseWriter, r *http.Request) {
	s.saveBatch(w, r, core.KindUserShifts)
}

// handleUpload saves one batch of rows for the kind in the path.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.saveBatch(w, r, chi.URLParam(r, "kind"))
}

func (s *Server) saveBatch(w http.ResponseWriter, r *http.Request, kind string) {
	rows, err := s.decodeRows(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}

	result, err := s.service.SaveBatch(r.Context(), kind, rows)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, result)
}

// decodeRows reads a JSON array of row records from a size-capped body.
func (s *Server) decodeRows(w http.ResponseWriter, r *http.Request) ([]core.RowRecord, error) {
	limit := s.cfg.Upload.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var rows []core.RowRecord
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", core.ErrBatchTooLarge, tooBig.Limit)
		}
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return rows, nil
}
