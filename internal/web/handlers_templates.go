package web

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/attendance/internal/core"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleDownloadUserShiftsTemplate serves the user shift template.
func (s *Server) handleDownloadUserShiftsTemplate(w http.ResponseWriter, r *http.Request) {
	s.writeTemplate(w, r, core.KindUserShifts)
}

// handleDownloadTemplate serves the template for the kind in the path.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	s.writeTemplate(w, r, chi.URLParam(r, "kind"))
}

func (s *Server) writeTemplate(w http.ResponseWriter, r *http.Request, kind string) {
	var buf bytes.Buffer
	info, err := s.service.WriteTemplate(&buf, kind)
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Template}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
