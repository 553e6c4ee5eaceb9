package http

import (
	"net/http"

	"autonome/internal/config"
)

type settingsResponse struct {
	config.Settings
	PINSet bool `json:"pinSet"`
}

func redacted(st config.Settings) settingsResponse {
	resp := settingsResponse{Settings: st, PINSet: st.PIN != ""}
	resp.PIN = ""
	return resp
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redacted(st))
}

// handlePutSettings replaces the settings. An empty pin keeps the stored one.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	// The GET body round-trips; pinSet is ignored.
	var req settingsResponse
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st := req.Settings
	if st.PIN == "" {
		cur, err := s.settings.Load(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		st.PIN = cur.PIN
	}
	st.Locale = sanitizeInput(st.Locale)
	st.Company.Name = sanitizeInput(st.Company.Name)
	st.Company.Address = sanitizeInput(st.Company.Address)

	if err := s.settings.Save(r.Context(), st); err != nil {
		writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Settings updated")
	writeJSON(w, http.StatusOK, redacted(st))
}
