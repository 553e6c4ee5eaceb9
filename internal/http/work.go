package http

import (
	"net/http"
	"time"

	"autonome/internal/core"
	"autonome/internal/services"
)

type startSessionRequest struct {
	At         *time.Time       `json:"at,omitempty"`
	HourlyRate core.Money       `json:"hourlyRate"`
	ClientID   *int64           `json:"clientId,omitempty"`
	ProjectID  *int64           `json:"projectId,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	Location   *core.Coordinate `json:"location,omitempty"`
}

type stopSessionRequest struct {
	At       *time.Time       `json:"at,omitempty"`
	Location *core.Coordinate `json:"location,omitempty"`
}

type tripPoint struct {
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
	Address string    `json:"address,omitempty"`
	Time    time.Time `json:"time"`
}

func (p tripPoint) sample() core.Sample {
	return core.Sample{
		Coordinate: core.Coordinate{Lat: p.Lat, Lng: p.Lng, Address: sanitizeInput(p.Address)},
		Time:       p.Time,
	}
}

type tripRequest struct {
	Start   tripPoint `json:"start"`
	End     tripPoint `json:"end"`
	Purpose string    `json:"purpose"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	at := s.now()
	if req.At != nil {
		at = *req.At
	}
	ws, err := s.work.StartSession(r.Context(), services.StartSessionInput{
		At:         at,
		HourlyRate: req.HourlyRate,
		ClientID:   req.ClientID,
		ProjectID:  req.ProjectID,
		Notes:      sanitizeInput(req.Notes),
		Location:   req.Location,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req stopSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	end := s.now()
	if req.At != nil {
		end = *req.At
	}
	ws, err := s.work.StopSession(r.Context(), id, end, req.Location)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleRecordTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.work.RecordTrip(r.Context(), req.Start.sample(), req.End.sample(), sanitizeInput(req.Purpose))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
