package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
	"github.com/couchcryptid/farm-sim-service/internal/export"
)

const (
	defaultSimulateDays = 1
	defaultForecastDays = 7
	maxRequestBody      = 1 << 16
)

type batchResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Data    []domain.Record `json:"data"`
	Warning string          `json:"warning,omitempty"`
}

type resetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type statusResponse struct {
	RunID           string     `json:"runId"`
	Records         int        `json:"records"`
	LatestDate      string     `json:"latestDate,omitempty"`
	LatestTimestamp *time.Time `json:"latestTimestamp,omitempty"`
}

func (s *Server) handleData(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.All())
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	rec, ok := s.sim.Latest()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no data available"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleEnvironmental(w http.ResponseWriter, _ *http.Request) {
	records := s.sim.All()
	out := make([]domain.Observation, len(records))
	for i := range records {
		out[i] = records[i].Environmental
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProduction(w http.ResponseWriter, _ *http.Request) {
	records := s.sim.All()
	out := make([]domain.ProductionDay, len(records))
	for i := range records {
		out[i] = records[i].Production
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRange serves records with start <= timestamp <= end. A date-only end
// covers that whole day.
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startParam, endParam := q.Get("start"), q.Get("end")
	if startParam == "" || endParam == "" {
		s.writeError(w, r, "invalid range", fmt.Errorf("%w: start and end are required", domain.ErrInvalidArgument))
		return
	}

	start, err := parseBound(startParam, false)
	if err != nil {
		s.writeError(w, r, "invalid range", err)
		return
	}
	end, err := parseBound(endParam, true)
	if err != nil {
		s.writeError(w, r, "invalid range", err)
		return
	}
	if end.Before(start) {
		s.writeError(w, r, "invalid range", fmt.Errorf("%w: end is before start", domain.ErrInvalidArgument))
		return
	}

	writeJSON(w, http.StatusOK, s.sim.Range(start, end))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	days, err := decodeDays(r, defaultSimulateDays)
	if err != nil {
		s.writeError(w, r, "simulation failed", err)
		return
	}

	records, err := s.sim.RunBatch(r.Context(), days)
	if err != nil && len(records) == 0 {
		s.writeError(w, r, "simulation failed", err)
		return
	}

	resp := batchResponse{Success: true, Count: len(records), Data: records}
	if err != nil {
		// Records are already part of history; a retry would advance again.
		s.logger.Warn("batch committed but not saved", "days", len(records), "error", err)
		resp.Warning = "records were not persisted: " + err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	days, err := decodeDays(r, defaultForecastDays)
	if err != nil {
		s.writeError(w, r, "forecast failed", err)
		return
	}

	records, err := s.sim.Forecast(days)
	if err != nil {
		s.writeError(w, r, "forecast failed", err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Success: true, Count: len(records), Data: records})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.sim.Reset()
	writeJSON(w, http.StatusOK, resetResponse{Success: true, Message: "simulation reset"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, "export failed", err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, s.sim.All()); err != nil {
		s.writeError(w, r, "export failed", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(s.sim.RunID())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w) //nolint:errcheck // client may have gone away
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{RunID: s.sim.RunID(), Records: s.sim.Len()}
	if rec, ok := s.sim.Latest(); ok {
		resp.LatestDate = rec.Date
		resp.LatestTimestamp = &rec.Timestamp
	}
	writeJSON(w, http.StatusOK, resp)
}

type daysRequest struct {
	Days *int `json:"days"`
}

// decodeDays reads {"days": n}. An empty body or missing field yields def.
func decodeDays(r *http.Request, def int) (int, error) {
	if r.Body == nil {
		return def, nil
	}
	var req daysRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req)
	switch {
	case errors.Is(err, io.EOF):
		return def, nil
	case err != nil:
		return 0, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidArgument, err)
	case req.Days == nil:
		return def, nil
	}
	return *req.Days, nil
}

// parseBound accepts YYYY-MM-DD or RFC 3339. With endOfDay, a bare date
// extends to the last instant of that day.
func parseBound(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		if endOfDay {
			return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD or RFC 3339)", domain.ErrInvalidArgument, s)
	}
	return t, nil
}
