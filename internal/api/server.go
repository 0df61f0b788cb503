package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"barberbot/internal/config"
	"barberbot/internal/database"
	"barberbot/internal/models"

	"github.com/rs/zerolog"
)

// Availability is the read side of the booking service the API exposes.
type Availability interface {
	AvailableSlots(ctx context.Context, barberID int64, date string) ([]string, error)
	BookingDates() []string
}

type Catalog interface {
	Services(ctx context.Context) ([]models.Service, error)
	Barbers(ctx context.Context) ([]models.Barber, error)
	Barber(ctx context.Context, id int64) (*models.Barber, error)
}

// Server is a read-only HTTP API over free slots and the catalog, meant for
// the shop's website.
type Server struct {
	availability Availability
	catalog      Catalog
	server       *http.Server
	logger       *zerolog.Logger
}

func NewServer(cfg config.APIConfig, availability Availability, catalog Catalog, logger *zerolog.Logger) *Server {
	s := &Server{availability: availability, catalog: catalog, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/availability/bulk", s.handleAvailabilityBulk)
	mux.HandleFunc("POST /api/v1/availability/bulk", s.handleAvailabilityBulk)
	mux.HandleFunc("GET /api/v1/availability/{barberID}", s.handleAvailability)
	mux.HandleFunc("GET /api/v1/dates", s.handleDates)
	mux.HandleFunc("GET /api/v1/services", s.handleServices)
	mux.HandleFunc("GET /api/v1/barbers", s.handleBarbers)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.loggingMiddleware(NewAuth(cfg).Wrap(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error().Err(err).Msg("HTTP API stopped")
	}
}

const (
	maxBulkBarbers = 50
	maxBodyBytes   = 16 << 10
)

type slotsResult struct {
	BarberID int64    `json:"barber_id"`
	Date     string   `json:"date"`
	Paused   bool     `json:"paused"`
	Free     []string `json:"free_slots"`
}

func (s *Server) slots(ctx context.Context, barberID int64, date string) (slotsResult, error) {
	barber, err := s.catalog.Barber(ctx, barberID)
	if err != nil {
		return slotsResult{}, err
	}
	free, err := s.availability.AvailableSlots(ctx, barberID, date)
	if err != nil {
		return slotsResult{}, err
	}
	return slotsResult{BarberID: barberID, Date: date, Paused: barber.PausedOn(date), Free: free}, nil
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	barberID, err := strconv.ParseInt(r.PathValue("barberID"), 10, 64)
	if err != nil || barberID <= 0 {
		writeError(w, http.StatusBadRequest, "barber_id must be a positive integer")
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	res, err := s.slots(r.Context(), barberID, date)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "barber not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAvailabilityBulk(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Barbers []string `json:"barbers"`
		Dates   []string `json:"dates"`
	}
	if r.Method == http.MethodGet {
		body.Barbers = splitCSV(r.URL.Query().Get("barbers"))
		body.Dates = splitCSV(r.URL.Query().Get("dates"))
	} else {
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	if len(body.Barbers) == 0 {
		writeError(w, http.StatusBadRequest, "barbers is required")
		return
	}
	if len(body.Barbers) > maxBulkBarbers {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d barbers per request", maxBulkBarbers))
		return
	}
	window := s.availability.BookingDates()
	if len(body.Dates) == 0 {
		body.Dates = window
	}
	if len(body.Dates) > len(window) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d dates per request", len(window)))
		return
	}
	for _, d := range body.Dates {
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid date format: %s", d))
			return
		}
	}

	results := make([]slotsResult, 0, len(body.Barbers)*len(body.Dates))
	for _, raw := range body.Barbers {
		barberID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || barberID <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid barber id: %s", raw))
			return
		}
		for _, date := range body.Dates {
			res, err := s.slots(r.Context(), barberID, date)
			if errors.Is(err, database.ErrNotFound) {
				// Unknown barbers are skipped, not fatal.
				break
			}
			if err != nil {
				s.internalError(w, r, err)
				return
			}
			results = append(results, res)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleDates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"dates": s.availability.BookingDates()})
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.catalog.Services(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *Server) handleBarbers(w http.ResponseWriter, r *http.Request) {
	barbers, err := s.catalog.Barbers(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	type publicBarber struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Experience string `json:"experience"`
		WorkDays   string `json:"work_days"`
		WorkTime   string `json:"work_time"`
	}
	out := make([]publicBarber, 0, len(barbers))
	for _, b := range barbers {
		out = append(out, publicBarber{ID: b.ID, Name: b.Name, Experience: b.Experience, WorkDays: b.WorkDays, WorkTime: b.WorkTime})
	}
	writeJSON(w, http.StatusOK, map[string]any{"barbers": out})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("API request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
