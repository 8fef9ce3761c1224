package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/metar-decoder/internal/adapter/vatsim"
	"github.com/couchcryptid/metar-decoder/internal/config"
	"github.com/couchcryptid/metar-decoder/internal/domain"
	"github.com/couchcryptid/metar-decoder/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxDecodeBody = 16 << 10

var validate = validator.New()

// ReportStore is the read side of the decoded report store.
type ReportStore interface {
	Latest(station string) (domain.Report, error)
	History(station string) ([]domain.Report, error)
}

// API serves live and stored METAR reports.
type API struct {
	Fetcher  domain.Fetcher
	Store    ReportStore
	Decoders *domain.DecoderSet
	Stations []config.Station
	Location *time.Location
	Logger   *slog.Logger
}

type stationResponse struct {
	ICAO           string `json:"icao"`
	Label          string `json:"label,omitempty"`
	LocalWind      string `json:"local_wind,omitempty"`
	LocalWindLabel string `json:"local_wind_label,omitempty"`
}

type historyResponse struct {
	Station string          `json:"station"`
	Reports []domain.Report `json:"reports"`
}

func (a *API) routes(r chi.Router) {
	r.Get("/stations", a.handleStations)
	r.Get("/metar/{station}", a.handleLiveMETAR)
	r.Get("/reports/{station}", a.handleLatest)
	r.Get("/reports/{station}/history", a.handleHistory)
	r.Post("/decode", a.handleDecode)
}

func (a *API) handleStations(w http.ResponseWriter, _ *http.Request) {
	out := make([]stationResponse, len(a.Stations))
	for i, s := range a.Stations {
		out[i] = stationResponse{ICAO: s.ICAO, Label: s.Label, LocalWind: s.LocalWind, LocalWindLabel: s.LocalWindLabel}
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (a *API) handleLiveMETAR(w http.ResponseWriter, r *http.Request) {
	station, ok := stationParam(w, r)
	if !ok {
		return
	}

	text, err := a.Fetcher.FetchMETAR(r.Context(), station)
	switch {
	case errors.Is(err, vatsim.ErrNoReport):
		writeError(w, http.StatusNotFound, "no METAR available for "+station)
		return
	case err != nil:
		a.Logger.Warn("live metar fetch failed", "station", station, "error", err)
		writeError(w, http.StatusBadGateway, "upstream METAR source unavailable")
		return
	}

	report, err := domain.ParseRawEvent(domain.RawEvent{Key: []byte(station), Value: []byte(text)}, a.Decoders)
	if err != nil {
		writeError(w, http.StatusNotFound, "no METAR available for "+station)
		return
	}
	report = domain.EnrichReport(report)

	if wantsText(r) {
		writeText(w, domain.RenderReport(report, a.renderOptions(station)))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

func (a *API) handleLatest(w http.ResponseWriter, r *http.Request) {
	station, ok := stationParam(w, r)
	if !ok {
		return
	}

	report, err := a.Store.Latest(station)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no stored report for "+station)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read stored report")
		return
	}

	if wantsText(r) {
		writeText(w, domain.RenderReport(report, a.renderOptions(station)))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	station, ok := stationParam(w, r)
	if !ok {
		return
	}

	reports, err := a.Store.History(station)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no stored reports for "+station)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read stored reports")
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, historyResponse{Station: station, Reports: reports})
}

func (a *API) handleDecode(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDecodeBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		writeError(w, http.StatusBadRequest, "request body must contain METAR text")
		return
	}

	station := domain.StationOf(nil, text)
	decoded := a.Decoders.For(station).Decode(text)

	if wantsText(r) {
		writeText(w, domain.RenderDecoded(decoded, a.renderOptions(station)))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, decoded)
}

func (a *API) renderOptions(station string) domain.RenderOptions {
	opts := domain.RenderOptions{Location: a.Location}
	for _, s := range a.Stations {
		if strings.EqualFold(s.ICAO, station) {
			opts.LocalWindLabel = s.LocalWindLabel
			break
		}
	}
	return opts
}

// stationParam reads and validates the {station} path parameter, writing a
// 400 response when it is not a four-letter ICAO code.
func stationParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	station := strings.ToUpper(chi.URLParam(r, "station"))
	if err := validate.Var(station, "required,len=4,alpha"); err != nil {
		writeError(w, http.StatusBadRequest, "station must be a four-letter ICAO code")
		return "", false
	}
	return station, true
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text"
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
