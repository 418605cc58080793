package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kisanmitra/agriadvisor/advisor"
)

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/location", s.handleLocation)
	mux.HandleFunc("GET /v1/location/current", s.handleCurrentLocation)
	mux.HandleFunc("POST /v1/weather", s.handleWeather)
	mux.HandleFunc("POST /v1/mandi", s.handleMandi)
	mux.HandleFunc("POST /v1/drones", s.handleDrones)
	mux.HandleFunc("POST /v1/advice", s.handleAdvice)
	mux.HandleFunc("POST /v1/diagnose", s.handleDiagnose)
	mux.HandleFunc("POST /v1/expenses/parse", s.handleExpense)
	mux.HandleFunc("POST /v1/schemes", s.handleSchemes)
	mux.HandleFunc("POST /v1/speech", s.handleSpeech)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type localizedRequest struct {
	Lang string `json:"lang"`
}

func (r localizedRequest) language() (advisor.Language, error) {
	if r.Lang == "" {
		return advisor.DefaultLanguage, nil
	}
	return advisor.ParseLanguage(r.Lang)
}

type placeRequest struct {
	localizedRequest
	Location advisor.Location `json:"location"`
	// Context is free text such as "Nashik, Maharashtra"; it wins over Location.
	Context string `json:"context"`
}

func (r placeRequest) locContext() string {
	if r.Context != "" {
		return r.Context
	}
	return r.Location.Text
}

type adviceRequest struct {
	localizedRequest
	Question string                 `json:"question"`
	Profile  *advisor.FarmerProfile `json:"profile"`
}

type diagnoseRequest struct {
	localizedRequest
	Image    string `json:"image"`
	MIMEType string `json:"mime_type"`
}

type expenseRequest struct {
	localizedRequest
	Transcript string `json:"transcript"`
}

type schemesRequest struct {
	localizedRequest
	Profile advisor.FarmerProfile `json:"profile"`
}

type speechRequest struct {
	localizedRequest
	Text string `json:"text"`
}

type statusResponse struct {
	Cooldown         bool      `json:"cooldown"`
	CooldownUntil    time.Time `json:"cooldown_until,omitzero"`
	RetryAfterSecond int       `json:"retry_after_seconds,omitempty"`
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body exceeds %d bytes", ErrBadRequest, tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Lat == nil || req.Lng == nil {
		s.writeError(w, r, fmt.Errorf("%w: lat and lng are required", ErrBadRequest))
		return
	}
	place, err := s.svc.ResolveLocation(r.Context(), *req.Lat, *req.Lng)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, place)
}

func (s *Server) handleCurrentLocation(w http.ResponseWriter, r *http.Request) {
	place, ok := s.svc.RememberedPlace(r.Context())
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: no location resolved recently", ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, place)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	lang, ok := s.decodeLocalized(w, r, &req, &req.localizedRequest)
	if !ok {
		return
	}
	loc := req.Location
	if req.Context != "" {
		loc.Text = req.Context
	}
	report, err := s.svc.Weather(r.Context(), loc, lang)
	s.respond(w, r, report, err)
}

func (s *Server) handleMandi(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	lang, ok := s.decodeLocalized(w, r, &req, &req.localizedRequest)
	if !ok {
		return
	}
	bulletin, err := s.svc.MandiPrices(r.Context(), req.locContext(), lang)
	s.respond(w, r, bulletin, err)
}

func (s *Server) handleDrones(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	lang, ok := s.decodeLocalized(w, r, &req, &req.localizedRequest)
	if !ok {
		return
	}
	services, err := s.svc.DroneServices(r.Context(), req.locContext(), lang)
	s.respond(w, r, services, err)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	lang, ok := s.decodeLocalized(w, r, &req, &req.localizedRequest)
	if !ok {
		return
	}
	answer, err := s.svc.FarmingAdvice(r.Context(), req.Question, req.Profile, lang)
	s.respond(w, r, map[string]string{"answer": answer}, err)
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	var req diagnoseRequest
	lang, ok := s.decodeLocalized(w, r, &req, &req.localizedRequest)
	if !ok {
		return
	}
	diagnosis, err := s.svc.DiagnoseCrop(r.Context(), advisor.Blob{MIMEType: req.MIMEType, Data: req.Image}, lang)
	s.respond(w, r, diagnosis, err)
}

func (s *Server) handleExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	lang, ok := s.decodeLocalized(w, r, &req, &req.localizedRequest)
	if !ok {
		return
	}
	expense, err := s.svc.ParseVoiceExpense(r.Context(), req.Transcript, lang)
	s.respond(w, r, expense, err)
}

func (s *Server) handleSchemes(w http.ResponseWriter, r *http.Request) {
	var req schemesRequest
	lang, ok := s.decodeLocalized(w, r, &req, &req.localizedRequest)
	if !ok {
		return
	}
	advice, err := s.svc.SchemeAdvice(r.Context(), req.Profile, lang)
	s.respond(w, r, map[string]string{"advice": advice}, err)
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	lang, ok := s.decodeLocalized(w, r, &req, &req.localizedRequest)
	if !ok {
		return
	}
	speech, err := s.svc.Speech(r.Context(), req.Text, lang)
	s.respond(w, r, speech, err)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	coord := s.svc.Coordinator()
	remaining := coord.CooldownRemaining()
	resp := statusResponse{Cooldown: remaining > 0}
	if remaining > 0 {
		resp.CooldownUntil = coord.CooldownUntil().UTC()
		resp.RetryAfterSecond = int((remaining + time.Second - 1) / time.Second)
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeLocalized decodes the body into dst and parses its language. On
// failure it writes the error and returns false.
func (s *Server) decodeLocalized(w http.ResponseWriter, r *http.Request, dst any, lr *localizedRequest) (advisor.Language, bool) {
	if err := decode(r, dst); err != nil {
		s.writeError(w, r, err)
		return "", false
	}
	lang, err := lr.language()
	if err != nil {
		s.writeError(w, r, err)
		return "", false
	}
	return lang, true
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
