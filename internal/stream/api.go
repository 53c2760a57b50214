package stream

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/satindergrewal/cuteclips/internal/audio"
	"github.com/satindergrewal/cuteclips/internal/audition"
	"github.com/satindergrewal/cuteclips/internal/music"
)

// Controller is the scheduler side of the control API.
type Controller interface {
	Status() audition.Status
	SetStyle(music.Style)
	Skip()
}

// NowPlaying reports the track currently on air and the ones before it.
type NowPlaying interface {
	Status() (track audio.TrackInfo, position, duration time.Duration)
	History() []audio.TrackInfo
}

// API serves the JSON control endpoints for the preview.
type API struct {
	logger      zerolog.Logger
	ctl         Controller
	player      NowPlaying
	broadcaster *Broadcaster
}

func NewAPI(logger zerolog.Logger, ctl Controller, player NowPlaying, b *Broadcaster) *API {
	return &API{
		logger:      logger.With().Str("component", "api").Logger(),
		ctl:         ctl,
		player:      player,
		broadcaster: b,
	}
}

// Register mounts the endpoints on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", a.status)
	mux.HandleFunc("POST /api/style", a.setStyle)
	mux.HandleFunc("POST /api/skip", a.skip)
}

type trackStatus struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Style    string  `json:"style"`
	Seed     uint64  `json:"seed"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// recentTrack carries what is needed to render a previewed soundtrack again.
type recentTrack struct {
	Name  string `json:"name"`
	Style string `json:"style"`
	Seed  uint64 `json:"seed"`
}

type statusResponse struct {
	audition.Status
	NowPlaying    *trackStatus  `json:"now_playing,omitempty"`
	Recent        []recentTrack `json:"recent,omitempty"`
	Listeners     int           `json:"listeners"`
	FramesSent    uint64        `json:"frames_sent"`
	FramesDropped uint64        `json:"frames_dropped"`
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:    a.ctl.Status(),
		Listeners: a.broadcaster.ListenerCount(),
	}
	resp.FramesSent, resp.FramesDropped = a.broadcaster.Stats()

	resp.NowPlaying = currentTrack(a.player)
	for _, info := range a.player.History() {
		resp.Recent = append(resp.Recent, recentTrack{Name: info.Name, Style: info.Style, Seed: info.Seed})
	}
	writeJSON(w, http.StatusOK, resp)
}

// currentTrack is nil while nothing is on air.
func currentTrack(player NowPlaying) *trackStatus {
	if player == nil {
		return nil
	}
	info, pos, dur := player.Status()
	if info.ID == "" {
		return nil
	}
	return &trackStatus{
		ID:       info.ID,
		Name:     info.Name,
		Style:    info.Style,
		Seed:     info.Seed,
		Position: pos.Seconds(),
		Duration: dur.Seconds(),
	}
}

type styleRequest struct {
	Style string `json:"style"`
}

func (a *API) setStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	style, err := music.ParseStyle(req.Style)
	if err != nil {
		names := make([]string, 0, len(music.Styles()))
		for _, s := range music.Styles() {
			names = append(names, s.String())
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "styles": names})
		return
	}
	a.ctl.SetStyle(style)
	a.logger.Info().Str("style", style.String()).Msg("style requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"style": style.String()})
}

func (a *API) skip(w http.ResponseWriter, r *http.Request) {
	a.ctl.Skip()
	writeJSON(w, http.StatusAccepted, map[string]bool{"skipped": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
