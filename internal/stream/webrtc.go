package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"
	"gopkg.in/hraban/opus.v2"

	"github.com/satindergrewal/cuteclips/internal/audio"
	"github.com/satindergrewal/cuteclips/internal/music"
)

const (
	opusBitrate = 96000

	// StatusChannel is the label of the data channel a client opens to
	// follow track changes and steer the preview.
	StatusChannel = "status"
	statusPoll    = 500 * time.Millisecond
)

// Message types on the status channel.
const (
	MsgNowPlaying = "now_playing"
	MsgStyle      = "style"
	MsgSkip       = "skip"
	MsgError      = "error"
)

// PeerMessage travels on the status channel in both directions. Clients
// send {"type":"style","style":"cozy_warm"} or {"type":"skip"}; the server
// answers each and pushes now_playing whenever the track changes.
type PeerMessage struct {
	Type  string       `json:"type"`
	Style string       `json:"style,omitempty"`
	Track *trackStatus `json:"track,omitempty"`
	Error string       `json:"error,omitempty"`
}

// WebRTCHandler answers SDP offers. Each peer receives the preview as an
// Opus track and may open a StatusChannel data channel.
type WebRTCHandler struct {
	logger      zerolog.Logger
	broadcaster *Broadcaster
	ctl         Controller
	player      NowPlaying
	poll        time.Duration

	mu    sync.Mutex
	peers map[*peer]struct{}
}

type peer struct {
	pc    *webrtc.PeerConnection
	track *webrtc.TrackLocalStaticSample
	done  chan struct{}
	once  sync.Once
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.pc.Close()
	})
}

// NewWebRTCHandler creates a WebRTC stream handler. ctl and player may be
// nil, in which case the status channel only reports errors.
func NewWebRTCHandler(logger zerolog.Logger, b *Broadcaster, ctl Controller, player NowPlaying) *WebRTCHandler {
	return &WebRTCHandler{
		logger:      logger.With().Str("component", "webrtc").Logger(),
		broadcaster: b,
		ctl:         ctl,
		player:      player,
		poll:        statusPoll,
		peers:       make(map[*peer]struct{}),
	}
}

// PeerCount returns the number of active WebRTC peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Close hangs up on every peer.
func (h *WebRTCHandler) Close() {
	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[*peer]struct{})
	h.mu.Unlock()
	for p := range peers {
		p.close()
	}
}

type offerError struct {
	status int
	op     string
	err    error
}

func (e *offerError) Error() string { return fmt.Sprintf("%s: %v", e.op, e.err) }
func (e *offerError) Unwrap() error { return e.err }

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	p, err := h.negotiate(r.Context(), offer)
	if err != nil {
		var oe *offerError
		if !errors.As(err, &oe) {
			oe = &offerError{status: http.StatusInternalServerError, op: "negotiate", err: err}
		}
		h.logger.Warn().Err(err).Msg("offer rejected")
		http.Error(w, oe.op+" failed", oe.status)
		return
	}

	h.mu.Lock()
	h.peers[p] = struct{}{}
	count := len(h.peers)
	h.mu.Unlock()
	h.logger.Info().Int("peers", count).Msg("peer connected")

	p.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			h.drop(p)
		}
	})
	go h.streamToPeer(p)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(p.pc.LocalDescription())
}

// negotiate builds the peer connection and waits for ICE gathering so the
// answer carries every candidate.
func (h *WebRTCHandler) negotiate(ctx context.Context, offer webrtc.SessionDescription) (*peer, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, &offerError{http.StatusInternalServerError, "create peer connection", err}
	}
	fail := func(status int, op string, err error) (*peer, error) {
		pc.Close()
		return nil, &offerError{status, op, err}
	}

	p := &peer{pc: pc, done: make(chan struct{})}
	p.track, err = webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"cuteclips-preview",
	)
	if err != nil {
		return fail(http.StatusInternalServerError, "create audio track", err)
	}
	if _, err := pc.AddTrack(p.track); err != nil {
		return fail(http.StatusInternalServerError, "add track", err)
	}
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() == StatusChannel {
			h.attachStatus(p, dc)
		}
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		return fail(http.StatusBadRequest, "set remote description", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fail(http.StatusInternalServerError, "create answer", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return fail(http.StatusInternalServerError, "set local description", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return fail(http.StatusServiceUnavailable, "ice gathering", ctx.Err())
	}
	return p, nil
}

func (h *WebRTCHandler) attachStatus(p *peer, dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		go h.announce(p.done, dc.Send)
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		data, err := json.Marshal(h.handleMessage(msg.Data))
		if err != nil {
			return
		}
		if err := dc.Send(data); err != nil {
			h.logger.Debug().Err(err).Msg("status reply")
		}
	})
}

// announce sends now_playing once per track until done closes or send
// fails.
func (h *WebRTCHandler) announce(done <-chan struct{}, send func([]byte) error) {
	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	var last string
	for {
		if track := currentTrack(h.player); track != nil && track.ID != last {
			data, err := json.Marshal(PeerMessage{Type: MsgNowPlaying, Track: track})
			if err != nil {
				return
			}
			if err := send(data); err != nil {
				h.logger.Debug().Err(err).Msg("now playing")
				return
			}
			last = track.ID
		}
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

// handleMessage applies a client command and returns the reply.
func (h *WebRTCHandler) handleMessage(data []byte) PeerMessage {
	var msg PeerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return PeerMessage{Type: MsgError, Error: "invalid JSON message"}
	}
	if h.ctl == nil {
		return PeerMessage{Type: MsgError, Error: "control unavailable"}
	}

	switch msg.Type {
	case MsgStyle:
		style, err := music.ParseStyle(msg.Style)
		if err != nil {
			return PeerMessage{Type: MsgError, Error: err.Error()}
		}
		h.ctl.SetStyle(style)
		h.logger.Info().Str("style", style.String()).Msg("style requested by peer")
		return PeerMessage{Type: MsgStyle, Style: style.String()}
	case MsgSkip:
		h.ctl.Skip()
		return PeerMessage{Type: MsgSkip}
	default:
		return PeerMessage{Type: MsgError, Error: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
}

func (h *WebRTCHandler) streamToPeer(p *peer) {
	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		h.logger.Error().Err(err).Msg("opus encoder")
		h.drop(p)
		return
	}
	if err := enc.SetBitrate(opusBitrate); err != nil {
		h.logger.Warn().Err(err).Msg("opus bitrate")
	}

	buf := make([]byte, 4000)
	for {
		select {
		case <-p.done:
			return
		case <-listener.Done():
			return
		case frame, ok := <-listener.C:
			if !ok {
				return
			}
			n, err := enc.Encode(frame, buf)
			if err != nil {
				h.logger.Debug().Err(err).Msg("opus encode")
				continue
			}
			if err := p.track.WriteSample(media.Sample{Data: buf[:n], Duration: audio.FrameDuration}); err != nil {
				h.drop(p)
				return
			}
		}
	}
}

func (h *WebRTCHandler) drop(p *peer) {
	h.mu.Lock()
	_, ok := h.peers[p]
	delete(h.peers, p)
	count := len(h.peers)
	h.mu.Unlock()

	p.close()
	if ok {
		h.logger.Info().Int("peers", count).Msg("peer disconnected")
	}
}
