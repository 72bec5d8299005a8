package bridge

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/config"
	"github.com/Erriccc/claude-code-voice/internal/observability"
)

// Server exposes the bridge wire protocol to the browser client: pairing,
// the push stream, audio submission, and permission resolution.
type Server struct {
	cfg      *config.Config
	store    *SessionStore
	bridge   *Bridge
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates the HTTP layer over a bridge and its session store.
func NewServer(cfg *config.Config, store *SessionStore, bridge *Bridge, logger zerolog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		store:  store,
		bridge: bridge,
		logger: logger.With().Str("component", "server").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The pairing code plus token is the access control; the page
			// may be served from anywhere.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Register mounts the bridge endpoints on a mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/connect", s.handleConnect)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/audio", s.handleAudio)
	mux.HandleFunc("/permission", s.handlePermission)
	mux.HandleFunc("/status", s.handleStatus)
}

type connectRequest struct {
	SessionCode string `json:"sessionCode"`
}

type audioRequest struct {
	Audio    string `json:"audio"` // base64 encoded
	MimeType string `json:"mimeType"`
}

type permissionRequest struct {
	RequestID   string `json:"requestId"`
	Approved    bool   `json:"approved"`
	AlwaysAllow bool   `json:"alwaysAllow"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionCode == "" {
		writeError(w, http.StatusBadRequest, "missing sessionCode")
		return
	}

	token, err := s.store.Connect(strings.ToUpper(strings.TrimSpace(req.SessionCode)))
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "unknown session code")
		return
	case errors.Is(err, ErrSessionExpired):
		writeError(w, http.StatusGone, "session code expired")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "connect failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

// handleEvents upgrades to a websocket and attaches it as the session's push
// channel. One stream per token; a newer stream replaces the old one.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	session, err := s.store.Authenticate(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	// Each push stream gets its own correlation ID so its lifecycle can be
	// traced across reconnects.
	streamLogger := observability.WithCorrelationID(observability.NewCorrelationID())

	var push *PushChannel
	push = NewPushChannel(conn, s.cfg.HeartbeatPeriod, streamLogger, func() {
		s.store.DetachPush(session, push)
	})
	s.store.AttachPush(session, push)
	push.Send(ConnectedEvent())

	streamLogger.Info().Str("code", session.Code).Msg("Push stream opened")
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	var req audioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Audio == "" {
		writeError(w, http.StatusBadRequest, "missing audio payload")
		return
	}
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio is not valid base64")
		return
	}

	// One correlation ID per utterance ties the HTTP request to the bridge
	// and speech logs it fans out to.
	requestLogger := observability.WithCorrelationID(observability.NewCorrelationID())
	requestLogger.Debug().Int("audio_bytes", len(audio)).Msg("Audio submitted")

	transcript, err := s.bridge.SubmitAudio(r.Context(), token, audio)
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	case err != nil:
		requestLogger.Error().Err(err).Msg("Audio submission failed")
		observability.RecordError("audio_error", "server")
		writeError(w, http.StatusInternalServerError, "audio processing failed")
		return
	}

	requestLogger.Info().Int("transcript_len", len(transcript)).Msg("Audio processed")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "transcript": transcript})
}

func (s *Server) handlePermission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	token := bearerToken(r)
	if _, err := s.store.Authenticate(token); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
		writeError(w, http.StatusBadRequest, "missing requestId")
		return
	}

	if err := s.bridge.Resolve(r.Context(), req.RequestID, req.Approved, req.AlwaysAllow, "button"); err != nil {
		writeError(w, http.StatusNotFound, "unknown permission request")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"sessions":       s.store.Count(),
		"currentSession": nil,
	}
	if session := s.store.Current(); session != nil {
		status["currentSession"] = session.Code
	}
	writeJSON(w, http.StatusOK, status)
}

// bearerToken extracts the session token from the Authorization header or
// the X-Session-Token fallback.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-Session-Token")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
