package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/storyweave/adventure/internal/services"
	"github.com/storyweave/adventure/internal/session"
	"github.com/storyweave/adventure/internal/storage"
	"github.com/storyweave/adventure/pkg/chat"
	"github.com/storyweave/adventure/pkg/i18n"
	"github.com/storyweave/adventure/pkg/scene"
	"github.com/storyweave/adventure/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// LLMFactory builds a model client for a resolved API key. The server
// uses it so a per-session key from the setup payload gets its own
// client instead of the environment-configured one.
type LLMFactory func(apiKey string) (services.LLMService, error)

// SessionHandler routes all session lifecycle requests. Controllers are
// held in memory keyed by session ID; the save store is only touched
// through explicit save and load operations.
type SessionHandler struct {
	logger     *slog.Logger
	store      storage.SaveStore
	factory    LLMFactory
	credential string
	model      string
	lang       i18n.Language

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session.Controller
}

func NewSessionHandler(logger *slog.Logger, store storage.SaveStore, factory LLMFactory, credential, model string, lang i18n.Language) *SessionHandler {
	return &SessionHandler{
		logger:     logger,
		store:      store,
		factory:    factory,
		credential: credential,
		model:      model,
		lang:       lang,
		sessions:   make(map[uuid.UUID]*session.Controller),
	}
}

// ServeHTTP handles session requests.
// Routes:
// POST /v1/sessions                  - Start a new story
// GET  /v1/sessions/{id}             - Read the current view
// POST /v1/sessions/{id}/choice      - Submit a choice
// POST /v1/sessions/{id}/save        - Persist a snapshot
// POST /v1/sessions/{id}/load        - Restore from a snapshot
// POST /v1/sessions/{id}/settings    - Stage a setup change
// POST /v1/sessions/{id}/direction   - Stage a story direction
// POST /v1/sessions/{id}/page        - Move the dialogue page
// GET  /v1/sessions/{id}/summary     - Read the latest summary
// GET  /v1/sessions/{id}/export      - Download the story log
// GET  /v1/sessions/{id}/transcript  - Inspect the raw conversation
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")

	if path == "" {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleStart(w, r)
		return
	}

	idStr, action, _ := strings.Cut(path, "/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", idStr, "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleView(w, r, id)
	case action == "choice" && r.Method == http.MethodPost:
		h.handleChoice(w, r, id)
	case action == "save" && r.Method == http.MethodPost:
		h.handleSave(w, r, id)
	case action == "load" && r.Method == http.MethodPost:
		h.handleLoad(w, r, id)
	case action == "settings" && r.Method == http.MethodPost:
		h.handleSettings(w, r, id)
	case action == "direction" && r.Method == http.MethodPost:
		h.handleDirection(w, r, id)
	case action == "page" && r.Method == http.MethodPost:
		h.handlePage(w, r, id)
	case action == "summary" && r.Method == http.MethodGet:
		h.handleSummary(w, r, id)
	case action == "export" && r.Method == http.MethodGet:
		h.handleExport(w, r, id)
	case action == "transcript" && r.Method == http.MethodGet:
		h.handleTranscript(w, r, id)
	default:
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed for this endpoint")
	}
}

func (h *SessionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var setup state.GameSetup
	if err := json.NewDecoder(r.Body).Decode(&setup); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if setup.Lang == "" {
		setup.Lang = h.lang
	}

	key := setup.APIKey
	if key == "" {
		key = h.credential
	}
	if key == "" {
		h.writeError(w, http.StatusBadRequest, i18n.T("apiKeyNotSet", setup.Lang))
		return
	}

	llm, err := h.factory(key)
	if err != nil {
		h.logger.Error("Failed to create model client", "error", err)
		h.writeError(w, http.StatusInternalServerError, i18n.T("serviceError", setup.Lang))
		return
	}

	ctrl := session.New(session.Options{
		LLM:        llm,
		Store:      h.store,
		Logger:     h.logger,
		Credential: key,
		Model:      h.model,
		Lang:       setup.Lang,
	})

	view, err := ctrl.StartGame(r.Context(), setup)
	if err != nil {
		h.writeControllerError(w, err, setup.Lang)
		return
	}

	h.mu.Lock()
	h.sessions[ctrl.ID()] = ctrl
	h.mu.Unlock()

	h.writeJSON(w, http.StatusCreated, view)
}

func (h *SessionHandler) handleView(w http.ResponseWriter, _ *http.Request, id uuid.UUID) {
	ctrl, ok := h.lookup(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.writeJSON(w, http.StatusOK, ctrl.View())
}

func (h *SessionHandler) handleChoice(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	ctrl, ok := h.lookup(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var choice scene.Choice
	if err := json.NewDecoder(r.Body).Decode(&choice); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if choice.Text == "" {
		h.writeError(w, http.StatusBadRequest, "Choice text is required")
		return
	}

	view, err := ctrl.SubmitChoice(r.Context(), choice)
	if err != nil {
		h.writeControllerError(w, err, h.lang)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) handleSave(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	ctrl, ok := h.lookup(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err := ctrl.SaveSession(r.Context()); err != nil {
		if errors.Is(err, session.ErrNotPlaying) {
			h.writeError(w, http.StatusConflict, i18n.T("saveOnlyDuringPlay", h.lang))
			return
		}
		if errors.Is(err, session.ErrBusy) {
			h.writeError(w, http.StatusConflict, "A model call is in progress")
			return
		}
		h.writeError(w, http.StatusInternalServerError, i18n.T("saveFailed", h.lang))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoad restores a session from its snapshot. The snapshot is read
// first so a key stored with the save can back the rebuilt client.
func (h *SessionHandler) handleLoad(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	snap, err := h.store.LoadSnapshot(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to read save", "error", err, "session_id", id)
		h.writeError(w, http.StatusInternalServerError, i18n.T("loadFailedCorrupt", h.lang))
		return
	}
	if snap == nil {
		h.writeError(w, http.StatusNotFound, i18n.T("noSaveFile", h.lang))
		return
	}

	key := snap.Setup.APIKey
	if key == "" {
		key = h.credential
	}
	if key == "" {
		h.writeError(w, http.StatusBadRequest, i18n.T("loadFailedNoApiKey", h.lang))
		return
	}

	llm, err := h.factory(key)
	if err != nil {
		h.logger.Error("Failed to create model client", "error", err)
		h.writeError(w, http.StatusInternalServerError, i18n.T("serviceError", h.lang))
		return
	}

	ctrl := session.New(session.Options{
		LLM:        llm,
		Store:      h.store,
		Logger:     h.logger,
		Credential: key,
		Model:      h.model,
		Lang:       h.lang,
	})
	if err := ctrl.Adopt(snap); err != nil {
		h.writeControllerError(w, err, h.lang)
		return
	}

	h.mu.Lock()
	h.sessions[id] = ctrl
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, ctrl.View())
}

func (h *SessionHandler) handleSettings(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	ctrl, ok := h.lookup(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	var setup state.GameSetup
	if err := json.NewDecoder(r.Body).Decode(&setup); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ctrl.ChangeSettings(setup); err != nil {
		h.writeControllerError(w, err, h.lang)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleDirection(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	ctrl, ok := h.lookup(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	var body struct {
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ctrl.SetStoryDirection(body.Direction)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handlePage(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	ctrl, ok := h.lookup(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	var body struct {
		Page int `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ctrl.SetCurrentPage(body.Page)
	h.writeJSON(w, http.StatusOK, ctrl.View())
}

func (h *SessionHandler) handleSummary(w http.ResponseWriter, _ *http.Request, id uuid.UUID) {
	ctrl, ok := h.lookup(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"summary": ctrl.Summary()})
}

func (h *SessionHandler) handleExport(w http.ResponseWriter, _ *http.Request, id uuid.UUID) {
	ctrl, ok := h.lookup(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(ctrl.ExportLog())); err != nil {
		h.logger.Error("Failed to write export", "error", err)
	}
}

// handleTranscript exposes the raw turns, synthetic ones included, so
// the exact conversation behind the next request can be inspected.
func (h *SessionHandler) handleTranscript(w http.ResponseWriter, _ *http.Request, id uuid.UUID) {
	ctrl, ok := h.lookup(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]chat.Transcript{"transcript": ctrl.Transcript()})
}

func (h *SessionHandler) lookup(id uuid.UUID) (*session.Controller, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ctrl, ok := h.sessions[id]
	return ctrl, ok
}

func (h *SessionHandler) writeControllerError(w http.ResponseWriter, err error, lang i18n.Language) {
	switch {
	case errors.Is(err, session.ErrBusy):
		h.writeError(w, http.StatusConflict, "A model call is in progress")
	case errors.Is(err, session.ErrEnded):
		h.writeError(w, http.StatusConflict, "The story has ended")
	case errors.Is(err, session.ErrNotPlaying):
		h.writeError(w, http.StatusConflict, "The session is not in play")
	case errors.Is(err, session.ErrNoCredential):
		h.writeError(w, http.StatusBadRequest, i18n.T("apiKeyNotSet", lang))
	case errors.Is(err, session.ErrNoSave):
		h.writeError(w, http.StatusNotFound, i18n.T("noSaveFile", lang))
	default:
		h.writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (h *SessionHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *SessionHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}
