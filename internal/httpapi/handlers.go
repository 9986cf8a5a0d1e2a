package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/buckshot-backend/internal/engine"
	"github.com/DoyleJ11/buckshot-backend/internal/hub"
	"github.com/DoyleJ11/buckshot-backend/internal/lobby"
	"github.com/DoyleJ11/buckshot-backend/internal/types"
)

const maxBodyBytes = 64 << 10

var errBadBody = errors.New("invalid request body")

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type createLobbyRequest struct {
	Name     string           `json:"name"`
	Settings *engine.Settings `json:"settings,omitempty"`
}

type createLobbyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// playerRequest is the body of every per-player action. Fields a route does
// not use are ignored.
type playerRequest struct {
	Username  string           `json:"username"`
	Target    string           `json:"target,omitempty"`
	Spectator bool             `json:"spectator,omitempty"`
	Settings  *engine.Settings `json:"settings,omitempty"`
}

type itemRequest struct {
	Username string `json:"username"`
	engine.ItemRequest
}

type commandResponse struct {
	Version int                `json:"version"`
	Events  []engine.Event     `json:"events"`
	Shot    *engine.ShotResult `json:"shot,omitempty"`
	Item    *engine.ItemResult `json:"item,omitempty"`
	Player  *engine.PlayerView `json:"player,omitempty"`
}

type lobbyResponse struct {
	ID          string          `json:"id"`
	Version     int             `json:"version"`
	Subscribers int             `json:"subscribers"`
	State       engine.Snapshot `json:"state"`
}

type handlers struct {
	hub     *hub.Hub
	log     *zap.Logger
	timeout time.Duration
}

func (h *handlers) CreateLobby(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := decode(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, err)
		return
	}
	settings := engine.DefaultSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}

	lb, err := h.hub.Create(req.Name, settings)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	v, err := lb.State(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createLobbyResponse{ID: lb.ID(), Name: v.State.Name})
}

func (h *handlers) ListLobbies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	writeJSON(w, http.StatusOK, struct {
		Lobbies []hub.Info `json:"lobbies"`
	}{Lobbies: h.hub.List(ctx)})
}

func (h *handlers) GetLobby(w http.ResponseWriter, r *http.Request) {
	lb, err := h.hub.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	v, err := lb.State(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lobbyResponse{ID: v.ID, Version: v.Version, Subscribers: v.NumClients, State: v.State})
}

// playerAction handles the routes whose body is a playerRequest.
func (h *handlers) playerAction(typ engine.CommandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req playerRequest
		if err := decode(w, r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
		h.run(w, r, engine.Command{
			Type:      typ,
			Player:    req.Username,
			Target:    req.Target,
			Spectator: req.Spectator,
			Settings:  req.Settings,
		})
	}
}

func (h *handlers) UseItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.run(w, r, engine.Command{Type: engine.CmdUseItem, Player: req.Username, Item: req.ItemRequest})
}

func (h *handlers) run(w http.ResponseWriter, r *http.Request, cmd engine.Command) {
	lb, err := h.hub.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	res, err := lb.Do(ctx, cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commandOutcome(res))
}

func commandOutcome(res lobby.Result) commandResponse {
	events := res.Outcome.Events
	if events == nil {
		events = []engine.Event{}
	}
	return commandResponse{
		Version: res.Version,
		Events:  events,
		Shot:    res.Outcome.Shot,
		Item:    res.Outcome.Item,
		Player:  res.Outcome.Player,
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errBadBody) {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: types.CodeBadRequest, Error: err.Error()})
		return
	}
	msg := types.ErrorMessage(err)
	status, _ := types.Classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, errorBody{Code: msg.Code, Error: msg.Error})
}

// decode reads a JSON body. An empty body still matches io.EOF so callers
// can treat it as optional.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
