package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"quiz-rush-service/internal/app"
	"quiz-rush-service/internal/domain"
)

// NewRouter exposes the REST endpoints and the play socket.
func NewRouter(service *app.GameService, ws *WSHandler) http.Handler {
	h := &restHandler{service: service}

	mux := chi.NewRouter()
	mux.Use(cors.AllowAll().Handler)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Get("/games", h.games)
	mux.Get("/leaderboard", h.leaderboard)
	mux.Get("/players/online", h.online)
	mux.Get("/players/{playerId}/wins", h.wins)
	mux.Get("/ws", ws.ServeWS)
	return mux
}

type restHandler struct {
	service *app.GameService
}

type winsResponse struct {
	PlayerID string          `json:"playerId"`
	Game     domain.GameType `json:"game"`
	Wins     int             `json:"wins"`
}

func (h *restHandler) games(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"games": h.service.GameTypes()})
}

func (h *restHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	board, err := h.service.Leaderboard(r.Context(), domain.GameType(query.Get("game")), query.Get("date"), limit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *restHandler) online(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Online(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"online": n})
}

func (h *restHandler) wins(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerId")
	game := domain.GameType(r.URL.Query().Get("game"))

	wins, err := h.service.Wins(r.Context(), playerID, game)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, winsResponse{PlayerID: playerID, Game: game, Wins: wins})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnsupportedGameType), errors.Is(err, domain.ErrInvalidDate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
