package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"quiz-rush-service/internal/app"
	"quiz-rush-service/internal/domain"
)

const (
	writeWait = 10 * time.Second
	sendQueue = 64
	// DefaultMessagesPerSecond applies when the handler is built with a non-positive limit.
	DefaultMessagesPerSecond = 10
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
	perSec   float64
	log      *zap.Logger
}

func NewWSHandler(service *app.GameService, messagesPerSecond float64, log *zap.Logger) *WSHandler {
	if messagesPerSecond <= 0 {
		messagesPerSecond = DefaultMessagesPerSecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		perSec: messagesPerSecond,
		log:    log,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Game domain.GameType `json:"game"`
}

type answerPayload struct {
	Value string `json:"value"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type welcomePayload struct {
	PlayerID    string            `json:"playerId"`
	DisplayName string            `json:"displayName"`
	Games       []domain.GameType `json:"games"`
}

type tickPayload struct {
	RemainingMs int64 `json:"remainingMs"`
}

type scorePayload struct {
	Score int `json:"score"`
}

type endedPayload struct {
	Score  int              `json:"score"`
	Reason domain.EndReason `json:"reason"`
}

type submittedPayload struct {
	Score int    `json:"score"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs one player's session over the socket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	player := domain.Player{
		ID:          r.URL.Query().Get("playerId"),
		DisplayName: domain.NormalizeName(r.URL.Query().Get("name")),
	}
	if player.ID == "" {
		player.ID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	writerDone := make(chan struct{})
	out := &wsPresenter{send: make(chan outboundMessage[any], sendQueue), done: writerDone}

	// only this goroutine writes to conn
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-out.send:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug("ws write error", zap.String("player", player.ID), zap.Error(err))
					return
				}
			case <-done:
				return
			}
		}
	}()

	session := h.service.Open(player, out, out)
	h.log.Info("player connected", zap.String("player", player.ID))
	out.push("welcome", welcomePayload{
		PlayerID:    player.ID,
		DisplayName: player.DisplayName,
		Games:       h.service.GameTypes(),
	})

	limiter := rate.NewLimiter(rate.Limit(h.perSec), max(1, int(h.perSec)))
	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !limiter.Allow() {
			out.fail("too many messages")
			continue
		}
		h.handle(ctx, player.ID, inbound, out)
	}

	h.service.Close(session)
	close(done)
	<-writerDone
	h.log.Info("player disconnected", zap.String("player", player.ID))
}

func (h *WSHandler) handle(ctx context.Context, playerID string, inbound inboundMessage, out *wsPresenter) {
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			out.fail("invalid start payload")
			return
		}
		if _, err := h.service.Start(ctx, playerID, payload.Game); err != nil {
			out.fail(err.Error())
		}
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			out.fail("invalid answer payload")
			return
		}
		outcome, err := h.service.Answer(ctx, playerID, payload.Value)
		if err != nil {
			out.fail(err.Error())
		}
		if !outcome.Ignored {
			out.push("outcome", outcome)
		}
	case "retry":
		if err := h.service.Retry(ctx, playerID); err != nil {
			out.fail(err.Error())
		}
	case "reset":
		if err := h.service.Reset(playerID); err != nil {
			out.fail(err.Error())
			return
		}
		round, err := h.service.Round(playerID)
		if err == nil {
			out.push("round", round)
		}
	default:
		out.fail("unsupported message type")
	}
}

// wsPresenter turns engine callbacks into outbound messages.
// done closes when the writer stops, so pushes never block on a dead socket.
type wsPresenter struct {
	send chan outboundMessage[any]
	done <-chan struct{}
}

func (p *wsPresenter) OnQuestionShown(q domain.Question) {
	p.push("question", q)
}

// OnTimerTick drops the tick when the socket is behind; the next one carries fresher data.
func (p *wsPresenter) OnTimerTick(remaining time.Duration) {
	select {
	case p.send <- outboundMessage[any]{Type: "tick", Payload: tickPayload{RemainingMs: remaining.Milliseconds()}}:
	default:
	}
}

func (p *wsPresenter) OnScoreChanged(score int) {
	p.push("score", scorePayload{Score: score})
}

func (p *wsPresenter) OnRoundEnded(finalScore int, reason domain.EndReason) {
	p.push("ended", endedPayload{Score: finalScore, Reason: reason})
}

func (p *wsPresenter) OnScoreSubmitted(result domain.RoundResult, err error) {
	payload := submittedPayload{Score: result.Score, OK: err == nil}
	if err != nil {
		payload.Error = "score could not be saved"
	}
	p.push("submitted", payload)
}

func (p *wsPresenter) push(typ string, payload any) {
	select {
	case p.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-p.done:
	}
}

func (p *wsPresenter) fail(message string) {
	p.push("error", errorPayload{Message: message})
}
