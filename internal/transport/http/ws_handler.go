package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"trivia-tracker/internal/app"
	"trivia-tracker/internal/domain"
)

var errUnsupported = errors.New("unsupported message type")

type WSHandler struct {
	service  *app.ContestService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ContestService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// commandPayload carries the arguments of every command; each command reads
// the fields it needs.
type commandPayload struct {
	Versions   []int             `json:"versions"`
	Round      int               `json:"round"`
	Question   int               `json:"question"`
	Queue      int               `json:"queue"`
	Text       string            `json:"text"`
	Confidence int               `json:"confidence"`
	Operator   string            `json:"operator"`
	Value      int               `json:"value"`
	Answer     string            `json:"answer"`
	From       int               `json:"from"`
	To         int               `json:"to"`
	Speed      bool              `json:"speed"`
	Points     int               `json:"points"`
	Place      int               `json:"place"`
	Standings  []domain.Standing `json:"standings"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets. Commands are fire-and-forget:
// only failures are answered. Every committed change is announced with a
// "changed" hint and read back through "poll".
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	terminal, err := h.service.Connect(ctx, user)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Disconnect(context.Background(), terminal.ID)

	updates, cancel := h.service.Subscribe(ctx)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case change, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "changed", Payload: change}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "hello", Payload: terminal}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var payload commandPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Command: inbound.Type, Message: "invalid payload"}}
				continue
			}
		}
		if inbound.Type == "poll" {
			send <- outboundMessage[any]{Type: "changes", Payload: h.service.Poll(ctx, payload.Versions)}
			continue
		}
		if err := h.dispatch(ctx, user, inbound.Type, payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Command: inbound.Type, Message: err.Error()}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch runs one command on behalf of user, who is the submitter or caller.
func (h *WSHandler) dispatch(ctx context.Context, user, kind string, p commandPayload) error {
	s := h.service
	switch kind {
	case "propose":
		return s.ProposeAnswer(ctx, p.Round, p.Question, p.Text, user, p.Confidence)
	case "callIn":
		return s.CallIn(ctx, p.Round, p.Queue, user)
	case "markCorrect":
		return s.MarkCorrect(ctx, p.Round, p.Queue, user)
	case "markIncorrect":
		return s.MarkIncorrect(ctx, p.Round, p.Queue, user)
	case "markPartial":
		return s.MarkPartial(ctx, p.Round, p.Queue, user)
	case "markUncalled":
		return s.MarkUncalled(ctx, p.Round, p.Queue)
	case "markDuplicate":
		return s.MarkDuplicate(ctx, p.Round, p.Queue)
	case "setOperator":
		return s.SetOperator(ctx, p.Round, p.Queue, p.Operator)
	case "open":
		return s.OpenQuestion(ctx, p.Round, p.Question, p.Value, p.Text)
	case "close":
		return s.CloseQuestion(ctx, p.Round, p.Question, p.Answer)
	case "reopen":
		return s.ReopenQuestion(ctx, p.Round, p.Question)
	case "resetQuestion":
		return s.ResetQuestion(ctx, p.Round, p.Question)
	case "remapQuestion":
		return s.RemapQuestion(ctx, p.Round, p.From, p.To)
	case "setSpeed":
		return s.SetSpeed(ctx, p.Round, p.Speed)
	case "advanceRound":
		s.AdvanceRound(ctx)
		return nil
	case "setAnnounced":
		return s.SetAnnounced(ctx, p.Round, p.Points, p.Place)
	case "setStandings":
		return s.SetStandings(ctx, p.Round, p.Standings)
	case "setDiscrepancy":
		return s.SetDiscrepancyText(ctx, p.Round, p.Text)
	}
	return errUnsupported
}
