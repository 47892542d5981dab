package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"

	"github.com/gorilla/websocket"
)

// SourcePreference supplies the saved source mode when a client does not pick one.
type SourcePreference interface {
	Source(ctx context.Context) domain.SourceMode
}

type WSHandler struct {
	service  *app.QuizService
	defaults domain.SessionOptions
	prefs    SourcePreference
	upgrader websocket.Upgrader
}

// NewWSHandler builds the live session endpoint. prefs may be nil.
func NewWSHandler(service *app.QuizService, defaults domain.SessionOptions, prefs SourcePreference) *WSHandler {
	return &WSHandler{
		service:  service,
		defaults: defaults,
		prefs:    prefs,
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

// selectPayload answers the question in view. With QuestionID set the answer
// is rejected once the countdown has moved past that question.
type selectPayload struct {
	QuestionID *int `json:"questionId"`
	Choice     int  `json:"choice"`
}

type navigatePayload struct {
	QuestionID *int `json:"questionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func newError(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Kind: errorKind(err), Message: err.Error()}}
}

// errorKind lets clients tell "wait and retry" apart from "switch to local mode".
func errorKind(err error) string {
	var pe *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case errors.Is(err, domain.ErrEmptyQuestionSet):
		return "empty_question_set"
	case errors.Is(err, domain.ErrStaleQuestion):
		return "stale_question"
	case errors.Is(err, domain.ErrInvalidPhase), errors.Is(err, domain.ErrNothingToRetreat):
		return "invalid_phase"
	case errors.Is(err, domain.ErrInvalidChoice), errors.Is(err, domain.ErrInvalidOptions):
		return "invalid_input"
	case errors.As(err, &pe), errors.Is(err, domain.ErrNoResults), errors.Is(err, domain.ErrInvalidParameters):
		return "provider"
	default:
		return "internal"
	}
}

// ServeWS upgrades the request, launches a session and relays its state until the socket closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := config.WithContext(r.Context())

	opts, err := h.parseOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	// the session outlives individual commands, not the socket
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	session, launchErr := h.service.Launch(ctx, opts)
	if session == nil {
		_ = conn.WriteJSON(newError(launchErr))
		return
	}
	defer h.service.Close(session.ID())
	log = log.WithField("session_id", session.ID())

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		var lastResult string
		for {
			select {
			case st, ok := <-updates:
				if !ok {
					return
				}
				msgs := []outboundMessage[any]{{Type: "state", Payload: st}}
				if st.Phase == domain.PhaseCompleted && st.SessionID != lastResult {
					if res, ok := session.Result(); ok && res.SessionID == st.SessionID {
						lastResult = st.SessionID
						msgs = append(msgs, outboundMessage[any]{Type: "result", Payload: res})
					}
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reject := func(command string, err error) {
		log.WithError(err).WithField("command", command).Debug("command rejected")
		select {
		case send <- newError(err):
		case <-closeSignals:
		}
	}

	if launchErr != nil {
		send <- newError(launchErr)
	}

	// loads run beside the read loop so commands and disconnects are seen during a slow fetch
	var loads sync.WaitGroup
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if load, ok := h.loadCommand(session, inbound.Type); ok {
			loads.Add(1)
			go func(command string) {
				defer loads.Done()
				if err := ignoreSuperseded(load(ctx)); err != nil && ctx.Err() == nil {
					reject(command, err)
				}
			}(inbound.Type)
			continue
		}
		if err := h.dispatch(session, inbound); err != nil {
			reject(inbound.Type, err)
		}
	}

	cancelCtx()
	close(closeSignals)
	loads.Wait()
	<-updatesDone
	close(send)
	<-writerDone
}

var errUnsupportedCommand = errors.New("unsupported message type")

// loadCommand maps the commands that source questions to their session call.
func (h *WSHandler) loadCommand(session *app.Session, command string) (func(context.Context) error, bool) {
	switch command {
	case "restart":
		return session.Restart, true
	case "retry":
		return session.Start, true
	default:
		return nil, false
	}
}

func (h *WSHandler) dispatch(session *app.Session, in inboundMessage) error {
	switch in.Type {
	case "begin":
		return session.Begin()
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return domain.ErrInvalidChoice
		}
		if payload.QuestionID != nil {
			return session.SelectAnswerFor(*payload.QuestionID, payload.Choice)
		}
		return session.SelectAnswer(payload.Choice)
	case "next":
		var payload navigatePayload
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &payload); err != nil {
				return err
			}
		}
		if payload.QuestionID != nil {
			return session.AdvanceFrom(*payload.QuestionID)
		}
		return session.Advance()
	case "back":
		return session.Retreat()
	case "finish":
		_, err := session.CompleteNow()
		return err
	default:
		return errUnsupportedCommand
	}
}

func ignoreSuperseded(err error) error {
	if errors.Is(err, app.ErrLoadSuperseded) {
		return nil
	}
	return err
}

// parseOptions overlays query parameters on the configured defaults.
func (h *WSHandler) parseOptions(r *http.Request) (domain.SessionOptions, error) {
	q := r.URL.Query()
	opts := h.defaults
	if h.prefs != nil {
		opts.Source = h.prefs.Source(r.Context())
	}

	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.New("invalid count")
		}
		opts.Count = n
	}
	if v := q.Get("time"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.New("invalid time")
		}
		opts.TimeLimitSeconds = n
	}
	if v := q.Get("category"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.New("invalid category")
		}
		opts.Category = n
	}
	if q.Has("difficulty") {
		d, err := domain.ParseDifficulty(q.Get("difficulty"))
		if err != nil {
			return opts, err
		}
		opts.Difficulty = d
	}
	if v := q.Get("source"); v != "" {
		m, err := domain.ParseSourceMode(v)
		if err != nil {
			return opts, err
		}
		opts.Source = m
	}
	return opts, opts.Validate()
}
