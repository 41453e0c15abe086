package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/analyzer"
	"github.com/talentbridge/aptitude-backend/internal/model"
	"github.com/talentbridge/aptitude-backend/internal/session"
	ws "github.com/talentbridge/aptitude-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ProctorHandler owns the proctored-session WebSocket: one connection
// is one test attempt, carrying camera signals, frames, answers and
// the submit action inbound, and session events outbound.
type ProctorHandler struct {
	analyzer      analyzer.Analyzer
	persister     session.Persister
	violations    session.ViolationRecorder
	questions     []model.Question
	samplePeriod  time.Duration
	warmupTimeout time.Duration
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(az analyzer.Analyzer, persister session.Persister, violations session.ViolationRecorder, questions []model.Question, samplePeriod, warmupTimeout time.Duration, log zerolog.Logger, allowedOrigins []string) *ProctorHandler {
	return &ProctorHandler{
		analyzer:      az,
		persister:     persister,
		violations:    violations,
		questions:     questions,
		samplePeriod:  samplePeriod,
		warmupTimeout: warmupTimeout,
		log:           log.With().Str("component", "proctor_handler").Logger(),
		upgrader:      buildUpgrader(allowedOrigins),
	}
}

// proctorConn serializes all outbound writes for one connection.
// Session events arrive from the sampler and termination goroutines
// while acks come from the read loop, so every message goes through
// the outbound channel and a single writer goroutine.
type proctorConn struct {
	conn     *websocket.Conn
	outbound chan interface{}
	log      zerolog.Logger
}

// send queues one outbound message, dropping it if the client cannot
// keep up.
func (p *proctorConn) send(v interface{}) {
	select {
	case p.outbound <- v:
	default:
		p.log.Warn().Msg("Outbound buffer full, message dropped")
	}
}

func (p *proctorConn) sendError(msg string) {
	p.send(ws.ErrorResponse{Event: ws.EventError, Error: msg})
}

// writeLoop is the single connection writer.
func (p *proctorConn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-p.outbound:
			if err := ws.WriteTyped(p.conn, v); err != nil {
				p.log.Debug().Err(err).Msg("Outbound write failed")
				return
			}
		}
	}
}

// ProctorStream godoc
// WS /ws/v1/proctor
// Upgrades to WebSocket and runs one proctored session to completion.
func (h *ProctorHandler) ProctorStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pc := &proctorConn{
		conn:     conn,
		outbound: make(chan interface{}, 32),
		log:      h.log,
	}

	machine := session.New(session.Config{
		Analyzer:      h.analyzer,
		Persister:     h.persister,
		Violations:    h.violations,
		Questions:     h.questions,
		SamplePeriod:  h.samplePeriod,
		WarmupTimeout: h.warmupTimeout,
		Log:           h.log,
		OnEvent: func(e session.Event) {
			pc.send(e)
		},
	})

	wsLog := h.log.With().Str("session_id", machine.ID.String()).Logger()
	pc.log = wsLog
	wsLog.Info().Msg("Client connected")

	go pc.writeLoop(ctx)

	// A closed connection on a still-active session means the page is
	// gone; treat it like a visibility violation so the sampler stops
	// and the partial answers are persisted exactly once.
	defer func() {
		if machine.State() == session.StateActive {
			wsLog.Warn().Msg("Connection lost mid-session")
			machine.VisibilityLost()
		}
	}()

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionCameraGranted:
			if err := machine.CameraGranted(ctx); err != nil {
				pc.sendError(err.Error())
				continue
			}
			h.ackState(pc, machine)
		case ws.ActionCameraDenied:
			machine.CameraDenied()
		case ws.ActionFrame:
			h.handleFrame(pc, machine, &msg)
		case ws.ActionVisibilityLost:
			machine.VisibilityLost()
		case ws.ActionAnswer:
			if err := machine.SelectAnswer(msg.Question, msg.Choice); err != nil {
				pc.sendError(err.Error())
				continue
			}
			h.ackState(pc, machine)
		case ws.ActionSubmit:
			machine.Submit()
		case ws.ActionPing:
			pc.send(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			pc.sendError("unknown action: " + string(msg.Action))
		}
	}
}

// handleFrame decodes one base64 frame into the session mailbox.
// Frames arrive at camera rate; decode failures are reported but do
// not end the session.
func (h *ProctorHandler) handleFrame(pc *proctorConn, machine *session.Machine, msg *ws.RequestPayload) {
	if machine.State() != session.StateActive {
		return
	}
	data, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		pc.sendError("invalid frame encoding")
		return
	}
	machine.Mailbox().Publish(&model.Frame{
		Data:       data,
		MimeType:   msg.MimeType,
		CapturedAt: time.Now(),
	})
}

func (h *ProctorHandler) ackState(pc *proctorConn, machine *session.Machine) {
	pc.send(ws.StateResponse{Event: ws.EventState, State: machine.State().String()})
}
