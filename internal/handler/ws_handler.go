package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/examflow"
	"github.com/stemsi/speaking-backend/internal/middleware"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	ws "github.com/stemsi/speaking-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 4 * 1024,
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

// WSHandler serves the live exam stream.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
	// drainTimeout bounds how long a dropped connection waits for the
	// runner to settle before it is cancelled.
	drainTimeout time.Duration
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string, drainTimeout time.Duration) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
		drainTimeout:   drainTimeout,
	}
}

// ExamStream godoc
// WS /ws/v1/candidate/attempts/:attempt_id/stream
// Drives one test attempt. The server owns the flow; the client plays
// audio, captures the microphone and reports back.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	ec := ws.NewExamConn(conn)
	defer ec.Close("")

	wsLog := h.log.With().
		Int("candidate_id", claims.UserID).
		Str("attempt_id", attemptID.String()).
		Logger()

	session, err := h.sessionService.Open(c.Request.Context(), claims.UserID, attemptID, ec)
	if err != nil {
		wsLog.Warn().Err(err).Msg("Exam session rejected")
		_ = ec.Error(string(sessionErrorCode(err)))
		return
	}
	defer session.Close()

	wsLog.Info().Msg("Candidate connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ec.KeepAlive(ctx)

	var runDone chan error

	for {
		frame, err := ec.Read()
		if errors.Is(err, ws.ErrBadRequest) {
			_ = ec.Error("malformed request")
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		if frame.Chunk != nil {
			if err := session.Chunk(frame.Chunk); err != nil && !errors.Is(err, examflow.ErrNotCapturing) {
				wsLog.Warn().Err(err).Int("bytes", len(frame.Chunk)).Msg("Audio chunk rejected")
				_ = ec.Error(err.Error())
			}
			continue
		}

		req := frame.Request
		switch req.Action {
		case ws.ActionReady:
			if runDone != nil {
				continue
			}
			runDone = make(chan error, 1)
			go func() {
				runDone <- session.Run(ctx)
				ec.Close("exam ended")
			}()
		case ws.ActionAudioEnded:
			session.AudioEnded(req.Token)
		case ws.ActionAudioError:
			session.AudioFailed(req.Token, req.Message)
		case ws.ActionCaptureStarted:
			wsLog.Debug().Int("question_number", req.QuestionNumber).Msg("Capture started on client")
		case ws.ActionCaptureStopped:
			session.CaptureStopped(req.QuestionNumber, req.MimeType)
		case ws.ActionMicDenied:
			session.MicDenied(req.QuestionNumber, req.Message)
		case ws.ActionAbandon:
			if runDone == nil {
				h.abandonUnstarted(session, req.Reason, wsLog)
				ec.Close("exam ended")
				return
			}
			session.Abandon(req.Reason)
		case ws.ActionPing:
			_ = ec.Pong()
		default:
			wsLog.Warn().Str("action", string(req.Action)).Msg("Unknown action")
			_ = ec.Error("unknown action: " + string(req.Action))
		}
	}

	// Never started: the attempt stays open and the candidate may reconnect.
	if runDone == nil {
		wsLog.Info().Msg("Candidate left before the exam started")
		return
	}

	session.Disconnected()
	select {
	case err := <-runDone:
		if err != nil {
			wsLog.Warn().Err(err).Msg("Exam session interrupted")
		}
	case <-time.After(h.drainTimeout):
		wsLog.Error().Msg("Exam session did not settle after disconnect")
		cancel()
		<-runDone
	}
}

// abandonUnstarted settles an attempt the candidate left before sending
// ready. The attempt was already counted, so it must not stay open.
func (h *WSHandler) abandonUnstarted(session *service.Session, reason string, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), h.drainTimeout)
	defer cancel()
	if !session.AbandonUnstarted(ctx, reason) {
		log.Warn().Msg("Abandon before start ignored: session already running")
		return
	}
	log.Info().Msg("Candidate abandoned before the exam started")
}

// sessionErrorCode maps a refused session to the code sent to the client.
func sessionErrorCode(err error) response.ErrCode {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return response.ErrNotFound
	case errors.Is(err, service.ErrNotAttemptOwner):
		return response.ErrNotAttemptOwner
	case errors.Is(err, service.ErrAttemptClosed):
		return response.ErrAttemptClosed
	case errors.Is(err, service.ErrAttemptInProgress):
		return response.ErrAttemptInProgress
	default:
		return response.ErrInternal
	}
}
