package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stemsi/speaking-backend/internal/examflow"
)

// maxFrameBytes bounds a single client frame. Recorders flush a chunk
// every second, far below this.
const maxFrameBytes = 1 << 20

var (
	ErrConnClosed = errors.New("connection closed")
	// ErrBadRequest marks a text frame that is not a valid Request. The
	// connection is still usable.
	ErrBadRequest = errors.New("malformed request")
)

// Frame is one message received from the candidate: either an action or a
// chunk of captured audio.
type Frame struct {
	Request *Request
	Chunk   []byte
}

// ExamConn is the server side of a candidate's exam stream. It implements
// examflow.Client; writes are serialised so the runner, upload goroutines
// and the keep-alive loop can share it.
type ExamConn struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

var _ examflow.Client = (*ExamConn)(nil)

// NewExamConn wraps an upgraded connection.
func NewExamConn(conn *websocket.Conn) *ExamConn {
	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
	return &ExamConn{conn: conn}
}

// Read blocks for the next frame. Errors other than ErrBadRequest mean the
// connection is gone.
func (c *ExamConn) Read() (Frame, error) {
	mt, data, err := c.conn.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	c.conn.SetReadDeadline(time.Now().Add(readWait))

	if mt == websocket.BinaryMessage {
		return Frame{Chunk: data}, nil
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil || req.Action == "" {
		return Frame{}, ErrBadRequest
	}
	return Frame{Request: &req}, nil
}

// KeepAlive pings the client until ctx is done or a ping fails.
func (c *ExamConn) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// Close sends a close frame with reason and closes the connection. Later
// writes fail with ErrConnClosed.
func (c *ExamConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.conn.Close()
}

// ─── examflow.Client ───────────────────────────────────────────────────

// PlayAudio asks the client to play url and report back under token.
func (c *ExamConn) PlayAudio(token uint64, kind examflow.AudioKind, url string) error {
	return c.send(PlayAudioResponse{Event: EventPlayAudio, Token: token, Kind: kind, URL: url})
}

// StopAudio silences the current track.
func (c *ExamConn) StopAudio() error {
	return c.send(SimpleResponse{Event: EventStopAudio})
}

// StartCapture opens the microphone; chunks follow as binary frames.
func (c *ExamConn) StartCapture(questionNumber int) error {
	return c.send(CaptureResponse{Event: EventStartCapture, QuestionNumber: questionNumber})
}

// StopCapture asks the client to flush its last chunk and send capture_stopped.
func (c *ExamConn) StopCapture(questionNumber int) error {
	return c.send(CaptureResponse{Event: EventStopCapture, QuestionNumber: questionNumber})
}

// Phase announces a new phase.
func (c *ExamConn) Phase(v examflow.PhaseView) error {
	return c.send(PhaseResponse{Event: EventPhase, PhaseView: v})
}

// Tick reports the seconds left on the countdown.
func (c *ExamConn) Tick(remaining int) error {
	return c.send(TickResponse{Event: EventTick, Remaining: remaining})
}

// Alert shows a blocking message.
func (c *ExamConn) Alert(message string) error {
	return c.send(AlertResponse{Event: EventAlert, Message: message})
}

// UploadStatus reports how a question's recording was stored.
func (c *ExamConn) UploadStatus(questionNumber int, status examflow.UploadStatus) error {
	return c.send(UploadStatusResponse{Event: EventUploadStatus, QuestionNumber: questionNumber, Status: status})
}

// Complete ends the exam on the client.
func (c *ExamConn) Complete(abandoned bool) error {
	return c.send(CompleteResponse{Event: EventExamComplete, Abandoned: abandoned})
}

// ─── Replies ───────────────────────────────────────────────────────────

// Error reports a rejected action to the client.
func (c *ExamConn) Error(msg string) error {
	return c.send(ErrorResponse{Event: EventError, Error: msg})
}

// Pong answers an application-level ping.
func (c *ExamConn) Pong() error {
	return c.send(SimpleResponse{Event: EventPong})
}

func (c *ExamConn) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	return WriteTyped(c.conn, v)
}

func (c *ExamConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}
