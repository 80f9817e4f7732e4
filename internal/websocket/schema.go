package websocket

import "github.com/stemsi/speaking-backend/internal/examflow"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionReady          Action = "ready"
	ActionAudioEnded     Action = "audio_ended"
	ActionAudioError     Action = "audio_error"
	ActionCaptureStarted Action = "capture_started"
	ActionCaptureStopped Action = "capture_stopped"
	ActionMicDenied      Action = "mic_denied"
	ActionAbandon        Action = "abandon"
	ActionPing           Action = "ping"
)

// Request carries every client action. Fields unused by an action are zero.
// Captured audio is sent as binary frames, not as a Request.
type Request struct {
	Action         Action `json:"action"`
	Token          uint64 `json:"token,omitempty"`
	QuestionNumber int    `json:"question_number,omitempty"`
	MimeType       string `json:"mime_type,omitempty"`
	Message        string `json:"message,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventPhase        Event = "phase"
	EventTick         Event = "tick"
	EventPlayAudio    Event = "play_audio"
	EventStopAudio    Event = "stop_audio"
	EventStartCapture Event = "start_capture"
	EventStopCapture  Event = "stop_capture"
	EventAlert        Event = "alert"
	EventUploadStatus Event = "upload_status"
	EventExamComplete Event = "exam_complete"
	EventError        Event = "error"
	EventPong         Event = "pong"
)

type PhaseResponse struct {
	Event Event `json:"event"`
	examflow.PhaseView
}

type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining"`
}

type PlayAudioResponse struct {
	Event Event              `json:"event"`
	Token uint64             `json:"token"`
	Kind  examflow.AudioKind `json:"kind"`
	URL   string             `json:"url"`
}

type CaptureResponse struct {
	Event          Event `json:"event"`
	QuestionNumber int   `json:"question_number"`
}

type AlertResponse struct {
	Event   Event  `json:"event"`
	Message string `json:"message"`
}

type UploadStatusResponse struct {
	Event          Event                 `json:"event"`
	QuestionNumber int                   `json:"question_number"`
	Status         examflow.UploadStatus `json:"status"`
}

type CompleteResponse struct {
	Event     Event `json:"event"`
	Abandoned bool  `json:"abandoned"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type SimpleResponse struct {
	Event Event `json:"event"`
}
