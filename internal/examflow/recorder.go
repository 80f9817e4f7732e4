package examflow

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

var (
	ErrMicDenied         = errors.New("microphone access denied")
	ErrEmptyRecording    = errors.New("recording produced no audio")
	ErrRecordingTooLarge = errors.New("recording exceeds size limit")
	ErrNotCapturing      = errors.New("no capture in progress")
)

// DefaultMimeType is assumed when the client does not name one.
const DefaultMimeType = "audio/webm"

// Artifact is the captured audio of one question.
type Artifact struct {
	QuestionNumber int
	MimeType       string
	Data           []byte
	Duration       time.Duration
}

// CaptureSink controls the microphone on the candidate's device.
type CaptureSink interface {
	StartCapture(questionNumber int) error
	StopCapture(questionNumber int) error
}

// Recorder buffers the audio chunks streamed by the client for one question at
// a time. Every started capture ends in exactly one callback, onArtifact with
// the finalized audio or onFailure, unless it is discarded. The buffer is
// released on every path.
//
// Callbacks run with the recorder locked: they must not block or call back
// into the Recorder.
type Recorder struct {
	clock    Clock
	sink     CaptureSink
	maxBytes int
	grace    time.Duration

	mu         sync.Mutex
	gen        uint64
	active     bool
	stopping   bool
	qn         int
	buf        bytes.Buffer
	started    time.Time
	stoppedAt  time.Time
	graceTimer Timer
	onArtifact func(Artifact)
	onFailure  func(questionNumber int, err error)
}

// NewRecorder creates a Recorder. grace is how long Stop waits for the client
// to flush its last chunks before finalizing on its own.
func NewRecorder(clock Clock, sink CaptureSink, maxBytes int, grace time.Duration) *Recorder {
	if grace <= 0 {
		grace = 3 * time.Second
	}
	return &Recorder{clock: clock, sink: sink, maxBytes: maxBytes, grace: grace}
}

// Start begins capturing questionNumber. A previous capture still waiting for
// its final chunks is finalized with what it has. If the client cannot be
// reached the capture is released and the error returned, with no callback.
func (r *Recorder) Start(questionNumber int, onArtifact func(Artifact), onFailure func(int, error)) error {
	r.mu.Lock()
	stopPrev, prev := false, r.qn
	if r.active {
		if r.stopping {
			r.finalizeLocked("")
		} else {
			stopPrev = true
			r.releaseLocked()
		}
	}
	r.gen++
	r.active = true
	r.qn = questionNumber
	r.started = r.clock.Now()
	r.onArtifact = onArtifact
	r.onFailure = onFailure
	r.mu.Unlock()

	if stopPrev {
		_ = r.sink.StopCapture(prev)
	}
	if err := r.sink.StartCapture(questionNumber); err != nil {
		r.mu.Lock()
		r.releaseLocked()
		r.gen++
		r.mu.Unlock()
		return err
	}
	return nil
}

// Write appends a chunk of captured audio to the open capture.
func (r *Recorder) Write(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return ErrNotCapturing
	}
	if r.maxBytes > 0 && r.buf.Len()+len(chunk) > r.maxBytes {
		return ErrRecordingTooLarge
	}
	r.buf.Write(chunk)
	return nil
}

// Denied aborts the capture of questionNumber without producing an artifact.
func (r *Recorder) Denied(questionNumber int) {
	r.mu.Lock()
	if !r.active || r.qn != questionNumber {
		r.mu.Unlock()
		return
	}
	wasStopping := r.stopping
	if r.onFailure != nil {
		r.onFailure(questionNumber, ErrMicDenied)
	}
	r.releaseLocked()
	r.gen++
	r.mu.Unlock()

	if !wasStopping {
		_ = r.sink.StopCapture(questionNumber)
	}
}

// Stop asks the client to stop capturing. The artifact is finalized when the
// client confirms with Finalize, or after the grace period.
func (r *Recorder) Stop(questionNumber int) {
	r.mu.Lock()
	if !r.active || r.stopping || r.qn != questionNumber {
		r.mu.Unlock()
		return
	}
	r.stopping = true
	r.stoppedAt = r.clock.Now()
	gen := r.gen
	r.graceTimer = r.clock.AfterFunc(r.grace, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if gen == r.gen && r.active {
			r.finalizeLocked("")
		}
	})
	r.mu.Unlock()

	_ = r.sink.StopCapture(questionNumber)
}

// Finalize closes the capture of questionNumber once the client has flushed.
func (r *Recorder) Finalize(questionNumber int, mimeType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active && r.qn == questionNumber {
		r.finalizeLocked(mimeType)
	}
}

func (r *Recorder) finalizeLocked(mimeType string) {
	end := r.stoppedAt
	if end.IsZero() {
		end = r.clock.Now()
	}
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	a := Artifact{
		QuestionNumber: r.qn,
		MimeType:       mimeType,
		Data:           bytes.Clone(r.buf.Bytes()),
		Duration:       end.Sub(r.started),
	}
	onArtifact, onFailure := r.onArtifact, r.onFailure
	r.releaseLocked()
	r.gen++

	if len(a.Data) == 0 {
		if onFailure != nil {
			onFailure(a.QuestionNumber, ErrEmptyRecording)
		}
		return
	}
	if onArtifact != nil {
		onArtifact(a)
	}
}

// Discard drops the open capture without any callback.
func (r *Recorder) Discard() {
	r.mu.Lock()
	qn, wasCapturing := r.qn, r.active && !r.stopping
	r.releaseLocked()
	r.gen++
	r.mu.Unlock()

	if wasCapturing {
		_ = r.sink.StopCapture(qn)
	}
}

// Busy reports whether a capture is open or waiting to be finalized.
func (r *Recorder) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Recorder) releaseLocked() {
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
	r.buf.Reset()
	r.active = false
	r.stopping = false
	r.stoppedAt = time.Time{}
	r.onArtifact = nil
	r.onFailure = nil
}
