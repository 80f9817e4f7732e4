package examflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var ErrRunnerStarted = errors.New("exam runner already started")

// UploadStatus is reported to the candidate for every artifact.
type UploadStatus string

const (
	UploadSucceeded UploadStatus = "uploaded"
	UploadFailed    UploadStatus = "failed"
)

// Client is the candidate's device as seen by a Runner.
type Client interface {
	AudioSink
	CaptureSink
	Phase(view PhaseView) error
	Tick(remaining int) error
	Alert(message string) error
	UploadStatus(questionNumber int, status UploadStatus) error
	Complete(abandoned bool) error
}

// Uploader ships one artifact to persistent storage.
type Uploader interface {
	Upload(ctx context.Context, attemptID string, a Artifact) error
}

// Observer receives session progress for monitoring. It must not block.
type Observer interface {
	PhaseChanged(attemptID string, view PhaseView)
	UploadFinished(attemptID string, questionNumber int, err error)
	SessionEnded(attemptID string, abandoned bool)
}

type nopObserver struct{}

func (nopObserver) PhaseChanged(string, PhaseView)    {}
func (nopObserver) UploadFinished(string, int, error) {}
func (nopObserver) SessionEnded(string, bool)         {}

// RunnerConfig configures one exam session.
type RunnerConfig struct {
	AttemptID         string
	CandidateID       int
	Questions         []Question
	Guides            GuideSet
	Timing            Timing
	TickInterval      time.Duration
	GuideMaxWait      time.Duration
	RecordingGrace    time.Duration
	MaxRecordingBytes int
	UploadTimeout     time.Duration
	Clock             Clock
}

// Runner drives one exam session. A single goroutine (Run) owns the state and
// applies events in arrival order; the input methods may be called from any
// goroutine.
type Runner struct {
	cfg      RunnerConfig
	machine  Machine
	state    State
	client   Client
	uploader Uploader
	observer Observer
	guard    *AbandonGuard
	clock    Clock
	log      zerolog.Logger

	countdown *Countdown
	player    *GuidePlayer
	recorder  *Recorder
	delay     Timer

	mu      sync.Mutex
	queue   []Event
	signal  chan struct{}
	started atomic.Bool
	uploads sync.WaitGroup
}

// NewRunner creates a Runner. observer may be nil.
func NewRunner(cfg RunnerConfig, client Client, uploader Uploader, completer Completer, observer Observer, log zerolog.Logger) *Runner {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Timing == (Timing{}) {
		cfg.Timing = DefaultTiming()
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = time.Minute
	}
	if observer == nil {
		observer = nopObserver{}
	}

	log = log.With().
		Str("component", "exam_runner").
		Str("attempt_id", cfg.AttemptID).
		Int("candidate_id", cfg.CandidateID).
		Logger()

	return &Runner{
		cfg:       cfg,
		machine:   NewMachine(cfg.Timing, cfg.Guides),
		state:     NewState(cfg.AttemptID, cfg.Questions),
		client:    client,
		uploader:  uploader,
		observer:  observer,
		guard:     NewAbandonGuard(cfg.AttemptID, completer, log),
		clock:     cfg.Clock,
		log:       log,
		countdown: NewCountdown(cfg.Clock, cfg.TickInterval),
		player:    NewGuidePlayer(cfg.Clock, client, cfg.GuideMaxWait),
		recorder:  NewRecorder(cfg.Clock, client, cfg.MaxRecordingBytes, cfg.RecordingGrace),
		signal:    make(chan struct{}, 1),
	}
}

// ─── Inputs ────────────────────────────────────────────────────────────

// AudioEnded reports that the client finished the track under token.
func (r *Runner) AudioEnded(token uint64) {
	r.player.Ended(token)
}

// AudioFailed reports that the client could not play the track under token.
func (r *Runner) AudioFailed(token uint64, reason string) {
	r.log.Warn().Uint64("token", token).Str("reason", reason).Msg("Audio playback failed on client")
	r.player.Failed(token, reason)
}

// Chunk appends captured audio to the open capture.
func (r *Runner) Chunk(data []byte) error {
	return r.recorder.Write(data)
}

// CaptureStopped reports that the client flushed its last chunk.
func (r *Runner) CaptureStopped(questionNumber int, mimeType string) {
	r.recorder.Finalize(questionNumber, mimeType)
}

// MicDenied reports that the client could not open its microphone.
func (r *Runner) MicDenied(questionNumber int, message string) {
	r.log.Warn().Int("question_number", questionNumber).Str("message", message).Msg("Microphone access denied")
	r.recorder.Denied(questionNumber)
	if message == "" {
		message = "Microphone access is required to record your answer. Please allow microphone access."
	}
	r.post(MicDenied{QuestionNumber: questionNumber, Message: message})
}

// Abandon reports a confirmed request to leave the exam.
func (r *Runner) Abandon(reason string) {
	r.post(Abandon{Reason: reason})
}

// AbandonUnstarted settles an attempt whose session was opened but never
// run. Run refuses to start afterwards. It returns false when Run has
// already been called, in which case Abandon is the right input.
func (r *Runner) AbandonUnstarted(ctx context.Context, reason string) bool {
	if !r.started.CompareAndSwap(false, true) {
		return false
	}
	if reason == "" {
		reason = AbandonReasonUserLeft
	}
	r.state.Abandoned = true
	r.state.AbandonReason = reason
	r.state.Phase = PhaseAbandoned

	r.log.Info().Str("reason", reason).Msg("Exam abandoned before it started")
	r.complete(ctx, CompleteSession{Abandoned: true, Reason: reason})
	return true
}

// Disconnected reports that the client went away. An unfinished session is
// abandoned.
func (r *Runner) Disconnected() {
	r.post(Abandon{Reason: AbandonReasonUserLeft})
}

func (r *Runner) post(ev Event) {
	r.mu.Lock()
	r.queue = append(r.queue, ev)
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *Runner) drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.queue
	r.queue = nil
	return q
}

func (r *Runner) pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue) > 0
}

// ─── Loop ──────────────────────────────────────────────────────────────

// Run drives the session until it finishes or is abandoned, then waits for
// in-flight uploads. Cancelling ctx stops the session without reporting an
// outcome.
func (r *Runner) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrRunnerStarted
	}

	r.log.Info().Int("questions", len(r.state.Questions)).Msg("Exam session started")
	r.apply(ctx, Start{})

	for !r.done() {
		select {
		case <-ctx.Done():
			r.log.Warn().Str("phase", string(r.state.Phase)).Msg("Exam session interrupted")
			r.release()
			r.uploads.Wait()
			return ctx.Err()
		case <-r.signal:
			for _, ev := range r.drain() {
				r.apply(ctx, ev)
			}
		}
	}

	r.release()
	r.uploads.Wait()
	r.log.Info().
		Bool("abandoned", r.state.Abandoned).
		Bool("reported", r.guard.Reported()).
		Msg("Exam session ended")
	return nil
}

// done reports whether the session has ended and nothing is left to upload.
func (r *Runner) done() bool {
	return r.state.Terminal() && !r.recorder.Busy() && !r.pending()
}

// State returns the machine state. Only safe once Run has returned.
func (r *Runner) State() State {
	return r.state
}

func (r *Runner) apply(ctx context.Context, ev Event) {
	next, effects := r.machine.Step(r.state, ev)
	r.state = next
	for _, fx := range effects {
		r.exec(ctx, fx)
	}
}

func (r *Runner) exec(ctx context.Context, fx Effect) {
	switch e := fx.(type) {
	case NotifyPhase:
		r.observer.PhaseChanged(r.cfg.AttemptID, e.View)
		if err := r.client.Phase(e.View); err != nil {
			r.log.Debug().Err(err).Msg("Failed to send phase")
		}

	case NotifyTick:
		if err := r.client.Tick(e.Remaining); err != nil {
			r.log.Debug().Err(err).Msg("Failed to send tick")
		}

	case PlayAudio:
		token := e.Token
		r.player.Play(token, e.Kind, e.URL, e.MinDisplay, func(res PlaybackResult) {
			if res.Failed || res.TimedOut {
				r.log.Warn().
					Str("key", string(e.Key)).
					Str("url", e.URL).
					Str("reason", res.Reason).
					Msg("Audio did not play; continuing")
			}
			r.post(AudioDone{Token: token, Failed: res.Failed || res.TimedOut})
		})

	case StartCountdown:
		token := e.Token
		r.stopDelay()
		r.countdown.Start(e.Seconds,
			func(remaining int) { r.post(Tick{Token: token, Remaining: remaining}) },
			func() { r.post(CountdownDone{Token: token}) },
		)

	case Delay:
		token := e.Token
		r.countdown.Cancel()
		r.stopDelay()
		r.delay = r.clock.AfterFunc(e.Duration, func() { r.post(DelayDone{Token: token}) })

	case StartCapture:
		err := r.recorder.Start(e.QuestionNumber,
			func(a Artifact) { r.post(RecordingReady{Artifact: a}) },
			func(qn int, err error) {
				r.log.Warn().Err(err).Int("question_number", qn).Msg("Recording produced no artifact")
				r.post(RecordingFailed{QuestionNumber: qn, Reason: err.Error()})
			},
		)
		if err != nil {
			r.log.Error().Err(err).Int("question_number", e.QuestionNumber).Msg("Failed to start capture")
		}

	case StopCapture:
		r.recorder.Stop(e.QuestionNumber)

	case Upload:
		r.upload(e.Artifact)

	case Alert:
		if err := r.client.Alert(e.Message); err != nil {
			r.log.Debug().Err(err).Msg("Failed to send alert")
		}

	case ReleaseAll:
		r.release()

	case CompleteSession:
		r.complete(ctx, e)
	}
}

// upload ships a in the background. The flow never waits for it.
func (r *Runner) upload(a Artifact) {
	r.uploads.Add(1)
	go func() {
		defer r.uploads.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.UploadTimeout)
		defer cancel()

		err := r.uploader.Upload(ctx, r.cfg.AttemptID, a)
		r.observer.UploadFinished(r.cfg.AttemptID, a.QuestionNumber, err)

		status := UploadSucceeded
		if err != nil {
			status = UploadFailed
			r.log.Error().Err(err).
				Int("question_number", a.QuestionNumber).
				Int("bytes", len(a.Data)).
				Msg("Recording upload failed")
		}
		_ = r.client.UploadStatus(a.QuestionNumber, status)
	}()
}

// complete settles the outcome. The call that settles it also tells the
// observer and the client, even when the completer failed: the session is
// over either way.
func (r *Runner) complete(ctx context.Context, e CompleteSession) {
	var settled bool
	if e.Abandoned {
		settled = r.guard.Abandon(ctx, e.Reason)
	} else {
		settled = r.guard.Complete(ctx)
	}
	if !settled {
		return
	}

	r.observer.SessionEnded(r.cfg.AttemptID, e.Abandoned)
	if err := r.client.Complete(e.Abandoned); err != nil {
		r.log.Debug().Err(err).Msg("Failed to send completion")
	}
}

func (r *Runner) release() {
	r.countdown.Cancel()
	r.stopDelay()
	r.player.Stop()
	if r.state.Abandoned {
		r.recorder.Discard()
	}
}

func (r *Runner) stopDelay() {
	if r.delay != nil {
		r.delay.Stop()
		r.delay = nil
	}
}
