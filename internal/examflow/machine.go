package examflow

import "time"

// Phase is the externally visible step of the current question.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhasePartIntro   Phase = "part-intro"
	PhaseInfoReading Phase = "info-reading"
	PhaseReading     Phase = "reading"
	PhasePreparing   Phase = "preparing"
	PhaseRecording   Phase = "recording"
	PhaseUploading   Phase = "uploading"
	PhaseCompleted   Phase = "completed"
	PhaseFinished    Phase = "finished"
	PhaseAbandoned   Phase = "abandoned"
)

// Wait is the completion signal the current phase is blocked on.
type Wait int

const (
	WaitNone Wait = iota
	// WaitCue is a guide cue played before the phase's main action.
	WaitCue
	// WaitAudio is the phase's main audio: part intro, info audio or prompt.
	WaitAudio
	WaitCountdown
	WaitDelay
	// WaitNextCue is the "next question" cue between two questions.
	WaitNextCue
)

// AbandonReasonUserLeft is recorded when the candidate leaves a running exam.
const AbandonReasonUserLeft = "user left"

// State is the single authoritative record of an exam session. It is owned by
// one Runner and only changed by Machine.Step.
type State struct {
	AttemptID string
	Questions []Question
	Index     int
	// LastPart is the part of the previously rendered question, 0 before the first.
	LastPart  int
	Phase     Phase
	Wait      Wait
	Remaining int
	// Token identifies the pending audio, countdown or delay. Completions
	// carrying any other token are stale and ignored.
	Token         uint64
	Finished      bool
	Abandoned     bool
	AbandonReason string
}

// NewState returns the idle state of a session over questions.
func NewState(attemptID string, questions []Question) State {
	return State{
		AttemptID: attemptID,
		Questions: questions,
		Phase:     PhaseIdle,
	}
}

// Terminal reports whether the session has ended, normally or not.
func (s State) Terminal() bool {
	return s.Finished || s.Abandoned
}

// Current returns the question at the current index.
func (s State) Current() Question {
	return s.Questions[s.Index]
}

// ─── Events ────────────────────────────────────────────────────────────

// Event is an input to Machine.Step.
type Event interface{ isEvent() }

// Start begins the exam at its first question.
type Start struct{}

// AudioDone reports the end of a PlayAudio effect. Failed playback still
// advances the flow.
type AudioDone struct {
	Token  uint64
	Failed bool
}

// Tick reports the remaining seconds of the running countdown.
type Tick struct {
	Token     uint64
	Remaining int
}

// CountdownDone reports that the countdown reached zero.
type CountdownDone struct{ Token uint64 }

// DelayDone reports the end of a Delay effect.
type DelayDone struct{ Token uint64 }

// RecordingReady carries the finished capture of one question.
type RecordingReady struct{ Artifact Artifact }

// RecordingFailed reports that a capture produced no artifact.
type RecordingFailed struct {
	QuestionNumber int
	Reason         string
}

// MicDenied reports that the candidate's microphone could not be opened.
type MicDenied struct {
	QuestionNumber int
	Message        string
}

// Abandon ends the session early. It is reported at most once.
type Abandon struct{ Reason string }

func (Start) isEvent()           {}
func (AudioDone) isEvent()       {}
func (Tick) isEvent()            {}
func (CountdownDone) isEvent()   {}
func (DelayDone) isEvent()       {}
func (RecordingReady) isEvent()  {}
func (RecordingFailed) isEvent() {}
func (MicDenied) isEvent()       {}
func (Abandon) isEvent()         {}

// ─── Effects ───────────────────────────────────────────────────────────

// Effect is a side effect requested by Machine.Step, executed by the Runner.
type Effect interface{ isEffect() }

// AudioKind tells the client what an audio track is for.
type AudioKind string

const (
	AudioGuide  AudioKind = "guide"
	AudioInfo   AudioKind = "info"
	AudioPrompt AudioKind = "prompt"
)

// NotifyPhase announces a phase change to the candidate.
type NotifyPhase struct{ View PhaseView }

// NotifyTick announces the remaining seconds of the countdown.
type NotifyTick struct{ Remaining int }

// PlayAudio replaces the current track. Completion is reported with AudioDone
// no earlier than MinDisplay after playback starts.
type PlayAudio struct {
	Token      uint64
	Kind       AudioKind
	Key        GuideKey
	URL        string
	MinDisplay time.Duration
}

// StartCountdown replaces the running countdown.
type StartCountdown struct {
	Token   uint64
	Seconds int
}

// Delay waits for a fixed duration and reports DelayDone.
type Delay struct {
	Token    uint64
	Duration time.Duration
}

// StartCapture opens the microphone for a question.
type StartCapture struct{ QuestionNumber int }

// StopCapture asks the client to flush and close the capture.
type StopCapture struct{ QuestionNumber int }

// Upload hands an artifact to the upload pipeline without waiting for it.
type Upload struct{ Artifact Artifact }

// Alert shows a blocking message to the candidate.
type Alert struct{ Message string }

// ReleaseAll stops the countdown, the audio track and the capture.
type ReleaseAll struct{}

// CompleteSession reports the terminal outcome of the attempt.
type CompleteSession struct {
	Abandoned bool
	Reason    string
}

func (NotifyPhase) isEffect()     {}
func (NotifyTick) isEffect()      {}
func (PlayAudio) isEffect()       {}
func (StartCountdown) isEffect()  {}
func (Delay) isEffect()           {}
func (StartCapture) isEffect()    {}
func (StopCapture) isEffect()     {}
func (Upload) isEffect()          {}
func (Alert) isEffect()           {}
func (ReleaseAll) isEffect()      {}
func (CompleteSession) isEffect() {}

// PhaseView is what the candidate sees for a phase.
type PhaseView struct {
	Phase           Phase     `json:"phase"`
	QuestionNumber  int       `json:"question_number"`
	Index           int       `json:"index"`
	Total           int       `json:"total"`
	Part            int       `json:"part"`
	PartTitle       string    `json:"part_title"`
	PartDescription string    `json:"part_description"`
	Question        *Question `json:"question,omitempty"`
	Remaining       int       `json:"remaining"`
	PrepTime        int       `json:"preparation_time"`
	SpeakTime       int       `json:"speaking_time"`
}

// ─── Machine ───────────────────────────────────────────────────────────

// Machine holds the static configuration of the exam flow. Step is pure.
type Machine struct {
	Timing Timing
	Guides GuideSet
}

// NewMachine creates a Machine.
func NewMachine(timing Timing, guides GuideSet) Machine {
	return Machine{Timing: timing, Guides: guides}
}

// Step applies ev to s and returns the next state with the effects to run.
// Events that do not apply to the current phase, and completions carrying a
// stale token, leave the state unchanged.
func (m Machine) Step(s State, ev Event) (State, []Effect) {
	// Late artifacts are still uploaded after the session has ended.
	if r, ok := ev.(RecordingReady); ok {
		return s, []Effect{Upload{Artifact: r.Artifact}}
	}
	if s.Terminal() {
		return s, nil
	}

	switch e := ev.(type) {
	case Start:
		if s.Phase != PhaseIdle {
			return s, nil
		}
		if len(s.Questions) == 0 {
			s.Finished = true
			s.Phase = PhaseFinished
			return s, []Effect{CompleteSession{}}
		}
		return m.enterQuestion(s, 0, nil)

	case AudioDone:
		if e.Token != s.Token {
			return s, nil
		}
		return m.onAudioDone(s)

	case Tick:
		if e.Token != s.Token || s.Wait != WaitCountdown {
			return s, nil
		}
		s.Remaining = e.Remaining
		return s, []Effect{NotifyTick{Remaining: e.Remaining}}

	case CountdownDone:
		if e.Token != s.Token || s.Wait != WaitCountdown {
			return s, nil
		}
		s.Remaining = 0
		return m.onCountdownDone(s)

	case DelayDone:
		if e.Token != s.Token || s.Wait != WaitDelay {
			return s, nil
		}
		return m.onDelayDone(s)

	case MicDenied:
		if s.Phase != PhaseRecording || e.QuestionNumber != s.Current().Number {
			return s, nil
		}
		// The countdown keeps running; the question advances without an artifact.
		return s, []Effect{Alert{Message: e.Message}}

	case RecordingFailed:
		return s, nil

	case Abandon:
		reason := e.Reason
		if reason == "" {
			reason = AbandonReasonUserLeft
		}
		s.Abandoned = true
		s.AbandonReason = reason
		s.Phase = PhaseAbandoned
		s.Wait = WaitNone
		s.Token++
		return s, []Effect{ReleaseAll{}, CompleteSession{Abandoned: true, Reason: reason}}
	}

	return s, nil
}

func (m Machine) onAudioDone(s State) (State, []Effect) {
	switch {
	case s.Phase == PhasePartIntro && s.Wait == WaitAudio:
		return m.enterInfoOrReading(s, nil)
	case s.Phase == PhaseInfoReading && s.Wait == WaitAudio:
		return m.enterReading(s, nil)
	case s.Phase == PhaseReading && s.Wait == WaitAudio:
		return m.enterPreparing(s, nil)
	case s.Phase == PhasePreparing && s.Wait == WaitCue:
		prep, _ := AdjustedTimes(s.Questions, s.Index)
		return m.countdown(s, prep, nil)
	case s.Phase == PhaseRecording && s.Wait == WaitCue:
		_, speak := AdjustedTimes(s.Questions, s.Index)
		fx := []Effect{StartCapture{QuestionNumber: s.Current().Number}}
		return m.countdown(s, speak, fx)
	case s.Phase == PhaseCompleted && s.Wait == WaitCue:
		return m.delay(s, m.Timing.TransitionPause, nil)
	case s.Phase == PhaseCompleted && s.Wait == WaitNextCue:
		return m.enterQuestion(s, s.Index+1, nil)
	}
	return s, nil
}

func (m Machine) onCountdownDone(s State) (State, []Effect) {
	switch s.Phase {
	case PhaseInfoReading:
		return m.enterReading(s, nil)
	case PhasePreparing:
		return m.enterRecording(s)
	case PhaseRecording:
		return m.enterUploading(s)
	}
	return s, nil
}

func (m Machine) onDelayDone(s State) (State, []Effect) {
	switch s.Phase {
	case PhaseReading:
		return m.enterPreparing(s, nil)
	case PhaseCompleted:
		if s.Index == len(s.Questions)-1 {
			s.Finished = true
			s.Phase = PhaseFinished
			s.Wait = WaitNone
			return s, []Effect{CompleteSession{}}
		}
		return m.play(s, WaitNextCue, AudioGuide, GuideNextQuestion, m.Guides.URL(GuideNextQuestion), 0, nil)
	}
	return s, nil
}

func (m Machine) enterQuestion(s State, i int, fx []Effect) (State, []Effect) {
	s.Index = i
	q := s.Current()
	if q.Part != s.LastPart {
		s.LastPart = q.Part
		s, fx = m.enter(s, PhasePartIntro, 0, fx)
		key := PartIntroKey(q.Part)
		return m.play(s, WaitAudio, AudioGuide, key, m.Guides.URL(key), m.Timing.PartIntroMin, fx)
	}
	return m.enterInfoOrReading(s, fx)
}

func (m Machine) enterInfoOrReading(s State, fx []Effect) (State, []Effect) {
	q := s.Current()
	if !NeedsInfoReading(q) {
		return m.enterReading(s, fx)
	}

	if q.Part == 4 {
		s, fx = m.enter(s, PhaseInfoReading, m.Timing.InfoReadSeconds, fx)
		return m.countdown(s, m.Timing.InfoReadSeconds, fx)
	}

	s, fx = m.enter(s, PhaseInfoReading, 0, fx)
	if q.InfoAudioURL == "" {
		return m.enterReading(s, fx)
	}
	return m.play(s, WaitAudio, AudioInfo, "", q.InfoAudioURL, 0, fx)
}

func (m Machine) enterReading(s State, fx []Effect) (State, []Effect) {
	q := s.Current()
	s, fx = m.enter(s, PhaseReading, 0, fx)
	if (q.Part == 3 || q.Part == 4) && q.AudioURL != "" {
		return m.play(s, WaitAudio, AudioPrompt, "", q.AudioURL, 0, fx)
	}
	return m.delay(s, m.Timing.ReadingDelay, fx)
}

func (m Machine) enterPreparing(s State, fx []Effect) (State, []Effect) {
	prep, _ := AdjustedTimes(s.Questions, s.Index)
	s, fx = m.enter(s, PhasePreparing, prep, fx)
	return m.play(s, WaitCue, AudioGuide, GuidePreparationStart, m.Guides.URL(GuidePreparationStart), 0, fx)
}

func (m Machine) enterRecording(s State) (State, []Effect) {
	_, speak := AdjustedTimes(s.Questions, s.Index)
	s, fx := m.enter(s, PhaseRecording, speak, nil)
	return m.play(s, WaitCue, AudioGuide, GuideSpeakingStart, m.Guides.URL(GuideSpeakingStart), 0, fx)
}

// enterUploading stops the capture and moves straight on to completed. The
// upload itself happens when the artifact arrives and is never waited for.
func (m Machine) enterUploading(s State) (State, []Effect) {
	fx := []Effect{StopCapture{QuestionNumber: s.Current().Number}}
	s, fx = m.enter(s, PhaseUploading, 0, fx)
	s, fx = m.enter(s, PhaseCompleted, 0, fx)
	return m.play(s, WaitCue, AudioGuide, GuideSpeakingEnd, m.Guides.URL(GuideSpeakingEnd), 0, fx)
}

func (m Machine) enter(s State, p Phase, remaining int, fx []Effect) (State, []Effect) {
	s.Phase = p
	s.Wait = WaitNone
	s.Remaining = remaining
	return s, append(fx, NotifyPhase{View: m.View(s)})
}

func (m Machine) play(s State, w Wait, kind AudioKind, key GuideKey, url string, floor time.Duration, fx []Effect) (State, []Effect) {
	s.Token++
	s.Wait = w
	return s, append(fx, PlayAudio{Token: s.Token, Kind: kind, Key: key, URL: url, MinDisplay: floor})
}

func (m Machine) countdown(s State, seconds int, fx []Effect) (State, []Effect) {
	s.Token++
	s.Wait = WaitCountdown
	s.Remaining = seconds
	return s, append(fx, StartCountdown{Token: s.Token, Seconds: seconds})
}

func (m Machine) delay(s State, d time.Duration, fx []Effect) (State, []Effect) {
	s.Token++
	s.Wait = WaitDelay
	return s, append(fx, Delay{Token: s.Token, Duration: d})
}

// View renders the candidate-facing view of s.
func (m Machine) View(s State) PhaseView {
	v := PhaseView{
		Phase:     s.Phase,
		Index:     s.Index,
		Total:     len(s.Questions),
		Remaining: s.Remaining,
	}
	if len(s.Questions) == 0 || s.Index >= len(s.Questions) {
		return v
	}

	q := s.Current()
	info := PartDescription(q.Part)
	prep, speak := AdjustedTimes(s.Questions, s.Index)
	v.QuestionNumber = q.Number
	v.Part = q.Part
	v.PartTitle = info.Title
	v.PartDescription = info.Description
	v.PrepTime = prep
	v.SpeakTime = speak
	if s.Phase != PhasePartIntro {
		v.Question = &q
	}
	return v
}
