package examflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scenarioQuestions is a full exam: 2 × Part 1, 2 × Part 2, a Part 3 set,
// a Part 4 set with info content and 1 × Part 5.
func scenarioQuestions() []Question {
	qs := []Question{
		{ID: 10, Part: 1, Text: "Read aloud A", PreparationTime: 45, SpeakingTime: 45},
		{ID: 11, Part: 1, Text: "Read aloud B", PreparationTime: 45, SpeakingTime: 45},
		{ID: 20, Part: 2, Text: "Describe", ImageURL: "/media/p2-a.jpg", PreparationTime: 45, SpeakingTime: 30},
		{ID: 21, Part: 2, Text: "Describe", ImageURL: "/media/p2-b.jpg", PreparationTime: 45, SpeakingTime: 30},
		{ID: 30, Part: 3, SetID: "set-3", Order: 1, InfoText: "I enjoy reading.", InfoAudioURL: "/media/p3-info.mp3", AudioURL: "/media/p3-1.mp3"},
		{ID: 31, Part: 3, SetID: "set-3", Order: 2, InfoText: "I enjoy reading.", InfoAudioURL: "/media/p3-info.mp3", AudioURL: "/media/p3-2.mp3"},
		{ID: 32, Part: 3, SetID: "set-3", Order: 3, InfoText: "I enjoy reading.", InfoAudioURL: "/media/p3-info.mp3", AudioURL: "/media/p3-3.mp3"},
		{ID: 40, Part: 4, SetID: "set-4", Order: 1, InfoText: "Conference schedule", AudioURL: "/media/p4-1.mp3", PreparationTime: 99, SpeakingTime: 99},
		{ID: 41, Part: 4, SetID: "set-4", Order: 2, InfoText: "Conference schedule", AudioURL: "/media/p4-2.mp3", PreparationTime: 99, SpeakingTime: 99},
		{ID: 42, Part: 4, SetID: "set-4", Order: 3, InfoText: "Conference schedule", AudioURL: "/media/p4-3.mp3", PreparationTime: 99, SpeakingTime: 99},
		{ID: 50, Part: 5, Text: "Office or home?", PreparationTime: 30, SpeakingTime: 45},
	}
	for i := range qs {
		qs[i].Number = i + 1
	}
	return qs
}

func testGuides() GuideSet {
	g := GuideSet{
		GuidePreparationStart: "/audio/common/preparation-start.mp3",
		GuideSpeakingStart:    "/audio/common/speaking-start.mp3",
		GuideSpeakingEnd:      "/audio/common/speaking-end.mp3",
		GuideNextQuestion:     "/audio/common/next-question.mp3",
	}
	for p := 1; p <= 5; p++ {
		g[PartIntroKey(p)] = "/audio/parts/" + string(PartIntroKey(p)) + ".mp3"
	}
	return g
}

// sim executes effects synchronously: audio ends at once, countdowns run to
// zero, delays elapse and stopped captures produce an artifact.
type sim struct {
	t     *testing.T
	m     Machine
	s     State
	queue []Event

	holdRecordings bool
	held           []Event

	phases     []PhaseView
	audio      []PlayAudio
	countdowns []int
	captures   []int
	uploads    []int
	alerts     []string
	completes  []CompleteSession
	releases   int
}

func newSim(t *testing.T, qs []Question) *sim {
	return &sim{
		t: t,
		m: NewMachine(DefaultTiming(), testGuides()),
		s: NewState("attempt-1", qs),
	}
}

func (x *sim) send(ev Event) {
	x.queue = append(x.queue, ev)
	for steps := 0; len(x.queue) > 0; steps++ {
		require.Less(x.t, steps, 100000, "machine did not settle")
		ev := x.queue[0]
		x.queue = x.queue[1:]

		var fx []Effect
		x.s, fx = x.m.Step(x.s, ev)
		for _, f := range fx {
			x.exec(f)
		}
	}
}

func (x *sim) exec(f Effect) {
	switch e := f.(type) {
	case NotifyPhase:
		x.phases = append(x.phases, e.View)
	case PlayAudio:
		x.audio = append(x.audio, e)
		x.queue = append(x.queue, AudioDone{Token: e.Token})
	case StartCountdown:
		x.countdowns = append(x.countdowns, e.Seconds)
		for r := e.Seconds - 1; r >= 0; r-- {
			x.queue = append(x.queue, Tick{Token: e.Token, Remaining: r})
		}
		x.queue = append(x.queue, CountdownDone{Token: e.Token})
	case Delay:
		x.queue = append(x.queue, DelayDone{Token: e.Token})
	case StartCapture:
		x.captures = append(x.captures, e.QuestionNumber)
	case StopCapture:
		ev := RecordingReady{Artifact: Artifact{QuestionNumber: e.QuestionNumber, MimeType: DefaultMimeType, Data: []byte("audio")}}
		if x.holdRecordings {
			x.held = append(x.held, ev)
		} else {
			x.queue = append(x.queue, ev)
		}
	case Upload:
		x.uploads = append(x.uploads, e.Artifact.QuestionNumber)
	case Alert:
		x.alerts = append(x.alerts, e.Message)
	case ReleaseAll:
		x.releases++
	case CompleteSession:
		x.completes = append(x.completes, e)
	}
}

func (x *sim) count(p Phase) int {
	n := 0
	for _, v := range x.phases {
		if v.Phase == p {
			n++
		}
	}
	return n
}

func (x *sim) phasesOf(number int) []Phase {
	var out []Phase
	for _, v := range x.phases {
		if v.QuestionNumber == number {
			out = append(out, v.Phase)
		}
	}
	return out
}

func TestScenarioFullExam(t *testing.T) {
	x := newSim(t, scenarioQuestions())
	x.send(Start{})

	require.True(t, x.s.Finished)
	require.Equal(t, PhaseFinished, x.s.Phase)
	require.Equal(t, 5, x.count(PhasePartIntro))
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, x.uploads)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, x.captures)
	require.Len(t, x.completes, 1)
	require.False(t, x.completes[0].Abandoned)

	require.Equal(t, []int{
		45, 45, 45, 45, // part 1
		45, 30, 45, 30, // part 2
		3, 15, 3, 15, 3, 30, // part 3
		45, 3, 15, 3, 15, 3, 30, // part 4 with info read
		30, 45, // part 5
	}, x.countdowns)

	// Part 3 reads info on every question, Part 4 only on the first.
	require.Equal(t, 4, x.count(PhaseInfoReading))
	require.Equal(t, []Phase{PhasePartIntro, PhaseInfoReading, PhaseReading, PhasePreparing, PhaseRecording, PhaseUploading, PhaseCompleted}, x.phasesOf(5))
	require.Equal(t, []Phase{PhaseInfoReading, PhaseReading, PhasePreparing, PhaseRecording, PhaseUploading, PhaseCompleted}, x.phasesOf(6))
	require.Equal(t, []Phase{PhasePartIntro, PhaseInfoReading, PhaseReading, PhasePreparing, PhaseRecording, PhaseUploading, PhaseCompleted}, x.phasesOf(8))
	require.Equal(t, []Phase{PhaseReading, PhasePreparing, PhaseRecording, PhaseUploading, PhaseCompleted}, x.phasesOf(9))
	require.Equal(t, []Phase{PhasePartIntro, PhaseReading, PhasePreparing, PhaseRecording, PhaseUploading, PhaseCompleted}, x.phasesOf(1))
}

func TestScenarioGuideCues(t *testing.T) {
	x := newSim(t, scenarioQuestions())
	x.send(Start{})

	counts := map[GuideKey]int{}
	for _, a := range x.audio {
		if a.Kind == AudioGuide {
			counts[a.Key]++
		}
		if a.Key == PartIntroKey(1) {
			require.Equal(t, 5*time.Second, a.MinDisplay)
		}
	}
	require.Equal(t, 11, counts[GuidePreparationStart])
	require.Equal(t, 11, counts[GuideSpeakingStart])
	require.Equal(t, 11, counts[GuideSpeakingEnd])
	// No "next question" cue after the last question.
	require.Equal(t, 10, counts[GuideNextQuestion])
	for p := 1; p <= 5; p++ {
		require.Equal(t, 1, counts[PartIntroKey(p)])
	}
}

func TestPartIntroFollowsPreviouslyRenderedPart(t *testing.T) {
	qs := []Question{
		{Number: 1, Part: 1, PreparationTime: 1, SpeakingTime: 1},
		{Number: 2, Part: 2, PreparationTime: 1, SpeakingTime: 1},
		{Number: 3, Part: 1, PreparationTime: 1, SpeakingTime: 1},
		{Number: 4, Part: 1, PreparationTime: 1, SpeakingTime: 1},
	}
	x := newSim(t, qs)
	x.send(Start{})

	var intros []int
	for _, v := range x.phases {
		if v.Phase == PhasePartIntro {
			intros = append(intros, v.QuestionNumber)
		}
	}
	require.Equal(t, []int{1, 2, 3}, intros)
}

func TestPart3WithoutInfoAudioProceedsToReading(t *testing.T) {
	qs := []Question{
		{Number: 1, Part: 3, SetID: "s", Order: 1, InfoText: "info"},
		{Number: 2, Part: 3, SetID: "s", Order: 2, InfoText: "info"},
		{Number: 3, Part: 3, SetID: "s", Order: 3, InfoText: "info"},
	}
	x := newSim(t, qs)
	x.send(Start{})

	require.True(t, x.s.Finished)
	for _, a := range x.audio {
		require.NotEqual(t, AudioInfo, a.Kind)
		require.NotEqual(t, AudioPrompt, a.Kind)
	}
	require.Equal(t, []Phase{PhaseInfoReading, PhaseReading, PhasePreparing, PhaseRecording, PhaseUploading, PhaseCompleted}, x.phasesOf(2))
}

func TestStaleCompletionsAreIgnored(t *testing.T) {
	m := NewMachine(DefaultTiming(), testGuides())
	s, fx := m.Step(NewState("a", scenarioQuestions()), Start{})
	require.Equal(t, PhasePartIntro, s.Phase)

	play := fx[len(fx)-1].(PlayAudio)
	require.Equal(t, PartIntroKey(1), play.Key)

	for _, ev := range []Event{
		AudioDone{Token: play.Token - 1},
		CountdownDone{Token: play.Token},
		DelayDone{Token: play.Token},
		Tick{Token: play.Token, Remaining: 3},
		Start{},
	} {
		next, out := m.Step(s, ev)
		require.Equal(t, s, next, "%T", ev)
		require.Empty(t, out, "%T", ev)
	}

	// A failed intro still advances.
	s, _ = m.Step(s, AudioDone{Token: play.Token, Failed: true})
	require.Equal(t, PhaseReading, s.Phase)
}

func TestUploadDoesNotGateCompletion(t *testing.T) {
	x := newSim(t, scenarioQuestions()[:2])
	x.holdRecordings = true
	x.send(Start{})

	// The whole exam ran without a single artifact arriving.
	require.True(t, x.s.Finished)
	require.Len(t, x.completes, 1)
	require.Empty(t, x.uploads)
	require.Len(t, x.held, 2)

	// Artifacts that arrive late are still uploaded, without new phases.
	phases := len(x.phases)
	for _, ev := range x.held {
		x.send(ev)
	}
	require.Equal(t, []int{1, 2}, x.uploads)
	require.Len(t, x.phases, phases)
	require.Len(t, x.completes, 1)
}

func TestRecordingExpiryEntersCompletedAtOnce(t *testing.T) {
	m := NewMachine(DefaultTiming(), testGuides())
	qs := []Question{{Number: 1, Part: 1, PreparationTime: 1, SpeakingTime: 1}}
	s := NewState("a", qs)
	s.Index = 0
	s.LastPart = 1
	s.Phase = PhaseRecording
	s.Wait = WaitCountdown
	s.Token = 7

	next, fx := m.Step(s, CountdownDone{Token: 7})
	require.Equal(t, PhaseCompleted, next.Phase)
	require.Equal(t, StopCapture{QuestionNumber: 1}, fx[0])
	require.Equal(t, PhaseUploading, fx[1].(NotifyPhase).View.Phase)
	require.Equal(t, PhaseCompleted, fx[2].(NotifyPhase).View.Phase)
	require.Equal(t, GuideSpeakingEnd, fx[3].(PlayAudio).Key)
	for _, f := range fx {
		_, isUpload := f.(Upload)
		require.False(t, isUpload)
	}
}

func TestTerminalExamIgnoresFurtherEvents(t *testing.T) {
	x := newSim(t, scenarioQuestions()[:1])
	x.send(Start{})
	require.True(t, x.s.Finished)

	final := x.s
	for _, ev := range []Event{
		Start{},
		AudioDone{Token: final.Token},
		CountdownDone{Token: final.Token},
		DelayDone{Token: final.Token},
		MicDenied{QuestionNumber: 1},
		Abandon{},
	} {
		next, fx := x.m.Step(final, ev)
		require.Equal(t, final, next, "%T", ev)
		require.Empty(t, fx, "%T", ev)
	}
	require.Len(t, x.completes, 1)
}

func TestAbandonIsReportedOnce(t *testing.T) {
	m := NewMachine(DefaultTiming(), testGuides())
	s, _ := m.Step(NewState("a", scenarioQuestions()), Start{})

	s, fx := m.Step(s, Abandon{})
	require.True(t, s.Abandoned)
	require.Equal(t, PhaseAbandoned, s.Phase)
	require.Equal(t, []Effect{ReleaseAll{}, CompleteSession{Abandoned: true, Reason: AbandonReasonUserLeft}}, fx)

	again, fx := m.Step(s, Abandon{Reason: "back navigation"})
	require.Equal(t, s, again)
	require.Empty(t, fx)
}

func TestMicDeniedAlertsAndKeepsCountdown(t *testing.T) {
	m := NewMachine(DefaultTiming(), testGuides())
	qs := []Question{
		{Number: 1, Part: 1, PreparationTime: 1, SpeakingTime: 2},
		{Number: 2, Part: 1, PreparationTime: 1, SpeakingTime: 2},
	}
	s := NewState("a", qs)
	s.LastPart = 1
	s.Phase = PhaseRecording
	s.Wait = WaitCountdown
	s.Token = 3

	next, fx := m.Step(s, MicDenied{QuestionNumber: 1, Message: "no mic"})
	require.Equal(t, s, next)
	require.Equal(t, []Effect{Alert{Message: "no mic"}}, fx)

	// Denial for another question is ignored.
	_, fx = m.Step(s, MicDenied{QuestionNumber: 2})
	require.Empty(t, fx)

	next, _ = m.Step(next, CountdownDone{Token: 3})
	require.Equal(t, PhaseCompleted, next.Phase)
}

func TestViewHidesQuestionDuringPartIntro(t *testing.T) {
	m := NewMachine(DefaultTiming(), testGuides())
	s, fx := m.Step(NewState("a", scenarioQuestions()), Start{})
	require.Equal(t, PhasePartIntro, s.Phase)

	v := fx[0].(NotifyPhase).View
	require.Nil(t, v.Question)
	require.Equal(t, "Part 1: Read a text aloud", v.PartTitle)
	require.Equal(t, 11, v.Total)

	s, fx = m.Step(s, AudioDone{Token: s.Token})
	v = fx[0].(NotifyPhase).View
	require.Equal(t, PhaseReading, v.Phase)
	require.NotNil(t, v.Question)
	require.Equal(t, "Read aloud A", v.Question.Text)
}

func TestEmptyExamCompletesImmediately(t *testing.T) {
	m := NewMachine(DefaultTiming(), nil)
	s, fx := m.Step(NewState("a", nil), Start{})
	require.True(t, s.Finished)
	require.Equal(t, []Effect{CompleteSession{}}, fx)
}
