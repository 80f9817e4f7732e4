package examflow

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sinkCall struct {
	op    string
	token uint64
	url   string
	qn    int
}

type fakeSink struct {
	mu      sync.Mutex
	calls   []sinkCall
	playErr error
}

func (s *fakeSink) PlayAudio(token uint64, _ AudioKind, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{op: "play", token: token, url: url})
	return s.playErr
}

func (s *fakeSink) StopAudio() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{op: "stop"})
	return nil
}

func (s *fakeSink) StartCapture(qn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{op: "start_capture", qn: qn})
	return nil
}

func (s *fakeSink) StopCapture(qn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{op: "stop_capture", qn: qn})
	return nil
}

func (s *fakeSink) ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		out = append(out, c.op)
	}
	return out
}

func TestGuidePlayerHoldsMinimumDisplay(t *testing.T) {
	clock := newFakeClock()
	p := NewGuidePlayer(clock, &fakeSink{}, time.Minute)

	var got []PlaybackResult
	p.Play(1, AudioGuide, "/audio/parts/part1-intro.mp3", 5*time.Second, func(r PlaybackResult) { got = append(got, r) })

	clock.Advance(2 * time.Second)
	p.Ended(1)
	clock.Advance(2900 * time.Millisecond)
	require.Empty(t, got, "fired before the floor")

	clock.Advance(100 * time.Millisecond)
	require.Len(t, got, 1)
	require.False(t, got[0].Failed)
	require.Equal(t, 2*time.Second, got[0].Elapsed)
}

func TestGuidePlayerLongAudioFiresOnEnd(t *testing.T) {
	clock := newFakeClock()
	p := NewGuidePlayer(clock, &fakeSink{}, time.Minute)

	done := 0
	p.Play(1, AudioGuide, "/audio/long.mp3", 5*time.Second, func(PlaybackResult) { done++ })
	clock.Advance(8 * time.Second)
	require.Zero(t, done)

	p.Ended(1)
	clock.Advance(0)
	require.Equal(t, 1, done)

	p.Ended(1)
	clock.Advance(time.Minute)
	require.Equal(t, 1, done)
}

func TestGuidePlayerErrorsHonourFloor(t *testing.T) {
	cases := []struct {
		name string
		url  string
		err  error
	}{
		{"missing url", "", nil},
		{"client unreachable", "/audio/a.mp3", errors.New("connection closed")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			clock := newFakeClock()
			p := NewGuidePlayer(clock, &fakeSink{playErr: c.err}, time.Minute)

			var got []PlaybackResult
			p.Play(1, AudioGuide, c.url, 5*time.Second, func(r PlaybackResult) { got = append(got, r) })
			clock.Advance(4 * time.Second)
			require.Empty(t, got)

			clock.Advance(time.Second)
			require.Len(t, got, 1)
			require.True(t, got[0].Failed)
		})
	}
}

func TestGuidePlayerClientFailure(t *testing.T) {
	clock := newFakeClock()
	p := NewGuidePlayer(clock, &fakeSink{}, time.Minute)

	var got []PlaybackResult
	p.Play(4, AudioPrompt, "/media/p3-1.mp3", 0, func(r PlaybackResult) { got = append(got, r) })
	p.Failed(4, "decode error")
	clock.Advance(0)

	require.Len(t, got, 1)
	require.True(t, got[0].Failed)
	require.Equal(t, "decode error", got[0].Reason)
}

func TestGuidePlayerNewTrackTearsDownCurrent(t *testing.T) {
	clock := newFakeClock()
	sink := &fakeSink{}
	p := NewGuidePlayer(clock, sink, time.Minute)

	first, second := 0, 0
	p.Play(1, AudioGuide, "/audio/a.mp3", 0, func(PlaybackResult) { first++ })
	p.Play(2, AudioGuide, "/audio/b.mp3", 0, func(PlaybackResult) { second++ })
	require.Equal(t, []string{"play", "stop", "play"}, sink.ops())

	p.Ended(1)
	p.Ended(2)
	clock.Advance(time.Minute)

	require.Zero(t, first)
	require.Equal(t, 1, second)
}

func TestGuidePlayerSafetyCap(t *testing.T) {
	clock := newFakeClock()
	p := NewGuidePlayer(clock, &fakeSink{}, 30*time.Second)

	var got []PlaybackResult
	p.Play(1, AudioGuide, "/audio/a.mp3", 5*time.Second, func(r PlaybackResult) { got = append(got, r) })
	clock.Advance(34 * time.Second)
	require.Empty(t, got, "cap is the floor plus the max wait")

	clock.Advance(time.Second)
	require.Len(t, got, 1)
	require.True(t, got[0].TimedOut)
	require.Equal(t, 35*time.Second, got[0].Elapsed)
}

func TestGuidePlayerStop(t *testing.T) {
	clock := newFakeClock()
	sink := &fakeSink{}
	p := NewGuidePlayer(clock, sink, time.Minute)

	done := 0
	p.Play(1, AudioGuide, "/audio/a.mp3", 5*time.Second, func(PlaybackResult) { done++ })
	p.Ended(1)
	p.Stop()
	clock.Advance(time.Minute)

	require.Zero(t, done)
	require.False(t, p.Playing())
}
