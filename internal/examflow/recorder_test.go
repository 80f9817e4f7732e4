package examflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captureResult struct {
	artifacts []Artifact
	failures  []error
}

func (c *captureResult) onArtifact(a Artifact)      { c.artifacts = append(c.artifacts, a) }
func (c *captureResult) onFailure(_ int, err error) { c.failures = append(c.failures, err) }

func TestRecorderFinalizesOnClientConfirmation(t *testing.T) {
	clock := newFakeClock()
	sink := &fakeSink{}
	r := NewRecorder(clock, sink, 0, 3*time.Second)

	var res captureResult
	require.NoError(t, r.Start(4, res.onArtifact, res.onFailure))
	require.NoError(t, r.Write([]byte("abc")))
	clock.Advance(15 * time.Second)
	require.NoError(t, r.Write([]byte("def")))

	r.Stop(4)
	require.True(t, r.Busy())
	require.NoError(t, r.Write([]byte("g")), "late chunks are accepted until finalize")

	r.Finalize(4, "audio/ogg")
	require.False(t, r.Busy())
	require.Len(t, res.artifacts, 1)
	require.Empty(t, res.failures)

	a := res.artifacts[0]
	require.Equal(t, 4, a.QuestionNumber)
	require.Equal(t, "audio/ogg", a.MimeType)
	require.Equal(t, []byte("abcdefg"), a.Data)
	require.Equal(t, 15*time.Second, a.Duration)
	require.Equal(t, []string{"start_capture", "stop_capture"}, sink.ops())

	require.ErrorIs(t, r.Write([]byte("x")), ErrNotCapturing)
}

func TestRecorderGraceFinalize(t *testing.T) {
	clock := newFakeClock()
	r := NewRecorder(clock, &fakeSink{}, 0, 2*time.Second)

	var res captureResult
	require.NoError(t, r.Start(1, res.onArtifact, res.onFailure))
	require.NoError(t, r.Write([]byte("data")))
	r.Stop(1)

	clock.Advance(time.Second)
	require.Empty(t, res.artifacts)

	clock.Advance(time.Second)
	require.Len(t, res.artifacts, 1)
	require.Equal(t, DefaultMimeType, res.artifacts[0].MimeType)

	// A confirmation after the grace period finds nothing to finalize.
	r.Finalize(1, "audio/webm")
	require.Len(t, res.artifacts, 1)
}

func TestRecorderDeniedProducesNoArtifact(t *testing.T) {
	clock := newFakeClock()
	sink := &fakeSink{}
	r := NewRecorder(clock, sink, 0, time.Second)

	var res captureResult
	require.NoError(t, r.Start(2, res.onArtifact, res.onFailure))
	r.Denied(2)

	require.False(t, r.Busy())
	require.Empty(t, res.artifacts)
	require.Len(t, res.failures, 1)
	require.ErrorIs(t, res.failures[0], ErrMicDenied)
	require.Equal(t, []string{"start_capture", "stop_capture"}, sink.ops())

	r.Stop(2)
	clock.Advance(time.Minute)
	require.Empty(t, res.artifacts)
	require.Len(t, res.failures, 1)
}

func TestRecorderEmptyCapture(t *testing.T) {
	clock := newFakeClock()
	r := NewRecorder(clock, &fakeSink{}, 0, time.Second)

	var res captureResult
	require.NoError(t, r.Start(3, res.onArtifact, res.onFailure))
	r.Stop(3)
	r.Finalize(3, "")

	require.Empty(t, res.artifacts)
	require.Len(t, res.failures, 1)
	require.ErrorIs(t, res.failures[0], ErrEmptyRecording)
}

func TestRecorderSizeLimit(t *testing.T) {
	r := NewRecorder(newFakeClock(), &fakeSink{}, 4, time.Second)

	require.NoError(t, r.Start(1, nil, nil))
	require.NoError(t, r.Write([]byte("abc")))
	require.ErrorIs(t, r.Write([]byte("de")), ErrRecordingTooLarge)
	require.NoError(t, r.Write([]byte("d")))
}

func TestRecorderStartFinalizesPendingCapture(t *testing.T) {
	clock := newFakeClock()
	r := NewRecorder(clock, &fakeSink{}, 0, time.Minute)

	var first, second captureResult
	require.NoError(t, r.Start(1, first.onArtifact, first.onFailure))
	require.NoError(t, r.Write([]byte("one")))
	r.Stop(1)

	require.NoError(t, r.Start(2, second.onArtifact, second.onFailure))
	require.Len(t, first.artifacts, 1)
	require.Equal(t, []byte("one"), first.artifacts[0].Data)

	require.NoError(t, r.Write([]byte("two")))
	r.Stop(2)
	r.Finalize(2, "")
	require.Equal(t, []byte("two"), second.artifacts[0].Data)
	require.Len(t, first.artifacts, 1)
}

func TestRecorderDiscard(t *testing.T) {
	clock := newFakeClock()
	sink := &fakeSink{}
	r := NewRecorder(clock, sink, 0, time.Second)

	var res captureResult
	require.NoError(t, r.Start(5, res.onArtifact, res.onFailure))
	require.NoError(t, r.Write([]byte("partial")))
	r.Discard()
	clock.Advance(time.Minute)

	require.False(t, r.Busy())
	require.Empty(t, res.artifacts)
	require.Empty(t, res.failures)
	require.Equal(t, []string{"start_capture", "stop_capture"}, sink.ops())
}
