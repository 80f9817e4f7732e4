package examflow

import (
	"sync"
	"time"
)

// AudioSink plays audio on the candidate's device.
type AudioSink interface {
	PlayAudio(token uint64, kind AudioKind, url string) error
	StopAudio() error
}

// PlaybackResult describes how a track finished.
type PlaybackResult struct {
	Failed   bool
	TimedOut bool
	Reason   string
	Elapsed  time.Duration
}

// GuidePlayer is the single audio channel of a session. Playing a new track
// tears down the current one, and each track reports completion exactly once.
type GuidePlayer struct {
	clock   Clock
	sink    AudioSink
	maxWait time.Duration

	mu      sync.Mutex
	token   uint64
	playing bool
	started time.Time
	floor   time.Duration
	onDone  func(PlaybackResult)
	safety  Timer
	hold    Timer
}

// NewGuidePlayer creates a GuidePlayer. A track that the client never reports
// on is timed out maxWait after its minimum display time.
func NewGuidePlayer(clock Clock, sink AudioSink, maxWait time.Duration) *GuidePlayer {
	if maxWait <= 0 {
		maxWait = 2 * time.Minute
	}
	return &GuidePlayer{clock: clock, sink: sink, maxWait: maxWait}
}

// Play starts url under token. onDone runs once the track ends or fails, but
// never earlier than minDisplay after the start. A missing url or a failure to
// reach the client counts as a playback error.
func (p *GuidePlayer) Play(token uint64, kind AudioKind, url string, minDisplay time.Duration, onDone func(PlaybackResult)) {
	p.mu.Lock()
	wasPlaying := p.playing
	p.resetLocked()
	p.token = token
	p.playing = true
	p.started = p.clock.Now()
	p.floor = minDisplay
	p.onDone = onDone

	// Hard cap for a client that never reports: the floor plus maxWait.
	p.safety = p.clock.AfterFunc(minDisplay+p.maxWait, func() {
		p.finish(token, PlaybackResult{TimedOut: true, Reason: "no playback report from client"})
	})
	p.mu.Unlock()

	if wasPlaying {
		_ = p.sink.StopAudio()
	}
	if url == "" {
		p.finish(token, PlaybackResult{Failed: true, Reason: "audio not configured"})
		return
	}
	if err := p.sink.PlayAudio(token, kind, url); err != nil {
		p.finish(token, PlaybackResult{Failed: true, Reason: err.Error()})
	}
}

// Ended reports that the client finished playing the track under token.
func (p *GuidePlayer) Ended(token uint64) {
	p.finish(token, PlaybackResult{})
}

// Failed reports that the client could not load or play the track under token.
func (p *GuidePlayer) Failed(token uint64, reason string) {
	p.finish(token, PlaybackResult{Failed: true, Reason: reason})
}

func (p *GuidePlayer) finish(token uint64, res PlaybackResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing || token != p.token {
		return
	}
	p.playing = false
	if p.safety != nil {
		p.safety.Stop()
		p.safety = nil
	}

	res.Elapsed = p.clock.Now().Sub(p.started)
	wait := p.floor - res.Elapsed
	if wait < 0 {
		wait = 0
	}

	onDone := p.onDone
	p.onDone = nil
	p.hold = p.clock.AfterFunc(wait, func() {
		p.mu.Lock()
		current := token == p.token && p.hold != nil
		p.hold = nil
		p.mu.Unlock()
		if current && onDone != nil {
			onDone(res)
		}
	})
}

// Stop silences the current track. Its completion callback never runs.
func (p *GuidePlayer) Stop() {
	p.mu.Lock()
	wasPlaying := p.playing
	p.resetLocked()
	p.token = 0
	p.mu.Unlock()

	if wasPlaying {
		_ = p.sink.StopAudio()
	}
}

// Playing reports whether a track is in progress.
func (p *GuidePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *GuidePlayer) resetLocked() {
	if p.safety != nil {
		p.safety.Stop()
		p.safety = nil
	}
	if p.hold != nil {
		p.hold.Stop()
		p.hold = nil
	}
	p.playing = false
	p.onDone = nil
}
