package examflow

import (
	"fmt"
	"time"
)

// Question is one prompt of a running exam, frozen at session start.
type Question struct {
	ID              int    `json:"id"`
	Number          int    `json:"question_number"`
	Part            int    `json:"part"`
	SetID           string `json:"question_set_id,omitempty"`
	Order           int    `json:"question_order,omitempty"`
	Text            string `json:"question_text"`
	InfoText        string `json:"info_text,omitempty"`
	InfoImageURL    string `json:"info_image_url,omitempty"`
	InfoAudioURL    string `json:"info_audio_url,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	PreparationTime int    `json:"preparation_time"`
	SpeakingTime    int    `json:"speaking_time"`
}

// HasInfo reports whether the question carries shared info content to display.
func (q Question) HasInfo() bool {
	return q.InfoText != "" || q.InfoImageURL != ""
}

// PartInfo is the title card shown during part-intro.
type PartInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

var parts = map[int]PartInfo{
	1: {"Part 1: Read a text aloud", "Read the text on the screen aloud. You will have 45 seconds to prepare and 45 seconds to read."},
	2: {"Part 2: Describe a picture", "Describe the picture on the screen in as much detail as you can."},
	3: {"Part 3: Respond to questions", "Listen to the situation, then answer three questions. You will have 3 seconds to prepare for each."},
	4: {"Part 4: Respond to questions using information provided", "Read the information on the screen, then answer three questions based on it."},
	5: {"Part 5: Express an opinion", "Give your opinion about the topic and support it with reasons and examples."},
}

// PartDescription returns the title card for part. Unknown parts get a generic title.
func PartDescription(part int) PartInfo {
	if p, ok := parts[part]; ok {
		return p
	}
	return PartInfo{Title: fmt.Sprintf("Part %d", part)}
}

// AdjustedTimes derives the preparation and speaking seconds for questions[i].
//
// Parts 3 and 4 ignore the stored values: every question prepares for 3 seconds
// and speaks for 15, except the third question of its set which speaks for 30.
// Set position is counted in list order among questions of the same part and
// set id, so it must be derived from the full list every time.
func AdjustedTimes(questions []Question, i int) (prep, speak int) {
	q := questions[i]
	if q.Part != 3 && q.Part != 4 {
		return q.PreparationTime, q.SpeakingTime
	}

	pos := 0
	for j := 0; j <= i; j++ {
		o := questions[j]
		if o.Part == q.Part && o.SetID == q.SetID {
			pos++
		}
	}

	if pos%3 == 0 {
		return 3, 30
	}
	return 3, 15
}

// NeedsInfoReading reports whether q gets an info-reading phase: every Part 3
// question, and the first question of a Part 4 set that carries info content.
func NeedsInfoReading(q Question) bool {
	switch q.Part {
	case 3:
		return true
	case 4:
		return q.Order == 1 && q.HasInfo()
	default:
		return false
	}
}

// Timing holds the fixed phase durations.
type Timing struct {
	PartIntroMin    time.Duration
	ReadingDelay    time.Duration
	InfoReadSeconds int
	TransitionPause time.Duration
}

// DefaultTiming returns the standard exam timing.
func DefaultTiming() Timing {
	return Timing{
		PartIntroMin:    5 * time.Second,
		ReadingDelay:    500 * time.Millisecond,
		InfoReadSeconds: 45,
		TransitionPause: time.Second,
	}
}

// GuideKey names a guide audio cue.
type GuideKey string

const (
	GuidePreparationStart GuideKey = "preparation-start"
	GuideSpeakingStart    GuideKey = "speaking-start"
	GuideSpeakingEnd      GuideKey = "speaking-end"
	GuideNextQuestion     GuideKey = "next-question"
)

// PartIntroKey returns the guide key of a part's introduction, e.g. "part3-intro".
func PartIntroKey(part int) GuideKey {
	return GuideKey(fmt.Sprintf("part%d-intro", part))
}

// GuideSet resolves guide keys to playable URLs. A missing key resolves to "".
type GuideSet map[GuideKey]string

func (g GuideSet) URL(k GuideKey) string {
	return g[k]
}
