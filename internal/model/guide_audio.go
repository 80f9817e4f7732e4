package model

import "time"

// GuideAudio overrides the default URL of one guide cue.
type GuideAudio struct {
	AudioKey  string    `json:"audio_key"`
	URL       string    `json:"url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GuideAudioEntry describes a cue for the admin audio page.
type GuideAudioEntry struct {
	AudioKey    string `json:"audio_key"`
	Label       string `json:"label"`
	Category    string `json:"category"`
	Description string `json:"description"`
	URL         string `json:"url"`
	DefaultURL  string `json:"default_url"`
	Overridden  bool   `json:"overridden"`
}

// UpsertGuideAudioRequest points a cue at an uploaded track.
type UpsertGuideAudioRequest struct {
	URL string `json:"url" binding:"required,max=500"`
}
