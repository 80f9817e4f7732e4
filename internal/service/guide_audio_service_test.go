package service

import (
	"testing"

	"github.com/stemsi/speaking-backend/internal/examflow"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stretchr/testify/require"
)

func TestResolveGuideAudioDefaults(t *testing.T) {
	entries := ResolveGuideAudio("/audio", nil)
	require.Len(t, entries, len(guideCatalog))

	byKey := map[string]model.GuideAudioEntry{}
	for _, e := range entries {
		byKey[e.AudioKey] = e
		require.False(t, e.Overridden)
		require.Equal(t, e.DefaultURL, e.URL)
	}
	require.Equal(t, "/audio/common/preparation-start.mp3", byKey[string(examflow.GuidePreparationStart)].URL)
	require.Equal(t, "/audio/parts/part4-intro.mp3", byKey[string(examflow.PartIntroKey(4))].URL)
}

func TestResolveGuideAudioOverrides(t *testing.T) {
	entries := ResolveGuideAudio("https://cdn.example.com/guide", []model.GuideAudio{
		{AudioKey: "speaking-end", URL: "/uploads/audio/custom.mp3"},
		{AudioKey: "part1-intro", URL: ""},
		{AudioKey: "retired-key", URL: "/uploads/audio/old.mp3"},
	})
	require.Len(t, entries, len(guideCatalog))

	for _, e := range entries {
		switch e.AudioKey {
		case "speaking-end":
			require.True(t, e.Overridden)
			require.Equal(t, "/uploads/audio/custom.mp3", e.URL)
			require.Equal(t, "https://cdn.example.com/guide/common/speaking-end.mp3", e.DefaultURL)
		case "part1-intro":
			require.False(t, e.Overridden)
			require.Equal(t, "https://cdn.example.com/guide/parts/part1-intro.mp3", e.URL)
		default:
			require.False(t, e.Overridden, e.AudioKey)
		}
	}
}

func TestKnownGuideKey(t *testing.T) {
	require.True(t, knownGuideKey("next-question"))
	require.True(t, knownGuideKey("part5-intro"))
	require.False(t, knownGuideKey("part6-intro"))
	require.False(t, knownGuideKey(""))
}
