package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAudioExt(t *testing.T) {
	cases := []struct {
		contentType string
		ext         string
		ok          bool
	}{
		{"audio/webm", ".webm", true},
		{"audio/webm;codecs=opus", ".webm", true},
		{"Audio/OGG; codecs=opus", ".ogg", true},
		{"audio/mpeg", ".mp3", true},
		{"audio/x-m4a", ".m4a", true},
		{"video/webm", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		ext, ok := audioExt(tc.contentType)
		require.Equal(t, tc.ok, ok, tc.contentType)
		require.Equal(t, tc.ext, ext, tc.contentType)
	}
}

func TestBaseMIME(t *testing.T) {
	require.Equal(t, "audio/webm", baseMIME("audio/webm;codecs=opus"))
	require.Equal(t, "audio/webm", baseMIME(" AUDIO/WEBM "))
}

func TestRecordingKey(t *testing.T) {
	require.Equal(t, "recordings/abc/q03.webm", RecordingKey("abc", 3, ".webm"))
	require.Equal(t, "recordings/abc/q11.ogg", RecordingKey("abc", 11, ".ogg"))
}

func TestNormalizePage(t *testing.T) {
	page, perPage, limit, offset := normalizePage(0, 0)
	require.Equal(t, []int{1, 10, 10, 0}, []int{page, perPage, limit, offset})

	page, perPage, limit, offset = normalizePage(3, 500)
	require.Equal(t, []int{3, maxPerPage, maxPerPage, 2 * maxPerPage}, []int{page, perPage, limit, offset})

	p := newPagination(2, 20, 41)
	require.Equal(t, 3, p.TotalPages)
}
