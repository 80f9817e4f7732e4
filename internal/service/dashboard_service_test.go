package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClampRecent(t *testing.T) {
	require.Equal(t, DefaultRecentAttempts, ClampRecent(0))
	require.Equal(t, DefaultRecentAttempts, ClampRecent(-3))
	require.Equal(t, 1, ClampRecent(1))
	require.Equal(t, 25, ClampRecent(25))
	require.Equal(t, MaxRecentAttempts, ClampRecent(500))
}
