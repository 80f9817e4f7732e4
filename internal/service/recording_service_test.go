package service

import (
	"testing"

	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCheckSubmittable(t *testing.T) {
	cases := []struct {
		name    string
		attempt model.TestAttempt
		live    bool
		want    error
	}{
		{"open attempt", model.TestAttempt{}, false, nil},
		{"stream running", model.TestAttempt{}, true, ErrAttemptInProgress},
		{"completed", model.TestAttempt{IsCompleted: true}, false, ErrAttemptClosed},
		{"abandoned", model.TestAttempt{IsCompleted: true, IsAbandoned: true}, false, ErrAttemptClosed},
		{"completed with stale lock", model.TestAttempt{IsCompleted: true}, true, ErrAttemptClosed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := checkSubmittable(&c.attempt, c.live)
			if c.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, c.want)
		})
	}
}
