package examflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCountdownTicksAndFiresOnce(t *testing.T) {
	clock := newFakeClock()
	c := NewCountdown(clock, time.Second)

	var ticks []int
	done := 0
	c.Start(3, func(r int) { ticks = append(ticks, r) }, func() { done++ })
	require.True(t, c.Active())

	clock.Advance(999 * time.Millisecond)
	require.Empty(t, ticks)

	clock.Advance(time.Millisecond)
	require.Equal(t, []int{2}, ticks)
	require.Equal(t, 2, c.Remaining())

	clock.Advance(10 * time.Second)
	require.Equal(t, []int{2, 1, 0}, ticks)
	require.Equal(t, 1, done)
	require.False(t, c.Active())
	require.Zero(t, clock.Pending())
}

func TestCountdownRestartCancelsPrevious(t *testing.T) {
	clock := newFakeClock()
	c := NewCountdown(clock, time.Second)

	var first, second []int
	firstDone, secondDone := 0, 0
	c.Start(5, func(r int) { first = append(first, r) }, func() { firstDone++ })
	clock.Advance(2 * time.Second)
	require.Equal(t, []int{4, 3}, first)

	c.Start(3, func(r int) { second = append(second, r) }, func() { secondDone++ })
	clock.Advance(10 * time.Second)

	require.Equal(t, []int{4, 3}, first, "cancelled countdown kept ticking")
	require.Zero(t, firstDone)
	require.Equal(t, []int{2, 1, 0}, second)
	require.Equal(t, 1, secondDone)
}

func TestCountdownCancel(t *testing.T) {
	clock := newFakeClock()
	c := NewCountdown(clock, time.Second)

	done := 0
	c.Start(2, nil, func() { done++ })
	clock.Advance(time.Second)
	c.Cancel()
	clock.Advance(5 * time.Second)

	require.Zero(t, done)
	require.False(t, c.Active())
}

func TestCountdownZeroSecondsCompletesAsync(t *testing.T) {
	clock := newFakeClock()
	c := NewCountdown(clock, time.Second)

	done := 0
	c.Start(0, nil, func() { done++ })
	require.Zero(t, done)

	clock.Advance(0)
	require.Equal(t, 1, done)
}
