package examflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type completeCall struct {
	attemptID string
	abandoned bool
	reason    string
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls []completeCall
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, attemptID string, abandoned bool, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, completeCall{attemptID, abandoned, reason})
	return f.err
}

func (f *fakeCompleter) Calls() []completeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]completeCall(nil), f.calls...)
}

func TestAbandonGuardReportsOnce(t *testing.T) {
	completer := &fakeCompleter{}
	g := NewAbandonGuard("attempt-1", completer, zerolog.Nop())

	// Back navigation and page unload racing each other.
	var wg sync.WaitGroup
	results := make(chan bool, 2)
	for _, reason := range []string{"", "back navigation"} {
		wg.Add(1)
		go func(reason string) {
			defer wg.Done()
			results <- g.Abandon(context.Background(), reason)
		}(reason)
	}
	wg.Wait()
	close(results)

	performed := 0
	for ok := range results {
		if ok {
			performed++
		}
	}
	require.Equal(t, 1, performed)
	require.Len(t, completer.Calls(), 1)
	require.True(t, completer.Calls()[0].abandoned)
	require.True(t, g.Settled())
	require.True(t, g.Abandoned())
	require.True(t, g.Reported())
}

func TestAbandonGuardAfterCompletion(t *testing.T) {
	completer := &fakeCompleter{}
	g := NewAbandonGuard("attempt-1", completer, zerolog.Nop())

	require.True(t, g.Complete(context.Background()))
	require.False(t, g.Abandon(context.Background(), ""))

	require.Equal(t, []completeCall{{"attempt-1", false, ""}}, completer.Calls())
	require.False(t, g.Abandoned())
}

func TestAbandonGuardSwallowsErrors(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("network down")}
	g := NewAbandonGuard("attempt-1", completer, zerolog.Nop())

	require.True(t, g.Abandon(context.Background(), ""))
	require.False(t, g.Abandon(context.Background(), ""))

	calls := completer.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, AbandonReasonUserLeft, calls[0].reason)
	require.True(t, g.Settled())
	require.False(t, g.Reported())
}
