package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	answer string
	err    error
	delay  time.Duration
	calls  int
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func entry(name string, gen Generator) DispatchEntry {
	return DispatchEntry{Name: name, Generator: gen, Timeout: time.Second}
}

func TestDispatch_FallbackOrderIsDeterministic(t *testing.T) {
	a := &stubGenerator{err: errors.New("boom")}
	b := &stubGenerator{err: ErrUnavailable}
	c := &stubGenerator{answer: "from c"}
	d := NewDispatcher([]DispatchEntry{entry("a", a), entry("b", b), entry("c", c)})

	result, attempts, err := d.Dispatch(context.Background(), "", "prompt")
	require.NoError(t, err)
	require.Equal(t, "from c", result.Answer)
	require.Equal(t, "c", result.Provider)
	require.Len(t, attempts, 3)
	require.Equal(t, "a", attempts[0].Provider)
	require.Equal(t, OutcomeTransportError, attempts[0].Outcome)
	require.Equal(t, "b", attempts[1].Provider)
	require.Equal(t, OutcomeAuthError, attempts[1].Outcome)
	require.Equal(t, "c", attempts[2].Provider)
	require.Equal(t, OutcomeSuccess, attempts[2].Outcome)
}

func TestDispatch_StopsAtFirstSuccess(t *testing.T) {
	a := &stubGenerator{answer: "from a"}
	b := &stubGenerator{answer: "from b"}
	d := NewDispatcher([]DispatchEntry{entry("a", a), entry("b", b)})

	result, attempts, err := d.Dispatch(context.Background(), "", "prompt")
	require.NoError(t, err)
	require.Equal(t, "from a", result.Answer)
	require.Len(t, attempts, 1)
	require.Zero(t, b.calls)
}

func TestDispatch_Exhaustion(t *testing.T) {
	a := &stubGenerator{err: errors.New("down")}
	b := &stubGenerator{err: errors.New("down too")}
	d := NewDispatcher([]DispatchEntry{entry("a", a), entry("b", b)})

	result, attempts, err := d.Dispatch(context.Background(), "", "prompt")
	require.ErrorIs(t, err, ErrAllProvidersFailed)
	require.Nil(t, result)
	require.Len(t, attempts, 2)
}

func TestDispatch_PreferredProviderGoesFirst(t *testing.T) {
	a := &stubGenerator{answer: "from a"}
	local := &stubGenerator{answer: "from local"}
	d := NewDispatcher([]DispatchEntry{entry("a", a), entry("local", local)})

	result, attempts, err := d.Dispatch(context.Background(), "local", "prompt")
	require.NoError(t, err)
	require.Equal(t, "from local", result.Answer)
	require.Len(t, attempts, 1)
	require.Equal(t, "local", attempts[0].Provider)
	require.Zero(t, a.calls)
}

func TestDispatch_PreferredTimeoutFallsBack(t *testing.T) {
	local := &stubGenerator{answer: "slow", delay: 200 * time.Millisecond}
	hosted := &stubGenerator{answer: "from hosted"}
	d := NewDispatcher([]DispatchEntry{
		{Name: "hosted", Generator: hosted, Timeout: time.Second},
		{Name: "local", Generator: local, Timeout: 20 * time.Millisecond},
	})

	result, attempts, err := d.Dispatch(context.Background(), "local", "prompt")
	require.NoError(t, err)
	require.Equal(t, "from hosted", result.Answer)
	require.Len(t, attempts, 2)
	require.Equal(t, "local", attempts[0].Provider)
	require.Equal(t, OutcomeTimeout, attempts[0].Outcome)
	require.Equal(t, "hosted", attempts[1].Provider)
}

func TestDispatch_EmptyAnswerIsMalformed(t *testing.T) {
	a := &stubGenerator{answer: "   "}
	b := &stubGenerator{answer: "real answer"}
	d := NewDispatcher([]DispatchEntry{entry("a", a), entry("b", b)})

	result, attempts, err := d.Dispatch(context.Background(), "", "prompt")
	require.NoError(t, err)
	require.Equal(t, "real answer", result.Answer)
	require.Equal(t, OutcomeMalformed, attempts[0].Outcome)
}

func TestDispatch_CanceledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &stubGenerator{answer: "from a"}
	d := NewDispatcher([]DispatchEntry{entry("a", a)})

	_, attempts, err := d.Dispatch(ctx, "", "prompt")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, attempts)
	require.Zero(t, a.calls)
}

func TestDispatch_UnknownPreferenceKeepsConfiguredOrder(t *testing.T) {
	a := &stubGenerator{answer: "from a"}
	b := &stubGenerator{answer: "from b"}
	d := NewDispatcher([]DispatchEntry{entry("a", a), entry("b", b)})

	result, _, err := d.Dispatch(context.Background(), "nope", "prompt")
	require.NoError(t, err)
	require.Equal(t, "from a", result.Answer)
}
