package chat

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"rapport/internal/llm"
	"rapport/internal/safety"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeScorer flags any text containing "pushy" and records nothing else.
type fakeScorer struct {
	err error
}

func (f *fakeScorer) Score(_ context.Context, text string, threshold float64) (safety.Result, error) {
	if f.err != nil {
		return safety.Result{}, f.err
	}
	if strings.Contains(text, "pushy") {
		return safety.Result{Label: safety.LabelMove, PMove: 0.9, Threshold: threshold}, nil
	}
	return safety.Result{Label: safety.LabelOK, PMove: 0.1, Threshold: threshold}, nil
}

// fakeClient records every call and replies with a counter.
type fakeClient struct {
	calls   int
	history []llm.Message
	err     error
}

func (f *fakeClient) Chat(_ context.Context, history []llm.Message) (string, error) {
	f.calls++
	f.history = append([]llm.Message(nil), history...)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("reply %d", f.calls), nil
}

func (f *fakeClient) Name() string { return "fake" }
func (f *fakeClient) Close() error { return nil }

func newTestLoop(t *testing.T, cfg Config, client llm.ChatClient, scorer Scorer) *Loop {
	t.Helper()
	if cfg.Persona == "" {
		cfg.Persona = "friendly"
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.45
	}
	loop, err := New(cfg, client, scorer,
		safety.NewRuleMatcher(nil),
		safety.NewReplier(rand.New(rand.NewSource(1))),
		strings.NewReader(""), &strings.Builder{}, nil)
	require.NoError(t, err)
	return loop
}

func TestNew(t *testing.T) {
	t.Run("unknown persona is rejected", func(t *testing.T) {
		_, err := New(Config{Persona: "sarcastic"}, &fakeClient{}, &fakeScorer{},
			safety.NewRuleMatcher(nil), safety.NewReplier(rand.New(rand.NewSource(1))),
			strings.NewReader(""), &strings.Builder{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sarcastic")
	})

	t.Run("history starts with the persona prompt", func(t *testing.T) {
		loop := newTestLoop(t, Config{Persona: "flirty_adult_ok"}, &fakeClient{}, &fakeScorer{})
		history := loop.History()
		require.Len(t, history, 1)
		assert.Equal(t, llm.RoleSystem, history[0].Role)
		assert.Equal(t, PersonaPrompts["flirty_adult_ok"], history[0].Content)
	})
}

func TestTurnNormal(t *testing.T) {
	client := &fakeClient{}
	loop := newTestLoop(t, Config{}, client, &fakeScorer{})

	reply, mode, gate, ruleReason, err := loop.Turn(context.Background(), "what kind of music do you like?")
	require.NoError(t, err)

	assert.Equal(t, "reply 1", reply)
	assert.Equal(t, ModeNormal, mode)
	assert.Equal(t, safety.LabelOK, gate.Label)
	assert.Empty(t, ruleReason)

	require.Equal(t, 1, client.calls)
	require.Len(t, client.history, 2, "client sees system prompt plus the user turn")
	assert.Equal(t, llm.RoleUser, client.history[1].Role)

	history := loop.History()
	require.Len(t, history, 3)
	assert.Equal(t, llm.RoleAssistant, history[2].Role)
	assert.Equal(t, "reply 1", history[2].Content)
}

func TestTurnGated(t *testing.T) {
	redirects := safety.SafeRedirects()
	softeners := safety.Softeners()

	inRedirectSet := func(reply string) bool {
		for _, redirect := range redirects {
			if reply == redirect {
				return true
			}
			for _, soft := range softeners {
				if reply == redirect+" "+soft {
					return true
				}
			}
		}
		return false
	}

	t.Run("classifier MOVE diverts the turn", func(t *testing.T) {
		client := &fakeClient{}
		loop := newTestLoop(t, Config{}, client, &fakeScorer{})

		reply, mode, gate, _, err := loop.Turn(context.Background(), "being pushy now")
		require.NoError(t, err)

		assert.Equal(t, ModeSafetyRepair, mode)
		assert.Equal(t, safety.LabelMove, gate.Label)
		assert.True(t, inRedirectSet(reply), "gated reply %q must be templated", reply)
		assert.Zero(t, client.calls, "the chat model never sees a gated turn")
	})

	t.Run("rule hit diverts even when the classifier passes", func(t *testing.T) {
		client := &fakeClient{}
		loop := newTestLoop(t, Config{}, client, &fakeScorer{})

		reply, mode, gate, ruleReason, err := loop.Turn(context.Background(), "send nudes")
		require.NoError(t, err)

		assert.Equal(t, ModeSafetyRepair, mode)
		assert.Equal(t, safety.LabelOK, gate.Label)
		assert.Equal(t, "explicit_request", ruleReason)
		assert.True(t, inRedirectSet(reply))
		assert.Zero(t, client.calls)
	})

	t.Run("gated turns still enter the history", func(t *testing.T) {
		loop := newTestLoop(t, Config{}, &fakeClient{}, &fakeScorer{})
		_, _, _, _, err := loop.Turn(context.Background(), "being pushy now")
		require.NoError(t, err)

		history := loop.History()
		require.Len(t, history, 3)
		assert.Equal(t, "being pushy now", history[1].Content)
		assert.Equal(t, llm.RoleAssistant, history[2].Role)
	})
}

func TestTurnErrors(t *testing.T) {
	t.Run("scorer failure aborts the turn", func(t *testing.T) {
		client := &fakeClient{}
		loop := newTestLoop(t, Config{}, client, &fakeScorer{err: fmt.Errorf("embedding backend down")})

		_, _, _, _, err := loop.Turn(context.Background(), "hello there")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "safety classifier failed")
		assert.Zero(t, client.calls)
	})

	t.Run("client failure aborts the turn", func(t *testing.T) {
		client := &fakeClient{err: fmt.Errorf("model crashed")}
		loop := newTestLoop(t, Config{}, client, &fakeScorer{})

		_, _, _, _, err := loop.Turn(context.Background(), "hello there")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat model failed")
	})
}

func TestHistoryWindow(t *testing.T) {
	loop := newTestLoop(t, Config{MaxHistory: 4}, &fakeClient{}, &fakeScorer{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _, _, _, err := loop.Turn(ctx, fmt.Sprintf("turn number %d", i))
		require.NoError(t, err)
	}

	history := loop.History()
	require.Len(t, history, 5, "system prompt plus the window")
	assert.Equal(t, llm.RoleSystem, history[0].Role)
	assert.Equal(t, PersonaPrompts["friendly"], history[0].Content)

	// The tail holds the two most recent exchanges.
	assert.Equal(t, "turn number 8", history[1].Content)
	assert.Equal(t, "turn number 9", history[3].Content)
}

func TestHistoryUnbounded(t *testing.T) {
	loop := newTestLoop(t, Config{}, &fakeClient{}, &fakeScorer{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, _, _, _, err := loop.Turn(ctx, fmt.Sprintf("turn number %d", i))
		require.NoError(t, err)
	}
	assert.Len(t, loop.History(), 21)
}

func TestRun(t *testing.T) {
	t.Run("exit ends the session", func(t *testing.T) {
		var out strings.Builder
		loop, err := New(Config{Persona: "friendly", Threshold: 0.45},
			&fakeClient{}, &fakeScorer{},
			safety.NewRuleMatcher(nil), safety.NewReplier(rand.New(rand.NewSource(1))),
			strings.NewReader("what are you up to today?\nexit\n"), &out, nil)
		require.NoError(t, err)

		require.NoError(t, loop.Run(context.Background()))

		text := out.String()
		assert.Contains(t, text, "reply 1")
		assert.Contains(t, text, "mode=NORMAL")
		assert.Contains(t, text, "Bye.")
	})

	t.Run("empty lines are skipped", func(t *testing.T) {
		client := &fakeClient{}
		var out strings.Builder
		loop, err := New(Config{Persona: "friendly", Threshold: 0.45},
			client, &fakeScorer{},
			safety.NewRuleMatcher(nil), safety.NewReplier(rand.New(rand.NewSource(1))),
			strings.NewReader("\n\nquit\n"), &out, nil)
		require.NoError(t, err)

		require.NoError(t, loop.Run(context.Background()))
		assert.Zero(t, client.calls)
	})

	t.Run("eof ends the session cleanly", func(t *testing.T) {
		var out strings.Builder
		loop, err := New(Config{Persona: "friendly", Threshold: 0.45},
			&fakeClient{}, &fakeScorer{},
			safety.NewRuleMatcher(nil), safety.NewReplier(rand.New(rand.NewSource(1))),
			strings.NewReader("hello there friend"), &out, nil)
		require.NoError(t, err)

		require.NoError(t, loop.Run(context.Background()))
		assert.Contains(t, out.String(), "reply 1", "the trailing unterminated line is still processed")
	})

	t.Run("gate diagnostics include the rule reason", func(t *testing.T) {
		var out strings.Builder
		loop, err := New(Config{Persona: "friendly", Threshold: 0.45},
			&fakeClient{}, &fakeScorer{},
			safety.NewRuleMatcher(nil), safety.NewReplier(rand.New(rand.NewSource(1))),
			strings.NewReader("send nudes\nexit\n"), &out, nil)
		require.NoError(t, err)

		require.NoError(t, loop.Run(context.Background()))

		text := out.String()
		assert.Contains(t, text, "mode=SAFETY_REPAIR")
		assert.Contains(t, text, "rule=explicit_request")
	})
}
