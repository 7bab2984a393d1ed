// Package chat implements the interactive practice loop: a blocking
// read-eval-print cycle that gates every user turn through the safety
// classifier and the escalation rules before the chat model sees it.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"rapport/internal/llm"
	"rapport/internal/safety"
)

// Turn modes. Each turn is either diverted to a safety-repair reply or
// forwarded to the chat model; there is no other state.
const (
	ModeSafetyRepair = "SAFETY_REPAIR"
	ModeNormal       = "NORMAL"
)

// PersonaPrompts maps the persona choice to its system prompt.
var PersonaPrompts = map[string]string{
	"friendly": "You are a natural conversational partner on a dating app. " +
		"Keep replies short (1-3 sentences). Ask exactly one thoughtful question. " +
		"Be warm, curious, and specific.",
	"flirty_adult_ok": "You are playful and lightly flirty on a dating app. Adult topics are allowed if mutual and respectful. " +
		"Never be coercive, never push for address/location, and always respect boundaries. " +
		"Keep replies short (1-2 sentences). Ask exactly one engaging question.",
}

// Scorer is the classifier contract the loop consumes: a label and MOVE
// probability for raw user text at a decision threshold.
type Scorer interface {
	Score(ctx context.Context, text string, threshold float64) (safety.Result, error)
}

// Matcher is the deterministic escalation-rule contract.
type Matcher interface {
	Match(text string) (bool, string)
}

// Config holds loop settings.
type Config struct {
	Persona   string  // key into PersonaPrompts
	Threshold float64 // classifier decision threshold

	// MaxHistory bounds conversation growth: the system prompt plus at most
	// this many trailing messages are retained. 0 disables the window.
	MaxHistory int
}

// Loop owns the conversation history and drives one blocking REPL session.
type Loop struct {
	cfg     Config
	client  llm.ChatClient
	scorer  Scorer
	rules   Matcher
	replier *safety.Replier
	logger  *zap.Logger

	history []llm.Message

	in  *bufio.Reader
	out io.Writer
}

var (
	botStyle  = lipgloss.NewStyle().Bold(true)
	gateStyle = lipgloss.NewStyle().Faint(true)
)

// New creates a loop. The persona must be a PersonaPrompts key.
func New(cfg Config, client llm.ChatClient, scorer Scorer, rules Matcher, replier *safety.Replier, in io.Reader, out io.Writer, logger *zap.Logger) (*Loop, error) {
	prompt, ok := PersonaPrompts[cfg.Persona]
	if !ok {
		return nil, fmt.Errorf("unknown persona %q", cfg.Persona)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loop{
		cfg:     cfg,
		client:  client,
		scorer:  scorer,
		rules:   rules,
		replier: replier,
		logger:  logger,
		history: []llm.Message{{Role: llm.RoleSystem, Content: prompt}},
		in:      bufio.NewReader(in),
		out:     out,
	}, nil
}

// History returns the current conversation history.
func (l *Loop) History() []llm.Message {
	return l.history
}

// Run drives the REPL until the user quits, input ends, or a collaborator
// fails. Classifier and model errors abort the session.
func (l *Loop) Run(ctx context.Context) error {
	fmt.Fprintf(l.out, "rapport practice chat (persona=%s, model=%s). Type 'exit' to quit.\n\n",
		l.cfg.Persona, l.client.Name())

	for {
		fmt.Fprint(l.out, "you> ")
		line, err := l.in.ReadString('\n')
		if err == io.EOF {
			if strings.TrimSpace(line) == "" {
				return nil
			}
		} else if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		user := strings.TrimSpace(line)
		if user == "" {
			if err == io.EOF {
				return nil
			}
			continue
		}
		if lower := strings.ToLower(user); lower == "exit" || lower == "quit" {
			fmt.Fprintln(l.out, botStyle.Render("bot>")+" Bye.")
			return nil
		}

		reply, mode, gate, ruleReason, turnErr := l.Turn(ctx, user)
		if turnErr != nil {
			return turnErr
		}

		fmt.Fprintln(l.out, botStyle.Render("bot>")+" "+reply)
		diag := fmt.Sprintf("[gate=%s p_move=%.3f thr=%.2f mode=%s", gate.Label, gate.PMove, gate.Threshold, mode)
		if ruleReason != "" {
			diag += " rule=" + ruleReason
		}
		diag += "]"
		fmt.Fprintln(l.out, "     "+gateStyle.Render(diag))
		fmt.Fprintln(l.out)

		if err == io.EOF {
			return nil
		}
	}
}

// Turn processes one user message: gate, branch, and history update.
// Exposed separately from Run so tests can drive turns directly.
func (l *Loop) Turn(ctx context.Context, user string) (reply, mode string, gate safety.Result, ruleReason string, err error) {
	gate, err = l.scorer.Score(ctx, user, l.cfg.Threshold)
	if err != nil {
		return "", "", safety.Result{}, "", fmt.Errorf("safety classifier failed: %w", err)
	}
	ruleHit, ruleReason := l.rules.Match(user)

	l.history = append(l.history, llm.Message{Role: llm.RoleUser, Content: user})

	if ruleHit || gate.Label == safety.LabelMove {
		reply = l.replier.BoundaryReply()
		mode = ModeSafetyRepair
		l.logger.Debug("safety repair",
			zap.String("label", gate.Label),
			zap.Float64("p_move", gate.PMove),
			zap.String("rule", ruleReason))
	} else {
		reply, err = l.client.Chat(ctx, l.history)
		if err != nil {
			return "", "", gate, ruleReason, fmt.Errorf("chat model failed: %w", err)
		}
		mode = ModeNormal
	}

	l.history = append(l.history, llm.Message{Role: llm.RoleAssistant, Content: reply})
	l.trimHistory()
	return reply, mode, gate, ruleReason, nil
}

// trimHistory applies the sliding window, always preserving the system
// prompt at index 0.
func (l *Loop) trimHistory() {
	if l.cfg.MaxHistory <= 0 {
		return
	}
	if len(l.history)-1 <= l.cfg.MaxHistory {
		return
	}
	keep := l.history[len(l.history)-l.cfg.MaxHistory:]
	trimmed := make([]llm.Message, 0, l.cfg.MaxHistory+1)
	trimmed = append(trimmed, l.history[0])
	trimmed = append(trimmed, keep...)
	l.history = trimmed
}
