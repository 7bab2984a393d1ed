package safety

import "math/rand"

// safeRedirects are the fixed de-escalation replies substituted for the
// model's output when the gate fires.
var safeRedirects = []string{
	"Totally fair—let’s keep it comfortable. I’m happy to stay here and chat. What are you up to this week?",
	"Got it. I don’t want to push. Want to switch topics—what have you been enjoying lately?",
	"No worries at all. We can keep this low-key. What kind of plans do you have for the weekend?",
	"Thanks for saying that. I’ll slow down. What’s something you’re looking forward to right now?",
}

// softeners are occasionally appended so the redirects read less robotic.
var softeners = []string{
	"No pressure.",
	"Only if you feel comfortable.",
	"Totally fine either way.",
}

// softenerProbability is the chance a softener is appended to a redirect.
const softenerProbability = 0.35

// Replier picks templated boundary-safe replies. The randomness source is
// injected so tests can pin the sequence.
type Replier struct {
	rng *rand.Rand
}

// NewReplier creates a Replier over the given randomness source.
func NewReplier(rng *rand.Rand) *Replier {
	return &Replier{rng: rng}
}

// BoundaryReply returns one reply from the safe-redirect set, sometimes with
// a softener appended.
func (r *Replier) BoundaryReply() string {
	reply := safeRedirects[r.rng.Intn(len(safeRedirects))]
	if r.rng.Float64() < softenerProbability {
		reply = reply + " " + softeners[r.rng.Intn(len(softeners))]
	}
	return reply
}

// SafeRedirects returns a copy of the redirect set. Tests use it to assert
// that gated replies never come from anywhere else.
func SafeRedirects() []string {
	out := make([]string, len(safeRedirects))
	copy(out, safeRedirects)
	return out
}

// Softeners returns a copy of the softener set.
func Softeners() []string {
	out := make([]string, len(softeners))
	copy(out, softeners)
	return out
}
