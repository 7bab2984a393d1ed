package safety

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundaryReply(t *testing.T) {
	replier := NewReplier(rand.New(rand.NewSource(7)))
	redirects := SafeRedirects()
	softeners := Softeners()

	t.Run("replies always come from the redirect set", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			reply := replier.BoundaryReply()

			matched := false
			for _, redirect := range redirects {
				if reply == redirect {
					matched = true
					break
				}
				for _, soft := range softeners {
					if reply == redirect+" "+soft {
						matched = true
						break
					}
				}
			}
			assert.True(t, matched, "unexpected reply %q", reply)
		}
	})

	t.Run("a seeded replier is deterministic", func(t *testing.T) {
		a := NewReplier(rand.New(rand.NewSource(42)))
		b := NewReplier(rand.New(rand.NewSource(42)))
		for i := 0; i < 20; i++ {
			assert.Equal(t, a.BoundaryReply(), b.BoundaryReply())
		}
	})

	t.Run("softeners appear on some replies but not all", func(t *testing.T) {
		r := NewReplier(rand.New(rand.NewSource(1)))
		softened := 0
		for i := 0; i < 500; i++ {
			reply := r.BoundaryReply()
			for _, soft := range softeners {
				if strings.HasSuffix(reply, " "+soft) {
					softened++
					break
				}
			}
		}
		assert.Greater(t, softened, 0)
		assert.Less(t, softened, 500)
	})
}

func TestTemplateSets(t *testing.T) {
	require.Len(t, SafeRedirects(), 4)
	require.Len(t, Softeners(), 3)

	// Every redirect keeps the conversation going with a question.
	for _, redirect := range SafeRedirects() {
		assert.Contains(t, redirect, "?")
	}

	// The accessors return copies; mutating them must not leak back.
	got := SafeRedirects()
	got[0] = "mutated"
	assert.NotEqual(t, "mutated", SafeRedirects()[0])
}
