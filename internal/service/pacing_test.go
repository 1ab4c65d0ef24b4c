package service

import (
	"strings"
	"testing"
	"time"
)

func TestRevealPacerDelay(t *testing.T) {
	noJitter := DefaultRevealPacer()
	noJitter.Jitter = func(time.Duration) time.Duration { return 0 }

	t.Run("base plus per rune", func(t *testing.T) {
		if got := noJitter.Delay("Hmm."); got != 600*time.Millisecond {
			t.Fatalf("expected 600ms, got %v", got)
		}
		if got := noJitter.Delay("¿Qué?"); got != 625*time.Millisecond {
			t.Fatalf("expected runes not bytes, got %v", got)
		}
	})

	t.Run("capped", func(t *testing.T) {
		if got := noJitter.Delay(strings.Repeat("a", 500)); got != 3*time.Second {
			t.Fatalf("expected cap, got %v", got)
		}
	})

	t.Run("jitter within bounds", func(t *testing.T) {
		p := DefaultRevealPacer()
		for i := 0; i < 200; i++ {
			d := p.Delay("")
			if d < 500*time.Millisecond || d > 700*time.Millisecond {
				t.Fatalf("delay out of range: %v", d)
			}
		}
	})

	t.Run("jitter receives max", func(t *testing.T) {
		p := DefaultRevealPacer()
		var seen time.Duration
		p.Jitter = func(max time.Duration) time.Duration { seen = max; return max }
		if got := p.Delay(""); got != 700*time.Millisecond || seen != 200*time.Millisecond {
			t.Fatalf("unexpected delay %v max %v", got, seen)
		}
	})
}
