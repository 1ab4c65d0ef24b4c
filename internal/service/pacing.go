package service

import (
	"context"
	"math/rand/v2"
	"time"
	"unicode/utf8"
)

// RevealPacer calcula la pausa previa a mostrar cada fragmento, simulando tipeo.
type RevealPacer struct {
	Base      time.Duration
	PerRune   time.Duration
	MaxJitter time.Duration
	Cap       time.Duration

	// Jitter devuelve un valor en [0, max]; nil usa math/rand.
	Jitter func(max time.Duration) time.Duration
}

func DefaultRevealPacer() RevealPacer {
	return RevealPacer{
		Base:      500 * time.Millisecond,
		PerRune:   25 * time.Millisecond,
		MaxJitter: 200 * time.Millisecond,
		Cap:       3 * time.Second,
	}
}

func (p RevealPacer) Delay(fragment string) time.Duration {
	d := p.Base + time.Duration(utf8.RuneCountInString(fragment))*p.PerRune
	if p.MaxJitter > 0 {
		jitter := p.Jitter
		if jitter == nil {
			jitter = randomJitter
		}
		d += jitter(p.MaxJitter)
	}
	if p.Cap > 0 && d > p.Cap {
		d = p.Cap
	}
	return d
}

func randomJitter(max time.Duration) time.Duration {
	return rand.N(max + 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
