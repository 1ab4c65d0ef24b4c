package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"talkmate/internal/domain"
	"talkmate/internal/tts"
)

type recordingPlayer struct {
	mu      sync.Mutex
	played  []string
	started chan domain.AudioItem
	block   atomic.Bool
	err     error
}

func newRecordingPlayer(block bool) *recordingPlayer {
	p := &recordingPlayer{started: make(chan domain.AudioItem, 16)}
	p.block.Store(block)
	return p
}

func (p *recordingPlayer) Play(ctx context.Context, item domain.AudioItem) error {
	p.mu.Lock()
	p.played = append(p.played, item.Text)
	p.mu.Unlock()
	p.started <- item
	if p.block.Load() {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.err
}

func (p *recordingPlayer) Played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}

type countingObserver struct {
	mu      sync.Mutex
	started int
	ended   int
	endErrs []error
}

func (o *countingObserver) PlaybackStarted(domain.AudioItem) {
	o.mu.Lock()
	o.started++
	o.mu.Unlock()
}

func (o *countingObserver) PlaybackEnded(_ domain.AudioItem, err error) {
	o.mu.Lock()
	o.ended++
	o.endErrs = append(o.endErrs, err)
	o.mu.Unlock()
}

func (o *countingObserver) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started, o.ended
}

func waitStarted(t *testing.T, p *recordingPlayer) domain.AudioItem {
	t.Helper()
	select {
	case item := <-p.started:
		return item
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for playback")
	}
	return domain.AudioItem{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}

func TestSequencerPlaysInEnqueueOrder(t *testing.T) {
	release := map[string]chan struct{}{
		"A": make(chan struct{}),
		"B": make(chan struct{}),
		"C": make(chan struct{}),
	}
	synth := &tts.MockSynthesizer{Hook: func(ctx context.Context, text string) (tts.Speech, error) {
		select {
		case <-release[text]:
		case <-ctx.Done():
			return tts.Speech{}, ctx.Err()
		}
		return tts.Speech{AudioURI: "uri:" + text}, nil
	}}
	player := newRecordingPlayer(false)
	s := NewSequencer(synth, player, Options{Enabled: true})
	defer s.Close()

	for _, text := range []string{"A", "B", "C"} {
		if _, ok := s.Enqueue(text); !ok {
			t.Fatalf("enqueue %s rejected", text)
		}
	}

	// sintesis en orden inverso
	close(release["C"])
	close(release["B"])
	time.Sleep(20 * time.Millisecond)
	if got := player.Played(); len(got) != 0 {
		t.Fatalf("nothing should play before A is ready, got %v", got)
	}
	close(release["A"])

	first := waitStarted(t, player)
	waitStarted(t, player)
	waitStarted(t, player)

	got := player.Played()
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("expected A,B,C got %v", got)
	}
	if first.SourceURI != "uri:A" {
		t.Fatalf("expected source uri to be set, got %q", first.SourceURI)
	}
	waitFor(t, func() bool { return s.State() == StateIdle && s.Len() == 0 })
}

func TestSequencerSkipsFailedSynthesis(t *testing.T) {
	synth := &tts.MockSynthesizer{Hook: func(_ context.Context, text string) (tts.Speech, error) {
		if text == "bad" {
			return tts.Speech{}, errors.New("tts down")
		}
		return tts.Speech{AudioURI: "uri:" + text}, nil
	}}
	player := newRecordingPlayer(false)
	obs := &countingObserver{}
	s := NewSequencer(synth, player, Options{Enabled: true, Observer: obs})
	defer s.Close()

	s.Enqueue("one")
	s.Enqueue("bad")
	s.Enqueue("two")

	waitStarted(t, player)
	waitStarted(t, player)
	waitFor(t, func() bool { return s.State() == StateIdle && s.Len() == 0 })

	got := player.Played()
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("expected failed item dropped, got %v", got)
	}
	if started, ended := obs.counts(); started != 2 || ended != 2 {
		t.Fatalf("unexpected observer counts started=%d ended=%d", started, ended)
	}
}

func TestSequencerPlaybackFailureAdvances(t *testing.T) {
	player := newRecordingPlayer(false)
	player.err = errors.New("device busy")
	obs := &countingObserver{}
	s := NewSequencer(&tts.MockSynthesizer{}, player, Options{Enabled: true, Observer: obs})
	defer s.Close()

	s.Enqueue("one")
	s.Enqueue("two")
	waitStarted(t, player)
	waitStarted(t, player)
	waitFor(t, func() bool { _, ended := obs.counts(); return ended == 2 })

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if !errors.Is(obs.endErrs[0], domain.ErrPlaybackFailure) {
		t.Fatalf("expected ErrPlaybackFailure, got %v", obs.endErrs[0])
	}
}

func TestSequencerResetWhilePlaying(t *testing.T) {
	player := newRecordingPlayer(true)
	obs := &countingObserver{}
	s := NewSequencer(&tts.MockSynthesizer{}, player, Options{Enabled: true, Observer: obs})
	defer s.Close()

	s.Enqueue("first")
	s.Enqueue("second")
	waitStarted(t, player)
	waitFor(t, func() bool { return s.State() == StatePlaying })

	s.Reset()
	if s.State() != StateIdle || s.Len() != 0 {
		t.Fatalf("expected idle empty queue after reset, state=%s len=%d", s.State(), s.Len())
	}

	player.block.Store(false)
	s.Enqueue("after")
	item := waitStarted(t, player)
	if item.Text != "after" {
		t.Fatalf("expected only new item to play, got %q", item.Text)
	}
	waitFor(t, func() bool { _, ended := obs.counts(); return ended == 1 })

	if got := player.Played(); len(got) != 2 || got[1] != "after" {
		t.Fatalf("discarded item played: %v", got)
	}
	if started, ended := obs.counts(); started != 2 || ended != 1 {
		t.Fatalf("discarded item must not report end, started=%d ended=%d", started, ended)
	}
}

func TestSequencerDisabled(t *testing.T) {
	player := newRecordingPlayer(true)
	s := NewSequencer(&tts.MockSynthesizer{}, player, Options{})
	defer s.Close()

	if _, ok := s.Enqueue("hi"); ok {
		t.Fatalf("expected enqueue rejected while disabled")
	}

	s.SetEnabled(true)
	s.Enqueue("hi")
	waitStarted(t, player)

	s.SetEnabled(false)
	if s.State() != StateIdle || s.Len() != 0 {
		t.Fatalf("disabling must hard reset")
	}
	if _, ok := s.Enqueue("  "); ok {
		t.Fatalf("blank text must be rejected")
	}
}

func TestSequencerClose(t *testing.T) {
	s := NewSequencer(&tts.MockSynthesizer{}, newRecordingPlayer(true), Options{Enabled: true})
	s.Close()
	if _, ok := s.Enqueue("late"); ok {
		t.Fatalf("expected enqueue rejected after close")
	}
	s.Close()
}
