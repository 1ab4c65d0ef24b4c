package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"talkmate/internal/catalog"
	"talkmate/internal/domain"
	"talkmate/internal/llm"
	"talkmate/internal/playback"
)

type fakeAudio struct {
	mu       sync.Mutex
	enabled  bool
	resets   int
	enqueued []string
	closed   bool
}

func (f *fakeAudio) Enqueue(text string) (domain.AudioItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.enabled {
		return domain.AudioItem{}, false
	}
	f.enqueued = append(f.enqueued, text)
	return domain.AudioItem{Text: text}, true
}

func (f *fakeAudio) Reset() {
	f.mu.Lock()
	f.resets++
	f.enqueued = nil
	f.mu.Unlock()
}

func (f *fakeAudio) SetEnabled(enabled bool) {
	f.mu.Lock()
	f.enabled = enabled
	f.resets++
	f.enqueued = nil
	f.mu.Unlock()
}

func (f *fakeAudio) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeAudio) State() playback.State { return playback.StateIdle }

func (f *fakeAudio) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeAudio) snapshot() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets, append([]string(nil), f.enqueued...)
}

func newTestApp(provider llm.ConversationProvider, notifier domain.Notifier) (*ChatApp, *fakeAudio) {
	audio := &fakeAudio{enabled: true}
	app := NewChatApp("user-1", ChatDeps{
		Catalog:  catalog.Default(),
		Provider: provider,
		Sleep:    noSleep,
	}, nil, notifier).withAudio(audio)
	return app, audio
}

func TestChatAppSelect(t *testing.T) {
	t.Run("switching keeps logs and resets audio", func(t *testing.T) {
		app, audio := newTestApp(&llm.MockProvider{Response: []string{"Hey!"}}, nil)

		if _, err := app.Select("character-1", "calm-guide"); err != nil {
			t.Fatalf("select: %v", err)
		}
		_, _ = app.Submit(context.Background(), "hello Mahad")
		waitIdle(t, app.Active())

		if _, err := app.Select("character-2", ""); err != nil {
			t.Fatalf("select: %v", err)
		}
		if got := app.Snapshot(); got.CharacterID != "character-2" || len(got.Messages) != 0 {
			t.Fatalf("unexpected active session %+v", got)
		}

		snap, err := app.Select("character-1", "")
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if len(snap.Messages) != 2 || snap.PersonaID != "calm-guide" {
			t.Fatalf("prior log must survive switching, got %+v", snap)
		}
		resets, _ := audio.snapshot()
		if resets != 3 {
			t.Fatalf("expected a reset per switch, got %d", resets)
		}
	})

	t.Run("reselecting same pair does not reset", func(t *testing.T) {
		app, audio := newTestApp(&llm.MockProvider{}, nil)
		_, _ = app.Select("character-1", "calm-guide")
		_, _ = app.Select("character-1", "calm-guide")
		if resets, _ := audio.snapshot(); resets != 1 {
			t.Fatalf("expected single reset, got %d", resets)
		}
	})

	t.Run("persona switch resets", func(t *testing.T) {
		app, audio := newTestApp(&llm.MockProvider{}, nil)
		_, _ = app.Select("character-1", "calm-guide")
		snap, _ := app.Select("character-1", "frenemy")
		if snap.PersonaID != "frenemy" {
			t.Fatalf("persona not applied")
		}
		if resets, _ := audio.snapshot(); resets != 2 {
			t.Fatalf("expected reset on persona switch, got %d", resets)
		}
	})

	t.Run("unknown ids", func(t *testing.T) {
		app, _ := newTestApp(&llm.MockProvider{}, nil)
		if _, err := app.Select("ghost", ""); !errors.Is(err, catalog.ErrCharacterNotFound) {
			t.Fatalf("expected ErrCharacterNotFound, got %v", err)
		}
		if _, err := app.Select("character-1", "ghost"); !errors.Is(err, catalog.ErrPersonaNotFound) {
			t.Fatalf("expected ErrPersonaNotFound, got %v", err)
		}
	})
}

func TestChatAppVoice(t *testing.T) {
	t.Run("revealed fragments are spoken", func(t *testing.T) {
		app, audio := newTestApp(&llm.MockProvider{Response: []string{"Oh!", "Nice."}}, nil)
		_, _ = app.Submit(context.Background(), "hi")
		waitIdle(t, app.Active())

		_, spoken := audio.snapshot()
		if len(spoken) != 2 || spoken[0] != "Oh!" || spoken[1] != "Nice." {
			t.Fatalf("unexpected spoken %v", spoken)
		}
	})

	t.Run("stale conversation is not spoken", func(t *testing.T) {
		app, audio := newTestApp(&llm.MockProvider{}, nil)
		_, _ = app.Select("character-2", "")
		app.Speak("character-1", "empathetic-listener", "old reply")
		_, spoken := audio.snapshot()
		if len(spoken) != 0 {
			t.Fatalf("cross-persona audio bleed: %v", spoken)
		}
	})

	t.Run("toggle is a hard reset", func(t *testing.T) {
		rec := &eventRecorder{}
		app, audio := newTestApp(&llm.MockProvider{}, rec)
		app.SetVoiceEnabled(false)
		if app.VoiceEnabled() {
			t.Fatalf("expected voice disabled")
		}
		resets, _ := audio.snapshot()
		if resets != 1 || len(rec.ofType(domain.EventAudioReset)) != 1 {
			t.Fatalf("expected reset on toggle, resets=%d", resets)
		}
	})
}

func TestChatAppInput(t *testing.T) {
	provider := &llm.MockProvider{Response: []string{"Sure."}}
	app, _ := newTestApp(provider, nil)

	app.SetInput("  tell me more ")
	if app.Input() != "  tell me more " {
		t.Fatalf("unexpected buffer %q", app.Input())
	}
	turn, err := app.SubmitInput(context.Background())
	if err != nil || turn == nil {
		t.Fatalf("expected submitted turn, got %v %v", turn, err)
	}
	waitIdle(t, app.Active())

	if app.Input() != "" {
		t.Fatalf("buffer must be cleared")
	}
	if provider.Calls[0].Message != "tell me more" {
		t.Fatalf("unexpected message %q", provider.Calls[0].Message)
	}

	if turn, _ := app.SubmitInput(context.Background()); turn != nil {
		t.Fatalf("empty buffer must not submit")
	}
}

func TestChatAppSpeechCapture(t *testing.T) {
	app, _ := newTestApp(&llm.MockProvider{}, nil)
	if err := app.Speech().Start(); err == nil {
		t.Fatalf("expected unavailable recognizer")
	}
	app.SetSpeechAvailable(true)
	if err := app.Speech().Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = app.Speech().Update("hello there")
	if app.Input() != "hello there" {
		t.Fatalf("transcript not streamed into buffer: %q", app.Input())
	}
	if len(app.Messages()) != 0 {
		t.Fatalf("capture must never commit messages")
	}
}

func TestAppStore(t *testing.T) {
	created := 0
	store := NewAppStore(func(userID string) *ChatApp {
		created++
		app, _ := newTestApp(&llm.MockProvider{}, nil)
		app.userID = userID
		return app
	})
	a := store.Get("u1")
	b := store.Get(" u1 ")
	c := store.Get("u2")
	if a != b || a == c || created != 2 {
		t.Fatalf("unexpected store behaviour created=%d", created)
	}
	store.Close()
	if store.Get("u1") == a {
		t.Fatalf("closed store must create fresh apps")
	}
}
