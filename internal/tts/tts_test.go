package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
)

type mockSpeechCreator struct {
	req   openai.CreateSpeechRequest
	audio []byte
	err   error
}

func (m *mockSpeechCreator) CreateSpeech(_ context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error) {
	m.req = req
	if m.err != nil {
		return openai.RawResponse{}, m.err
	}
	return openai.RawResponse{ReadCloser: io.NopCloser(strings.NewReader(string(m.audio)))}, nil
}

type mockRedisKV struct {
	store  map[string]string
	getErr error
	sets   int
	ttl    time.Duration
}

func (m *mockRedisKV) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	v, ok := m.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.sets++
	m.ttl = expiration
	m.store[key] = value.(string)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func TestOpenAISynthesizer(t *testing.T) {
	t.Run("returns base64 data uri", func(t *testing.T) {
		mock := &mockSpeechCreator{audio: []byte("ID3audio")}
		s := newOpenAISynthesizer(mock, "", "", nil)

		speech, err := s.Synthesize(context.Background(), "Hello there.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString([]byte("ID3audio"))
		if speech.AudioURI != want {
			t.Fatalf("unexpected uri %q", speech.AudioURI)
		}
		if mock.req.Voice != openai.VoiceAlloy || mock.req.Model != openai.TTSModel1 || mock.req.Input != "Hello there." {
			t.Fatalf("unexpected request %+v", mock.req)
		}
	})

	t.Run("api error", func(t *testing.T) {
		s := newOpenAISynthesizer(&mockSpeechCreator{err: errors.New("down")}, "", "", nil)
		if _, err := s.Synthesize(context.Background(), "x"); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("blank text", func(t *testing.T) {
		s := newOpenAISynthesizer(&mockSpeechCreator{}, "", "", nil)
		if _, err := s.Synthesize(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
			t.Fatalf("expected ErrEmptyText, got %v", err)
		}
	})

	t.Run("nil synthesizer", func(t *testing.T) {
		if s := NewOpenAISynthesizer("", "", "", "", nil); s != nil {
			t.Fatalf("expected nil without key")
		}
		var s *OpenAISynthesizer
		if _, err := s.Synthesize(context.Background(), "x"); !errors.Is(err, ErrSynthesizerNotConfigured) {
			t.Fatalf("expected ErrSynthesizerNotConfigured, got %v", err)
		}
	})
}

func TestCachedSynthesizer(t *testing.T) {
	t.Run("miss then hit", func(t *testing.T) {
		next := &MockSynthesizer{}
		kv := &mockRedisKV{store: map[string]string{}}
		c := newCachedSynthesizer(next, kv, "tts-1/alloy", time.Hour, nil)

		first, err := c.Synthesize(context.Background(), "Hi")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := c.Synthesize(context.Background(), "Hi")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != second || next.CallCount() != 1 {
			t.Fatalf("expected cached second call, calls=%d", next.CallCount())
		}
		if kv.sets != 1 || kv.ttl != time.Hour {
			t.Fatalf("unexpected cache writes sets=%d ttl=%v", kv.sets, kv.ttl)
		}
	})

	t.Run("voice is part of the key", func(t *testing.T) {
		kv := &mockRedisKV{store: map[string]string{}}
		a := newCachedSynthesizer(&MockSynthesizer{}, kv, "alloy", 0, nil)
		b := newCachedSynthesizer(&MockSynthesizer{}, kv, "nova", 0, nil)
		if a.key("Hi") == b.key("Hi") {
			t.Fatalf("expected different keys per voice")
		}
	})

	t.Run("redis failure falls through", func(t *testing.T) {
		next := &MockSynthesizer{}
		kv := &mockRedisKV{store: map[string]string{}, getErr: errors.New("conn refused")}
		c := newCachedSynthesizer(next, kv, "alloy", 0, nil)
		speech, err := c.Synthesize(context.Background(), "Hi")
		if err != nil || speech.AudioURI != "mock://Hi" {
			t.Fatalf("expected fallthrough, got %+v %v", speech, err)
		}
	})

	t.Run("synthesis error not cached", func(t *testing.T) {
		next := &MockSynthesizer{Hook: func(context.Context, string) (Speech, error) {
			return Speech{}, errors.New("boom")
		}}
		kv := &mockRedisKV{store: map[string]string{}}
		c := newCachedSynthesizer(next, kv, "alloy", 0, nil)
		if _, err := c.Synthesize(context.Background(), "Hi"); err == nil {
			t.Fatalf("expected error")
		}
		if kv.sets != 0 {
			t.Fatalf("expected no cache write")
		}
	})

	t.Run("nil client returns next", func(t *testing.T) {
		next := &MockSynthesizer{}
		if got := NewCachedSynthesizer(next, nil, "alloy", 0, nil); got != Synthesizer(next) {
			t.Fatalf("expected passthrough")
		}
	})
}
