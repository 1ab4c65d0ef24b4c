package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REVEAL_CAP_MS", "2500")
	t.Setenv("USE_MOCK_LLM", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != "9090" || !cfg.UseMockLLM {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.RevealCap() != 2500*time.Millisecond || cfg.RevealBase() != 500*time.Millisecond {
		t.Fatalf("unexpected reveal pacing %v %v", cfg.RevealCap(), cfg.RevealBase())
	}
	if cfg.OpenAIModel != "gpt-4o-mini" || cfg.TTSVoice != "alloy" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.JWTAccessTTL() != 15*time.Minute {
		t.Fatalf("unexpected access ttl %v", cfg.JWTAccessTTL())
	}
}

func TestLoadConfigWebsocketSettings(t *testing.T) {
	t.Setenv("WS_ALLOWED_ORIGINS", "https://talkmate.app,http://localhost:5173")
	t.Setenv("PLAYBACK_ACK_TIMEOUT_SECONDS", "30")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.WSAllowedOrigins) != 2 || cfg.WSAllowedOrigins[1] != "http://localhost:5173" {
		t.Fatalf("unexpected origins %v", cfg.WSAllowedOrigins)
	}
	if cfg.PlaybackAckTimeout() != 30*time.Second {
		t.Fatalf("unexpected ack timeout %v", cfg.PlaybackAckTimeout())
	}
}
