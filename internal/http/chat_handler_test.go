package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"talkmate/internal/catalog"
	"talkmate/internal/domain"
	"talkmate/internal/llm"
	"talkmate/internal/service"
)

func noSleep(context.Context, time.Duration) error { return nil }

type chatFixture struct {
	router *gin.Engine
	apps   *service.AppStore
	token  string
}

func newChatFixture(t *testing.T, provider llm.ConversationProvider) chatFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtSvc := newTestJWT()
	apps := service.NewAppStore(func(userID string) *service.ChatApp {
		return service.NewChatApp(userID, service.ChatDeps{
			Catalog:  catalog.Default(),
			Provider: provider,
			Sleep:    noSleep,
		}, nil, nil)
	})
	t.Cleanup(apps.Close)

	pair, err := jwtSvc.GeneratePair(context.Background(), domain.User{ID: "u1", Email: "user@example.com", Username: "user"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	userH := NewUserHandler(zap.NewNop(), nil, jwtSvc)
	chatH := NewChatHandler(zap.NewNop(), apps)
	r := NewRouter(zap.NewNop(), jwtSvc, userH, chatH, nil)
	return chatFixture{router: r, apps: apps, token: pair.AccessToken}
}

func (f chatFixture) do(method, path string, body any) (int, map[string]any) {
	rec := performAuthRequest(f.router, method, path, f.token, body)
	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func (f chatFixture) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.apps.Get("u1").Active().WaitIdle(ctx); err != nil {
		t.Fatalf("session did not settle: %v", err)
	}
}

func TestChatHandlerRequiresAuth(t *testing.T) {
	f := newChatFixture(t, &llm.MockProvider{})
	rec := performRequest(f.router, http.MethodGet, "/characters", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := performRequest(f.router, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
}

func TestChatHandlerCatalog(t *testing.T) {
	f := newChatFixture(t, &llm.MockProvider{})

	code, body := f.do(http.MethodGet, "/characters", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if chars, _ := body["characters"].([]any); len(chars) != 2 {
		t.Fatalf("expected 2 characters, got %v", body["characters"])
	}

	code, body = f.do(http.MethodGet, "/personas", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if personas, _ := body["personas"].([]any); len(personas) == 0 {
		t.Fatalf("expected personas, got %v", body["personas"])
	}
}

func TestChatHandlerSelect(t *testing.T) {
	f := newChatFixture(t, &llm.MockProvider{})

	t.Run("unknown character", func(t *testing.T) {
		code, _ := f.do(http.MethodPost, "/chat/select", map[string]string{"character_id": "nobody"})
		if code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", code)
		}
	})

	t.Run("unknown persona", func(t *testing.T) {
		code, _ := f.do(http.MethodPost, "/chat/select", map[string]string{"character_id": "character-1", "persona_id": "nobody"})
		if code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", code)
		}
	})

	t.Run("missing character", func(t *testing.T) {
		code, _ := f.do(http.MethodPost, "/chat/select", map[string]string{})
		if code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", code)
		}
	})

	t.Run("valid selection", func(t *testing.T) {
		code, body := f.do(http.MethodPost, "/chat/select", map[string]string{"character_id": "character-2", "persona_id": "calm-guide"})
		if code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
		session, _ := body["session"].(map[string]any)
		if session["character_id"] != "character-2" || session["persona_id"] != "calm-guide" {
			t.Fatalf("unexpected session %v", session)
		}
	})
}

func TestChatHandlerMessages(t *testing.T) {
	provider := &llm.MockProvider{Response: []string{"Hey!", "How are you?"}}
	f := newChatFixture(t, provider)

	if code, _ := f.do(http.MethodPost, "/chat/messages", map[string]string{"text": "   "}); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank text, got %d", code)
	}

	code, body := f.do(http.MethodPost, "/chat/messages", map[string]string{"text": "hello"})
	if code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", code)
	}
	if body["queued"] != false || body["request_id"] == "" {
		t.Fatalf("unexpected submit response %v", body)
	}
	f.waitIdle(t)

	code, body = f.do(http.MethodGet, "/chat/messages", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	session, _ := body["session"].(map[string]any)
	msgs, _ := session["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("expected user message plus 2 fragments, got %d: %v", len(msgs), msgs)
	}
	if session["pending"] != false {
		t.Fatalf("expected settled session, got %v", session["pending"])
	}
	if provider.CallCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.CallCount())
	}
}

func TestChatHandlerInputBuffer(t *testing.T) {
	provider := &llm.MockProvider{Response: []string{"Got it."}}
	f := newChatFixture(t, provider)

	if code, _ := f.do(http.MethodPost, "/chat/input/submit", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty buffer, got %d", code)
	}

	code, body := f.do(http.MethodPut, "/chat/input", map[string]string{"text": "draft text"})
	if code != http.StatusOK || body["input"] != "draft text" {
		t.Fatalf("unexpected input response %d %v", code, body)
	}

	code, body = f.do(http.MethodPost, "/chat/input/submit", nil)
	if code != http.StatusAccepted || body["queued"] != false {
		t.Fatalf("unexpected submit response %d %v", code, body)
	}
	f.waitIdle(t)

	if got := f.apps.Get("u1").Input(); got != "" {
		t.Fatalf("expected buffer cleared, got %q", got)
	}
	if provider.Calls[0].Message != "draft text" {
		t.Fatalf("expected buffered text submitted, got %q", provider.Calls[0].Message)
	}
}

func TestChatHandlerVoiceAndSpeech(t *testing.T) {
	f := newChatFixture(t, &llm.MockProvider{})

	if code, _ := f.do(http.MethodPut, "/chat/voice", map[string]string{}); code != http.StatusBadRequest {
		t.Fatalf("expected 400 without enabled, got %d", code)
	}
	code, body := f.do(http.MethodPut, "/chat/voice", map[string]bool{"enabled": true})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	// Sin sintetizador la voz queda apagada.
	if body["voice_enabled"] != false {
		t.Fatalf("expected voice disabled without synthesizer, got %v", body["voice_enabled"])
	}

	code, body = f.do(http.MethodGet, "/chat/speech", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["available"] != false || body["state"] != "idle" {
		t.Fatalf("unexpected speech status %v", body)
	}
}
