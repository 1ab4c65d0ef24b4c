package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"talkmate/internal/domain"
)

func TestGeminiProviderConverse(t *testing.T) {
	t.Run("parses structured reply", func(t *testing.T) {
		var gotPath, gotKey string
		var gotBody geminiRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.Header.Get("x-goog-api-key")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &gotBody)
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"response\":[\"Hmm...\",\"Hello there.\"]}"}]}}]}`)
		}))
		defer srv.Close()

		p := NewGeminiProvider(srv.URL, "key-123", "gemini-test", nil)
		reply, err := p.Converse(context.Background(), ConversationRequest{
			Message:           "Hi",
			PersonaDescriptor: "calm",
			CharacterID:       "character-1",
			CharacterName:     "Mahad",
			History:           []domain.HistoryEntry{{Sender: "user", Text: "earlier"}, {Sender: "Mahad", Text: "reply"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reply.Response) != 2 || reply.Response[0] != "Hmm..." {
			t.Fatalf("unexpected reply: %+v", reply)
		}
		if gotPath != "/models/gemini-test:generateContent" {
			t.Fatalf("unexpected path %q", gotPath)
		}
		if gotKey != "key-123" {
			t.Fatalf("api key not sent")
		}
		if gotBody.GenerationConfig.ResponseMimeType != "application/json" {
			t.Fatalf("expected json mime type, got %+v", gotBody.GenerationConfig)
		}
		userText := gotBody.Contents[0].Parts[0].Text
		if !strings.Contains(userText, "Mahad: reply") || !strings.HasSuffix(userText, "user: Hi") {
			t.Fatalf("unexpected user prompt %q", userText)
		}
	})

	t.Run("http error is request failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"quota"}}`)
		}))
		defer srv.Close()

		p := NewGeminiProvider(srv.URL, "key", "", nil)
		_, err := p.Converse(context.Background(), ConversationRequest{Message: "Hi"})
		if !errors.Is(err, domain.ErrRequestFailure) {
			t.Fatalf("expected ErrRequestFailure, got %v", err)
		}
	})

	t.Run("empty candidates is malformed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"candidates":[]}`)
		}))
		defer srv.Close()

		p := NewGeminiProvider(srv.URL, "key", "", nil)
		_, err := p.Converse(context.Background(), ConversationRequest{Message: "Hi"})
		if !errors.Is(err, domain.ErrMalformedReply) {
			t.Fatalf("expected ErrMalformedReply, got %v", err)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		p := NewGeminiProvider("", "", "", nil)
		if _, err := p.Converse(context.Background(), ConversationRequest{Message: "Hi"}); !errors.Is(err, ErrProviderNotConfigured) {
			t.Fatalf("expected ErrProviderNotConfigured, got %v", err)
		}
	})
}
