package fragment

import (
	"errors"
	"testing"

	"talkmate/internal/domain"
)

func TestParseReply(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"objeto response", `{"response": ["Hmm...", "Hello there, how are you feeling today?"]}`, []string{"Hmm...", "Hello there, how are you feeling today?"}},
		{"arreglo plano", `["Hey!", "  ", "How are you?"]`, []string{"Hey!", "How are you?"}},
		{"con fences", "```json\n{\"response\": [\"Oh!\"]}\n```", []string{"Oh!"}},
		{"campo text", `{"text": "Well. That is fine."}`, []string{"Well.", "That is fine."}},
		{"otro arreglo", `{"messages": ["a", "b"]}`, []string{"a", "b"}},
		{"texto plano", "Right. I get it.", []string{"Right.", "I get it."}},
		{"json embebido", `Sure thing: {"response": ["Yep."]}`, []string{"Yep."}},
		{"prosa con corchetes", "I have two options [1, 2]. Pick one.", []string{"I have two options [1, 2]. Pick one."}},
		{"lista vacia con otros textos", `{"response": [], "note": "All good."}`, []string{"All good."}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseReply(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("fragment %d: expected %q, got %q", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestParseReply_Malformed(t *testing.T) {
	for _, raw := range []string{"", "   ", `{"response": []}`, "```json\n```"} {
		if _, err := ParseReply(raw); !errors.Is(err, domain.ErrMalformedReply) {
			t.Fatalf("expected ErrMalformedReply for %q, got %v", raw, err)
		}
	}
}

func TestNonBlank(t *testing.T) {
	got := NonBlank([]string{" a ", "", "\t", "b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestExtractFirstJSONValue(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"object in prose", `Sure! {"response": ["Hi"]} hope it helps`, `{"response": ["Hi"]}`},
		{"array first", `text ["a", "b"] more`, `["a", "b"]`},
		{"braces inside strings", `{"response": ["use } and ] freely"]}`, `{"response": ["use } and ] freely"]}`},
		{"escaped quote", `{"response": ["say \"hi\" }"]}`, `{"response": ["say \"hi\" }"]}`},
		{"mismatched closer", `{"response": ["a"}]`, ""},
		{"unterminated", `{"response": ["a"]`, ""},
		{"no json", "just words", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractFirstJSONValue(tc.input); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
