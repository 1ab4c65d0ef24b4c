package fragment

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"talkmate/internal/domain"
)

var (
	fenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// ParseReply extrae la lista ordenada de fragmentos de la respuesta cruda de un proveedor.
//
// Acepta un arreglo JSON de strings, un objeto con "response" (arreglo), un objeto con
// "text" o cualquier campo arreglo. Si el texto no es JSON se parte con Split. Si es JSON
// pero no trae fragmentos, se parte el texto de sus valores string; nunca se parte el
// esqueleto JSON. Solo devuelve ErrMalformedReply cuando no queda ningun texto util.
func ParseReply(raw string) ([]string, error) {
	cleaned := CleanJSONResponse(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty reply", domain.ErrMalformedReply)
	}

	// Respuesta entera en JSON: se respeta su estructura aunque venga sin fragmentos.
	if parsed, ok := decodeJSON(cleaned); ok {
		if frags := fragmentsFromValue(parsed); len(frags) > 0 {
			return frags, nil
		}
		if text := strings.TrimSpace(strings.Join(stringLeaves(parsed), " ")); text != "" {
			return Split(text), nil
		}
		return nil, fmt.Errorf("%w: structured reply without fragments", domain.ErrMalformedReply)
	}

	// JSON embebido en prosa: solo se usa si trae fragmentos.
	if embedded := extractFirstJSONValue(cleaned); embedded != "" {
		if parsed, ok := decodeJSON(embedded); ok {
			if frags := fragmentsFromValue(parsed); len(frags) > 0 {
				return frags, nil
			}
		}
	}

	return Split(cleaned), nil
}

// CleanJSONResponse quita fences ```json ... ``` y BOM, dejando el contenido usable.
func CleanJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// NonBlank descarta fragmentos vacios y recorta espacios, preservando el orden.
func NonBlank(fragments []string) []string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func decodeJSON(candidate string) (interface{}, bool) {
	if !strings.HasPrefix(candidate, "{") && !strings.HasPrefix(candidate, "[") {
		return nil, false
	}
	var parsed interface{}
	if err := sonic.UnmarshalString(candidate, &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

func fragmentsFromValue(v interface{}) []string {
	switch val := v.(type) {
	case []interface{}:
		return stringItems(val)
	case map[string]interface{}:
		if arr, ok := val["response"].([]interface{}); ok {
			if frags := stringItems(arr); len(frags) > 0 {
				return frags
			}
		}
		if text, ok := val["text"].(string); ok && strings.TrimSpace(text) != "" {
			return Split(strings.TrimSpace(text))
		}
		for _, key := range sortedKeys(val) {
			if arr, ok := val[key].([]interface{}); ok {
				if frags := stringItems(arr); len(frags) > 0 {
					return frags
				}
			}
		}
	}
	return nil
}

func stringItems(items []interface{}) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func stringLeaves(v interface{}) []string {
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		return []string{strings.TrimSpace(val)}
	case []interface{}:
		var out []string
		for _, item := range val {
			out = append(out, stringLeaves(item)...)
		}
		return out
	case map[string]interface{}:
		var out []string
		for _, key := range sortedKeys(val) {
			out = append(out, stringLeaves(val[key])...)
		}
		return out
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
