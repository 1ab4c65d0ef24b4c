package fragment

import "strings"

var closerFor = map[byte]byte{'{': '}', '[': ']'}

// extractFirstJSONValue devuelve el primer objeto o arreglo JSON balanceado
// dentro de input. Los cierres que no corresponden al ultimo abierto lo invalidan.
func extractFirstJSONValue(input string) string {
	start := strings.IndexAny(input, "{[")
	if start == -1 {
		return ""
	}

	var closers []byte
	quoted := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if quoted {
			switch ch {
			case '\\':
				i++
			case '"':
				quoted = false
			}
			continue
		}

		switch ch {
		case '"':
			quoted = true
		case '{', '[':
			closers = append(closers, closerFor[ch])
		case '}', ']':
			last := len(closers) - 1
			if closers[last] != ch {
				return ""
			}
			closers = closers[:last]
			if last == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}
