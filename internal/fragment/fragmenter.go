package fragment

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxChunkRunes es el largo a partir del cual un chunk acumulado se emite.
const MaxChunkRunes = 150

var interjectionPattern = regexp.MustCompile(`(?i)^(hmm+|well|oh|hey|yeah|right|sure|okay|yep|nope)[.,!?]*$`)

// Split divide un texto crudo en chunks presentables. Nunca devuelve un slice vacio:
// si no sale ningun chunk, devuelve el texto original como unico elemento.
func Split(text string) []string {
	sentences := splitSentences(text)
	chunks := make([]string, 0, len(sentences))

	var current string
	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}

	for _, s := range sentences {
		// Las muletillas sueltas van siempre como su propio chunk.
		if IsInterjection(s) {
			flush()
			chunks = append(chunks, s)
			continue
		}
		if current == "" {
			current = s
		} else {
			current += " " + s
		}
		if utf8.RuneCountInString(current) > MaxChunkRunes {
			flush()
		}
	}
	flush()

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// IsInterjection indica si una oracion es una muletilla aislada ("Hmm...", "Okay.").
func IsInterjection(sentence string) bool {
	return interjectionPattern.MatchString(strings.TrimSpace(sentence))
}

// splitSentences corta despues de cada racha de '.', '!' o '?', conservando el terminador.
// El texto final sin terminador tambien se conserva.
func splitSentences(text string) []string {
	var (
		out          []string
		b            strings.Builder
		inTerminator bool
	)
	emit := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}

	for _, r := range text {
		terminal := r == '.' || r == '!' || r == '?'
		if !terminal && inTerminator {
			emit()
		}
		inTerminator = terminal
		b.WriteRune(r)
	}
	emit()
	return out
}
