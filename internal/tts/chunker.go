package tts

import (
	"strings"
	"unicode"
)

// SplitText breaks assistant text into speakable chunks. Short text is never
// split. Longer text is split at sentence boundaries, then adjacent fragments
// are recombined greedily until each chunk reaches minChunkChars, so chunks
// are never unnaturally short and never break inside a sentence. The final
// chunk may come up short.
func SplitText(text string, shortThreshold, minChunkChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) < shortThreshold {
		return []string{text}
	}

	sentences := splitSentences(text)
	if len(sentences) <= 1 {
		return sentences
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
		if current.Len() >= minChunkChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitSentences cuts text after terminal punctuation that is followed by
// whitespace and a capital letter. Lowercase continuations, as in
// abbreviations like "e.g. foo", do not split.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		// Swallow runs of terminal punctuation ("?!", "...").
		end := i
		for end+1 < len(runes) && isTerminal(runes[end+1]) {
			end++
		}

		j := end + 1
		sawSpace := false
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			sawSpace = true
			j++
		}
		if sawSpace && j < len(runes) && unicode.IsUpper(runes[j]) {
			sentences = append(sentences, strings.TrimSpace(string(runes[start:end+1])))
			start = j
		}
		i = end
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
