package qa

import (
	"regexp"
	"strings"
	"unicode"
)

var sourceTagPattern = regexp.MustCompile(`\[S(\d+)\]`)

// ExtractedSentence is one answer sentence with its citation tags resolved
// against the assembled context.
type ExtractedSentence struct {
	// Text is the sentence with citation tags stripped.
	Text string
	// ValidTags are cited tags that resolve to a context block.
	ValidTags []string
	// InvalidTags are cited tags with no matching context block. The model
	// invented them; verification treats the sentence as uncited support-wise
	// but still distinct from a sentence that cited nothing at all.
	InvalidTags []string
}

// Extraction is the output of citation extraction over a raw answer.
type Extraction struct {
	// Answer is the full answer text with citation tags stripped.
	Answer string
	// Sentences are the answer's sentences in order.
	Sentences []ExtractedSentence
	// Citations lists each valid tag cited anywhere in the answer, once, in
	// tag order.
	Citations []Citation
}

// ExtractCitations flattens the raw model output, splits it into sentences,
// and resolves every source tag against the assembled context. Tags that do
// not resolve are kept as metadata on their sentence rather than dropped.
func ExtractCitations(raw string, assembled AssembledContext) Extraction {
	plain := flattenMarkdown(raw)

	var extraction Extraction
	cited := make(map[string]bool)

	for _, sentence := range splitSentences(plain) {
		extracted := ExtractedSentence{}
		for _, match := range sourceTagPattern.FindAllStringSubmatch(sentence, -1) {
			tag := "S" + match[1]
			if assembled.BlockByTag(tag) != nil {
				extracted.ValidTags = appendUnique(extracted.ValidTags, tag)
				cited[tag] = true
			} else {
				extracted.InvalidTags = appendUnique(extracted.InvalidTags, tag)
			}
		}
		extracted.Text = stripTags(sentence)
		if extracted.Text == "" {
			continue
		}
		extraction.Sentences = append(extraction.Sentences, extracted)
	}

	var parts []string
	for _, sentence := range extraction.Sentences {
		parts = append(parts, sentence.Text)
	}
	extraction.Answer = strings.Join(parts, " ")

	// Tag order preserves context rank order, so citations read top-down.
	for _, block := range assembled.Blocks {
		if !cited[block.Tag] {
			continue
		}
		extraction.Citations = append(extraction.Citations, Citation{
			Tag:          block.Tag,
			ChunkID:      block.Chunk.ID,
			DocumentID:   block.Chunk.DocumentID,
			DocumentName: block.Chunk.DocumentName,
			PageNumber:   block.Chunk.PageNumber,
			Section:      block.Chunk.Section,
			Snippet:      snippet(block.Chunk.Text, 200),
		})
	}

	return extraction
}

func stripTags(sentence string) string {
	cleaned := sourceTagPattern.ReplaceAllString(sentence, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	// Tag removal can leave whitespace before the closing punctuation.
	cleaned = strings.ReplaceAll(cleaned, " .", ".")
	cleaned = strings.ReplaceAll(cleaned, " ,", ",")
	cleaned = strings.ReplaceAll(cleaned, " !", "!")
	cleaned = strings.ReplaceAll(cleaned, " ?", "?")
	return strings.TrimSpace(cleaned)
}

// splitSentences segments prose on terminal punctuation. A period only
// terminates a sentence when followed by whitespace and an uppercase letter,
// a digit, or a bracketed tag, which keeps common abbreviations and decimal
// numbers intact.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' && r != '\n' {
			continue
		}

		// Consume a trailing citation tag before deciding the boundary.
		end := i + 1
		for end < len(runes) && (runes[end] == '.' || runes[end] == '!' || runes[end] == '?') {
			end++
		}
		rest := string(runes[end:])
		trimmed := strings.TrimLeft(rest, " \t")
		if strings.HasPrefix(trimmed, "[S") {
			// The tag belongs to this sentence; advance past it.
			if tagEnd := strings.Index(trimmed, "]"); tagEnd >= 0 {
				consumed := len(rest) - len(trimmed) + tagEnd + 1
				end += len([]rune(rest[:consumed]))
			}
		}

		if r == '.' && !isSentenceBoundary(runes, end) {
			continue
		}

		sentence := strings.TrimSpace(string(runes[start:end]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = end
		i = end - 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isSentenceBoundary(runes []rune, pos int) bool {
	if pos >= len(runes) {
		return true
	}
	if runes[pos] != ' ' && runes[pos] != '\t' && runes[pos] != '\n' {
		return false
	}
	for i := pos; i < len(runes); i++ {
		r := runes[i]
		if r == ' ' || r == '\t' || r == '\n' {
			continue
		}
		return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '['
	}
	return true
}

func appendUnique(tags []string, tag string) []string {
	for _, existing := range tags {
		if existing == tag {
			return tags
		}
	}
	return append(tags, tag)
}

func snippet(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
