package builder

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const (
	// MaxTitleLength and MaxCaptionLength bound sanitized attribute text.
	MaxTitleLength   = 70
	MaxCaptionLength = 160
)

var (
	whitespaceRuns = regexp.MustCompile(`[\n\r\t ]+`)
	xmlEscaper     = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
)

// PrepareAttribute turns arbitrary content text into XML-safe attribute
// text: tags stripped, entities decoded, whitespace collapsed, truncated
// word-safely, then re-escaped.
func PrepareAttribute(attribute string, maxLength int) string {
	attribute = stripTags(attribute)
	attribute = whitespaceRuns.ReplaceAllString(attribute, " ")
	attribute = TruncateSentence(attribute, maxLength)

	return xmlEscaper.Replace(attribute)
}

// TruncateSentence shortens text to at most maxLength bytes without
// splitting a word. Trailing punctuation is trimmed before the ellipsis.
func TruncateSentence(sentence string, maxLength int) string {
	sentence = strings.TrimSpace(sentence)
	if len(sentence) <= maxLength {
		return sentence
	}

	truncated := sentence[:maxLength]

	// Unless the cut landed on a space, the last word is probably cut in
	// half, drop it.
	if truncated[maxLength-1] != ' ' {
		if idx := strings.LastIndexByte(truncated, ' '); idx >= 0 {
			truncated = truncated[:idx]
		} else {
			truncated = ""
		}
	}

	truncated = strings.TrimRight(truncated, " .,;:?!")

	return truncated + "..."
}

// stripTags removes markup and decodes entities, keeping only text nodes.
func stripTags(markup string) string {
	if !strings.ContainsAny(markup, "<&") {
		return markup
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(markup))

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(tokenizer.Text())
		}
	}
}

func escapeXML(text string) string {
	return xmlEscaper.Replace(text)
}
