package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateSentenceKeepsShortText(t *testing.T) {
	assert.Equal(t, "short title", TruncateSentence("short title", 70))
	assert.Equal(t, "exact", TruncateSentence("exact", 5))
}

func TestTruncateSentenceCutsOnWordBoundary(t *testing.T) {
	tests := []struct {
		name      string
		sentence  string
		maxLength int
		expected  string
	}{
		{
			name:      "cut lands on a space",
			sentence:  "The quick brown fox jumps over the lazy dog",
			maxLength: 20,
			expected:  "The quick brown fox...",
		},
		{
			name:      "cut splits a word",
			sentence:  "The quick brown fox jumps over the lazy dog",
			maxLength: 18,
			expected:  "The quick brown...",
		},
		{
			name:      "trailing punctuation trimmed",
			sentence:  "Hello, world, yes indeed",
			maxLength: 13,
			expected:  "Hello...",
		},
		{
			name:      "single long word",
			sentence:  "supercalifragilisticexpialidocious",
			maxLength: 10,
			expected:  "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateSentence(tt.sentence, tt.maxLength))
		})
	}
}

func TestPrepareAttributeStripsMarkup(t *testing.T) {
	assert.Equal(t, "Big &amp; bold title",
		PrepareAttribute("<b>Big &amp; bold</b> title", MaxTitleLength))
}

func TestPrepareAttributeCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "one two three",
		PrepareAttribute("one\n\ttwo   three", MaxTitleLength))
}

func TestPrepareAttributeEscapesEntities(t *testing.T) {
	assert.Equal(t, "fish &#039;n&#039; chips &lt;fresh&gt;",
		PrepareAttribute(`fish 'n' chips &lt;fresh&gt;`, MaxTitleLength))
}

func TestPrepareAttributeTruncates(t *testing.T) {
	long := "word word word word word word word word word word word word word word word word"
	result := PrepareAttribute(long, MaxTitleLength)
	assert.LessOrEqual(t, len(result), MaxTitleLength+3)
	assert.Contains(t, result, "...")
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "https://example.com/?a=1&amp;b=2", escapeXML("https://example.com/?a=1&b=2"))
}
