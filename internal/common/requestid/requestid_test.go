package requestid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFallsBackToUUID(t *testing.T) {
	id := Generate("")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	// An id that sanitizes to nothing also falls back.
	id = Generate("!!! ???")
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestGenerateSanitizesCustomID(t *testing.T) {
	id := Generate("deploy hook #42")

	parts := strings.SplitN(id, "-", 2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 5)
	assert.Equal(t, "deploy-hook-42", parts[1])
}

func TestGenerateCapsLength(t *testing.T) {
	id := Generate(strings.Repeat("a", 200))
	assert.LessOrEqual(t, len(id), 36)
}

func TestGenerateCollapsesHyphenRuns(t *testing.T) {
	id := Generate("a---b -- c")
	assert.True(t, strings.HasSuffix(id, "-a-b-c"))
}
