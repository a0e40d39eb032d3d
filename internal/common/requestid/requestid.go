package requestid

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// maxLength matches the length of a UUID so log fields stay uniform.
	maxLength    = 36
	prefixLength = 5
	// Space left for the sanitized caller-supplied portion.
	maxCustomLength = maxLength - prefixLength - 1
)

var (
	invalidChars = regexp.MustCompile(`[^a-zA-Z0-9-]+`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// Generate builds a request id for tracing invalidation and ping calls
// through the logs. A caller-supplied id is sanitized and prefixed with
// random characters; an empty or unusable id falls back to a UUID.
func Generate(customID string) string {
	sanitized := strings.ReplaceAll(customID, " ", "-")
	sanitized = invalidChars.ReplaceAllString(sanitized, "")
	sanitized = hyphenRuns.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")

	if sanitized == "" {
		return uuid.New().String()
	}

	if len(sanitized) > maxCustomLength {
		sanitized = sanitized[:maxCustomLength]
	}
	return randomPrefix() + "-" + sanitized
}

func randomPrefix() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return uuid.New().String()[:prefixLength]
	}
	return hex.EncodeToString(bytes)[:prefixLength]
}
