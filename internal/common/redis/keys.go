package redis

import "fmt"

const keyPrefix = "sitetree:"

// KeyGenerator builds the Redis keys for a slug's persisted state. Index and
// metrics keys embed a per-slug cache generation token derived from the
// configuration, so blobs written under older settings are never read back.
type KeyGenerator struct {
	tokens map[string]string
}

func NewKeyGenerator(tokens map[string]string) *KeyGenerator {
	return &KeyGenerator{tokens: tokens}
}

func (kg *KeyGenerator) token(slug string) string {
	if token, ok := kg.tokens[slug]; ok {
		return token
	}
	return "0"
}

// IndexKey is where a slug's sitemap index blob lives ("{slug}_index").
func (kg *KeyGenerator) IndexKey(slug string) string {
	return fmt.Sprintf("%s%s_index:%s", keyPrefix, slug, kg.token(slug))
}

// MetricsKey is where a slug's metrics record lives.
func (kg *KeyGenerator) MetricsKey(slug string) string {
	return fmt.Sprintf("%smetrics:%s:%s", keyPrefix, slug, kg.token(slug))
}

// PingStateKey is where a slug's ping state lives. Ping state survives
// configuration changes, so no token.
func (kg *KeyGenerator) PingStateKey(slug string) string {
	return keyPrefix + "ping_state:" + slug
}
