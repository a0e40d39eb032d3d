package redis

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
)

type testBlob struct {
	Name    string   `json:"name"`
	Entries []string `json:"entries"`
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(&configtypes.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestBlobStoreRoundtrip(t *testing.T) {
	store := NewBlobStore(newTestClient(t), configtypes.CompressionLZ4, zap.NewNop())
	ctx := context.Background()

	// Large enough to cross the compression threshold.
	blob := testBlob{
		Name:    "sitemap",
		Entries: []string{strings.Repeat("page ", 256)},
	}
	require.NoError(t, store.SetBlob(ctx, "sitetree:test", blob))

	var restored testBlob
	found, err := store.GetBlob(ctx, "sitetree:test", &restored)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, blob, restored)
}

func TestBlobStoreAbsentKey(t *testing.T) {
	store := NewBlobStore(newTestClient(t), configtypes.CompressionNone, zap.NewNop())

	var out testBlob
	found, err := store.GetBlob(context.Background(), "sitetree:missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBlobStoreDelete(t *testing.T) {
	store := NewBlobStore(newTestClient(t), configtypes.CompressionNone, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, store.SetBlob(ctx, "sitetree:a", testBlob{Name: "a"}))
	require.NoError(t, store.SetBlob(ctx, "sitetree:b", testBlob{Name: "b"}))
	require.NoError(t, store.DeleteBlob(ctx, "sitetree:a", "sitetree:b"))

	var out testBlob
	found, err := store.GetBlob(ctx, "sitetree:a", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKeyGeneratorEmbedsPerSlugToken(t *testing.T) {
	keys := NewKeyGenerator(map[string]string{
		configtypes.SlugSitemap: "aaaa",
		configtypes.SlugNewsmap: "bbbb",
	})

	assert.Equal(t, "sitetree:sitemap_index:aaaa", keys.IndexKey(configtypes.SlugSitemap))
	assert.Equal(t, "sitetree:metrics:newsmap:bbbb", keys.MetricsKey(configtypes.SlugNewsmap))

	// Ping state survives configuration changes, so no token.
	assert.Equal(t, "sitetree:ping_state:sitemap", keys.PingStateKey(configtypes.SlugSitemap))

	// Unknown slugs fall back to the zero token.
	assert.Equal(t, "sitetree:site_tree_index:0", keys.IndexKey(configtypes.SlugSiteTree))
}
