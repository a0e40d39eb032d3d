package tracker

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/common/redis"
	"github.com/sitetree/engine/internal/sitemap/builder"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&configtypes.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	blobs := redis.NewBlobStore(client, configtypes.CompressionNone, zap.NewNop())
	keys := redis.NewKeyGenerator(map[string]string{
		configtypes.SlugSitemap:  "aaaa",
		configtypes.SlugNewsmap:  "bbbb",
		configtypes.SlugSiteTree: "cccc",
	})
	return NewTracker(blobs, keys, zap.NewNop())
}

func TestTrackerRecordsFirstBuild(t *testing.T) {
	trk := newTestTracker(t)
	ctx := context.Background()

	images := int64(4)
	written, err := trk.Update(ctx, Update{
		Slug:           configtypes.SlugSitemap,
		UID:            "page-1",
		Metrics:        builder.Metrics{NumQueries: 5, Runtime: 0.25},
		IndexJustBuilt: true,
		TotSitemaps:    1,
		TotItems:       42,
		TotImages:      &images,
	})
	require.NoError(t, err)
	assert.True(t, written)

	record, err := trk.Get(ctx, configtypes.SlugSitemap)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, 1, record.TotSitemaps)
	assert.Equal(t, int64(42), record.TotItems)
	require.NotNil(t, record.TotImages)
	assert.Equal(t, int64(4), *record.TotImages)
	assert.Equal(t, int64(5), record.NumQueries)
	assert.Equal(t, 0.25, record.Runtime)
	// A single-file sitemap never averages.
	assert.Zero(t, record.AvgNumQueries)
	assert.Zero(t, record.AvgRuntime)
	assert.True(t, record.Fresh)
}

func TestTrackerSkipsRecordedDocumentWhileFresh(t *testing.T) {
	trk := newTestTracker(t)
	ctx := context.Background()

	first := Update{
		Slug:    configtypes.SlugSitemap,
		UID:     "page-1",
		Metrics: builder.Metrics{NumQueries: 5, Runtime: 0.25},
	}
	written, err := trk.Update(ctx, first)
	require.NoError(t, err)
	require.True(t, written)

	written, err = trk.Update(ctx, first)
	require.NoError(t, err)
	assert.False(t, written)

	// Marking the record stale lets the document record again.
	require.NoError(t, trk.MarkStale(ctx, configtypes.SlugSitemap))
	written, err = trk.Update(ctx, first)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestTrackerIndexDocumentOnlyRefreshesTotals(t *testing.T) {
	trk := newTestTracker(t)
	ctx := context.Background()

	written, err := trk.Update(ctx, Update{
		Slug:    configtypes.SlugSitemap,
		UID:     "page-1",
		Metrics: builder.Metrics{NumQueries: 3, Runtime: 0.1},
	})
	require.NoError(t, err)
	require.True(t, written)

	// While fresh, serving the index document records nothing.
	written, err = trk.Update(ctx, Update{
		Slug:            configtypes.SlugSitemap,
		IsIndexDocument: true,
		IndexJustBuilt:  true,
		TotSitemaps:     7,
	})
	require.NoError(t, err)
	assert.False(t, written)

	require.NoError(t, trk.MarkStale(ctx, configtypes.SlugSitemap))

	written, err = trk.Update(ctx, Update{
		Slug:            configtypes.SlugSitemap,
		IsIndexDocument: true,
		IndexJustBuilt:  true,
		TotSitemaps:     7,
		TotItems:        9000,
	})
	require.NoError(t, err)
	assert.True(t, written)

	record, err := trk.Get(ctx, configtypes.SlugSitemap)
	require.NoError(t, err)
	assert.Equal(t, 7, record.TotSitemaps)
	assert.Equal(t, int64(9000), record.TotItems)
}

func TestTrackerAveragesAcrossDocuments(t *testing.T) {
	trk := newTestTracker(t)
	ctx := context.Background()

	_, err := trk.Update(ctx, Update{
		Slug:           configtypes.SlugSitemap,
		UID:            "page-1",
		Metrics:        builder.Metrics{NumQueries: 3, Runtime: 0.2},
		IndexJustBuilt: true,
		TotSitemaps:    2,
		TotItems:       100,
	})
	require.NoError(t, err)

	_, err = trk.Update(ctx, Update{
		Slug:    configtypes.SlugSitemap,
		UID:     "post-1",
		Metrics: builder.Metrics{NumQueries: 4, Runtime: 0.3},
	})
	require.NoError(t, err)

	record, err := trk.Get(ctx, configtypes.SlugSitemap)
	require.NoError(t, err)

	// Integral query sum rounds up, fractional runtime keeps 3 decimals.
	assert.Equal(t, float64(4), record.AvgNumQueries)
	assert.Equal(t, 0.25, record.AvgRuntime)
	// Averaging keeps the per-document values but drops the last-build
	// figures.
	assert.Len(t, record.PerDocument[metricNumQueries], 2)
	assert.Zero(t, record.NumQueries)
	assert.Zero(t, record.Runtime)
}

func TestTrackerSiteTreeMerge(t *testing.T) {
	trk := newTestTracker(t)
	ctx := context.Background()

	written, err := trk.Update(ctx, Update{
		Slug:     configtypes.SlugSiteTree,
		UID:      "1",
		Metrics:  builder.Metrics{NumQueries: 2, Runtime: 0.05},
		TotItems: 30,
		TotPages: 1,
	})
	require.NoError(t, err)
	assert.True(t, written)

	record, err := trk.Get(ctx, configtypes.SlugSiteTree)
	require.NoError(t, err)
	assert.Equal(t, 1, record.TotPages)
	assert.Equal(t, int64(30), record.TotItems)
	assert.Equal(t, int64(2), record.NumQueries)

	// The same page is skipped until the record goes stale.
	written, err = trk.Update(ctx, Update{
		Slug:    configtypes.SlugSiteTree,
		UID:     "1",
		Metrics: builder.Metrics{NumQueries: 9, Runtime: 0.9},
	})
	require.NoError(t, err)
	assert.False(t, written)
}

func TestTrackerDelete(t *testing.T) {
	trk := newTestTracker(t)
	ctx := context.Background()

	_, err := trk.Update(ctx, Update{
		Slug:    configtypes.SlugNewsmap,
		UID:     "post-1",
		Metrics: builder.Metrics{NumQueries: 1, Runtime: 0.01},
	})
	require.NoError(t, err)

	require.NoError(t, trk.Delete(context.Background(), configtypes.SlugNewsmap))

	record, err := trk.Get(ctx, configtypes.SlugNewsmap)
	require.NoError(t, err)
	assert.Nil(t, record)
}
