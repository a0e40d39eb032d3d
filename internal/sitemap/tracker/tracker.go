// Package tracker persists per-build cost metrics: how long each sitemap
// document took, how many queries it cost, and aggregate totals across the
// documents of a slug. Metrics are a best-effort dashboard signal, they
// never gate serving.
package tracker

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/common/redis"
	"github.com/sitetree/engine/internal/sitemap/builder"
)

const (
	metricRuntime    = "runtime"
	metricNumQueries = "num_queries"
)

// Record is the persisted, slug-keyed metrics document.
type Record struct {
	TotSitemaps int    `json:"tot_sitemaps,omitempty"`
	TotItems    int64  `json:"tot_items,omitempty"`
	TotImages   *int64 `json:"tot_images,omitempty"`
	TotPages    int    `json:"tot_pages,omitempty"`

	// Cost of the most recent build. Dropped once averages take over.
	NumQueries int64   `json:"num_queries,omitempty"`
	Runtime    float64 `json:"runtime,omitempty"`

	AvgNumQueries float64 `json:"avg_num_queries,omitempty"`
	AvgRuntime    float64 `json:"avg_runtime,omitempty"`

	// PerDocument accumulates runtime/num_queries per document UID. While
	// the record is fresh it doubles as the set of documents already
	// recorded since the last invalidation.
	PerDocument map[string]map[string]float64 `json:"metrics_per_document,omitempty"`

	ComputedOn int64 `json:"metrics_computed_on"`
	Fresh      bool  `json:"metrics_are_fresh"`
}

// Update describes one finished build for the tracker to merge.
type Update struct {
	Slug string
	// UID names the built document: "{category}-{n}" for sitemap files,
	// the page number for site tree pages, empty for the index document.
	UID             string
	IsIndexDocument bool
	Metrics         builder.Metrics

	// Index totals, meaningful only when the index was computed rather
	// than loaded from cache.
	IndexJustBuilt bool
	TotSitemaps    int
	TotItems       int64
	TotImages      *int64

	// Site tree page accounting.
	TotPages int
}

// Tracker merges build metrics into the per-slug persisted record.
type Tracker struct {
	blobs  *redis.BlobStore
	keys   *redis.KeyGenerator
	logger *zap.Logger
}

func NewTracker(blobs *redis.BlobStore, keys *redis.KeyGenerator, logger *zap.Logger) *Tracker {
	return &Tracker{
		blobs:  blobs,
		keys:   keys,
		logger: logger,
	}
}

// Get returns the slug's record, nil when none is persisted.
func (t *Tracker) Get(ctx context.Context, slug string) (*Record, error) {
	var record Record
	found, err := t.blobs.GetBlob(ctx, t.keys.MetricsKey(slug), &record)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics for %s: %w", slug, err)
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

// Update merges one build into the slug's record. While the record is
// fresh, a document already recorded since the last averaging pass is
// skipped entirely; the bool reports whether anything was written.
func (t *Tracker) Update(ctx context.Context, u Update) (bool, error) {
	var record Record
	key := t.keys.MetricsKey(u.Slug)

	if _, err := t.blobs.GetBlob(ctx, key, &record); err != nil {
		return false, err
	}

	if u.Slug == configtypes.SlugSiteTree {
		if !t.mergeSiteTree(&record, u) {
			return false, nil
		}
	} else {
		if !t.mergeSitemap(&record, u) {
			return false, nil
		}
	}

	record.ComputedOn = time.Now().Unix()
	record.Fresh = true

	if err := t.blobs.SetBlob(ctx, key, &record); err != nil {
		return false, err
	}

	t.logger.Debug("Metrics record updated",
		zap.String("slug", u.Slug),
		zap.String("uid", u.UID))
	return true, nil
}

func (t *Tracker) mergeSitemap(record *Record, u Update) bool {
	if record.Fresh {
		if u.IsIndexDocument {
			return false
		}
		if hasDocument(record, u.UID) {
			return false
		}
	}

	if u.IndexJustBuilt {
		record.TotSitemaps = u.TotSitemaps
		record.TotItems = u.TotItems
		if u.Slug == configtypes.SlugSitemap {
			record.TotImages = u.TotImages
		}
	}

	if !u.IsIndexDocument {
		recordDocument(record, u.UID, u.Metrics)

		if record.TotSitemaps > 1 {
			computeAverages(record)
		} else {
			record.AvgNumQueries = 0
			record.AvgRuntime = 0
		}
	}
	return true
}

func (t *Tracker) mergeSiteTree(record *Record, u Update) bool {
	if record.Fresh && hasDocument(record, u.UID) {
		return false
	}

	// A positive item total means the listing was just recounted.
	if u.TotItems > 0 {
		record.TotPages = u.TotPages
		record.TotItems = u.TotItems
	}

	recordDocument(record, u.UID, u.Metrics)

	if record.TotPages > 1 {
		computeAverages(record)
	} else {
		record.AvgNumQueries = 0
		record.AvgRuntime = 0
	}
	return true
}

// MarkStale clears the freshness flag so the next builds refresh every
// document's metrics.
func (t *Tracker) MarkStale(ctx context.Context, slug string) error {
	record, err := t.Get(ctx, slug)
	if err != nil {
		return err
	}
	if record == nil || !record.Fresh {
		return nil
	}

	record.Fresh = false
	if err := t.blobs.SetBlob(ctx, t.keys.MetricsKey(slug), record); err != nil {
		return fmt.Errorf("failed to mark metrics stale for %s: %w", slug, err)
	}
	return nil
}

// Delete removes the slug's record.
func (t *Tracker) Delete(ctx context.Context, slug string) error {
	return t.blobs.DeleteBlob(ctx, t.keys.MetricsKey(slug))
}

func hasDocument(record *Record, uid string) bool {
	_, ok := record.PerDocument[metricNumQueries][uid]
	return ok
}

func recordDocument(record *Record, uid string, metrics builder.Metrics) {
	record.NumQueries = metrics.NumQueries
	record.Runtime = metrics.Runtime

	if record.PerDocument == nil {
		record.PerDocument = make(map[string]map[string]float64, 2)
	}
	if record.PerDocument[metricRuntime] == nil {
		record.PerDocument[metricRuntime] = make(map[string]float64)
	}
	if record.PerDocument[metricNumQueries] == nil {
		record.PerDocument[metricNumQueries] = make(map[string]float64)
	}
	record.PerDocument[metricRuntime][uid] = metrics.Runtime
	record.PerDocument[metricNumQueries][uid] = float64(metrics.NumQueries)
}

// computeAverages recomputes the running averages over every per-document
// value seen so far and drops the last-build figures. An integral sum
// averages to a whole number, rounded up; a fractional one keeps 3
// decimals.
func computeAverages(record *Record) {
	for key, values := range record.PerDocument {
		var sum float64
		for _, value := range values {
			sum += value
		}
		n := float64(len(values))

		var avg float64
		if sum == math.Trunc(sum) {
			avg = math.Ceil(sum / n)
		} else {
			avg = math.Round(sum/n*1000) / 1000
		}

		switch key {
		case metricNumQueries:
			record.AvgNumQueries = avg
		case metricRuntime:
			record.AvgRuntime = avg
		}
	}

	record.NumQueries = 0
	record.Runtime = 0
}
