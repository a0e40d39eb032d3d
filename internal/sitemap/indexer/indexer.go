package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
	"github.com/sitetree/engine/internal/common/redis"
	"github.com/sitetree/engine/internal/content"
)

const (
	// MaxFiles caps how many sitemap files the index may list in total.
	MaxFiles = 50000
	// DefaultMaxPermalinks is the per-file URL element cap when the
	// configuration doesn't set one.
	DefaultMaxPermalinks = 1000
)

// Entry is one line of the sitemap index: a content category and how many
// sitemap files it spans. Order matters, it is the order files are listed
// in the index document.
type Entry struct {
	Category string `json:"category"`
	Files    int    `json:"files"`
}

// TruncationRecorder is notified when the file cap silently truncates a
// category during an index build.
type TruncationRecorder func(slug, category string)

// indexBlob is the persisted form of a built index.
type indexBlob struct {
	Entries   []Entry  `json:"entries"`
	PostTypes []string `json:"post_types_included"`
}

// Indexer resolves one sitemap request against the cached index of sitemap
// files, building and persisting the index on a cache miss. An Indexer is
// constructed per request and carries the request's slug, category and
// file number.
type Indexer struct {
	cfg          *configtypes.Config
	counter      *ContentCounter
	blobs        *redis.BlobStore
	keys         *redis.KeyGenerator
	logger       *zap.Logger
	onTruncation TruncationRecorder

	slug     string
	category string
	number   int
	family   Family

	entries         []Entry
	totalFiles      int
	totalPermalinks int64
	built           bool
	justBuilt       bool
	maxPermalinks   int
}

func NewIndexer(
	cfg *configtypes.Config,
	counter *ContentCounter,
	blobs *redis.BlobStore,
	keys *redis.KeyGenerator,
	logger *zap.Logger,
	onTruncation TruncationRecorder,
	slug string,
	category string,
) *Indexer {
	return &Indexer{
		cfg:             cfg,
		counter:         counter,
		blobs:           blobs,
		keys:            keys,
		logger:          logger,
		onTruncation:    onTruncation,
		slug:            slug,
		category:        category,
		totalPermalinks: -1,
	}
}

func (ix *Indexer) Slug() string     { return ix.slug }
func (ix *Indexer) Category() string { return ix.category }

// SetRequestedNumber records the file number of the request, zero for the
// canonical un-numbered form.
func (ix *Indexer) SetRequestedNumber(number int) { ix.number = number }

func (ix *Indexer) RequestedNumber() int { return ix.number }

// RequestedUID names the document being built for per-document metrics:
// "{category}-{n}" with n defaulting to 1. The index document has no UID.
func (ix *Indexer) RequestedUID() string {
	if ix.category == CategoryIndex {
		return ""
	}
	if ix.number > 0 {
		return fmt.Sprintf("%s-%d", ix.category, ix.number)
	}
	return ix.category + "-1"
}

// ClassifyRequest resolves the requested category to a content family.
// Returns false for a category the configuration doesn't know, in which
// case the request is answered with a 404.
func (ix *Indexer) ClassifyRequest() bool {
	family, ok := Classify(ix.category, ix.counter.PostTypes(ix.slug), ix.cfg.Sitemap.Taxonomies)
	if !ok {
		return false
	}
	ix.family = family
	return true
}

// Family returns the content family of the request, defaulting to posts
// for the index pseudo-category.
func (ix *Indexer) Family() Family {
	if ix.family == "" {
		return FamilyPost
	}
	return ix.family
}

// ContentType resolves which content category an index request actually
// serves when the whole sitemap fits into a single file.
func (ix *Indexer) ContentType() string {
	if ix.category != CategoryIndex {
		return ix.category
	}

	contentType := "post"
	if ix.slug == configtypes.SlugSitemap {
		contentType = "page"
	}
	for _, postType := range ix.counter.PostTypes(ix.slug) {
		if ix.hasEntry(postType) {
			return postType
		}
	}
	return contentType
}

// MaxPermalinks is the per-file URL element cap for this sitemap.
func (ix *Indexer) MaxPermalinks() int {
	if ix.maxPermalinks == 0 {
		configured := ix.cfg.Sitemap.MaxPermalinks
		if ix.slug == configtypes.SlugNewsmap {
			configured = ix.cfg.Newsmap.MaxPermalinks
		}
		if configured > 0 {
			ix.maxPermalinks = configured
		} else {
			ix.maxPermalinks = DefaultMaxPermalinks
		}
	}
	return ix.maxPermalinks
}

// Offset converts the requested file number into a query offset.
func (ix *Indexer) Offset() int {
	if ix.number > 1 {
		return (ix.number - 1) * ix.MaxPermalinks()
	}
	return 0
}

// BuildIndex loads the cached index blob or, on a miss, counts the content
// and folds the counters into the index. Calling it again is a no-op.
func (ix *Indexer) BuildIndex(ctx context.Context) error {
	if ix.built {
		return nil
	}

	key := ix.keys.IndexKey(ix.slug)

	var cached indexBlob
	found, err := ix.blobs.GetBlob(ctx, key, &cached)
	if err != nil {
		return fmt.Errorf("failed to load index for %s: %w", ix.slug, err)
	}
	if found {
		ix.entries = cached.Entries
		ix.built = true
		return nil
	}

	if err := ix.buildFromCounts(ctx); err != nil {
		return err
	}

	blob := indexBlob{
		Entries:   ix.entries,
		PostTypes: ix.counter.PostTypes(ix.slug),
	}
	if err := ix.blobs.SetBlob(ctx, key, blob); err != nil {
		return fmt.Errorf("failed to persist index for %s: %w", ix.slug, err)
	}

	ix.built = true
	ix.justBuilt = true

	ix.logger.Debug("Sitemap index built",
		zap.String("slug", ix.slug),
		zap.Int("total_files", ix.totalFiles),
		zap.Int64("total_permalinks", ix.totalPermalinks))

	return nil
}

func (ix *Indexer) buildFromCounts(ctx context.Context) error {
	if ix.slug == configtypes.SlugSitemap && ix.cfg.Site.FrontPageID <= 0 {
		// The synthesized home element occupies one permalink slot.
		ix.totalPermalinks++
	}

	postCounts, err := ix.counter.PostCounts(ctx, ix.slug)
	if err != nil {
		return fmt.Errorf("failed to count posts for %s: %w", ix.slug, err)
	}
	ix.fold(postCounts)

	if ix.slug == configtypes.SlugSitemap {
		if ix.capacityLeft() > 0 {
			authorCounts, included, err := ix.counter.AuthorCounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to count authors: %w", err)
			}
			if included {
				ix.fold(authorCounts)
			}
		}
		if ix.capacityLeft() > 0 {
			taxonomyCounts, included, err := ix.counter.TaxonomyCounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to count taxonomies: %w", err)
			}
			if included {
				ix.fold(taxonomyCounts)
			}
		}
	}

	return nil
}

func (ix *Indexer) capacityLeft() int {
	return MaxFiles - ix.totalFiles
}

// fold accumulates one batch of category counters into the index, greedily
// assigning whole files until the file cap is hit. A category that doesn't
// fully fit keeps only the files there is room for; later categories are
// left out entirely. Every folded batch adds one extra permalink once the
// total has been credited at all, the home element accounting.
func (ix *Indexer) fold(counts []content.CategoryCount) {
	maxPermalinks := int64(ix.MaxPermalinks())

	for _, count := range counts {
		if count.Count <= 0 {
			continue
		}

		files := int((count.Count + maxPermalinks - 1) / maxPermalinks)
		capacityLeft := ix.capacityLeft()

		if files > capacityLeft {
			if ix.onTruncation != nil {
				ix.onTruncation(ix.slug, count.Category)
			}
			if capacityLeft > 0 {
				ix.totalFiles += capacityLeft
				ix.totalPermalinks += int64(capacityLeft) * maxPermalinks
				ix.entries = append(ix.entries, Entry{Category: count.Category, Files: capacityLeft})
			}
			break
		}

		ix.totalFiles += files
		ix.totalPermalinks += count.Count
		ix.entries = append(ix.entries, Entry{Category: count.Category, Files: files})
	}

	if ix.totalPermalinks > -1 {
		ix.totalPermalinks++
	}
}

// Exists reports whether the requested (category, number) pair falls within
// the built index.
func (ix *Indexer) Exists() bool {
	for _, entry := range ix.entries {
		if entry.Category == ix.category {
			return ix.number <= entry.Files
		}
	}
	return false
}

func (ix *Indexer) hasEntry(category string) bool {
	for _, entry := range ix.entries {
		if entry.Category == category {
			return true
		}
	}
	return false
}

// Entries returns the ordered index of sitemap files.
func (ix *Indexer) Entries() []Entry { return ix.entries }

// TotalFiles sums the files of every index entry.
func (ix *Indexer) TotalFiles() int {
	total := 0
	for _, entry := range ix.entries {
		total += entry.Files
	}
	return total
}

// TotalPermalinks is only meaningful right after a build; -1 otherwise.
func (ix *Indexer) TotalPermalinks() int64 { return ix.totalPermalinks }

// JustBuilt reports whether BuildIndex computed the index rather than
// loading it from cache.
func (ix *Indexer) JustBuilt() bool { return ix.justBuilt }
