// Package contenttest provides an in-memory content.Querier for tests.
package contenttest

import (
	"context"
	"sync/atomic"

	"github.com/sitetree/engine/internal/content"
)

// Fake answers content queries from fixture data. Posts keep their slice
// order; tests arrange fixtures in the order a real query would return.
type Fake struct {
	PostsByType map[string][]content.Post
	Images      map[int64][]content.Attachment
	Terms       map[string][]content.Term
	Authors     []content.Author

	// MetaFlags marks posts carrying exclusion meta keys, keyed by post id.
	MetaFlags map[int64][]string

	// LastModified is the site-wide latest post modification time.
	LastModified string

	// Err, when set, is returned by every operation.
	Err error

	queries atomic.Int64
}

func New() *Fake {
	return &Fake{
		PostsByType: make(map[string][]content.Post),
		Images:      make(map[int64][]content.Attachment),
		Terms:       make(map[string][]content.Term),
		MetaFlags:   make(map[int64][]string),
	}
}

func (f *Fake) AddPost(post content.Post, metaKeys ...string) {
	f.PostsByType[post.Type] = append(f.PostsByType[post.Type], post)
	if len(metaKeys) > 0 {
		f.MetaFlags[post.ID] = append(f.MetaFlags[post.ID], metaKeys...)
	}
}

func (f *Fake) CountPosts(ctx context.Context, params content.CountPostsParams) ([]content.CategoryCount, error) {
	f.queries.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}

	postTypes := params.PostTypes
	if params.PageFirst {
		postTypes = pageFirst(postTypes)
	}

	var counts []content.CategoryCount
	for _, postType := range postTypes {
		count := int64(0)
		for _, post := range f.PostsByType[postType] {
			if f.excluded(post.ID, params.ExcludeMetaKeys) {
				continue
			}
			count++
		}
		counts = append(counts, content.CategoryCount{
			Category: postType,
			Count:    count,
			Lastmod:  f.LastModified,
		})
	}
	return counts, nil
}

func (f *Fake) CountTerms(ctx context.Context, params content.CountTermsParams) ([]content.CategoryCount, error) {
	f.queries.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}

	var counts []content.CategoryCount
	for _, taxonomy := range params.Taxonomies {
		count := int64(0)
		for _, term := range f.Terms[taxonomy] {
			if containsID(params.ExcludedIDs, term.ID) {
				continue
			}
			count++
		}
		counts = append(counts, content.CategoryCount{Category: taxonomy, Count: count})
	}
	return counts, nil
}

func (f *Fake) CountAuthors(ctx context.Context, excludedNicenames []string) ([]content.CategoryCount, error) {
	f.queries.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}

	count := int64(0)
	for _, author := range f.Authors {
		if containsString(excludedNicenames, author.Nicename) {
			continue
		}
		count++
	}
	return []content.CategoryCount{{Category: "authors", Count: count}}, nil
}

func (f *Fake) QueryPosts(ctx context.Context, params content.PostsParams) ([]content.Post, error) {
	f.queries.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}

	var posts []content.Post
	for _, post := range f.PostsByType[params.PostType] {
		if f.excluded(post.ID, params.ExcludeMetaKeys) || containsID(params.ExcludeIDs, post.ID) {
			continue
		}
		posts = append(posts, post)
	}
	return window(posts, params.Offset, params.Limit), nil
}

func (f *Fake) QueryAttachedImages(ctx context.Context, parentIDs []int64) (map[int64][]content.Attachment, error) {
	f.queries.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}

	result := make(map[int64][]content.Attachment)
	for _, id := range parentIDs {
		if attachments, ok := f.Images[id]; ok {
			result[id] = attachments
		}
	}
	return result, nil
}

func (f *Fake) QueryTerms(ctx context.Context, params content.TermsParams) ([]content.Term, error) {
	f.queries.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}

	var terms []content.Term
	for _, term := range f.Terms[params.Taxonomy] {
		if containsID(params.ExcludedIDs, term.ID) {
			continue
		}
		terms = append(terms, term)
	}
	return window(terms, params.Offset, params.Limit), nil
}

func (f *Fake) QueryAuthors(ctx context.Context, params content.AuthorsParams) ([]content.Author, error) {
	f.queries.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}

	var authors []content.Author
	for _, author := range f.Authors {
		if containsString(params.ExcludedNicenames, author.Nicename) {
			continue
		}
		authors = append(authors, author)
	}
	return window(authors, params.Offset, params.Limit), nil
}

func (f *Fake) GetPost(ctx context.Context, id int64) (*content.Post, error) {
	f.queries.Add(1)
	if f.Err != nil {
		return nil, f.Err
	}

	for _, posts := range f.PostsByType {
		for _, post := range posts {
			if post.ID == id {
				found := post
				return &found, nil
			}
		}
	}
	return nil, nil
}

func (f *Fake) LastPostModified(ctx context.Context) (string, error) {
	f.queries.Add(1)
	if f.Err != nil {
		return "", f.Err
	}
	return f.LastModified, nil
}

func (f *Fake) CountAttachedImages(ctx context.Context, postTypes []string, excludeMetaKeys []string) (int64, error) {
	f.queries.Add(1)
	if f.Err != nil {
		return 0, f.Err
	}

	total := int64(0)
	for _, attachments := range f.Images {
		total += int64(len(attachments))
	}
	return total, nil
}

func (f *Fake) NumQueries() int64 {
	return f.queries.Load()
}

func (f *Fake) HealthCheck(ctx context.Context) error {
	return f.Err
}

func (f *Fake) excluded(postID int64, metaKeys []string) bool {
	for _, flag := range f.MetaFlags[postID] {
		if containsString(metaKeys, flag) {
			return true
		}
	}
	return false
}

func pageFirst(postTypes []string) []string {
	ordered := make([]string, 0, len(postTypes))
	for _, postType := range postTypes {
		if postType == "page" {
			ordered = append([]string{"page"}, ordered...)
			continue
		}
		ordered = append(ordered, postType)
	}
	return ordered
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func containsString(values []string, wanted string) bool {
	for _, value := range values {
		if value == wanted {
			return true
		}
	}
	return false
}
