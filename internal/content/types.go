package content

import "context"

// CategoryCount is one row of a category count query: how many permalinks a
// content category contributes and when its freshest entry changed.
type CategoryCount struct {
	Category string
	Count    int64
	Lastmod  string
}

// Post is a published entry of the posts table. Modified and Date keep the
// database's local-time "2006-01-02 15:04:05" representation.
type Post struct {
	ID       int64
	Name     string
	Title    string
	Type     string
	Parent   int64
	Modified string
	Date     string
}

// Attachment is an image file attached to a post.
type Attachment struct {
	ID      int64
	Parent  int64
	URL     string
	Title   string
	Caption string
}

// Term is a taxonomy term together with the modification time of its most
// recently touched post.
type Term struct {
	ID           int64
	Slug         string
	Name         string
	Taxonomy     string
	LastModified string
}

// Author is a user with at least one published post.
type Author struct {
	ID               int64
	Nicename         string
	DisplayName      string
	LastPostModified string
}

// CountPostsParams drives the per-post-type count query.
type CountPostsParams struct {
	PostTypes       []string
	ExcludeMetaKeys []string
	// PageFirst forces the "page" category ahead of the others regardless
	// of lastmod ordering.
	PageFirst bool
	// NewsWindowDays restricts the count to recently published posts; zero
	// disables the window.
	NewsWindowDays int
}

// CountTermsParams drives the per-taxonomy count query.
type CountTermsParams struct {
	Taxonomies  []string
	ExcludedIDs []int64
}

// PostsParams drives a paged posts query for one post type.
type PostsParams struct {
	PostType        string
	ExcludeMetaKeys []string
	ExcludeIDs      []int64
	NewsWindowDays  int
	// OrderBy is "modified" (default), "date" or "title".
	OrderBy string
	Limit   int
	Offset  int
}

// TermsParams drives a paged terms query for one taxonomy.
type TermsParams struct {
	Taxonomy    string
	ExcludedIDs []int64
	OrderBy     string
	Limit       int
	Offset      int
}

// AuthorsParams drives a paged authors query.
type AuthorsParams struct {
	ExcludedNicenames []string
	Limit             int
	Offset            int
}

// Querier is the read surface builders depend on. *Store implements it
// against MySQL; tests substitute an in-memory fake.
type Querier interface {
	CountPosts(ctx context.Context, params CountPostsParams) ([]CategoryCount, error)
	CountTerms(ctx context.Context, params CountTermsParams) ([]CategoryCount, error)
	CountAuthors(ctx context.Context, excludedNicenames []string) ([]CategoryCount, error)

	QueryPosts(ctx context.Context, params PostsParams) ([]Post, error)
	QueryAttachedImages(ctx context.Context, parentIDs []int64) (map[int64][]Attachment, error)
	QueryTerms(ctx context.Context, params TermsParams) ([]Term, error)
	QueryAuthors(ctx context.Context, params AuthorsParams) ([]Author, error)

	GetPost(ctx context.Context, id int64) (*Post, error)
	LastPostModified(ctx context.Context) (string, error)
	CountAttachedImages(ctx context.Context, postTypes []string, excludeMetaKeys []string) (int64, error)

	NumQueries() int64
	HealthCheck(ctx context.Context) error
}
