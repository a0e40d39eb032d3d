package content

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/sitetree/engine/internal/common/configtypes"
)

// Store reads published content from a WordPress-style MySQL database.
// Every exclusion (meta flags, term ids, author nicknames) is applied in
// SQL, so rows never need post-filtering.
type Store struct {
	db      *sql.DB
	prefix  string
	filters Filters
	logger  *zap.Logger
	queries atomic.Int64
}

func NewStore(cfg *configtypes.DatabaseConfig, filters Filters, logger *zap.Logger) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Std())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Debug("Content store connected",
		zap.String("table_prefix", cfg.TablePrefix))

	return &Store{
		db:      db,
		prefix:  cfg.TablePrefix,
		filters: filters,
		logger:  logger,
	}, nil
}

func (s *Store) table(name string) string {
	return s.prefix + name
}

// NumQueries returns the number of statements executed so far. Builders
// snapshot it around a build to report how many queries the build cost.
func (s *Store) NumQueries() int64 {
	return s.queries.Load()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) query(ctx context.Context, c *Clauses) (*sql.Rows, error) {
	s.queries.Add(1)

	rows, err := s.db.QueryContext(ctx, c.SQL(), c.Args...)
	if err != nil {
		s.logger.Error("Content query failed",
			zap.String("sql", c.SQL()),
			zap.Error(err))
		return nil, fmt.Errorf("content query failed: %w", err)
	}
	return rows, nil
}

// CountPosts counts publishable posts per post type. Rows come back ordered
// by freshest category first, with "page" forced to the front when asked.
func (s *Store) CountPosts(ctx context.Context, params CountPostsParams) ([]CategoryCount, error) {
	if len(params.PostTypes) == 0 {
		return nil, nil
	}

	c := &Clauses{
		Select: "p.post_type AS content_type, COUNT(p.post_type) AS count, MAX(p.post_modified) AS lastmod",
		From:   s.table("posts") + " AS p",
		Where: []string{
			"p.post_type IN (" + placeholders(len(params.PostTypes)) + ")",
			"p.post_status = 'publish'",
			"p.post_password = ''",
		},
		GroupBy: "content_type",
		OrderBy: "lastmod DESC",
	}

	if len(params.ExcludeMetaKeys) > 0 {
		c.Joins = append(c.Joins,
			"LEFT OUTER JOIN "+s.table("postmeta")+" AS pm ON p.ID = pm.post_id AND pm.meta_key IN ("+
				placeholders(len(params.ExcludeMetaKeys))+")")
		for _, key := range params.ExcludeMetaKeys {
			c.Args = append(c.Args, key)
		}
		c.Where = append(c.Where, "pm.post_id IS NULL")
	}
	for _, postType := range params.PostTypes {
		c.Args = append(c.Args, postType)
	}
	if params.NewsWindowDays > 0 {
		// The window compares against the GMT column so a site timezone
		// offset cannot shift it.
		c.Where = append(c.Where,
			fmt.Sprintf("p.post_date_gmt >= UTC_TIMESTAMP() - INTERVAL %d DAY", params.NewsWindowDays))
	}
	if params.PageFirst {
		c.OrderBy = "CASE WHEN (content_type = 'page') THEN 0 ELSE 1 END, lastmod DESC"
	}

	applyFilter(s.filters.PostsCount, c)

	rows, err := s.query(ctx, c)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCounts(rows)
}

// CountTerms counts distinct term slugs per taxonomy, considering only terms
// attached to at least one published post.
func (s *Store) CountTerms(ctx context.Context, params CountTermsParams) ([]CategoryCount, error) {
	if len(params.Taxonomies) == 0 {
		return nil, nil
	}

	c := &Clauses{
		Select: "tt.taxonomy AS content_type, COUNT(DISTINCT t.slug) AS count, MAX(p.post_modified) AS lastmod",
		From:   s.table("terms") + " AS t",
		Joins: []string{
			"INNER JOIN " + s.table("term_taxonomy") + " AS tt USING (term_id)",
			"INNER JOIN " + s.table("term_relationships") + " AS tr USING (term_taxonomy_id)",
			"INNER JOIN " + s.table("posts") + " AS p ON p.ID = tr.object_id",
		},
		Where: []string{
			"tt.taxonomy IN (" + placeholders(len(params.Taxonomies)) + ")",
			"p.post_status = 'publish'",
		},
		GroupBy: "content_type",
		OrderBy: "lastmod DESC",
	}
	for _, taxonomy := range params.Taxonomies {
		c.Args = append(c.Args, taxonomy)
	}
	if len(params.ExcludedIDs) > 0 {
		c.Where = append([]string{"t.term_id NOT IN (" + placeholders(len(params.ExcludedIDs)) + ")"}, c.Where...)
		args := make([]interface{}, 0, len(params.ExcludedIDs)+len(c.Args))
		for _, id := range params.ExcludedIDs {
			args = append(args, id)
		}
		c.Args = append(args, c.Args...)
	}

	applyFilter(s.filters.TermsCount, c)

	rows, err := s.query(ctx, c)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCounts(rows)
}

// CountAuthors counts users with at least one published post, as the single
// "authors" category.
func (s *Store) CountAuthors(ctx context.Context, excludedNicenames []string) ([]CategoryCount, error) {
	c := &Clauses{
		Select: "'authors' AS content_type, COUNT(DISTINCT u.ID) AS count",
		From:   s.table("users") + " AS u",
		Joins: []string{
			"INNER JOIN " + s.table("posts") + " AS p ON p.post_author = u.ID",
		},
		Where: []string{
			"p.post_type = 'post'",
			"p.post_status = 'publish'",
		},
	}
	if len(excludedNicenames) > 0 {
		c.Where = append([]string{"u.user_nicename NOT IN (" + placeholders(len(excludedNicenames)) + ")"}, c.Where...)
		for _, nicename := range excludedNicenames {
			c.Args = append(c.Args, nicename)
		}
	}

	rows, err := s.query(ctx, c)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CategoryCount
	for rows.Next() {
		var count CategoryCount
		if err := rows.Scan(&count.Category, &count.Count); err != nil {
			return nil, fmt.Errorf("failed to scan author count: %w", err)
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

// QueryPosts returns a page of publishable posts of one type.
func (s *Store) QueryPosts(ctx context.Context, params PostsParams) ([]Post, error) {
	c := &Clauses{
		Select: "p.ID, p.post_name, p.post_title, p.post_type, p.post_parent, p.post_modified, p.post_date",
		From:   s.table("posts") + " AS p",
		Where: []string{
			"p.post_type = ?",
			"p.post_status = 'publish'",
			"p.post_password = ''",
		},
		OrderBy: "p.post_modified DESC",
		Limit:   params.Limit,
		Offset:  params.Offset,
	}

	if len(params.ExcludeMetaKeys) > 0 {
		c.Joins = append(c.Joins,
			"LEFT OUTER JOIN "+s.table("postmeta")+" AS pm ON pm.post_id = p.ID AND pm.meta_key IN ("+
				placeholders(len(params.ExcludeMetaKeys))+")")
		for _, key := range params.ExcludeMetaKeys {
			c.Args = append(c.Args, key)
		}
		c.Where = append(c.Where, "pm.post_id IS NULL")
	}
	c.Args = append(c.Args, params.PostType)

	if len(params.ExcludeIDs) > 0 {
		c.Where = append(c.Where, "p.ID NOT IN ("+placeholders(len(params.ExcludeIDs))+")")
		for _, id := range params.ExcludeIDs {
			c.Args = append(c.Args, id)
		}
	}
	if params.NewsWindowDays > 0 {
		c.Where = append(c.Where,
			fmt.Sprintf("p.post_date_gmt >= UTC_TIMESTAMP() - INTERVAL %d DAY", params.NewsWindowDays))
		c.OrderBy = "p.post_date DESC"
	}
	switch params.OrderBy {
	case "title":
		c.OrderBy = "p.post_title ASC"
	case "date":
		c.OrderBy = "p.post_date DESC"
	}

	applyFilter(s.filters.Posts, c)

	rows, err := s.query(ctx, c)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var post Post
		if err := rows.Scan(&post.ID, &post.Name, &post.Title, &post.Type,
			&post.Parent, &post.Modified, &post.Date); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// QueryAttachedImages returns the image attachments of the given posts,
// grouped by parent post id. An attachment's caption falls back from its
// excerpt to its description.
func (s *Store) QueryAttachedImages(ctx context.Context, parentIDs []int64) (map[int64][]Attachment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	c := &Clauses{
		Select: "ID, guid, post_title, post_content, post_excerpt, post_parent",
		From:   s.table("posts"),
		Where: []string{
			"post_parent IN (" + placeholders(len(parentIDs)) + ")",
			"post_type = 'attachment'",
			"post_mime_type LIKE 'image/%'",
		},
		OrderBy: "post_modified DESC",
	}
	for _, id := range parentIDs {
		c.Args = append(c.Args, id)
	}

	rows, err := s.query(ctx, c)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make(map[int64][]Attachment)
	for rows.Next() {
		var (
			attachment       Attachment
			content, excerpt string
		)
		if err := rows.Scan(&attachment.ID, &attachment.URL, &attachment.Title,
			&content, &excerpt, &attachment.Parent); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		if excerpt != "" {
			attachment.Caption = excerpt
		} else {
			attachment.Caption = content
		}
		images[attachment.Parent] = append(images[attachment.Parent], attachment)
	}
	return images, rows.Err()
}

// QueryTerms returns a page of taxonomy terms ordered by the modification
// time of their most recent post.
func (s *Store) QueryTerms(ctx context.Context, params TermsParams) ([]Term, error) {
	c := &Clauses{
		Select: "t.term_id, t.slug, t.name, tt.taxonomy, MAX(p.post_modified) AS last_modified",
		From:   s.table("terms") + " AS t",
		Joins: []string{
			"INNER JOIN " + s.table("term_taxonomy") + " AS tt USING (term_id)",
			"INNER JOIN " + s.table("term_relationships") + " AS tr USING (term_taxonomy_id)",
			"INNER JOIN " + s.table("posts") + " AS p ON p.ID = tr.object_id",
		},
		Where: []string{
			"tt.taxonomy = ?",
			"p.post_status = 'publish'",
		},
		GroupBy: "t.term_id, tt.taxonomy",
		OrderBy: "last_modified DESC",
		Limit:   params.Limit,
		Offset:  params.Offset,
	}
	if len(params.ExcludedIDs) > 0 {
		c.Where = append([]string{"t.term_id NOT IN (" + placeholders(len(params.ExcludedIDs)) + ")"}, c.Where...)
		for _, id := range params.ExcludedIDs {
			c.Args = append(c.Args, id)
		}
	}
	c.Args = append(c.Args, params.Taxonomy)

	if params.OrderBy == "name" {
		c.OrderBy = "t.name ASC"
	}

	applyFilter(s.filters.Terms, c)

	rows, err := s.query(ctx, c)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []Term
	for rows.Next() {
		var term Term
		if err := rows.Scan(&term.ID, &term.Slug, &term.Name, &term.Taxonomy, &term.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

// QueryAuthors returns a page of authors ordered by most recent post.
func (s *Store) QueryAuthors(ctx context.Context, params AuthorsParams) ([]Author, error) {
	c := &Clauses{
		Select: "u.ID, u.user_nicename, u.display_name, MAX(p.post_modified) AS last_post_modified",
		From:   s.table("users") + " AS u",
		Joins: []string{
			"INNER JOIN " + s.table("posts") + " AS p ON p.post_author = u.ID",
		},
		Where: []string{
			"p.post_type = 'post'",
			"p.post_status = 'publish'",
		},
		GroupBy: "p.post_author",
		OrderBy: "last_post_modified DESC",
		Limit:   params.Limit,
		Offset:  params.Offset,
	}
	if len(params.ExcludedNicenames) > 0 {
		c.Where = append([]string{"u.user_nicename NOT IN (" + placeholders(len(params.ExcludedNicenames)) + ")"}, c.Where...)
		for _, nicename := range params.ExcludedNicenames {
			c.Args = append(c.Args, nicename)
		}
	}

	rows, err := s.query(ctx, c)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var author Author
		if err := rows.Scan(&author.ID, &author.Nicename, &author.DisplayName,
			&author.LastPostModified); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, author)
	}
	return authors, rows.Err()
}

// GetPost returns one published post by id, nil if absent.
func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	c := &Clauses{
		Select: "ID, post_name, post_title, post_type, post_parent, post_modified, post_date",
		From:   s.table("posts"),
		Where:  []string{"ID = ?", "post_status = 'publish'"},
		Args:   []interface{}{id},
	}

	s.queries.Add(1)

	var post Post
	err := s.db.QueryRowContext(ctx, c.SQL(), c.Args...).Scan(
		&post.ID, &post.Name, &post.Title, &post.Type,
		&post.Parent, &post.Modified, &post.Date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post %d: %w", id, err)
	}
	return &post, nil
}

// LastPostModified returns the modification time of the most recently
// changed published post, empty when the site has none.
func (s *Store) LastPostModified(ctx context.Context) (string, error) {
	s.queries.Add(1)

	var lastmod sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(post_modified) FROM "+s.table("posts")+
			" WHERE post_type = 'post' AND post_status = 'publish'").Scan(&lastmod)
	if err != nil {
		return "", fmt.Errorf("failed to fetch last post modification time: %w", err)
	}
	return lastmod.String, nil
}

// CountAttachedImages counts image attachments whose parents would appear
// in the sitemap. Returns -1 when no post types are included.
func (s *Store) CountAttachedImages(ctx context.Context, postTypes []string, excludeMetaKeys []string) (int64, error) {
	if len(postTypes) == 0 {
		return -1, nil
	}

	subquery := "SELECT p_inner.ID FROM " + s.table("posts") + " AS p_inner"
	args := make([]interface{}, 0, len(excludeMetaKeys)+len(postTypes))

	if len(excludeMetaKeys) > 0 {
		subquery += " LEFT OUTER JOIN " + s.table("postmeta") + " AS pm_inner" +
			" ON p_inner.ID = pm_inner.post_id AND pm_inner.meta_key IN (" +
			placeholders(len(excludeMetaKeys)) + ")"
		for _, key := range excludeMetaKeys {
			args = append(args, key)
		}
	}
	subquery += " WHERE p_inner.post_type IN (" + placeholders(len(postTypes)) + ")" +
		" AND p_inner.post_status = 'publish' AND p_inner.post_password = ''"
	for _, postType := range postTypes {
		args = append(args, postType)
	}
	if len(excludeMetaKeys) > 0 {
		subquery += " AND pm_inner.post_id IS NULL"
	}

	s.queries.Add(1)

	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(ID) FROM "+s.table("posts")+
			" WHERE post_parent IN ("+subquery+")"+
			" AND post_type = 'attachment' AND post_mime_type LIKE 'image/%'",
		args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attached images: %w", err)
	}
	return count, nil
}

func scanCounts(rows *sql.Rows) ([]CategoryCount, error) {
	var counts []CategoryCount
	for rows.Next() {
		var (
			count   CategoryCount
			lastmod sql.NullString
		)
		if err := rows.Scan(&count.Category, &count.Count, &lastmod); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		count.Lastmod = lastmod.String
		counts = append(counts, count)
	}
	return counts, rows.Err()
}
