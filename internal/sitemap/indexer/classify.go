package indexer

// Family describes which kind of content a sitemap category holds and
// therefore which build path serves it.
type Family string

const (
	FamilyPost     Family = "post"
	FamilyTaxonomy Family = "taxonomy"
	FamilyAuthor   Family = "author"
)

// CategoryAuthors is the reserved category name for author archive pages.
const CategoryAuthors = "authors"

// CategoryIndex is the pseudo-category of a bare slug request, answered
// with either the index document or the sole sitemap file.
const CategoryIndex = "index"

// Classify maps a requested category to its content family. The second
// return value is false when the category names nothing the configuration
// knows about, which the caller turns into a 404.
func Classify(category string, postTypes, taxonomies []string) (Family, bool) {
	if category == CategoryAuthors {
		return FamilyAuthor, true
	}
	for _, postType := range postTypes {
		if category == postType {
			return FamilyPost, true
		}
	}
	for _, taxonomy := range taxonomies {
		if category == taxonomy {
			return FamilyTaxonomy, true
		}
	}
	return "", false
}
