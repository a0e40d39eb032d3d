package builder

import "github.com/sitetree/engine/internal/content"

// imagesPerURLElement caps the image sub-elements of one URL element, per
// the sitemap image schema.
const imagesPerURLElement = 1000

// ImageElement is one image sub-element of a URL element. Title and
// caption are raw text; they are sanitized at serialization time.
type ImageElement struct {
	URL     string
	Title   string
	Caption string
}

// NewImageElement builds an element from caller-supplied values.
func NewImageElement(url, title, caption string) ImageElement {
	return ImageElement{
		URL:     url,
		Title:   title,
		Caption: caption,
	}
}

// ImageFromAttachment builds an element from an attachment row. The store
// has already folded the caption fallback (excerpt, then description).
func ImageFromAttachment(attachment content.Attachment) ImageElement {
	return ImageElement{
		URL:     attachment.URL,
		Title:   attachment.Title,
		Caption: attachment.Caption,
	}
}
